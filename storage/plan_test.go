// Copyright © 2025 Linexin Project
//
// SPDX-License-Identifier: GPL-3.0-only

package storage

import (
	"testing"
)

func TestBuildPlanUEFIPartition(t *testing.T) {
	// 40GB existing partition
	size := uint64(40 * (1 << 30) / SectorSize)
	target := &InstallTarget{
		Kind:   TargetExistingPartition,
		Device: "/dev/sda3",
		Disk:   "/dev/sda",
		Start:  1050624,
		Size:   size,
	}

	plan, err := BuildPlan(target, BootModeUEFI)
	if err != nil {
		t.Fatalf("BuildPlan() failed: %s", err)
	}

	if len(plan.Steps) != 2 {
		t.Fatalf("UEFI plan must have exactly two steps, got %d", len(plan.Steps))
	}

	efi := plan.FindStep(RoleEFI)
	if efi == nil || efi.Size != EFISizeSectors {
		t.Fatalf("EFI step must be exactly %d sectors: %+v", EFISizeSectors, efi)
	}

	if efi.Start != target.Start {
		t.Fatalf("EFI step must start at the region start: %d != %d", efi.Start, target.Start)
	}

	root := plan.FindStep(RoleRoot)
	if root == nil {
		t.Fatal("UEFI plan must have a root step")
	}

	if root.Start != target.Start+EFISizeSectors {
		t.Fatalf("root must start right after the EFI partition: %d", root.Start)
	}

	if root.Size != size-EFISizeSectors {
		t.Fatalf("root must span the remainder: %d != %d", root.Size, size-EFISizeSectors)
	}
}

func TestBuildPlanLegacyPartition(t *testing.T) {
	size := uint64(40 * (1 << 30) / SectorSize)
	target := &InstallTarget{
		Kind:   TargetExistingPartition,
		Device: "/dev/sda3",
		Disk:   "/dev/sda",
		Start:  1050624,
		Size:   size,
	}

	plan, err := BuildPlan(target, BootModeLegacy)
	if err != nil {
		t.Fatalf("BuildPlan() failed: %s", err)
	}

	if len(plan.Steps) != 1 {
		t.Fatalf("Legacy plan must have exactly one step, got %d", len(plan.Steps))
	}

	root := plan.Steps[0]
	if root.Role != RoleRoot {
		t.Fatalf("Legacy plan's single step must be the root, got %s", root.Role)
	}

	if root.Start != target.Start || root.Size != target.Size {
		t.Fatalf("Legacy root must span the full region: %d+%d", root.Start, root.Size)
	}
}

func TestBuildPlanWholeDiskLegacy(t *testing.T) {
	// 20GB whole disk on a legacy host
	size := uint64(20 * (1 << 30) / SectorSize)
	target := &InstallTarget{
		Kind: TargetWholeDisk,
		Disk: "/dev/sdb",
		Size: size,
	}

	plan, err := BuildPlan(target, BootModeLegacy)
	if err != nil {
		t.Fatalf("BuildPlan() failed: %s", err)
	}

	if !plan.WholeDisk {
		t.Fatal("Whole disk plan must carry the labeling requirement")
	}

	root := plan.Steps[0]
	if root.Start != WholeDiskOffsetSectors {
		t.Fatalf("Whole disk root must start at sector %d, got %d", WholeDiskOffsetSectors, root.Start)
	}

	if root.Size != size-WholeDiskOffsetSectors {
		t.Fatalf("Whole disk root must span the disk minus the table overhead: %d", root.Size)
	}
}

func TestBuildPlanWholeDiskUEFI(t *testing.T) {
	size := uint64(40 * (1 << 30) / SectorSize)
	target := &InstallTarget{
		Kind: TargetWholeDisk,
		Disk: "/dev/sdb",
		Size: size,
	}

	plan, err := BuildPlan(target, BootModeUEFI)
	if err != nil {
		t.Fatalf("BuildPlan() failed: %s", err)
	}

	efi := plan.FindStep(RoleEFI)
	if efi.Start != WholeDiskOffsetSectors {
		t.Fatalf("Whole disk EFI must start at sector %d, got %d", WholeDiskOffsetSectors, efi.Start)
	}

	root := plan.FindStep(RoleRoot)
	if root.Size != size-WholeDiskOffsetSectors-EFISizeSectors {
		t.Fatalf("Whole disk root size wrong: %d", root.Size)
	}
}

func TestBuildPlanStepsWithinBounds(t *testing.T) {
	sizes := []uint64{
		25 * (1 << 30) / SectorSize,
		40 * (1 << 30) / SectorSize,
		3 * (1 << 30) / SectorSize,
	}
	kinds := []TargetKind{TargetExistingPartition, TargetFreeRegion, TargetWholeDisk}
	modes := []BootMode{BootModeUEFI, BootModeLegacy}

	for _, size := range sizes {
		for _, kind := range kinds {
			for _, mode := range modes {
				target := &InstallTarget{
					Kind:   kind,
					Device: "/dev/sda1",
					Disk:   "/dev/sda",
					Start:  2048,
					Size:   size,
				}
				if kind == TargetWholeDisk {
					target.Start = 0
					target.Device = ""
				}

				plan, err := BuildPlan(target, mode)
				if err != nil {
					continue
				}

				var prevEnd uint64
				for _, step := range plan.Steps {
					if step.Start < prevEnd {
						t.Fatalf("steps overlap: %s starts at %d before %d", step.Role, step.Start, prevEnd)
					}
					prevEnd = step.Start + step.Size
				}

				if prevEnd > target.Start+target.Size {
					t.Fatalf("plan exceeds the target bounds: %d > %d (kind=%s mode=%s size=%d)",
						prevEnd, target.Start+target.Size, kind, mode, size)
				}
			}
		}
	}
}

func TestBuildPlanInsufficientSpace(t *testing.T) {
	// 700 MiB region: EFI fits but root would land under the floor
	size := uint64(700 * (1 << 20) / SectorSize)
	target := &InstallTarget{
		Kind:   TargetExistingPartition,
		Device: "/dev/sda3",
		Disk:   "/dev/sda",
		Start:  2048,
		Size:   size,
	}

	_, err := BuildPlan(target, BootModeUEFI)
	if err == nil {
		t.Fatal("BuildPlan() should refuse an undersized region")
	}

	if !IsInsufficientSpace(err) {
		t.Fatalf("expected an insufficient space error, got: %s", err)
	}

	// same region is fine without the EFI reservation
	if _, err := BuildPlan(target, BootModeLegacy); err != nil {
		t.Fatalf("Legacy plan should fit in %d sectors: %s", size, err)
	}
}

func TestBuildPlanTinyRegion(t *testing.T) {
	target := &InstallTarget{
		Kind:   TargetExistingPartition,
		Device: "/dev/sda3",
		Disk:   "/dev/sda",
		Start:  2048,
		Size:   EFISizeSectors, // no room for any root
	}

	if _, err := BuildPlan(target, BootModeUEFI); !IsInsufficientSpace(err) {
		t.Fatalf("expected an insufficient space error, got: %v", err)
	}
}

func TestBuildPlanDeterministic(t *testing.T) {
	target := &InstallTarget{
		Kind:   TargetExistingPartition,
		Device: "/dev/sda3",
		Disk:   "/dev/sda",
		Start:  1050624,
		Size:   40 * (1 << 30) / SectorSize,
	}

	first, err := BuildPlan(target, BootModeUEFI)
	if err != nil {
		t.Fatalf("BuildPlan() failed: %s", err)
	}

	second, err := BuildPlan(target, BootModeUEFI)
	if err != nil {
		t.Fatalf("BuildPlan() failed: %s", err)
	}

	if first.String() != second.String() {
		t.Fatalf("plans differ for identical inputs: %s != %s", first, second)
	}
}

func TestIdentifyTolerance(t *testing.T) {
	expected := uint64(1050624)
	entries := []TableEntry{{Node: "/dev/sda3", Start: expected + 8191}}

	if matchEntry(entries, expected) == nil {
		t.Fatal("entry 8191 sectors off must match")
	}

	entries[0].Start = expected - 8191
	if matchEntry(entries, expected) == nil {
		t.Fatal("entry -8191 sectors off must match")
	}

	entries[0].Start = expected + 8193
	if matchEntry(entries, expected) != nil {
		t.Fatal("entry 8193 sectors off must not match")
	}

	entries[0].Start = expected - 8193
	if matchEntry(entries, expected) != nil {
		t.Fatal("entry -8193 sectors off must not match")
	}
}
