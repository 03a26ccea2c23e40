// Copyright © 2025 Linexin Project
//
// SPDX-License-Identifier: GPL-3.0-only

package storage

import (
	"fmt"
)

// PartRole names the purpose a planned partition serves
type PartRole string

const (
	// RoleEFI is the EFI system partition
	RoleEFI = PartRole("EFI")

	// RoleRoot is the root filesystem partition
	RoleRoot = PartRole("ROOT")
)

const (
	// EFISizeSectors is the fixed EFI system partition size (512 MiB)
	EFISizeSectors = 1048576

	// RootMinSectors is the safety floor for the root partition (500 MiB);
	// below this the plan is refused rather than producing an unusable system
	RootMinSectors = 1024000

	// WholeDiskOffsetSectors is the leading alignment gap reserved when a
	// fresh table is written to an unlabeled disk
	WholeDiskOffsetSectors = 2048
)

// sfdisk script shorthand type codes
const (
	typeCodeESP   = "U"
	typeCodeLinux = "L"
)

// PlanStep is one partition to create: an explicit absolute sector range,
// never "to end of disk", so a created partition cannot silently absorb
// adjacent free space
type PlanStep struct {
	Role     PartRole // purpose of the partition
	Start    uint64   // absolute first sector
	Size     uint64   // length in sectors
	TypeCode string   // partition type for the table script
	FsType   string   // filesystem to create on the resolved node
}

// PartitionPlan is the concrete layout derived from a target and a boot
// mode; derived, never stored
type PartitionPlan struct {
	BootMode  BootMode
	Disk      string
	WholeDisk bool
	Steps     []PlanStep
}

// String renders the plan for logging
func (plan *PartitionPlan) String() string {
	out := fmt.Sprintf("%s plan for %s:", plan.BootMode, plan.Disk)

	for _, step := range plan.Steps {
		out += fmt.Sprintf(" %s@%d+%d", step.Role, step.Start, step.Size)
	}

	return out
}

// FindStep returns the plan step serving the given role, or nil
func (plan *PartitionPlan) FindStep(role PartRole) *PlanStep {
	for i := range plan.Steps {
		if plan.Steps[i].Role == role {
			return &plan.Steps[i]
		}
	}

	return nil
}

// BuildPlan computes the concrete sector ranges to create on the target
// for the given boot mode. The result is a pure function of its inputs:
// no device access, no environment reads, fully checkable offline.
//
// UEFI yields exactly two steps, a fixed size EFI partition followed by a
// root spanning the remainder; Legacy yields a single root spanning the
// whole region. Whole disks reserve a leading alignment gap since the
// executor writes a fresh table before creating anything.
func BuildPlan(target *InstallTarget, mode BootMode) (*PartitionPlan, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}

	start := target.Start
	size := target.Size

	wholeDisk := target.Kind == TargetWholeDisk
	if wholeDisk {
		if size <= WholeDiskOffsetSectors {
			return nil, InsufficientSpacef("%s is smaller than the partition table overhead", target.Disk)
		}

		start = WholeDiskOffsetSectors
		size -= WholeDiskOffsetSectors
	}

	plan := &PartitionPlan{
		BootMode:  mode,
		Disk:      target.Disk,
		WholeDisk: wholeDisk,
	}

	rootStart := start
	rootSize := size

	if mode == BootModeUEFI {
		if size <= EFISizeSectors {
			return nil, InsufficientSpacef(
				"%s: %d sectors cannot hold the EFI system partition", target.Disk, size)
		}

		plan.Steps = append(plan.Steps, PlanStep{
			Role:     RoleEFI,
			Start:    start,
			Size:     EFISizeSectors,
			TypeCode: typeCodeESP,
			FsType:   "vfat",
		})

		rootStart = start + EFISizeSectors
		rootSize = size - EFISizeSectors
	}

	if rootSize < RootMinSectors {
		return nil, InsufficientSpacef(
			"%s: root would be %d sectors, %d required", target.Disk, rootSize, RootMinSectors)
	}

	plan.Steps = append(plan.Steps, PlanStep{
		Role:     RoleRoot,
		Start:    rootStart,
		Size:     rootSize,
		TypeCode: typeCodeLinux,
		FsType:   "ext4",
	})

	return plan, nil
}
