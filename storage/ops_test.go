// Copyright © 2025 Linexin Project
//
// SPDX-License-Identifier: GPL-3.0-only

package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderSfdiskScript(t *testing.T) {
	steps := []PlanStep{
		{Role: RoleEFI, Start: 1050624, Size: EFISizeSectors, TypeCode: "U", FsType: "vfat"},
		{Role: RoleRoot, Start: 2099200, Size: 102807552, TypeCode: "L", FsType: "ext4"},
	}

	expected := "start=1050624, size=1048576, type=U\n" +
		"start=2099200, size=102807552, type=L\n"

	if script := renderSfdiskScript(steps); script != expected {
		t.Fatalf("Unexpected sfdisk script:\n%q\nexpected:\n%q", script, expected)
	}
}

func TestRenderSfdiskScriptEmpty(t *testing.T) {
	if script := renderSfdiskScript(nil); script != "" {
		t.Fatalf("Expected empty script, got: %q", script)
	}
}

func TestAppendTableEntriesCarriesToolOutput(t *testing.T) {
	fake := filepath.Join(t.TempDir(), "sfdisk")
	body := "#!/bin/sh\necho 'sfdisk: cannot open /dev/sdz: Permission denied' >&2\nexit 1\n"
	if err := os.WriteFile(fake, []byte(body), 0755); err != nil {
		t.Fatalf("Failed to write fake tool: %s", err)
	}

	curr := sfdiskBinary
	sfdiskBinary = fake
	t.Cleanup(func() {
		sfdiskBinary = curr
	})

	err := AppendTableEntries("/dev/sdz", []PlanStep{
		{Role: RoleRoot, Start: 2048, Size: 4096, TypeCode: "L", FsType: "ext4"},
	})
	if err == nil {
		t.Fatal("AppendTableEntries must fail when the tool fails")
	}

	if !IsToolInvocationFailed(err) {
		t.Fatalf("Expected a tool invocation error, got: %s", err)
	}

	if !strings.Contains(err.Error(), "Permission denied") {
		t.Fatalf("The tool's error text must surface, got: %s", err)
	}
}

func TestMakeFsUnknownFilesystem(t *testing.T) {
	err := MakeFs("/dev/null", "zfs")
	if err == nil {
		t.Fatal("MakeFs must reject filesystems it has no mkfs for")
	}

	if !IsToolInvocationFailed(err) {
		t.Fatalf("Expected a tool invocation error, got: %s", err)
	}
}

func TestPartitionTargetsPolicyBoundary(t *testing.T) {
	// point blockdev at a failing binary so sizing falls back to the
	// enumerated size, which the test controls
	curr := blockdevBinary
	blockdevBinary = "false"
	t.Cleanup(func() {
		blockdevBinary = curr
	})

	policy := DefaultTargetPolicy()

	disk := &BlockDevice{
		Name: "sdz",
		Type: BlockDeviceTypeDisk,
		Children: []*BlockDevice{
			{
				Name:  "sdz1",
				Type:  BlockDeviceTypePart,
				Start: 2048,
				Size:  policy.MinTargetBytes - 1,
			},
			{
				Name:  "sdz2",
				Type:  BlockDeviceTypePart,
				Start: 1050624,
				Size:  policy.MinTargetBytes,
				Label: "Home",
			},
		},
	}

	targets := partitionTargets(disk, policy)

	if len(targets) != 1 {
		t.Fatalf("Expected 1 target above the size floor, got: %d", len(targets))
	}

	if targets[0].Device != "/dev/sdz2" {
		t.Fatalf("Expected /dev/sdz2 to survive the filter, got: %s", targets[0].Device)
	}

	if targets[0].Size != policy.MinTargetBytes/SectorSize {
		t.Fatalf("Expected size in sectors, got: %d", targets[0].Size)
	}
}
