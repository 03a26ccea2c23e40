// Copyright © 2025 Linexin Project
//
// SPDX-License-Identifier: GPL-3.0-only

package storage

import (
	"testing"

	"gopkg.in/yaml.v2"
)

const lsblkDescriptor = `{
   "blockdevices": [
      {"name":"sda", "size":500107862016, "fstype":null, "label":null, "mountpoint":null, "type":"disk", "pkname":null, "start":null,
         "children": [
            {"name":"sda1", "size":536870912, "fstype":"vfat", "label":null, "mountpoint":"/boot", "type":"part", "pkname":"sda", "start":2048},
            {"name":"sda2", "size":53687091200, "fstype":"ext4", "label":"Home", "mountpoint":null, "type":"part", "pkname":"sda", "start":1050624}
         ]
      },
      {"name":"sdb", "size":128035676160, "fstype":null, "label":null, "mountpoint":null, "type":"disk", "pkname":null, "start":null}
   ]
}`

func TestParseBlockDevicesDescriptor(t *testing.T) {
	bds, err := parseBlockDevicesDescriptor([]byte(lsblkDescriptor))
	if err != nil {
		t.Fatalf("parseBlockDevicesDescriptor() failed: %s", err)
	}

	if len(bds) != 2 {
		t.Fatalf("expected 2 disks, got %d", len(bds))
	}

	sda := bds[0]
	if sda.Name != "sda" || sda.Type != BlockDeviceTypeDisk {
		t.Fatalf("unexpected first device: %+v", sda)
	}

	if len(sda.Children) != 2 {
		t.Fatalf("expected 2 partitions on sda, got %d", len(sda.Children))
	}

	part := sda.Children[1]
	if part.Name != "sda2" || part.Start != 1050624 || part.Label != "Home" {
		t.Fatalf("unexpected partition: %+v", part)
	}

	if part.GetDeviceFile() != "/dev/sda2" {
		t.Fatalf("unexpected device file: %s", part.GetDeviceFile())
	}

	if part.PartitionNumber() != 2 {
		t.Fatalf("unexpected partition number: %d", part.PartitionNumber())
	}

	if bds[1].Children != nil {
		t.Fatalf("sdb should have no children: %+v", bds[1].Children)
	}
}

func TestParseBlockDevicesStringValues(t *testing.T) {
	// lsblk < 2.33 prints sizes and flags as strings
	descriptor := `{
   "blockdevices": [
      {"name":"sdc", "size":"128035676160", "rm":"1", "type":"disk", "start":""}
   ]
}`

	bds, err := parseBlockDevicesDescriptor([]byte(descriptor))
	if err != nil {
		t.Fatalf("parseBlockDevicesDescriptor() failed: %s", err)
	}

	if bds[0].Size != 128035676160 {
		t.Fatalf("string size not parsed: %d", bds[0].Size)
	}

	if !bds[0].RemovableDevice {
		t.Fatal("string rm flag not parsed")
	}

	// both lsblk dialects must describe the same device
	numeric := `{
   "blockdevices": [
      {"name":"sdc", "size":128035676160, "rm":true, "type":"disk", "start":null}
   ]
}`

	nbds, err := parseBlockDevicesDescriptor([]byte(numeric))
	if err != nil {
		t.Fatalf("parseBlockDevicesDescriptor() failed: %s", err)
	}

	if !bds[0].Equals(nbds[0]) {
		t.Fatalf("dialects disagree: %+v vs %+v", bds[0], nbds[0])
	}
}

func TestEmptyBlockDevicesDescriptor(t *testing.T) {
	if _, err := parseBlockDevicesDescriptor([]byte("")); err == nil {
		t.Fatalf("Should have failed to parse invalid descriptor")
	}
}

func TestPartitionNumberFromPath(t *testing.T) {
	tests := []struct {
		path   string
		number uint64
	}{
		{"/dev/sda3", 3},
		{"/dev/nvme0n1p2", 2},
		{"/dev/mmcblk0p1", 1},
	}

	for _, tt := range tests {
		number, err := PartitionNumberFromPath(tt.path)
		if err != nil {
			t.Fatalf("PartitionNumberFromPath(%s) failed: %s", tt.path, err)
		}

		if number != tt.number {
			t.Fatalf("PartitionNumberFromPath(%s) = %d, expected %d", tt.path, number, tt.number)
		}
	}

	if _, err := PartitionNumberFromPath("/dev/sda"); err == nil {
		t.Fatal("a bare disk path has no partition number")
	}
}

func TestParseFreeRegions(t *testing.T) {
	table := `BYT;
/dev/sda:976773168s:scsi:512:512:gpt:ATA Disk:;
1:34s:2047s:2014s:free;
1:2048s:1050623s:1048576s:fat32::boot, esp;
2:1050624s:105906175s:104855552s:ext4::;
1:105906176s:976773134s:870866959s:free;
`

	regions := parseFreeRegions(table)
	if len(regions) != 2 {
		t.Fatalf("expected 2 free regions, got %d", len(regions))
	}

	if regions[0].Start != 34 || regions[0].Size != 2014 {
		t.Fatalf("unexpected first region: %+v", regions[0])
	}

	if regions[1].Start != 105906176 || regions[1].End != 976773134 {
		t.Fatalf("unexpected second region: %+v", regions[1])
	}
}

func TestParseFreeRegionsEmpty(t *testing.T) {
	if regions := parseFreeRegions(""); len(regions) != 0 {
		t.Fatalf("empty table should yield no regions: %+v", regions)
	}
}

func TestListTargetsFailSoft(t *testing.T) {
	curr := lsblkBinary
	lsblkBinary = "lsblkX"
	t.Cleanup(func() {
		lsblkBinary = curr
	})

	targets := ListTargets(DefaultTargetPolicy())
	if targets == nil || len(targets) != 0 {
		t.Fatalf("enumeration failure must yield an empty list, got %+v", targets)
	}

	// unlike the target list the raw device listing does report the failure
	if _, err := ListBlockDevices(); err == nil {
		t.Fatal("ListBlockDevices() must propagate the enumeration error")
	}
}

func TestTargetValidate(t *testing.T) {
	target := &InstallTarget{}
	if err := target.Validate(); err == nil {
		t.Fatal("a target without a disk must not validate")
	}

	target = &InstallTarget{Kind: TargetExistingPartition, Disk: "/dev/sda", Size: 1}
	if err := target.Validate(); err == nil {
		t.Fatal("a partition target without a device must not validate")
	}

	target = &InstallTarget{
		Kind: TargetWholeDisk, Disk: "/dev/sda", Size: 52428800,
	}
	if err := target.Validate(); err != nil {
		t.Fatalf("valid target refused: %s", err)
	}
}

func TestTargetYAMLRoundTrip(t *testing.T) {
	target := &InstallTarget{
		Kind:   TargetFreeRegion,
		Disk:   "/dev/sda",
		Start:  105906176,
		Size:   870866959,
		FsType: "",
	}

	b, err := yaml.Marshal(target)
	if err != nil {
		t.Fatalf("marshal failed: %s", err)
	}

	var decoded InstallTarget
	if err := yaml.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %s", err)
	}

	if decoded.Kind != TargetFreeRegion || decoded.Start != target.Start || decoded.Size != target.Size {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
}

func TestTargetDisplayName(t *testing.T) {
	target := &InstallTarget{
		Kind:   TargetExistingPartition,
		Device: "/dev/sda2",
		Disk:   "/dev/sda",
		Size:   53687091200 / SectorSize,
		Label:  "Home",
	}

	name := target.DisplayName()
	if name != "/dev/sda2 (53.7GB, Home)" {
		t.Fatalf("unexpected display name: %s", name)
	}
}
