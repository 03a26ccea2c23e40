// Copyright © 2025 Linexin Project
//
// SPDX-License-Identifier: GPL-3.0-only

package storage

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/linexin/linexin-installer/cmd"
	"github.com/linexin/linexin-installer/errors"
	"github.com/linexin/linexin-installer/log"
)

// SectorSize is the fixed addressable unit all plan arithmetic is
// expressed in; sizes reported in bytes are converted once, at the
// inventory boundary
const SectorSize = 512

// A BlockDevice describes a block device and its partitions
type BlockDevice struct {
	Name            string          // device name
	FsType          string          // filesystem type
	Label           string          // label for the filesystem; set with mkfs
	MountPoint      string          // where the device is mounted
	Size            uint64          // size of the device in bytes
	Start           uint64          // starting sector within the parent disk
	Type            BlockDeviceType // device type
	ParentName      string          // internal kernel parent device name
	RemovableDevice bool            // removable device
	Children        []*BlockDevice  // children devices/partitions
}

// BlockDeviceType is the representation of a block device type (disk, part, rom, etc)
type BlockDeviceType int

const (
	// BlockDeviceTypeDisk identifies a BlockDevice as a disk
	BlockDeviceTypeDisk = iota

	// BlockDeviceTypePart identifies a BlockDevice as a partition
	BlockDeviceTypePart

	// BlockDeviceTypeRom identifies a BlockDevice as a rom
	BlockDeviceTypeRom

	// BlockDeviceTypeLoop identifies a BlockDevice as a loop device (created with losetup)
	BlockDeviceTypeLoop

	// BlockDeviceTypeCrypt identifies a BlockDevice as an encrypted partition (created with cryptsetup)
	BlockDeviceTypeCrypt

	// BlockDeviceTypeUnknown identifies a BlockDevice as unknown
	BlockDeviceTypeUnknown
)

var (
	lsblkBinary      = "lsblk"
	blockdevBinary   = "blockdev"
	devNameSuffixExp = regexp.MustCompile(`([0-9]*)$`)

	blockDeviceTypeMap = map[BlockDeviceType]string{
		BlockDeviceTypeDisk:    "disk",
		BlockDeviceTypePart:    "part",
		BlockDeviceTypeRom:     "rom",
		BlockDeviceTypeLoop:    "loop",
		BlockDeviceTypeCrypt:   "crypt",
		BlockDeviceTypeUnknown: "",
	}
)

func (bt BlockDeviceType) String() string {
	return blockDeviceTypeMap[bt]
}

func parseBlockDeviceType(bdt string) BlockDeviceType {
	for k, v := range blockDeviceTypeMap {
		if v == bdt {
			return k
		}
	}

	return BlockDeviceTypeUnknown
}

// GetDeviceFile formats the block device's file path
func (bd BlockDevice) GetDeviceFile() string {
	return filepath.Join("/dev/", bd.Name)
}

// SizeSectors returns the device size in sectors
func (bd BlockDevice) SizeSectors() uint64 {
	return bd.Size / SectorSize
}

// PartitionNumber parses the partition's table index from the trailing
// digits of its device name; returns 0 when the name carries no index
func (bd BlockDevice) PartitionNumber() uint64 {
	part := devNameSuffixExp.FindString(bd.Name)
	if len(part) > 0 {
		u, err := strconv.ParseUint(part, 10, 64)
		if err == nil {
			return u
		}
	}

	return 0
}

// PartitionNumberFromPath parses the table index from the trailing digits
// of an absolute device path (e.g /dev/nvme0n1p3 -> 3)
func PartitionNumberFromPath(devicePath string) (uint64, error) {
	part := devNameSuffixExp.FindString(devicePath)
	if part == "" {
		return 0, errors.Errorf("No partition number in device path: %s", devicePath)
	}

	return strconv.ParseUint(part, 10, 64)
}

// HumanReadableSize converts the size representation in bytes to the closest
// human readable format i.e 10MB, 1GB, 2TB etc
func (bd BlockDevice) HumanReadableSize() (string, error) {
	return HumanReadableSizeXB(bd.Size)
}

func (bd *BlockDevice) logDetails() {
	log.Debug("%s: fsType=%s, mount=%s, size=%d, start=%d, type=%s",
		bd.Name, bd.FsType, bd.MountPoint, bd.Size, bd.Start, bd.Type)
}

// ByteSize queries the byte-exact device size; display sizes reported by
// the enumeration are nominal and must not feed the plan arithmetic
func (bd BlockDevice) ByteSize() (uint64, error) {
	w := bytes.NewBuffer(nil)

	err := cmd.Run(w, blockdevBinary, "--getsize64", bd.GetDeviceFile())
	if err != nil {
		return 0, errors.Errorf("blockdev --getsize64 %s: %s", bd.GetDeviceFile(), w.String())
	}

	size, err := strconv.ParseUint(strings.TrimSpace(w.String()), 10, 64)
	if err != nil {
		return 0, errors.Wrap(err)
	}

	return size, nil
}

func listBlockDevices() ([]*BlockDevice, error) {
	w := bytes.NewBuffer(nil)

	// Exclude memory(1), floppy(2), and SCSI CDROM(11) devices
	err := cmd.Run(w, lsblkBinary, "--exclude", "1,2,11", "-J", "-b",
		"-o", "NAME,SIZE,FSTYPE,LABEL,MOUNTPOINT,TYPE,PKNAME,START")
	if err != nil {
		return nil, fmt.Errorf("%s", w.String())
	}

	return parseBlockDevicesDescriptor(w.Bytes())
}

// ListBlockDevices lists all block devices
func ListBlockDevices() ([]*BlockDevice, error) {
	return listBlockDevices()
}

// Equals compares two BlockDevice instances
func (bd *BlockDevice) Equals(cmp *BlockDevice) bool {
	if cmp == nil {
		return false
	}

	return bd.Name == cmp.Name && bd.Size == cmp.Size && bd.Type == cmp.Type
}

// IsInstallerMedia returns true if the device holds the running live
// image; the installer never offers its own media as a target
func (bd *BlockDevice) IsInstallerMedia() bool {
	if strings.Contains(bd.FsType, "squashfs") {
		return true
	}

	for _, curr := range bd.Children {
		if strings.Contains(curr.Label, "LINEXIN_ISO") {
			return true
		}

		if curr.MountPoint == "/run/archiso/bootmnt" {
			return true
		}
	}

	return false
}
