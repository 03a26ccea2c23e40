// Copyright © 2025 Linexin Project
//
// SPDX-License-Identifier: GPL-3.0-only

package storage

import (
	"fmt"
	"sort"

	"github.com/linexin/linexin-installer/errors"
	"github.com/linexin/linexin-installer/log"
)

// TargetKind tells what an InstallTarget points at
type TargetKind int

const (
	// TargetExistingPartition is a partition already present in a disk's table
	TargetExistingPartition = TargetKind(iota)

	// TargetFreeRegion is an unallocated gap between or after partitions
	TargetFreeRegion

	// TargetWholeDisk is a disk carrying no partition table at all
	TargetWholeDisk
)

var targetKindMap = map[TargetKind]string{
	TargetExistingPartition: "partition",
	TargetFreeRegion:        "free",
	TargetWholeDisk:         "disk",
}

func (tk TargetKind) String() string {
	return targetKindMap[tk]
}

func parseTargetKind(str string) (TargetKind, error) {
	for k, v := range targetKindMap {
		if v == str {
			return k, nil
		}
	}

	return TargetExistingPartition, errors.ValidationErrorf("Unknown target kind: %s", str)
}

// InstallTarget is one place an installation can land: an existing
// partition, a free space gap, or a raw whole disk. It is a value, not a
// handle - once the executor starts mutating the disk any other target
// captured from the same inventory is stale
type InstallTarget struct {
	Kind   TargetKind // what the target points at
	Device string     // device path for existing partitions
	Disk   string     // parent disk device path
	Start  uint64     // first sector of the region
	Size   uint64     // region length in sectors
	FsType string     // current filesystem, informational
	Label  string     // current filesystem label, informational
}

type installTargetYAML struct {
	Kind   string `yaml:"kind"`
	Device string `yaml:"device,omitempty"`
	Disk   string `yaml:"disk"`
	Start  uint64 `yaml:"start"`
	Size   uint64 `yaml:"size"`
	FsType string `yaml:"fstype,omitempty"`
	Label  string `yaml:"label,omitempty"`
}

// MarshalYAML is the yaml Marshaller implementation
func (it *InstallTarget) MarshalYAML() (interface{}, error) {
	return installTargetYAML{
		Kind:   it.Kind.String(),
		Device: it.Device,
		Disk:   it.Disk,
		Start:  it.Start,
		Size:   it.Size,
		FsType: it.FsType,
		Label:  it.Label,
	}, nil
}

// UnmarshalYAML is the yaml Unmarshaller implementation
func (it *InstallTarget) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var decoded installTargetYAML

	if err := unmarshal(&decoded); err != nil {
		return err
	}

	kind, err := parseTargetKind(decoded.Kind)
	if err != nil {
		return err
	}

	it.Kind = kind
	it.Device = decoded.Device
	it.Disk = decoded.Disk
	it.Start = decoded.Start
	it.Size = decoded.Size
	it.FsType = decoded.FsType
	it.Label = decoded.Label

	return nil
}

// Validate checks the target carries the minimum information the plan
// builder needs
func (it *InstallTarget) Validate() error {
	if it.Disk == "" {
		return errors.ValidationErrorf("Install target must name its disk")
	}

	if it.Kind == TargetExistingPartition && it.Device == "" {
		return errors.ValidationErrorf("Partition target must name its device")
	}

	if it.Size == 0 {
		return errors.ValidationErrorf("Install target has no size")
	}

	return nil
}

// DisplayName renders the target for selection lists; sizes here are
// informational only, plan arithmetic never uses them
func (it *InstallTarget) DisplayName() string {
	size, err := HumanReadableSizeXBWithPrecision(it.Size*SectorSize, 1)
	if err != nil {
		size = "?"
	}

	switch it.Kind {
	case TargetFreeRegion:
		return fmt.Sprintf("Free space on %s (%s)", it.Disk, size)
	case TargetWholeDisk:
		return fmt.Sprintf("Whole disk %s (%s)", it.Disk, size)
	}

	label := it.Label
	if label == "" {
		label = it.FsType
	}
	if label == "" {
		return fmt.Sprintf("%s (%s)", it.Device, size)
	}

	return fmt.Sprintf("%s (%s, %s)", it.Device, size, label)
}

// TargetPolicy filters which regions are worth offering; the thresholds
// are policy defaults, not engine laws, and may be tuned per image
type TargetPolicy struct {
	MinTargetBytes uint64 // existing partitions and whole disks
	MinFreeBytes   uint64 // free space gaps
}

const (
	minTargetBytesDefault = 25 * (1 << 30)
	minFreeBytesDefault   = 256 * (1 << 20)
)

// DefaultTargetPolicy returns the stock target size thresholds
func DefaultTargetPolicy() TargetPolicy {
	return TargetPolicy{
		MinTargetBytes: minTargetBytesDefault,
		MinFreeBytes:   minFreeBytesDefault,
	}
}

func partitionTargets(disk *BlockDevice, policy TargetPolicy) []*InstallTarget {
	var targets []*InstallTarget

	for _, part := range disk.Children {
		if part.Type != BlockDeviceTypePart {
			continue
		}

		// nominal enumeration sizes round; ask the device itself
		byteSize, err := part.ByteSize()
		if err != nil {
			log.Warning("Could not size %s: %s", part.GetDeviceFile(), err)
			byteSize = part.Size
		}

		if byteSize < policy.MinTargetBytes {
			part.logDetails()
			continue
		}

		targets = append(targets, &InstallTarget{
			Kind:   TargetExistingPartition,
			Device: part.GetDeviceFile(),
			Disk:   disk.GetDeviceFile(),
			Start:  part.Start,
			Size:   byteSize / SectorSize,
			FsType: part.FsType,
			Label:  part.Label,
		})
	}

	return targets
}

func freeRegionTargets(disk *BlockDevice, policy TargetPolicy) []*InstallTarget {
	var targets []*InstallTarget

	minSectors := policy.MinFreeBytes / SectorSize

	for _, region := range ListFreeRegions(disk.GetDeviceFile()) {
		if region.Size < minSectors {
			continue
		}

		targets = append(targets, &InstallTarget{
			Kind:  TargetFreeRegion,
			Disk:  disk.GetDeviceFile(),
			Start: region.Start,
			Size:  region.Size,
		})
	}

	return targets
}

// ListTargets enumerates every installable target on the host. The
// contract is fail-soft: enumeration trouble is logged and yields an
// empty list, never an error - a live session without privileges should
// degrade to "nothing selectable", not crash the wizard
func ListTargets(policy TargetPolicy) []*InstallTarget {
	targets := []*InstallTarget{}

	bds, err := listBlockDevices()
	if err != nil {
		log.Warning("Target enumeration failed: %s", err)
		return targets
	}

	for _, bd := range bds {
		if bd.Type != BlockDeviceTypeDisk {
			continue
		}

		if bd.IsInstallerMedia() {
			log.Debug("Skipping installer media %s", bd.GetDeviceFile())
			continue
		}

		hasPartitions := false
		for _, child := range bd.Children {
			if child.Type == BlockDeviceTypePart {
				hasPartitions = true
				break
			}
		}

		if !hasPartitions {
			byteSize, err := bd.ByteSize()
			if err != nil {
				log.Warning("Could not size %s: %s", bd.GetDeviceFile(), err)
				byteSize = bd.Size
			}

			if byteSize >= policy.MinTargetBytes {
				targets = append(targets, &InstallTarget{
					Kind:  TargetWholeDisk,
					Disk:  bd.GetDeviceFile(),
					Start: 0,
					Size:  byteSize / SectorSize,
				})
			}
			continue
		}

		targets = append(targets, partitionTargets(bd, policy)...)
		targets = append(targets, freeRegionTargets(bd, policy)...)
	}

	sort.Slice(targets, func(i, j int) bool {
		if targets[i].Disk != targets[j].Disk {
			return targets[i].Disk < targets[j].Disk
		}
		return targets[i].Start < targets[j].Start
	})

	return targets
}
