// Copyright © 2025 Linexin Project
//
// SPDX-License-Identifier: GPL-3.0-only

package storage

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/linexin/linexin-installer/errors"
	"github.com/linexin/linexin-installer/log"
)

var mountedPoints []string

func mountFs(device string, mPointPath string, fsType string, flags uintptr) error {
	var err error

	if _, err = os.Stat(mPointPath); os.IsNotExist(err) {
		if err = os.MkdirAll(mPointPath, 0777); err != nil {
			return errors.Errorf("mkdir %s: %v", mPointPath, err)
		}
	}

	if err = syscall.Mount(device, mPointPath, fsType, flags, ""); err != nil {
		return errors.Errorf("mount %s %s %s: %v", device, mPointPath, fsType, err)
	}
	log.Debug("Mounted ok: %s", mPointPath)
	// Store the mount point for later unmounting
	mountedPoints = append(mountedPoints, mPointPath)

	return err
}

// Mount mounts the given device on mPointPath, recording the mount for a
// later UmountAll
func Mount(device string, mPointPath string, fsType string) error {
	return mountFs(device, mPointPath, fsType, 0)
}

func mountDevFs(rootDir string) error {
	mPointPath := filepath.Join(rootDir, "dev")

	return mountFs("/dev", mPointPath, "devtmpfs", syscall.MS_BIND)
}

func mountSysFs(rootDir string) error {
	mPointPath := filepath.Join(rootDir, "sys")

	return mountFs("/sys", mPointPath, "sysfs", syscall.MS_BIND)
}

func mountProcFs(rootDir string) error {
	mPointPath := filepath.Join(rootDir, "proc")

	return mountFs("/proc", mPointPath, "proc", syscall.MS_BIND)
}

// MountMetaFs mounts proc, sysfs and devfs in the target installation directory
func MountMetaFs(rootDir string) error {
	err := mountProcFs(rootDir)
	if err != nil {
		return err
	}

	err = mountSysFs(rootDir)
	if err != nil {
		return err
	}

	err = mountDevFs(rootDir)
	if err != nil {
		return err
	}

	return nil
}

// UmountAll unmounts all previously mounted devices
func UmountAll() error {
	var mountError error
	fails := make([]string, 0)

	// Ensure the top level mount point is unmounted last
	sort.Sort(sort.Reverse(sort.StringSlice(mountedPoints)))

	for _, point := range mountedPoints {
		if err := syscall.Unmount(point, syscall.MNT_FORCE|syscall.MNT_DETACH); err != nil {
			err = fmt.Errorf("umount %s: %v", point, err)
			log.ErrorError(err)
			fails = append(fails, point)
		} else {
			log.Debug("Unmounted ok: %s", point)
		}
	}

	mountedPoints = nil

	if len(fails) > 0 {
		mountError = errors.Errorf("Failed to unmount: %v", fails)
	}

	return mountError
}

type convertLookup struct {
	unit      string
	mask      float64
	precision int
}

var convertLookUpXB = []convertLookup{
	{"PB", 1.0 * 1000.0 * 1000.0 * 1000.0 * 1000.0 * 1000.0, 5},
	{"TB", 1.0 * 1000.0 * 1000.0 * 1000.0 * 1000.0, 4},
	{"GB", 1.0 * 1000.0 * 1000.0 * 1000.0, 3},
	{"MB", 1.0 * 1000.0 * 1000.0, 2},
	{"KB", 1.0 * 1000.0, 1},
	{"B", 1.0, 0},
}

// HumanReadableSizeXBWithPrecision converts the size representation in bytes to the
// closest human readable format i.e 10MB, 1GB, 2TB etc with a forced precision
func HumanReadableSizeXBWithPrecision(size uint64, precision int) (string, error) {
	if size == 0 {
		return "0", nil
	}

	value := float64(size)
	for _, curr := range convertLookUpXB {
		csize := value / curr.mask

		if csize < 1.0 {
			continue
		}

		if precision < 0 {
			precision = curr.precision
		}

		formatted := strconv.FormatFloat(csize, 'f', precision, 64)
		// Remove trailing zeroes (and unused decimal)
		formatted = strings.TrimRight(strings.TrimRight(formatted, "0"), ".")
		if curr.unit != "B" {
			formatted += curr.unit
		}

		return formatted, nil
	}

	return "", errors.ValidationErrorf("Could not format disk/partition size")
}

// HumanReadableSizeXB converts the size representation in bytes to the closest
// human readable format i.e 10MB, 1GB, 2TB etc
func HumanReadableSizeXB(size uint64) (string, error) {
	return HumanReadableSizeXBWithPrecision(size, -1)
}

// ParseVolumeSize will parse a string formatted (1M, 10GiB, 2TB) size
// and return its representation in bytes
func ParseVolumeSize(str string) (uint64, error) {
	var size uint64

	str = strings.ToLower(strings.TrimSpace(str))

	unitStart := strings.IndexFunc(str, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})

	if unitStart == -1 {
		return strconv.ParseUint(str, 0, 64)
	}

	unit := str[unitStart:]
	fsize, err := strconv.ParseFloat(str[:unitStart], 64)
	if err != nil {
		return 0, errors.Wrap(err)
	}

	switch unit {
	case "b":
		fsize = fsize * (1 << 0)
	case "k", "kb", "kib":
		fsize = fsize * (1 << 10)
	case "m", "mb", "mib":
		fsize = fsize * (1 << 20)
	case "g", "gb", "gib":
		fsize = fsize * (1 << 30)
	case "t", "tb", "tib":
		fsize = fsize * (1 << 40)
	case "p", "pb", "pib":
		fsize = fsize * (1 << 50)
	default:
		return 0, errors.ValidationErrorf("Invalid size unit: %s", unit)
	}

	size = uint64(math.Round(fsize))

	return size, nil
}
