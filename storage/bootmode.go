// Copyright © 2025 Linexin Project
//
// SPDX-License-Identifier: GPL-3.0-only

package storage

import (
	"os"

	"github.com/linexin/linexin-installer/log"
)

// BootMode tells which firmware interface the planned layout must boot
// through; computed once per run and immutable for the lifetime of a plan
type BootMode string

const (
	// BootModeUEFI plans an EFI system partition ahead of the root
	BootModeUEFI = BootMode("uefi")

	// BootModeLegacy plans a single bootable root partition
	BootModeLegacy = BootMode("legacy")
)

var efiMarkerPath = "/sys/firmware/efi"

// DetectBootMode checks the firmware marker exposed by the kernel and
// reports UEFI when present; any failure to check defaults to Legacy
// since the legacy layout makes no firmware demands
func DetectBootMode() BootMode {
	if _, err := os.Stat(efiMarkerPath); err != nil {
		log.Debug("No EFI firmware marker at %s, booting legacy", efiMarkerPath)
		return BootModeLegacy
	}

	return BootModeUEFI
}
