// Copyright © 2025 Linexin Project
//
// SPDX-License-Identifier: GPL-3.0-only

package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/linexin/linexin-installer/cmd"
	"github.com/linexin/linexin-installer/log"
)

var (
	sfdiskBinary  = "sfdisk"
	umountBinary  = "umount"
	swapoffBinary = "swapoff"
	mkfsCommands  = map[string][]string{
		"vfat": {"mkfs.vfat", "-F32"},
		"ext4": {"mkfs.ext4", "-F"},
	}
	settleTimeout = "10"
)

// runTool funnels a mutating external command, capturing its combined
// output for the error taxonomy; mutating calls run to completion, no
// artificial timeout
func runTool(step string, args ...string) error {
	w := bytes.NewBuffer(nil)

	for _, curr := range strings.Split(strings.Join(args, " "), "\n") {
		log.Debug("%s: %s", step, curr)
	}

	if err := cmd.Run(w, args...); err != nil {
		return &ToolInvocationError{Step: step, Output: strings.TrimSpace(w.String()), Err: err}
	}

	for _, curr := range strings.Split(w.String(), "\n") {
		if curr != "" {
			log.Debug(curr)
		}
	}

	return nil
}

// UnmountDevice best-effort unmounts the given device node
func UnmountDevice(devicePath string) {
	if err := cmd.RunAndLog(umountBinary, devicePath); err != nil {
		log.Warning("umount %s: %s", devicePath, err)
	}
}

// UnmountDiskPartitions best-effort unmounts every mounted partition of
// the given disk; the disk must be quiet before its table is rewritten
func UnmountDiskPartitions(disk string) {
	bds, err := ListBlockDevices()
	if err != nil {
		log.Warning("Could not enumerate %s partitions for unmount: %s", disk, err)
		return
	}

	for _, bd := range bds {
		if bd.GetDeviceFile() != disk {
			continue
		}

		for _, part := range bd.Children {
			if part.MountPoint == "" {
				continue
			}

			UnmountDevice(part.GetDeviceFile())
		}
	}
}

// DeactivateSwap best-effort disables all active swap areas; a partition
// serving as swap cannot be deleted out from under the kernel
func DeactivateSwap() {
	if err := cmd.RunAndLog(swapoffBinary, "-a"); err != nil {
		log.Warning("swapoff -a: %s", err)
	}
}

// DeleteTableEntry removes the numbered partition from the disk's table
func DeleteTableEntry(disk string, number uint64) error {
	return runTool("delete partition",
		sfdiskBinary, "--delete", disk, fmt.Sprintf("%d", number))
}

// WriteDiskLabel writes a fresh partition table to the disk: GPT for UEFI
// and MBR for legacy BIOS
func WriteDiskLabel(disk string, mode BootMode) error {
	label := "gpt"
	if mode == BootModeLegacy {
		label = "msdos"
	}

	return runTool("write disk label",
		partedBinary, "-s", disk, "mklabel", label)
}

// renderSfdiskScript renders the plan steps as an sfdisk input script, one
// partition per line with explicit sector bounds
func renderSfdiskScript(steps []PlanStep) string {
	var script strings.Builder

	for _, step := range steps {
		fmt.Fprintf(&script, "start=%d, size=%d, type=%s\n", step.Start, step.Size, step.TypeCode)
	}

	return script.String()
}

// AppendTableEntries appends the plan steps to the disk's partition table
// using an explicit start/size script on stdin; forced append because the
// target region is a precisely bounded gap, not the unallocated tail
func AppendTableEntries(disk string, steps []PlanStep) error {
	script := renderSfdiskScript(steps)

	log.Debug("sfdisk script for %s:\n%s", disk, script)

	w := bytes.NewBuffer(nil)

	if err := cmd.PipeRun(w, script,
		sfdiskBinary, "--append", "--force", disk); err != nil {
		return &ToolInvocationError{
			Step:   "create partitions",
			Output: strings.TrimSpace(w.String()),
			Err:    err,
		}
	}

	for _, curr := range strings.Split(w.String(), "\n") {
		if curr != "" {
			log.Debug(curr)
		}
	}

	return nil
}

// RequestReenumeration asks the kernel to re-read the disk's partition
// table and waits for udev to settle the resulting device nodes; both are
// advisory, the identification poll is the actual synchronization
func RequestReenumeration(disk string) {
	if err := cmd.RunAndLog("partprobe", disk); err != nil {
		log.Warning("partprobe %s: %s", disk, err)
	}

	if err := cmd.RunAndLog("udevadm", "settle", "--timeout", settleTimeout); err != nil {
		log.Warning("udevadm settle: %s", err)
	}
}

// TableEntry is one row of a machine-readable partition table listing
type TableEntry struct {
	Node  string `json:"node"`
	Start uint64 `json:"start"`
	Type  string `json:"type"`
}

type sfdiskTable struct {
	PartitionTable struct {
		Partitions []TableEntry `json:"partitions"`
	} `json:"partitiontable"`
}

func sfdiskListEntries(disk string) ([]TableEntry, error) {
	w := bytes.NewBuffer(nil)

	// bounded: a probing call, not a mutation
	err := cmd.RunWithTimeout(w, 30*time.Second,
		sfdiskBinary, "-J", "-l", disk)
	if err != nil {
		return nil, DetectionFailedf("sfdisk -J -l %s: %s: %s", disk, err, strings.TrimSpace(w.String()))
	}

	var table sfdiskTable
	if err := json.Unmarshal(w.Bytes(), &table); err != nil {
		return nil, DetectionFailedf("unparseable partition table for %s: %s", disk, err)
	}

	return table.PartitionTable.Partitions, nil
}

// listTableEntries reads back the disk's partition table; a variable so
// the executor tests can drive the state machine without a real device
var listTableEntries = sfdiskListEntries

// SetBootFlag marks the numbered partition active for legacy BIOS boot
func SetBootFlag(disk string, number uint64) error {
	return runTool("set boot flag",
		partedBinary, "-s", disk, "set", fmt.Sprintf("%d", number), "boot", "on")
}

// MakeFs creates a filesystem on the device node, force-overwriting: the
// node is either newly created or was explicitly chosen for destruction
func MakeFs(devicePath string, fsType string) error {
	mkfs, ok := mkfsCommands[fsType]
	if !ok {
		return &ToolInvocationError{
			Step: "format " + devicePath,
			Err:  fmt.Errorf("no mkfs for filesystem type %q", fsType),
		}
	}

	args := append(append([]string{}, mkfs...), devicePath)

	return runTool("format "+devicePath, args...)
}
