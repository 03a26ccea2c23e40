// Copyright © 2025 Linexin Project
//
// SPDX-License-Identifier: GPL-3.0-only

package storage

import (
	"time"

	"github.com/linexin/linexin-installer/log"
)

// ExecState is the executor's position in the partitioning sequence
type ExecState int

const (
	// StateInit is the executor's starting state
	StateInit = ExecState(iota)

	// StateClean unmounts prior state and deletes the old table entry
	StateClean

	// StateLabel writes a fresh partition table to a whole disk
	StateLabel

	// StateCreate appends the planned partitions to the table
	StateCreate

	// StateSettle requests kernel re-enumeration of the rewritten table
	StateSettle

	// StateIdentify resolves the new device nodes by sector offset
	StateIdentify

	// StateFormat creates the filesystems
	StateFormat

	// StateConfigure emits the mountpoint configuration
	StateConfigure

	// StateDone is the successful terminal state
	StateDone

	// StateError is the absorbing failure state
	StateError
)

var execStateMap = map[ExecState]string{
	StateInit:      "init",
	StateClean:     "clean",
	StateLabel:     "label",
	StateCreate:    "create",
	StateSettle:    "settle",
	StateIdentify:  "identify",
	StateFormat:    "format",
	StateConfigure: "configure",
	StateDone:      "done",
	StateError:     "error",
}

func (st ExecState) String() string {
	return execStateMap[st]
}

// ResolvedPartition binds a freshly created device node to the plan role
// it serves; valid for one executor run only
type ResolvedPartition struct {
	Node string
	Role PartRole
}

const (
	// IdentifyToleranceSectors is the maximum distance between a table
	// entry's start and a plan step's expected start for the two to be
	// considered the same partition (4 MiB); strictly less-than
	IdentifyToleranceSectors = 8192

	identifyDeadlineDefault = 30 * time.Second
	identifyPollInterval    = time.Second
)

// Executor drives the destructive partitioning sequence for one
// user-confirmed plan. Every step is a blocking external invocation whose
// correctness depends on the on-disk effects of the previous one, so the
// sequence is strictly serial; there is no cancellation once clean has
// begun and no rollback on failure - a fatal error leaves the disk
// partially modified and loudly reported, never silently half-configured
type Executor struct {
	target   *InstallTarget
	plan     *PartitionPlan
	state    ExecState
	resolved []ResolvedPartition

	// deadline for the identification poll loop
	IdentifyDeadline time.Duration
}

// NewExecutor creates an Executor for the given target and plan
func NewExecutor(target *InstallTarget, plan *PartitionPlan) *Executor {
	return &Executor{
		target:           target,
		plan:             plan,
		state:            StateInit,
		IdentifyDeadline: identifyDeadlineDefault,
	}
}

// State reports the executor's current state
func (ex *Executor) State() ExecState {
	return ex.state
}

// Resolved returns the node to role mapping recovered by identification;
// read-only for callers, discarded when the run ends
func (ex *Executor) Resolved() []ResolvedPartition {
	return ex.resolved
}

func (ex *Executor) fail(err error) error {
	log.Error("Partitioning failed at %s: %s", ex.state, err)
	ex.state = StateError
	return err
}

// Execute runs the full partitioning sequence and returns the resulting
// mountpoint configuration
func (ex *Executor) Execute() (*PartitionConfig, error) {
	if ex.state != StateInit {
		return nil, PrecheckFailedf("executor already ran (state %s)", ex.state)
	}

	log.Info("%s", ex.plan.String())

	ex.state = StateClean
	if err := ex.clean(); err != nil {
		return nil, ex.fail(err)
	}

	if ex.plan.WholeDisk {
		ex.state = StateLabel
		if err := WriteDiskLabel(ex.plan.Disk, ex.plan.BootMode); err != nil {
			return nil, ex.fail(err)
		}
	}

	ex.state = StateCreate
	if err := AppendTableEntries(ex.plan.Disk, ex.plan.Steps); err != nil {
		return nil, ex.fail(err)
	}

	ex.state = StateSettle
	RequestReenumeration(ex.plan.Disk)

	ex.state = StateIdentify
	if err := ex.identify(); err != nil {
		return nil, ex.fail(err)
	}

	if ex.plan.BootMode == BootModeLegacy {
		if err := ex.markBootable(); err != nil {
			return nil, ex.fail(err)
		}
	}

	ex.state = StateFormat
	if err := ex.format(); err != nil {
		return nil, ex.fail(err)
	}

	ex.state = StateConfigure
	config := ex.configure()

	ex.state = StateDone
	log.Info("Partitioning of %s complete", ex.plan.Disk)

	return config, nil
}

// clean quiesces an existing partition target: best-effort unmount of the
// partition and its siblings, best-effort swap deactivation, then the
// fatal delete of the old table entry
func (ex *Executor) clean() error {
	if ex.target.Kind != TargetExistingPartition {
		return nil
	}

	UnmountDevice(ex.target.Device)
	UnmountDiskPartitions(ex.target.Disk)
	DeactivateSwap()

	number, err := PartitionNumberFromPath(ex.target.Device)
	if err != nil {
		return PrecheckFailedf("cannot parse partition number from %s: %s", ex.target.Device, err)
	}

	return DeleteTableEntry(ex.target.Disk, number)
}

func matchEntry(entries []TableEntry, expected uint64) *TableEntry {
	for i := range entries {
		var distance uint64

		if entries[i].Start > expected {
			distance = entries[i].Start - expected
		} else {
			distance = expected - entries[i].Start
		}

		if distance < IdentifyToleranceSectors {
			return &entries[i]
		}
	}

	return nil
}

func (ex *Executor) identifyOnce() ([]ResolvedPartition, error) {
	entries, err := listTableEntries(ex.plan.Disk)
	if err != nil {
		return nil, err
	}

	var resolved []ResolvedPartition

	for _, step := range ex.plan.Steps {
		entry := matchEntry(entries, step.Start)
		if entry == nil {
			return nil, DetectionFailedf(
				"no table entry within %d sectors of %s expected at %d",
				IdentifyToleranceSectors, step.Role, step.Start)
		}

		log.Debug("Matched %s to %s (start %d, expected %d)",
			step.Role, entry.Node, entry.Start, step.Start)

		resolved = append(resolved, ResolvedPartition{Node: entry.Node, Role: step.Role})
	}

	return resolved, nil
}

// identify re-reads the partition table until every planned role resolves
// to a device node, bounded by the deadline. The kernel's view lags the
// table write, so a failed read inside the window is retried, not fatal
func (ex *Executor) identify() error {
	var lastErr error
	deadline := time.Now().Add(ex.IdentifyDeadline)

	for {
		resolved, err := ex.identifyOnce()
		if err == nil {
			ex.resolved = resolved
			return nil
		}

		lastErr = err

		if time.Now().After(deadline) {
			break
		}

		time.Sleep(identifyPollInterval)
		RequestReenumeration(ex.plan.Disk)
	}

	return lastErr
}

func (ex *Executor) findResolved(role PartRole) (string, error) {
	for _, curr := range ex.resolved {
		if curr.Role == role {
			return curr.Node, nil
		}
	}

	return "", DetectionFailedf("no resolved node for %s", role)
}

func (ex *Executor) markBootable() error {
	node, err := ex.findResolved(RoleRoot)
	if err != nil {
		return err
	}

	number, err := PartitionNumberFromPath(node)
	if err != nil {
		return PrecheckFailedf("cannot parse partition number from %s: %s", node, err)
	}

	return SetBootFlag(ex.plan.Disk, number)
}

func (ex *Executor) format() error {
	for _, step := range ex.plan.Steps {
		node, err := ex.findResolved(step.Role)
		if err != nil {
			return err
		}

		if err := MakeFs(node, step.FsType); err != nil {
			return err
		}
	}

	return nil
}

func (ex *Executor) configure() *PartitionConfig {
	config := NewPartitionConfig(ex.plan.Disk)

	for _, curr := range ex.resolved {
		switch curr.Role {
		case RoleEFI:
			config.Entries[curr.Node] = &PartitionEntry{
				MountPoint: "/boot",
				Bootable:   true,
				Filesystem: "vfat",
			}
		case RoleRoot:
			config.Entries[curr.Node] = &PartitionEntry{
				MountPoint: "/",
				Bootable:   ex.plan.BootMode == BootModeLegacy,
				Filesystem: "ext4",
			}
		}
	}

	return config
}
