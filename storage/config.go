// Copyright © 2025 Linexin Project
//
// SPDX-License-Identifier: GPL-3.0-only

package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/linexin/linexin-installer/errors"
	"github.com/linexin/linexin-installer/log"
	"github.com/linexin/linexin-installer/utils"
)

// PartitionEntry describes how one device node is consumed by the
// installed system
type PartitionEntry struct {
	MountPoint string `yaml:"mountpoint"`
	Bootable   bool   `yaml:"bootable"`
	Filesystem string `yaml:"filesystem"`
}

// PartitionConfig is the device to mountpoint mapping the partitioning
// engine hands to the downstream provisioning stages; once emitted the
// engine never re-reads it
type PartitionConfig struct {
	Disk    string                     `yaml:"disk"`
	Entries map[string]*PartitionEntry `yaml:"partitions"`
}

// NewPartitionConfig creates an empty mapping for the given disk
func NewPartitionConfig(disk string) *PartitionConfig {
	return &PartitionConfig{
		Disk:    disk,
		Entries: map[string]*PartitionEntry{},
	}
}

// RootDevice returns the device node mounted at /
func (pc *PartitionConfig) RootDevice() (string, error) {
	for node, entry := range pc.Entries {
		if entry.MountPoint == "/" {
			return node, nil
		}
	}

	return "", errors.ValidationErrorf("Partition config has no root mountpoint")
}

// BootDevice returns the device node mounted at /boot, empty on legacy
// layouts
func (pc *PartitionConfig) BootDevice() string {
	for node, entry := range pc.Entries {
		if entry.MountPoint == "/boot" {
			return node
		}
	}

	return ""
}

// sortedNodes returns the device nodes ordered by mountpoint depth so /
// always renders before /boot
func (pc *PartitionConfig) sortedNodes() []string {
	nodes := make([]string, 0, len(pc.Entries))
	for node := range pc.Entries {
		nodes = append(nodes, node)
	}

	sort.Slice(nodes, func(i, j int) bool {
		mi := pc.Entries[nodes[i]].MountPoint
		mj := pc.Entries[nodes[j]].MountPoint
		if len(mi) != len(mj) {
			return len(mi) < len(mj)
		}
		return mi < mj
	})

	return nodes
}

// WriteFile persists the mapping for later reuse by the provisioning
// stages
func (pc *PartitionConfig) WriteFile(path string) error {
	if err := utils.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	b, err := yaml.Marshal(pc)
	if err != nil {
		return errors.Wrap(err)
	}

	if err = os.WriteFile(path, b, 0644); err != nil {
		return errors.Wrap(err)
	}

	log.Info("Partition config written to %s", path)

	return nil
}

// LoadPartitionConfig reads back a previously persisted mapping
func LoadPartitionConfig(path string) (*PartitionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err)
	}

	var pc PartitionConfig
	if err := yaml.Unmarshal(data, &pc); err != nil {
		return nil, errors.Wrap(err)
	}

	return &pc, nil
}

func fstabOptions(entry *PartitionEntry) (string, int) {
	switch entry.MountPoint {
	case "/":
		return "defaults", 1
	case "/boot":
		return "umask=0077", 2
	}

	return "defaults", 2
}

// RenderFstab renders the mapping as mount-table lines, root first
func (pc *PartitionConfig) RenderFstab() string {
	var out strings.Builder

	out.WriteString("# <device>\t<mountpoint>\t<fstype>\t<options>\t<dump>\t<pass>\n")

	for _, node := range pc.sortedNodes() {
		entry := pc.Entries[node]
		options, pass := fstabOptions(entry)

		fmt.Fprintf(&out, "%s\t%s\t%s\t%s\t0\t%d\n",
			node, entry.MountPoint, entry.Filesystem, options, pass)
	}

	return out.String()
}

// ApplyFstab renders the mapping into the mount-table file of the system
// rooted at rootDir
func (pc *PartitionConfig) ApplyFstab(rootDir string) error {
	etcDir := filepath.Join(rootDir, "etc")

	if err := utils.MkdirAll(etcDir, 0755); err != nil {
		return err
	}

	path := filepath.Join(etcDir, "fstab")
	if err := os.WriteFile(path, []byte(pc.RenderFstab()), 0644); err != nil {
		return errors.Wrap(err)
	}

	log.Info("fstab written to %s", path)

	return nil
}
