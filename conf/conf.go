// Copyright © 2025 Linexin Project
//
// SPDX-License-Identifier: GPL-3.0-only

package conf

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/linexin/linexin-installer/utils"
)

const (
	// LogFile is the installation log file name
	LogFile = "linexin-installer.log"

	// ConfigFile is the install descriptor
	ConfigFile = "linexin-installer.yaml"

	// PartitionConfigFile is the partition layout emitted by the planning
	// engine for the later install stages
	PartitionConfigFile = "partition-config.yaml"

	// DefaultConfigDir is the system wide default configuration directory
	DefaultConfigDir = "/usr/share/defaults/linexin-installer"

	// CustomConfigDir directory contains custom configuration files
	// i.e per image configuration files
	CustomConfigDir = "/var/lib/linexin-installer"

	// SourcePath is the source path (within the .gopath)
	SourcePath = "src/github.com/linexin/linexin-installer"
)

func isRunningFromSourceTree() (bool, string, error) {
	src, err := os.Executable()
	if err != nil {
		return false, src, err
	}
	src, err = filepath.Abs(filepath.Dir(src))
	if err != nil {
		return false, src, err
	}

	return !strings.HasPrefix(src, "/usr/bin"), src, nil
}

func lookupDefaultFile(file, pathPrefix string) (string, error) {
	if pathPrefix == "" {
		isSourceTree, sourcePath, err := isRunningFromSourceTree()
		if err != nil {
			return "", err
		}

		// use the config from source code's etc dir if not installed binary
		if isSourceTree {
			sourceRoot := strings.Replace(sourcePath, "bin", filepath.Join(SourcePath, "etc"), 1)
			return filepath.Join(sourceRoot, file), nil
		}
	}

	custom := filepath.Join(pathPrefix, CustomConfigDir, file)

	if ok, _ := utils.FileExists(custom); ok {
		return custom, nil
	}

	return filepath.Join(pathPrefix, DefaultConfigDir, file), nil
}

// LookupDefaultConfig looks up the install descriptor
// Guesses if we're running from source code our from system, if we're running from
// source code directory then we loads the source default file, otherwise tried to load
// the system installed file
func LookupDefaultConfig() (string, error) {
	return lookupDefaultFile(ConfigFile, "")
}

// LookupDefaultChrootConfig looks up config file within the specified chroot
func LookupDefaultChrootConfig(path string) (string, error) {
	return lookupDefaultFile(ConfigFile, path)
}

// PartitionConfigPath returns the runtime location for the emitted
// partition layout
func PartitionConfigPath() string {
	return filepath.Join(CustomConfigDir, PartitionConfigFile)
}
