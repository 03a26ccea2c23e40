// Copyright © 2025 Linexin Project
//
// SPDX-License-Identifier: GPL-3.0-only

package model

import (
	"os"

	"gopkg.in/yaml.v2"

	"github.com/linexin/linexin-installer/errors"
	"github.com/linexin/linexin-installer/storage"
)

// Version of the Linexin Installer.
// Also used by the Makefile for releases.
var Version = "1.2.0"

// SystemInstall represents the system install "configuration": the selected
// target, the planned boot mode and whatever state an install may require
type SystemInstall struct {
	TargetMedia *storage.InstallTarget `yaml:"targetMedia,omitempty"`
	BootMode    storage.BootMode       `yaml:"bootMode,omitempty"`
	LegacyBios  bool                   `yaml:"legacyBios,omitempty,flow"`
	SourcePath  string                 `yaml:"sourcePath,omitempty,flow"`
	Language    string                 `yaml:"language,omitempty,flow"`
	PostReboot  bool                   `yaml:"postReboot,omitempty,flow"`
	PostArchive bool                   `yaml:"postArchive,omitempty,flow"`
	PreInstall  []*InstallHook         `yaml:"pre-install,omitempty,flow"`
	PostInstall []*InstallHook         `yaml:"post-install,omitempty,flow"`
}

// InstallHook is a command to be executed in a given point of the install process
type InstallHook struct {
	Chroot bool   `yaml:"chroot,omitempty,flow"`
	Cmd    string `yaml:"cmd,omitempty,flow"`
}

// Validate checks the model for possible inconsistencies or "minimum required"
// information
func (si *SystemInstall) Validate() error {
	// si will be nil if we fail to unmarshal (coverage tests has a case for that)
	if si == nil {
		return errors.ValidationErrorf("model is nil")
	}

	if si.TargetMedia == nil {
		return errors.ValidationErrorf("System Installation must provide a target media")
	}

	if err := si.TargetMedia.Validate(); err != nil {
		return err
	}

	if si.BootMode != "" && si.BootMode != storage.BootModeUEFI && si.BootMode != storage.BootModeLegacy {
		return errors.ValidationErrorf("Invalid boot mode: %s", si.BootMode)
	}

	return nil
}

// SetTargetMedia records the selected installable target, replacing any
// previous selection
func (si *SystemInstall) SetTargetMedia(target *storage.InstallTarget) {
	si.TargetMedia = target
}

// AddPreInstallHook appends a command to run before the copy stage, duplicate
// entries are dropped
func (si *SystemInstall) AddPreInstallHook(hook *InstallHook) {
	for _, curr := range si.PreInstall {
		if curr.Cmd == hook.Cmd && curr.Chroot == hook.Chroot {
			return
		}
	}

	si.PreInstall = append(si.PreInstall, hook)
}

// AddPostInstallHook appends a command to run after the copy stage, duplicate
// entries are dropped
func (si *SystemInstall) AddPostInstallHook(hook *InstallHook) {
	for _, curr := range si.PostInstall {
		if curr.Cmd == hook.Cmd && curr.Chroot == hook.Chroot {
			return
		}
	}

	si.PostInstall = append(si.PostInstall, hook)
}

// LoadFile loads a model from a yaml file pointed by path
func LoadFile(path string) (*SystemInstall, error) {
	var result SystemInstall

	// Default to archiving by default
	result.PostArchive = true

	if _, err := os.Stat(path); err == nil {
		configStr, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err)
		}

		err = yaml.Unmarshal(configStr, &result)
		if err != nil {
			return nil, errors.Wrap(err)
		}
	}

	return &result, nil
}

// WriteFile writes a yaml formatted representation of si into the provided file path
func (si *SystemInstall) WriteFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	defer func() {
		_ = f.Close()
	}()

	b, err := yaml.Marshal(si)
	if err != nil {
		return err
	}

	// Write our header
	_, err = f.WriteString("#linexin-config\n")
	if err != nil {
		return err
	}
	// Write our version
	_, err = f.WriteString("#generated by linexin-installer:" + Version + "\n")
	if err != nil {
		return err
	}

	_, err = f.Write(b)
	if err != nil {
		return err
	}

	return nil
}
