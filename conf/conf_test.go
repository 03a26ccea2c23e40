// Copyright © 2025 Linexin Project
//
// SPDX-License-Identifier: GPL-3.0-only

package conf

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLookupDefaultChrootConfig(t *testing.T) {
	chroot := t.TempDir()

	// without a per-image descriptor the system default location wins
	path, err := LookupDefaultChrootConfig(chroot)
	if err != nil {
		t.Fatalf("LookupDefaultChrootConfig() failed: %s", err)
	}

	expected := filepath.Join(chroot, DefaultConfigDir, ConfigFile)
	if path != expected {
		t.Fatalf("Expected %s, got: %s", expected, path)
	}

	// a per-image descriptor takes precedence over the system default
	customDir := filepath.Join(chroot, CustomConfigDir)
	if err = os.MkdirAll(customDir, 0755); err != nil {
		t.Fatalf("Failed to create custom config dir: %s", err)
	}

	custom := filepath.Join(customDir, ConfigFile)
	if err = os.WriteFile(custom, []byte("#linexin-config\n"), 0644); err != nil {
		t.Fatalf("Failed to write custom descriptor: %s", err)
	}

	path, err = LookupDefaultChrootConfig(chroot)
	if err != nil {
		t.Fatalf("LookupDefaultChrootConfig() failed: %s", err)
	}

	if path != custom {
		t.Fatalf("Expected %s, got: %s", custom, path)
	}
}

func TestPartitionConfigPath(t *testing.T) {
	expected := filepath.Join(CustomConfigDir, PartitionConfigFile)

	if path := PartitionConfigPath(); path != expected {
		t.Fatalf("Expected %s, got: %s", expected, path)
	}
}
