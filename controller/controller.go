// Copyright © 2025 Linexin Project
//
// SPDX-License-Identifier: GPL-3.0-only

package controller

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/linexin/linexin-installer/args"
	"github.com/linexin/linexin-installer/cmd"
	"github.com/linexin/linexin-installer/conf"
	"github.com/linexin/linexin-installer/errors"
	"github.com/linexin/linexin-installer/log"
	"github.com/linexin/linexin-installer/model"
	"github.com/linexin/linexin-installer/progress"
	"github.com/linexin/linexin-installer/storage"
	"github.com/linexin/linexin-installer/utils"
)

// SourcePathDefault is where the live media exposes the root filesystem
// to copy when the descriptor doesn't name one
const SourcePathDefault = "/run/archiso/airootfs"

var rsyncBinary = "rsync"

// InstallStep is one unit of the sequential install runner; weights size
// the progress contribution and critical steps abort the run on failure
type InstallStep struct {
	Label    string
	Weight   int
	Critical bool
	Run      func() error
}

func expandHookVariable(vars map[string]string, cmd string) string {
	return utils.ExpandVariables(vars, cmd)
}

func runInstallHook(vars map[string]string, hook *model.InstallHook) error {
	hookArgs := []string{}
	vars["chrooted"] = "0"

	if hook.Chroot {
		hookArgs = append(hookArgs, []string{"chroot", vars["chrootDir"]}...)
		vars["chrooted"] = "1"
	}

	exec := expandHookVariable(vars, hook.Cmd)
	hookArgs = append(hookArgs, []string{"bash", "-c", exec}...)

	if err := cmd.RunAndLogWithEnv(vars, hookArgs...); err != nil {
		return errors.Wrap(err)
	}

	return nil
}

func applyHooks(name string, vars map[string]string, hooks []*model.InstallHook) error {
	if len(hooks) == 0 {
		return nil
	}

	prg := progress.MultiStep(len(hooks), "", "Running %s hooks", name)

	for idx, curr := range hooks {
		if err := runInstallHook(vars, curr); err != nil {
			prg.Failure()
			return err
		}
		prg.Partial(idx)
	}

	prg.Success()
	return nil
}

func copySystemFiles(sourcePath string, rootDir string) error {
	if ok, _ := utils.FileExists(sourcePath); !ok {
		return errors.Errorf("Source path does not exist: %s", sourcePath)
	}

	prg := progress.NewLoop("Copying system files to %s", rootDir)
	err := cmd.RunAndLog(rsyncBinary, "-aHAX", "--one-file-system",
		sourcePath+"/", rootDir)
	if err != nil {
		prg.Failure()
		return errors.Wrap(err)
	}
	prg.Success()

	return nil
}

// buildSteps assembles the weighted sequence for one install; the
// partitioning step is first since everything after depends on the
// resolved device nodes
func buildSteps(si *model.SystemInstall, options args.Args, rootDir string,
	config **storage.PartitionConfig) []InstallStep {

	vars := map[string]string{
		"chrootDir": rootDir,
	}

	sourcePath := si.SourcePath
	if sourcePath == "" {
		sourcePath = SourcePathDefault
	}

	return []InstallStep{
		{
			Label:    "Partitioning " + si.TargetMedia.Disk,
			Weight:   2,
			Critical: true,
			Run: func() error {
				plan, err := storage.BuildPlan(si.TargetMedia, si.BootMode)
				if err != nil {
					return err
				}

				ex := storage.NewExecutor(si.TargetMedia, plan)
				if options.SettleTimeout > 0 {
					ex.IdentifyDeadline = time.Duration(options.SettleTimeout) * time.Second
				}

				pc, err := ex.Execute()
				if err != nil {
					return err
				}

				*config = pc
				return nil
			},
		},
		{
			Label:    "Saving partition configuration",
			Weight:   1,
			Critical: true,
			Run: func() error {
				return (*config).WriteFile(conf.PartitionConfigPath())
			},
		},
		{
			Label:    "Mounting target filesystems",
			Weight:   1,
			Critical: true,
			Run: func() error {
				return mountTarget(*config, rootDir)
			},
		},
		{
			Label:    "Running pre-install hooks",
			Weight:   1,
			Critical: true,
			Run: func() error {
				return applyHooks("pre-install", vars, si.PreInstall)
			},
		},
		{
			Label:    "Copying system files",
			Weight:   10,
			Critical: true,
			Run: func() error {
				return copySystemFiles(sourcePath, rootDir)
			},
		},
		{
			Label:    "Generating fstab",
			Weight:   1,
			Critical: true,
			Run: func() error {
				return (*config).ApplyFstab(rootDir)
			},
		},
		{
			Label:    "Mounting virtual filesystems",
			Weight:   1,
			Critical: true,
			Run: func() error {
				return storage.MountMetaFs(rootDir)
			},
		},
		{
			Label:    "Running post-install hooks",
			Weight:   2,
			Critical: false,
			Run: func() error {
				return applyHooks("post-install", vars, si.PostInstall)
			},
		},
	}
}

func mountTarget(config *storage.PartitionConfig, rootDir string) error {
	rootDevice, err := config.RootDevice()
	if err != nil {
		return err
	}

	if err := storage.Mount(rootDevice, rootDir, "ext4"); err != nil {
		return err
	}

	if bootDevice := config.BootDevice(); bootDevice != "" {
		bootDir := filepath.Join(rootDir, "boot")
		if err := storage.Mount(bootDevice, bootDir, "vfat"); err != nil {
			return err
		}
	}

	return nil
}

// Install is the main install controller, this is the entry point for a
// full installation. Cancellation is cooperative and only honored between
// steps: once partitioning has begun the disk is already being mutated, so
// an in-flight step always runs to completion
func Install(ctx context.Context, rootDir string, si *model.SystemInstall, options args.Args) error {
	var err error
	var config *storage.PartitionConfig

	// First verify we are running as 'root' user which is required
	// for most of the Installation commands
	if msg := utils.VerifyRootUser(); msg != "" {
		return errors.Errorf("%s", msg)
	}

	// do we have the minimum required to install a system?
	if err = si.Validate(); err != nil {
		return err
	}

	if si.BootMode == "" {
		si.BootMode = storage.DetectBootMode()
		if options.LegacyBios {
			si.BootMode = storage.BootModeLegacy
		}
	}

	log.Info("Installing to %s (%s boot)", si.TargetMedia.DisplayName(), si.BootMode)

	steps := buildSteps(si, options, rootDir, &config)

	total := 0
	for _, step := range steps {
		total += step.Weight
	}

	prg := progress.NewWeighted(total)

	for _, step := range steps {
		select {
		case <-ctx.Done():
			prg.Failure()
			return errors.Errorf("Installation cancelled before %q", step.Label)
		default:
		}

		prg.Begin("%s", step.Label)
		log.Info("%s", step.Label)

		if err = step.Run(); err != nil {
			if step.Critical {
				prg.Failure()
				return errors.Errorf("%s: %v", step.Label, err)
			}

			log.Warning("%s failed (non-critical): %s", step.Label, err)
		}

		prg.Complete(step.Weight)
	}

	prg.Success()

	return nil
}

// SaveInstallResults archives the descriptor and the log into the
// installed system so a failed boot can be diagnosed offline
func SaveInstallResults(rootDir string, si *model.SystemInstall) error {
	var errMsgs []string

	saveDir := filepath.Join(rootDir, "var", "lib", "linexin-installer")

	if err := utils.MkdirAll(saveDir, 0755); err != nil {
		return err
	}

	confFile := filepath.Join(saveDir, conf.ConfigFile)
	if err := si.WriteFile(confFile); err != nil {
		errMsgs = append(errMsgs, "Failed to save descriptor")
	}

	logFile := filepath.Join(saveDir, conf.LogFile)
	if err := log.ArchiveLogFile(logFile); err != nil {
		errMsgs = append(errMsgs, "Failed to archive log file")
	}

	if len(errMsgs) > 0 {
		return errors.Errorf("%s", strings.Join(errMsgs, ";"))
	}

	return nil
}

// Cleanup executes post-install cleanups i.e unmount partition, remove
// temporary directory etc.
func Cleanup(rootDir string, umount bool) error {
	var err error

	log.Info("Cleaning up %s", rootDir)

	// we'll fail to umount only if a device is not mounted
	// then, just log it and move cleaning up
	if umount {
		if storage.UmountAll() != nil {
			log.Warning("Failed to umount volumes")
		}
	}

	log.Info("Removing rootDir: %s", rootDir)
	if err = os.RemoveAll(rootDir); err != nil {
		return errors.Errorf("Failed to remove all in %s: %v", rootDir, err)
	}

	return nil
}
