// Copyright © 2025 Linexin Project
//
// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"syscall"

	"github.com/nightlyone/lockfile"

	"github.com/linexin/linexin-installer/args"
	"github.com/linexin/linexin-installer/cmd"
	"github.com/linexin/linexin-installer/conf"
	"github.com/linexin/linexin-installer/controller"
	"github.com/linexin/linexin-installer/errors"
	"github.com/linexin/linexin-installer/frontend"
	"github.com/linexin/linexin-installer/log"
	"github.com/linexin/linexin-installer/massinstall"
	"github.com/linexin/linexin-installer/model"
	"github.com/linexin/linexin-installer/syscheck"
	"github.com/linexin/linexin-installer/utils"
)

var (
	frontEndImpls []frontend.Frontend
	lockFilePath  = filepath.Join(os.TempDir(), "linexin-installer.lock")
)

func fatal(err error) {
	log.ErrorError(err)
	panic(err)
}

func initFrontendList() {
	frontEndImpls = []frontend.Frontend{
		massinstall.New(),
	}
}

// acquireLock prevents two installer instances from driving the block layer
// at the same time
func acquireLock() (lockfile.Lockfile, error) {
	lock, err := lockfile.New(lockFilePath)
	if err != nil {
		return lock, errors.Wrap(err)
	}

	if err = lock.TryLock(); err != nil {
		return lock, errors.Errorf("Another installer instance is running: %s", err)
	}

	return lock, nil
}

func main() {
	var options args.Args

	if err := options.ParseArgs(); err != nil {
		fatal(err)
	}

	f, err := log.SetOutputFilename(options.LogFile)
	if err != nil {
		fatal(err)
	}
	defer func() {
		_ = f.Close()
	}()

	if err = log.SetLogLevel(options.LogLevel); err != nil {
		fatal(err)
	}

	log.SetJournal(options.Journal)

	log.Info(path.Base(os.Args[0]) + ": " + model.Version)

	if options.Version {
		fmt.Println(path.Base(os.Args[0]) + ": " + model.Version)
		return
	}

	if options.SystemCheck {
		if err = syscheck.RunSystemCheck(false); err != nil {
			os.Exit(1)
		}
		return
	}

	// Most of the installation commands require root
	if errString := utils.VerifyRootUser(); errString != "" {
		fmt.Println(errString)
		log.Error("Not running as root: %v", errString)
		return
	}

	lock, err := acquireLock()
	if err != nil {
		fatal(err)
	}
	defer func() { _ = lock.Unlock() }()

	initFrontendList()

	rootDir, err := os.MkdirTemp("", "linexin-install-")
	if err != nil {
		fatal(err)
	}
	defer func() { _ = os.RemoveAll(rootDir) }()

	var md *model.SystemInstall
	cf := options.ConfigFile

	if cf == "" {
		if cf, err = conf.LookupDefaultConfig(); err != nil {
			fatal(err)
		}
	}

	log.Debug("Loading config file: %s", cf)
	if md, err = model.LoadFile(cf); err != nil {
		fatal(err)
	}

	if options.RebootSet {
		md.PostReboot = options.Reboot
	}

	if options.ArchiveSet {
		md.PostArchive = options.Archive
	}

	if options.LegacyBios {
		md.LegacyBios = true
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	done := make(chan bool, 1)

	signal.Notify(sigs, os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
		syscall.SIGHUP, syscall.SIGQUIT)

	installReboot := false

	go func() {
		for _, fe := range frontEndImpls {
			if !fe.MustRun(&options) {
				continue
			}

			installReboot, err = fe.Run(ctx, md, rootDir, options)
			if err != nil {
				if errors.IsValidationError(err) {
					fmt.Println("Error: Invalid configuration:")
					fmt.Printf("  %s\n", err)
					os.Exit(1)
				}

				fatal(err)
			}

			break
		}

		done <- true
	}()

	go func() {
		s := <-sigs
		fmt.Println("Leaving...")
		log.Info("Interrupted by signal: %s", s.String())
		cancel()
		done <- true
	}()

	<-done

	if err = controller.Cleanup(rootDir, true); err != nil {
		log.Warning("Cleanup failed: %s", err)
	}

	// Stop the signal handlers
	// or we get a SIGTERM from reboot
	signal.Reset()

	if options.Reboot && installReboot {
		if err := cmd.RunAndLog("reboot"); err != nil {
			fatal(err)
		}
	}
}
