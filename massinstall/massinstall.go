// Copyright © 2025 Linexin Project
//
// SPDX-License-Identifier: GPL-3.0-only

package massinstall

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/linexin/linexin-installer/args"
	"github.com/linexin/linexin-installer/controller"
	"github.com/linexin/linexin-installer/errors"
	"github.com/linexin/linexin-installer/log"
	"github.com/linexin/linexin-installer/model"
	"github.com/linexin/linexin-installer/progress"
	"github.com/linexin/linexin-installer/storage"
	"github.com/linexin/linexin-installer/utils"
)

// MassInstall is the frontend implementation for the "mass installer" it also
// implements the progress interface: progress.Client
type MassInstall struct {
	prgDesc  string
	prgIndex int
	step     int
}

// New creates a new instance of MassInstall frontend implementation
func New() *MassInstall {
	return &MassInstall{}
}

func printPipedStatus(mi *MassInstall) bool {
	isStdoutTTY := utils.IsStdoutTTY()
	mi.step++

	if !isStdoutTTY && mi.step == 1 {
		fmt.Println(mi.prgDesc)
		return true
	} else if !isStdoutTTY {
		return true
	}

	return false
}

// Step is the progress step implementation for progress.Client interface
func (mi *MassInstall) Step() {
	if printPipedStatus(mi) {
		return
	}

	elms := []string{"|", "-", "\\", "|", "/", "-", "\\"}

	fmt.Printf("%s [%s]\r", mi.prgDesc, elms[mi.prgIndex])

	if mi.prgIndex+1 == len(elms) {
		mi.prgIndex = 0
	} else {
		mi.prgIndex = mi.prgIndex + 1
	}
}

// LoopWaitDuration is part of the progress.Client implementation and returns the
// duration each loop progress step should wait
func (mi *MassInstall) LoopWaitDuration() time.Duration {
	return 50 * time.Millisecond
}

// Desc is part of the implementation for progress.Client and is used to adjust
// the progress bar label content
func (mi *MassInstall) Desc(printPrefix, desc string) {
	mi.prgDesc = strings.TrimSpace(printPrefix + " " + desc)
}

// Partial is part of the progress.Client implementation and sets the progress bar based
// on actual progression
func (mi *MassInstall) Partial(total int, step int) {
	if printPipedStatus(mi) {
		return
	}

	line := fmt.Sprintf("%s %.0f%%\r", mi.prgDesc, (float64(step)/float64(total))*100)
	fmt.Printf("%s", line)
}

// Success is part of the progress.Client implementation and represents the
// successful progress completion of a task
func (mi *MassInstall) Success() {
	if !utils.IsStdoutTTY() {
		mi.step = 0
		return
	}

	mi.prgIndex = 0
	fmt.Printf("%s [success]\n", mi.prgDesc)
}

// Failure is part of the progress.Client implementation and represents the
// unsuccessful progress completion of a task
func (mi *MassInstall) Failure() {
	if !utils.IsStdoutTTY() {
		mi.step = 0
		return
	}

	mi.prgIndex = 0
	fmt.Printf("%s [*failed*]\n", mi.prgDesc)
}

// MustRun is part of the Frontend implementation and tells the core implementation
// that this frontend wants or should be executed
func (mi *MassInstall) MustRun(options *args.Args) bool {
	return options.ConfigFile != "" || options.SelectedDisk != "" || options.SelectedTarget != ""
}

func confirm(prompt string) (bool, bool, error) {
	var answer string
	va := map[string]bool{
		"y":   true,
		"yes": true,
		"n":   false,
		"no":  false,
	}

	fmt.Printf("%s[y|N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false, false, err
	}

	answer = strings.ToLower(strings.TrimSpace(answer))
	if answer == "" {
		return true, false, nil
	}

	confirmed, valid := va[answer]

	return valid, confirmed, nil
}

// selectTarget resolves the --disk/--target arguments against the live
// inventory; the descriptor's own targetMedia wins when present
func selectTarget(md *model.SystemInstall, options args.Args) error {
	if md.TargetMedia != nil {
		return nil
	}

	policy := storage.DefaultTargetPolicy()

	if options.MinTargetSize != "" {
		size, err := storage.ParseVolumeSize(options.MinTargetSize)
		if err != nil {
			return err
		}
		policy.MinTargetBytes = size
	}

	if options.MinFreeSize != "" {
		size, err := storage.ParseVolumeSize(options.MinFreeSize)
		if err != nil {
			return err
		}
		policy.MinFreeBytes = size
	}

	targets := storage.ListTargets(policy)
	if len(targets) == 0 {
		return errors.Errorf("No installable targets found")
	}

	for _, curr := range targets {
		if options.SelectedDisk != "" &&
			curr.Kind == storage.TargetWholeDisk && curr.Disk == options.SelectedDisk {
			md.TargetMedia = curr
			return nil
		}

		if options.SelectedTarget != "" && curr.Device == options.SelectedTarget {
			md.TargetMedia = curr
			return nil
		}
	}

	fmt.Println("Installable targets:")
	for _, curr := range targets {
		fmt.Printf("  %s\n", curr.DisplayName())
	}

	return errors.Errorf("No target matched --disk/--target")
}

// Run is part of the Frontend implementation and is the actual entry point for the
// "mass installer" frontend
func (mi *MassInstall) Run(ctx context.Context, md *model.SystemInstall, rootDir string, options args.Args) (bool, error) {
	var instError error

	progress.Set(mi)

	log.Debug("Starting install")

	if err := selectTarget(md, options); err != nil {
		return false, err
	}

	if !options.ForceDestruct {
		fmt.Printf("Installing to %s will DESTROY its current contents.\n", md.TargetMedia.DisplayName())

		valid, proceed, err := confirm("Continue? ")
		if err != nil {
			return false, err
		}

		if !valid || !proceed {
			return false, errors.Errorf("Installation aborted by user")
		}
	}

	instError = controller.Install(ctx, rootDir, md, options)
	if instError != nil {
		if !errors.IsValidationError(instError) {
			fmt.Printf("ERROR: Installation has failed!\n")
		}
		return false, instError
	}

	if md.PostArchive {
		if err := controller.SaveInstallResults(rootDir, md); err != nil {
			log.Warning("Failed to save install results: %s", err)
		}
	}

	return md.PostReboot, nil
}
