// Copyright © 2025 Linexin Project
//
// SPDX-License-Identifier: GPL-3.0-only

package syscheck

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/linexin/linexin-installer/log"
	"github.com/linexin/linexin-installer/storage"
	"github.com/linexin/linexin-installer/utils"
)

var cpuInfoFile = "/proc/cpuinfo"

func getCPUFeature(feature string) error {
	cpuInfo, err := os.ReadFile(cpuInfoFile)
	if err != nil {
		log.Error("Unable to read %s", cpuInfoFile)
		return errors.New(utils.Locale.Get("Unable to read /proc/cpuinfo"))
	}
	if strings.Contains(string(cpuInfo), feature) {
		return nil
	}

	return errors.New(utils.Locale.Get("Missing CPU feature: ") + feature)
}

// RunSystemCheck checks compatibility for Linexin (e.g. CPU featureset)
// and logs the virtualization vendor when one is detected
func RunSystemCheck(quiet bool) error {
	log.Info("Running system compatibility checks.")

	//Check the following CPU features from /proc/cpuinfo
	cpuFeatures := []string{
		"lm",
		"sse4_2",
		"sse4_1",
		"aes",
		"ssse3",
	}
	for _, feature := range cpuFeatures {
		if !quiet {
			fmt.Printf("Checking for required CPU feature: %s", feature)
		}

		err := getCPUFeature(feature)
		if err != nil {
			if !quiet {
				fmt.Printf(" [*failed*]\n")
				fmt.Println(err)
			}
			log.ErrorError(err)

			return err
		}
		if !quiet {
			fmt.Println(" [success]")
		}
	}

	if utils.IsLinexin() {
		if err := utils.ParseOSVersion(); err != nil {
			log.Warning("Could not determine the host OS version: %s", err)
		} else {
			log.Info("Host is Linexin %s", utils.LinexinVersion)
		}
	} else {
		log.Warning("Host does not look like Linexin media")
	}

	mode := storage.DetectBootMode()
	if !quiet {
		fmt.Printf("Detected firmware boot mode: %s\n", mode)
	}
	log.Info("Detected firmware boot mode: %s", mode)

	if utils.IsVirtualBox() {
		log.Info("Running inside VirtualBox")
	}

	if !quiet {
		fmt.Println("Success: System is compatible")
	}
	log.Info("Success: System is compatible")
	return nil
}
