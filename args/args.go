// Copyright © 2025 Linexin Project
//
// SPDX-License-Identifier: GPL-3.0-only

package args

// Arguments which influence how this program executes
// Order of Precedence
// 1. Command Line Arguments -- Highest Priority
// 2. Kernel Command Line Arguments
// 3. Program defaults -- Lowest Priority

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/linexin/linexin-installer/conf"
	"github.com/linexin/linexin-installer/log"
	flag "github.com/spf13/pflag"
)

const (
	kernelCmdlineConf   = "lxi.descriptor"
	kernelCmdlineLog    = "lxi.loglevel"
	kernelCmdlineLegacy = "lxi.legacybios"
	logFileEnvironVar   = "LINEXIN_INSTALLER_LOG_FILE"
)

var (
	kernelCmdlineFile = "/proc/cmdline"
)

// Args represents the user provided arguments
type Args struct {
	Version        bool
	Reboot         bool
	RebootSet      bool
	LogFile        string
	ConfigFile     string
	LogLevel       int
	Journal        bool
	LegacyBios     bool
	MinTargetSize  string
	MinFreeSize    string
	SettleTimeout  int
	SystemCheck    bool
	Archive        bool
	ArchiveSet     bool
	ForceDestruct  bool
	SelectedDisk   string
	SelectedTarget string
}

func (args *Args) setKernelArgs() (err error) {
	var kernelCmd string

	if kernelCmd, err = args.readKernelCmd(); err != nil {
		return err
	}

	// Parse the kernel command for relevant installer options
	for _, curr := range strings.Split(kernelCmd, " ") {
		curr = strings.TrimSpace(curr)
		if strings.HasPrefix(curr, kernelCmdlineConf+"=") {
			args.ConfigFile = strings.Split(curr, "=")[1]
		} else if strings.HasPrefix(curr, kernelCmdlineLegacy) {
			args.LegacyBios = true
		} else if strings.HasPrefix(curr, kernelCmdlineLog+"=") {
			logLevelString := strings.Split(curr, "=")[1]
			if logLevel, err := strconv.Atoi(logLevelString); err != nil {
				log.Warning("Ignoring invalid kernel parameter %s='%s'", kernelCmdlineLog, logLevelString)
			} else {
				args.LogLevel = logLevel
			}
		}
	}

	return nil
}

// readKernelCmd returns the kernel command line
func (args *Args) readKernelCmd() (string, error) {
	content, err := os.ReadFile(kernelCmdlineFile)
	if err != nil {
		return "", err
	}

	return string(content), nil
}

func (args *Args) setCommandLineArgs() (err error) {
	flag.BoolVarP(
		&args.Version, "version", "v", false, "Version of the Installer",
	)

	flag.BoolVar(
		&args.Reboot, "reboot", true, "Reboot after finishing",
	)

	flag.StringVarP(
		&args.ConfigFile, "config", "c", args.ConfigFile, "Installation configuration file",
	)

	flag.BoolVar(
		&args.Journal, "journal", false, "Mirror the log to the systemd journal",
	)

	flag.BoolVar(
		&args.LegacyBios, "legacy-bios", args.LegacyBios,
		"Plan for legacy BIOS boot even when the firmware reports UEFI",
	)

	flag.StringVar(
		&args.MinTargetSize, "min-target-size", args.MinTargetSize,
		"Minimum size for partition and whole disk targets (e.g 25G)",
	)

	flag.StringVar(
		&args.MinFreeSize, "min-free-size", args.MinFreeSize,
		"Minimum size for free space region targets (e.g 256M)",
	)

	flag.IntVar(
		&args.SettleTimeout, "settle-timeout", args.SettleTimeout,
		"Deadline in seconds for new partitions to appear after partprobe",
	)

	flag.BoolVar(
		&args.SystemCheck, "system-check", false,
		"Verify current system is compatible with Linexin and exit",
	)

	flag.BoolVar(
		&args.Archive, "archive", true, "Archive log data to target after finishing",
	)

	flag.BoolVar(
		&args.ForceDestruct, "force-destructive", false,
		"Skip the confirmation prompt before destructive partitioning",
	)

	flag.StringVarP(
		&args.SelectedDisk, "disk", "d", args.SelectedDisk,
		"Target disk for a whole disk installation (e.g /dev/sda)",
	)

	flag.StringVarP(
		&args.SelectedTarget, "target", "t", args.SelectedTarget,
		"Installable target device or region (e.g /dev/sda3)",
	)

	flag.IntVarP(
		&args.LogLevel,
		"log-level",
		"l",
		args.LogLevel,
		fmt.Sprintf("%d (debug), %d (info), %d (warning), %d (error)",
			log.LogLevelDebug, log.LogLevelInfo, log.LogLevelWarning, log.LogLevelError),
	)

	usr, err := user.Current()
	if err != nil {
		return err
	}

	var defaultLogFile string

	// use the env var LINEXIN_INSTALLER_LOG_FILE to determine the log file path
	if defaultLogFile = os.Getenv(logFileEnvironVar); defaultLogFile == "" {
		defaultLogFile = filepath.Join(usr.HomeDir, conf.LogFile)
	}

	flag.StringVar(
		&args.LogFile, "log-file", defaultLogFile, "The log file path",
	)

	flag.ErrHelp = errors.New("Linexin Installer program")

	flag.Parse()

	fflag := flag.Lookup("reboot")
	if fflag != nil {
		if fflag.Changed {
			args.RebootSet = true
		}
	}

	fflag = flag.Lookup("archive")
	if fflag != nil {
		if fflag.Changed {
			args.ArchiveSet = true
		}
	}

	if args.SelectedDisk != "" && args.SelectedTarget != "" {
		return errors.New("--disk and --target are mutually exclusive")
	}

	if args.LogLevel < log.LogLevelDebug || args.LogLevel > log.LogLevelError {
		return fmt.Errorf("Invalid log level: %d", args.LogLevel)
	}

	return nil
}

// ParseArgs will both parse the command line arguments to the program
// and read any options set on the kernel command line from boot-time
// setting the results into the Args member variables.
func (args *Args) ParseArgs() (err error) {
	// Set the default log level
	args.LogLevel = log.LogLevelDebug

	err = args.setKernelArgs()
	if err != nil {
		return err
	}

	err = args.setCommandLineArgs()
	if err != nil {
		return err
	}

	return nil
}
