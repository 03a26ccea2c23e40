// Copyright © 2025 Linexin Project
//
// SPDX-License-Identifier: GPL-3.0-only

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/linexin/linexin-installer/log"
)

type runLogger struct{}

func (rl runLogger) Write(p []byte) (n int, err error) {
	for _, curr := range strings.Split(string(p), "\n") {
		if curr == "" {
			continue
		}

		log.Debug(curr)
	}
	return len(p), nil
}

// RunAndLog executes a command (similar to Run) but takes care of writing
// the output to default logger
func RunAndLog(args ...string) error {
	return Run(runLogger{}, args...)
}

// RunAndLogWithEnv does the same as RunAndLog but it changes the execution's
// environment variables adding the provided ones by the env argument
func RunAndLogWithEnv(env map[string]string, args ...string) error {
	return run(nil, runLogger{}, nil, env, args...)
}

// PipeRunAndLog is similar to RunAndLog, it runs a command and writes the
// output to the default logger and also writes in to the process stdin
func PipeRunAndLog(in string, args ...string) error {
	return PipeRun(runLogger{}, in, args...)
}

// PipeRun runs a command writing in to the process stdin and using writer
// for both stdout and stderr; used for tools driven by a script on stdin
// such as sfdisk
func PipeRun(writer io.Writer, in string, args ...string) error {
	return run(func(cmd *exec.Cmd) error {
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return err
		}

		go func() {
			defer func() {
				_ = stdin.Close()
			}()

			_, _ = io.WriteString(stdin, in)
		}()

		return nil
	}, writer, nil, nil, args...)
}

// RunWithTimeout executes a command like Run but bounds the execution with
// the given timeout; reserved for non-critical probing calls - mutating
// commands must run to completion and should use Run/RunAndLog instead
func RunWithTimeout(writer io.Writer, timeout time.Duration, args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return run(nil, writer, ctx, nil, args...)
}

func run(sw func(cmd *exec.Cmd) error, writer io.Writer, ctx context.Context, env map[string]string, args ...string) error {
	var exe string
	var cmdArgs []string

	log.Debug("%s", strings.Join(args, " "))

	exe = args[0]
	cmdArgs = args[1:]

	var cmd *exec.Cmd
	if ctx != nil {
		cmd = exec.CommandContext(ctx, exe, cmdArgs...)
	} else {
		cmd = exec.Command(exe, cmdArgs...)
	}

	if env != nil {
		cmd.Env = os.Environ()

		for k, v := range env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}

	if sw != nil {
		if err := sw(cmd); err != nil {
			return err
		}
	}

	cmd.Stdout = writer
	cmd.Stderr = writer
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}

	err := cmd.Run()
	if err != nil {
		return err
	}

	return nil
}

// Run executes a command and uses writer to write both stdout and stderr
// args are the actual command and its arguments
func Run(writer io.Writer, args ...string) error {
	return run(nil, writer, nil, nil, args...)
}
