// Copyright © 2025 Linexin Project
//
// SPDX-License-Identifier: GPL-3.0-only

package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestRun(t *testing.T) {
	var out bytes.Buffer

	if err := Run(&out, "echo", "partitions"); err != nil {
		t.Fatalf("Run() failed: %s", err)
	}

	if !strings.Contains(out.String(), "partitions") {
		t.Fatalf("Run() output %q, expected to contain: partitions", out.String())
	}
}

func TestRunInvalidCommand(t *testing.T) {
	var out bytes.Buffer

	if err := Run(&out, "invalid-command-name"); err == nil {
		t.Fatal("Run() should have failed for an invalid command")
	}
}

func TestPipeRun(t *testing.T) {
	var out bytes.Buffer

	if err := PipeRun(&out, "start=2048, size=1048576\n", "cat"); err != nil {
		t.Fatalf("PipeRun() failed: %s", err)
	}

	if !strings.Contains(out.String(), "size=1048576") {
		t.Fatalf("PipeRun() output %q, expected the stdin script back", out.String())
	}
}

func TestPipeRunAndLog(t *testing.T) {
	if err := PipeRunAndLog("start=2048, size=1048576\n", "cat"); err != nil {
		t.Fatalf("PipeRunAndLog() failed: %s", err)
	}

	if err := PipeRunAndLog("", "invalid-command-name"); err == nil {
		t.Fatal("PipeRunAndLog() should have failed for an invalid command")
	}
}

func TestRunWithTimeout(t *testing.T) {
	var out bytes.Buffer

	if err := RunWithTimeout(&out, 10*time.Millisecond, "sleep", "5"); err == nil {
		t.Fatal("RunWithTimeout() should have failed after the deadline")
	}

	out.Reset()
	if err := RunWithTimeout(&out, 10*time.Second, "echo", "ok"); err != nil {
		t.Fatalf("RunWithTimeout() failed: %s", err)
	}
}

func TestRunAndLog(t *testing.T) {
	if err := RunAndLog("echo", "logged"); err != nil {
		t.Fatalf("RunAndLog() failed: %s", err)
	}
}
