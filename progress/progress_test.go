// Copyright © 2025 Linexin Project
//
// SPDX-License-Identifier: GPL-3.0-only

package progress

import (
	"testing"
	"time"
)

type testClient struct {
	descs    []string
	partials []int
	success  int
	failure  int
}

func (tc *testClient) Desc(printPrefix, desc string) {
	tc.descs = append(tc.descs, desc)
}

func (tc *testClient) Partial(total int, step int) {
	tc.partials = append(tc.partials, step)
}

func (tc *testClient) Step() {}

func (tc *testClient) Success() {
	tc.success++
}

func (tc *testClient) Failure() {
	tc.failure++
}

func (tc *testClient) LoopWaitDuration() time.Duration {
	return time.Millisecond
}

func TestMultiStep(t *testing.T) {
	tc := &testClient{}
	Set(tc)

	prg := MultiStep(3, "", "formatting %s", "/dev/sda2")
	prg.Partial(1)
	prg.Partial(2)
	prg.Partial(3)
	prg.Success()

	if len(tc.descs) != 1 || tc.descs[0] != "formatting /dev/sda2" {
		t.Fatalf("unexpected descriptions: %v", tc.descs)
	}

	if len(tc.partials) != 3 || tc.partials[2] != 3 {
		t.Fatalf("unexpected partials: %v", tc.partials)
	}

	if tc.success != 1 {
		t.Fatal("Success() was not propagated to the client")
	}
}

func TestLoop(t *testing.T) {
	tc := &testClient{}
	Set(tc)

	prg := NewLoop("settling partition table")
	time.Sleep(5 * time.Millisecond)
	prg.Failure()

	if tc.failure != 1 {
		t.Fatal("Failure() was not propagated to the client")
	}
}

func TestWeighted(t *testing.T) {
	tc := &testClient{}
	Set(tc)

	prg := NewWeighted(10)
	prg.Begin("partitioning")
	prg.Complete(2)
	prg.Begin("copying system files")
	prg.Complete(8)
	prg.Success()

	last := tc.partials[len(tc.partials)-1]
	if last != 10 {
		t.Fatalf("weighted progress ended at %d, expected 10", last)
	}

	if tc.success != 1 {
		t.Fatal("Success() was not propagated to the client")
	}
}

func TestWeightedClamp(t *testing.T) {
	tc := &testClient{}
	Set(tc)

	prg := NewWeighted(5)
	prg.Complete(9)

	if tc.partials[len(tc.partials)-1] != 5 {
		t.Fatalf("completed weight must be clamped to the total, got %v", tc.partials)
	}
}
