// Copyright © 2025 Linexin Project
//
// SPDX-License-Identifier: GPL-3.0-only

package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestTraceable(t *testing.T) {
	msg := "Traceable error"
	err := Errorf("%s", msg)

	if !strings.Contains(err.Error(), msg) {
		t.Fatalf("Error message should contain: %s", msg)
	}

	if !strings.Contains(err.Error(), "Error Trace:") {
		t.Fatal("Error message should contain the trace marker")
	}
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("wrapped cause")
	err := Wrap(cause)

	if !strings.Contains(err.Error(), cause.Error()) {
		t.Fatalf("Wrapped error should contain: %s", cause.Error())
	}

	if _, ok := err.(TraceableError); !ok {
		t.Fatal("Wrap() should return a TraceableError")
	}

	if !stderrors.Is(err, cause) {
		t.Fatal("errors.Is() should reach the wrapped cause")
	}
}

func TestWrapKeepsValidationVisible(t *testing.T) {
	err := Wrap(ValidationErrorf("bad descriptor"))

	if !IsValidationError(err) {
		t.Fatal("IsValidationError() should see through a Wrap()")
	}

	if !IsValidationError(fmt.Errorf("loading: %w", ValidationErrorf("bad"))) {
		t.Fatal("IsValidationError() should see through fmt.Errorf %w wrapping")
	}
}

func TestValidation(t *testing.T) {
	msg := "Validation error"
	err := ValidationErrorf("%s", msg)

	if err.Error() != msg {
		t.Fatalf("ValidationError message should be exactly: %s", msg)
	}

	if !IsValidationError(err) {
		t.Fatal("IsValidationError() should recognize a ValidationError")
	}

	if IsValidationError(fmt.Errorf("plain")) {
		t.Fatal("IsValidationError() should reject a plain error")
	}
}
