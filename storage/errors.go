// Copyright © 2025 Linexin Project
//
// SPDX-License-Identifier: GPL-3.0-only

package storage

import (
	"fmt"
)

// DetectionFailedError means enumeration or identification returned
// nothing usable: no targets, no table entries, or no entry within the
// matching tolerance
type DetectionFailedError struct {
	What string
}

func (e *DetectionFailedError) Error() string {
	return fmt.Sprintf("Detection failed: %s", e.What)
}

// DetectionFailedf formats a new DetectionFailedError
func DetectionFailedf(format string, a ...interface{}) error {
	return &DetectionFailedError{What: fmt.Sprintf(format, a...)}
}

// IsDetectionFailed returns true if err is a DetectionFailedError
func IsDetectionFailed(err error) bool {
	_, ok := err.(*DetectionFailedError)
	return ok
}

// InsufficientSpaceError means the plan cannot satisfy the minimum
// partition sizes within the selected target
type InsufficientSpaceError struct {
	What string
}

func (e *InsufficientSpaceError) Error() string {
	return fmt.Sprintf("Insufficient space: %s", e.What)
}

// InsufficientSpacef formats a new InsufficientSpaceError
func InsufficientSpacef(format string, a ...interface{}) error {
	return &InsufficientSpaceError{What: fmt.Sprintf(format, a...)}
}

// IsInsufficientSpace returns true if err is an InsufficientSpaceError
func IsInsufficientSpace(err error) bool {
	_, ok := err.(*InsufficientSpaceError)
	return ok
}

// ToolInvocationError carries a non-zero exit from a mutating external
// command along with the step it served and the tool's own error text
type ToolInvocationError struct {
	Step   string
	Output string
	Err    error
}

func (e *ToolInvocationError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("%s: %s: %s", e.Step, e.Err, e.Output)
	}

	return fmt.Sprintf("%s: %s", e.Step, e.Err)
}

func (e *ToolInvocationError) Unwrap() error {
	return e.Err
}

// IsToolInvocationFailed returns true if err is a ToolInvocationError
func IsToolInvocationFailed(err error) bool {
	_, ok := err.(*ToolInvocationError)
	return ok
}

// PrecheckFailedError means the device state refused a mutation before it
// began, e.g a CLEAN attempted on a device still holding unexpected mounts
type PrecheckFailedError struct {
	What string
}

func (e *PrecheckFailedError) Error() string {
	return fmt.Sprintf("Precheck failed: %s", e.What)
}

// PrecheckFailedf formats a new PrecheckFailedError
func PrecheckFailedf(format string, a ...interface{}) error {
	return &PrecheckFailedError{What: fmt.Sprintf(format, a...)}
}

// IsPrecheckFailed returns true if err is a PrecheckFailedError
func IsPrecheckFailed(err error) bool {
	_, ok := err.(*PrecheckFailedError)
	return ok
}
