// Copyright © 2025 Linexin Project
//
// SPDX-License-Identifier: GPL-3.0-only

package frontend

import (
	"context"

	"github.com/linexin/linexin-installer/args"
	"github.com/linexin/linexin-installer/model"
)

// Frontend is the common interface for the frontend entry point
type Frontend interface {
	// MustRun is the method where the frontend implementation tells the
	// core code that this frontend wants to run
	MustRun(args *args.Args) bool

	// Run is the actual entry point
	Run(ctx context.Context, md *model.SystemInstall, rootDir string, args args.Args) (bool, error)
}
