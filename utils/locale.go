// Copyright © 2025 Linexin Project
//
// SPDX-License-Identifier: GPL-3.0-only

package utils

import (
	"strings"

	"github.com/leonelquinteros/gotext"
)

const (
	// LocaleDir is the system directory for the translation catalogs
	LocaleDir = "/usr/share/locale"

	// TextDomain is the gettext domain for the installer messages
	TextDomain = "linexin-installer"
)

// Locale is the translation catalog for the currently selected language
var Locale *gotext.Locale

func init() {
	SetLocale("en_US.UTF-8")
}

// SetLocale loads the translation catalog for the given locale code;
// codes may carry an encoding suffix ("pl_PL.UTF-8") which the catalog
// layout does not use
func SetLocale(code string) {
	lang := strings.SplitN(code, ".", 2)[0]

	Locale = gotext.NewLocale(LocaleDir, lang)
	Locale.AddDomain(TextDomain)
}
