// Package scripts bundles the Risor extraction scripts shipped with xref.
package scripts

import "embed"

// FS holds extract/<ext>.risor for every bundled scripted language.
//
//go:embed extract/*.risor
var FS embed.FS
