// Package scripts embeds the Risor report scripts shipped with cxxbind.
// They run against the stored snapshot through the lookup host functions.
package scripts

import "embed"

//go:embed report/*.risor
var FS embed.FS
