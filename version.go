package cadence

import _ "embed"

// Version is the module version, embedded from the VERSION file at the
// repository root. It carries a trailing newline; display paths trim it.
//
//go:embed VERSION
var Version string
