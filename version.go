package rapport

import _ "embed"

// Version is the release of this module. It carries a trailing newline; trim before display.
//
//go:embed VERSION
var Version string
