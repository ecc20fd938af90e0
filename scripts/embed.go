// Package scripts bundles the default Risor remark scripts.
package scripts

import "embed"

// FS holds every bundled script, rooted at this directory.
//
//go:embed remark/*.risor
var FS embed.FS
