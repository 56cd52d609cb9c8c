// Package profiles provides embedded certificate profile templates.
//
// These define ready-to-use certificate presets and are embedded in
// the binary for convenience. Users can also copy and customize them.
package profiles

import "embed"

// FS contains all embedded profile YAML files.
//
//go:embed *.yaml
var FS embed.FS
