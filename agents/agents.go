// Package agents holds the agent manifests shipped with the binary. They are loaded
// before the agents directory and the configuration file, either of which may override
// them by name.
package agents

import (
	"embed"
	"io/fs"
)

//go:embed *.yaml
var manifests embed.FS

// Defaults returns the embedded manifests
func Defaults() fs.FS {
	return manifests
}
