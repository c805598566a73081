// Package configs embeds configuration templates into the amandocs binary.
//
// The templates are written by `amandocs config init`. Edit the .yaml files
// in this directory and rebuild to change them.
package configs

import _ "embed"

// ProjectConfigTemplate is the commented .amandocs.yaml written by
// `amandocs config init`.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
