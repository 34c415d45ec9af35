// Package configs embeds the commented configuration templates written by
// `leedrag config init`.
//
// Configuration hierarchy (see internal/config Load):
//  1. Built-in defaults (config.NewConfig)
//  2. User config (~/.config/leedrag/config.yaml)
//  3. Project config (.leedrag.yaml)
//  4. Environment variables (LEEDRAG_*)
package configs

import _ "embed"

// UserConfigTemplate is written by `leedrag config init` to the user config path.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is written by `leedrag config init --project` to
// .leedrag.yaml in the project directory.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
