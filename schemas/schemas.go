// Package schemas holds the JSON Schemas shipped with pagerender.
package schemas

import _ "embed"

// RenderConfig is the JSON Schema for render configuration files.
//
//go:embed render_config.schema.json
var RenderConfig string
