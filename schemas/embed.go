// Package schemas holds the JSON Schemas compiled into the binary.
package schemas

import _ "embed"

// Config is the schema for the optional JSON configuration file.
//
//go:embed config.schema.json
var Config []byte
