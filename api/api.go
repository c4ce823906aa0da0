// Package api embeds the OpenAPI description of the HTTP API.
package api

import _ "embed"

// Spec is the OpenAPI 3 document in YAML.
//
//go:embed openapi.yaml
var Spec []byte
