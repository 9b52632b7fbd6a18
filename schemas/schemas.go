// Package schemas embeds the JSON Schemas shipped with the tool.
package schemas

import _ "embed"

// EvalSchemaJSON is the JSON Schema for eval.yaml files.
//
//go:embed eval.schema.json
var EvalSchemaJSON string

// VerdictSchemaJSON is the JSON Schema for grading model verdicts.
//
//go:embed verdict.schema.json
var VerdictSchemaJSON string
