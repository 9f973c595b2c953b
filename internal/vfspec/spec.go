// Package vfspec validates an incoming Vega/Vega-Lite specification's JSON
// shape before the planner touches it (spec.md §2's "Specification"
// input), using a JSON Schema compiled once and reused across requests.
package vfspec

import (
	"bytes"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/vegafusion/vegafusion-go/internal/vferrors"
)

// minimalSchema is a deliberately loose structural schema: spec.md scopes
// out full Vega-Lite grammar validation (that belongs to the upstream
// Vega/Vega-Lite compiler), but the task graph builder still needs to
// reject a spec that isn't even a well-formed object with a "data"/"marks"
// shape before it starts compiling expressions against it.
const minimalSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "data": {"type": "array"},
    "signals": {"type": "array"},
    "scales": {"type": "array"},
    "marks": {"type": "array"}
  }
}`

// Validator holds a compiled schema, safe for concurrent use across
// validation calls.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles the standard specification schema.
func NewValidator() (*Validator, error) {
	c := jsonschema.NewCompiler()
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(minimalSchema)))
	if err != nil {
		return nil, vferrors.Wrap(vferrors.KindInternal, "decoding embedded spec schema", err)
	}
	const resourceURL = "mem://vegafusion/spec-schema.json"
	if err := c.AddResource(resourceURL, doc); err != nil {
		return nil, vferrors.Wrap(vferrors.KindInternal, "registering spec schema", err)
	}
	schema, err := c.Compile(resourceURL)
	if err != nil {
		return nil, vferrors.Wrap(vferrors.KindInternal, "compiling spec schema", err)
	}
	return &Validator{schema: schema}, nil
}

// Validate checks raw (a JSON document) against the specification schema,
// returning a KindSpecification error describing every violation.
func (v *Validator) Validate(raw []byte) (map[string]any, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, vferrors.Wrap(vferrors.KindParse, "decoding specification JSON", err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return nil, vferrors.Wrap(vferrors.KindSpecification, "specification failed schema validation", err)
	}
	asMap, ok := doc.(map[string]any)
	if !ok {
		return nil, vferrors.New(vferrors.KindSpecification, "specification root must be a JSON object")
	}
	return asMap, nil
}
