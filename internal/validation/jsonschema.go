package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/flowdeck/flowdeck/pkg/schema"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// flowchartSchemaJSON is the JSON Schema for flowchart document validation.
// Embedded as a constant to avoid filesystem dependencies.
const flowchartSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://flowdeck.dev/schemas/flowchart.json",
  "type": "object",
  "required": ["nodes", "connections"],
  "properties": {
    "nodes": {
      "type": "array",
      "items": { "$ref": "#/$defs/node" }
    },
    "connections": {
      "type": "array",
      "items": { "$ref": "#/$defs/connection" }
    }
  },
  "additionalProperties": false,
  "$defs": {
    "node": {
      "type": "object",
      "required": ["id", "type", "x", "y", "width", "height"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "type": {
          "type": "string",
          "enum": ["start", "end", "process", "decision", "input", "output"]
        },
        "x": { "type": "number" },
        "y": { "type": "number" },
        "width": { "type": "number", "exclusiveMinimum": 0 },
        "height": { "type": "number", "exclusiveMinimum": 0 },
        "text": { "type": "string" },
        "codeReference": { "type": "string" },
        "comments": {
          "type": "array",
          "items": { "$ref": "#/$defs/comment" }
        },
        "hidden": { "type": "boolean" }
      },
      "additionalProperties": false
    },
    "connection": {
      "type": "object",
      "required": ["id", "from", "to", "fromPort", "toPort"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "from": { "type": "string", "minLength": 1 },
        "to": { "type": "string", "minLength": 1 },
        "fromPort": { "type": "string", "enum": ["top", "right", "bottom", "left"] },
        "toPort": { "type": "string", "enum": ["top", "right", "bottom", "left"] },
        "label": { "type": "string" }
      },
      "additionalProperties": false
    },
    "comment": {
      "type": "object",
      "required": ["id", "author", "text", "timestamp"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "author": { "type": "string" },
        "text": { "type": "string" },
        "timestamp": { "type": "string", "format": "date-time" }
      },
      "additionalProperties": false
    }
  }
}`

// JSONSchemaValidator implements the Validator interface using JSON Schema
// Draft 2020-12. It is safe for concurrent use.
type JSONSchemaValidator struct {
	flowchartSchema *jsonschema.Schema
}

// NewJSONSchemaValidator creates a new JSONSchemaValidator with the flowchart
// schema pre-compiled.
func NewJSONSchemaValidator() (*JSONSchemaValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	schemaDoc, err := jsonschema.UnmarshalJSON(strings.NewReader(flowchartSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal flowchart schema: %w", err)
	}
	if err := c.AddResource("https://flowdeck.dev/schemas/flowchart.json", schemaDoc); err != nil {
		return nil, fmt.Errorf("add flowchart schema resource: %w", err)
	}

	fcSchema, err := c.Compile("https://flowdeck.dev/schemas/flowchart.json")
	if err != nil {
		return nil, fmt.Errorf("compile flowchart schema: %w", err)
	}

	return &JSONSchemaValidator{flowchartSchema: fcSchema}, nil
}

// ValidateDocument validates a flowchart against the document JSON Schema
// plus the structural invariants the schema cannot express: unique node and
// connection ids, and no connection referencing a missing node.
func (v *JSONSchemaValidator) ValidateDocument(f *schema.Flowchart) error {
	if f == nil {
		return schema.NewError(schema.ErrCodeValidation, "flowchart is nil")
	}

	doc, err := toJSONValue(f)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "failed to serialize flowchart").WithCause(err)
	}

	if err := v.flowchartSchema.Validate(doc); err != nil {
		return toFlowError(err)
	}

	nodeIDs := make(map[string]struct{}, len(f.Nodes))
	for _, n := range f.Nodes {
		if _, exists := nodeIDs[n.ID]; exists {
			return schema.NewErrorf(schema.ErrCodeValidation, "duplicate node id %q", n.ID)
		}
		nodeIDs[n.ID] = struct{}{}
	}

	connIDs := make(map[string]struct{}, len(f.Connections))
	for _, c := range f.Connections {
		if _, exists := connIDs[c.ID]; exists {
			return schema.NewErrorf(schema.ErrCodeValidation, "duplicate connection id %q", c.ID)
		}
		connIDs[c.ID] = struct{}{}

		if _, ok := nodeIDs[c.From]; !ok {
			return schema.NewErrorf(schema.ErrCodeValidation,
				"connection %q references missing node %q", c.ID, c.From)
		}
		if _, ok := nodeIDs[c.To]; !ok {
			return schema.NewErrorf(schema.ErrCodeValidation,
				"connection %q references missing node %q", c.ID, c.To)
		}
	}

	return nil
}

// Analyze runs the non-fatal semantic checks and returns their findings.
func (v *JSONSchemaValidator) Analyze(f *schema.Flowchart) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	if f == nil {
		result.AddError("/", schema.ErrCodeValidation, "flowchart is nil")
		return result
	}
	result.Merge(analyzeStructure(f))
	result.Merge(analyzeReachability(f))
	return result
}

// toJSONValue round-trips a Go value through JSON encoding/decoding so that
// numeric values become json.Number (required by the jsonschema library).
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// toFlowError converts a jsonschema.ValidationError into a FlowError with
// leaf violation messages collected into the details.
func toFlowError(err error) *schema.FlowError {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return schema.NewError(schema.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return schema.NewError(schema.ErrCodeValidation, verr.Error())
	}

	if len(violations) == 1 {
		return schema.NewError(schema.ErrCodeValidation, violations[0]).
			WithDetails(map[string]any{"violations": violations})
	}

	msg := fmt.Sprintf("validation failed with %d errors", len(violations))
	return schema.NewError(schema.ErrCodeValidation, msg).
		WithDetails(map[string]any{"violations": violations})
}

// collectViolations walks a ValidationError tree and collects leaf error
// messages with their instance locations.
func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
