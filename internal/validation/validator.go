package validation

import "github.com/flowdeck/flowdeck/pkg/schema"

// Validator checks flowchart documents for correctness before they are
// persisted or rendered. Uses JSON Schema Draft 2020-12 for the document
// shape plus structural checks the schema cannot express.
type Validator interface {
	ValidateDocument(f *schema.Flowchart) error
	Analyze(f *schema.Flowchart) *schema.ValidationResult
}

// MustValidator builds the document validator or panics. The schema it
// compiles is an embedded constant, so a failure here is a programming
// error, not a runtime condition.
func MustValidator() *JSONSchemaValidator {
	v, err := NewJSONSchemaValidator()
	if err != nil {
		panic("validation: " + err.Error())
	}
	return v
}
