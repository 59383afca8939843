package generate

import (
	"encoding/json"

	"github.com/flowdeck/flowdeck/pkg/schema"
)

// FromRepresentation transforms a parsed syntax-tree document into a
// flowchart. The language tag selects the front-end; an unrecognized shape
// still yields a start node connected to an end node so the result is
// never empty.
func FromRepresentation(rep map[string]any, language string) *schema.Flowchart {
	switch {
	case language == "pascal" && hasKey(rep, "program"):
		return fromPascal(rep)
	case (language == "c" || language == "cpp") && str(rep, "type") == "Program":
		return fromC(rep)
	}

	b := newBuilder()
	start := b.node(schema.NodeTypeStart, "Start", "")
	end := b.node(schema.NodeTypeEnd, "End", "")
	b.connectDefault(start, end)
	return b.flowchart()
}

// DecodeRepresentation parses the parser service's representation payload.
// The payload may arrive double-encoded: a JSON string whose contents are
// the JSON document.
func DecodeRepresentation(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, schema.NewError(schema.ErrCodeParseFailed, "parser returned no representation")
	}

	data := []byte(raw)
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		data = []byte(asString)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, schema.NewError(schema.ErrCodeParseFailed, "representation is not a JSON object").WithCause(err)
	}
	return doc, nil
}

func hasKey(m map[string]any, key string) bool {
	_, ok := m[key].(map[string]any)
	return ok
}
