package agent

import (
	"encoding/json"
)

// Result is the structured output of one invocation, already validated against the
// agent's result shape
type Result struct {
	Agent  string
	Raw    json.RawMessage
	Fields map[string]any
}

// Text renders the result for display. A result with a single string field is shown
// as that string; anything else is shown as indented JSON.
func (r *Result) Text() string {
	if len(r.Fields) == 1 {
		for _, v := range r.Fields {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}

	out, err := json.MarshalIndent(r.Fields, "", "  ")
	if err != nil {
		return string(r.Raw)
	}
	return string(out)
}
