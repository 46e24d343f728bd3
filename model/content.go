package model

import (
	"encoding/json"
	"fmt"

	"github.com/hupe1980/legion/core"
)

// ToolResultContent renders a tool result as the textual payload providers
// expect in tool role messages. Errors render as a structured error object so
// the model can distinguish failure from an answer that happens to mention
// errors.
func ToolResultContent(r core.ToolResult) string {
	if r.IsError() {
		data, err := json.Marshal(map[string]string{"error": r.Error})
		if err != nil {
			return fmt.Sprintf(`{"error":%q}`, r.Error)
		}

		return string(data)
	}

	switch v := r.Response.(type) {
	case string:
		return v
	case nil:
		return "null"
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(data)
	}
}
