package toolbox

import (
	"context"
	"encoding/json"
)

// Handler runs a tool with JSON arguments and returns a text result.
type Handler func(ctx context.Context, args json.RawMessage) (string, error)

// Tool is a named operation with a JSON Schema for its arguments.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     Handler
}

// EmptySchema is the input schema of a tool that takes no arguments.
var EmptySchema = json.RawMessage(`{"type":"object"}`)
