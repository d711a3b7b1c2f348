package provider

import (
	"context"
	"fmt"

	"github.com/casualjim/tickertape/pkg/jsonx"
	"github.com/google/uuid"
	"github.com/invopop/jsonschema"
)

// Completer produces one completion for a conversation.
type Completer interface {
	Complete(context.Context, CompletionParams) (string, error)
}

// Role is the author of a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn of a conversation.
type Message struct {
	Role    Role
	Content string
}

func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// CompletionParams encapsulates the parameters for a completion request.
type CompletionParams struct {
	// RunID ties the request to the analysis run that issued it.
	RunID uuid.UUID

	// Messages is the conversation, in order.
	Messages []Message

	// ResponseSchema asks for a JSON answer with this structure when set.
	ResponseSchema *StructuredOutput

	// Prevents unkeyed literals
	_ struct{}
}

// StructuredOutput defines a schema for formatted responses.
type StructuredOutput struct {
	// Name identifies this output format
	Name string

	// Description explains the purpose and usage of this format
	Description string

	// Schema defines the JSON structure that responses should follow
	Schema *jsonschema.Schema
}

// SchemaFor reflects a strict JSON schema for T: every field required and no
// additional properties.
func SchemaFor[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(&v)
	schema.ID = ""
	return schema
}

// NewStructuredOutput builds a StructuredOutput from the shape of T.
func NewStructuredOutput[T any](name, description string) *StructuredOutput {
	return &StructuredOutput{
		Name:        name,
		Description: description,
		Schema:      SchemaFor[T](),
	}
}

// SchemaMap renders the schema as a generic JSON object.
func (s *StructuredOutput) SchemaMap() (map[string]any, error) {
	if s == nil || s.Schema == nil {
		return nil, fmt.Errorf("structured output has no schema")
	}
	return jsonx.ToDynamicJSON(s.Schema)
}
