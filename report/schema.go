package report

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// ReplyJSONSchema reflects ReplySchema into a JSON schema document.
func ReplyJSONSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		Anonymous:                 true,
	}
	return reflector.Reflect(&ReplySchema{})
}

// ReplyJSONSchemaText renders the reply schema as indented JSON.
func ReplyJSONSchemaText() (string, error) {
	data, err := json.MarshalIndent(ReplyJSONSchema(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal reply schema: %w", err)
	}
	return string(data), nil
}
