package manifest

import (
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/xeipuuv/gojsonschema"
)

// manifestSchema is the JSON Schema the decoded manifest document is
// validated against before extraction. additionalProperties is left
// unset (defaulting to permitted) at every level so unknown keys — tool
// metadata, ecosystem-specific extensions — are tolerated, per spec.md §6.
const manifestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["package"],
  "properties": {
    "package": {
      "type": "object",
      "required": ["name", "version"],
      "properties": {
        "name": {"type": "string", "minLength": 1},
        "version": {"type": "string", "minLength": 1},
        "license": {"type": "string"},
        "authors": {"type": "array", "items": {"type": "string"}}
      }
    },
    "dependencies": {
      "type": "object"
    }
  }
}`

// ValidateSchema decodes manifest TOML into a generic document and checks it
// against manifestSchema, surfacing every violation rather than just the
// first (gojsonschema's ValidateResult.Errors() gives the full list).
func ValidateSchema(data []byte) error {
	var doc any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode manifest for schema validation: %w", err)
	}

	schemaLoader := gojsonschema.NewStringLoader(manifestSchema)
	docLoader := gojsonschema.NewGoLoader(jsonifyKeys(doc))

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("run schema validation: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("manifest does not satisfy schema: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// jsonifyKeys recursively converts the map[string]any / []any shape go-toml
// produces into the same shape gojsonschema's GoLoader expects; go-toml
// already decodes tables as map[string]any so this is mostly a pass-through,
// present so nested inline tables (dependency entries) validate too.
func jsonifyKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = jsonifyKeys(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = jsonifyKeys(val)
		}
		return out
	default:
		return v
	}
}
