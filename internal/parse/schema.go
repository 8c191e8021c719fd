package parse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// entriesSchema is the canonical shape of extraction payloads. It is
// deliberately loose about value types (the model mixes numbers and
// strings); per-entry semantics are enforced in code.
const entriesSchema = `{
  "type": "object",
  "required": ["entries"],
  "properties": {
    "entries": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string"},
          "value": {"type": ["number", "string", "boolean", "null"]},
          "unit": {"type": ["string", "null"]},
          "reference_range": {
            "type": ["object", "null"],
            "properties": {
              "low": {"type": ["number", "string", "null"]},
              "high": {"type": ["number", "string", "null"]}
            }
          },
          "flag": {"type": ["string", "null"]}
        }
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func payloadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("entries.json", bytes.NewReader([]byte(entriesSchema))); err != nil {
			schemaErr = fmt.Errorf("loading entries schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile("entries.json")
	})
	return compiledSchema, schemaErr
}

// validatePayload checks recovered JSON against the entries schema.
func validatePayload(raw json.RawMessage) error {
	schema, err := payloadSchema()
	if err != nil {
		return err
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	if err := schema.Validate(doc); err != nil {
		// jsonschema errors are multi-line; keep the first line for warnings.
		msg := err.Error()
		if i := strings.IndexByte(msg, '\n'); i > 0 {
			msg = msg[:i]
		}
		return fmt.Errorf("%s", msg)
	}
	return nil
}
