package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema pairs a JSON-Schema document with its compiled form. The three
// stage schemas are fixed, so each is compiled exactly once at package init
// instead of per response.
type Schema struct {
	raw      string
	compiled *jsonschema.Schema
}

// mustSchema compiles doc or panics; the stage schemas are literals, so a
// compile failure is a programming error.
func mustSchema(name string, doc map[string]any) *Schema {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		panic(fmt.Sprintf("marshal schema %s: %v", name, err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", name, err))
	}
	compiled, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("compile schema %s: %v", name, err))
	}
	return &Schema{raw: string(b), compiled: compiled}
}

// JSON returns the schema document for embedding in a prompt.
func (s *Schema) JSON() string { return s.raw }

// Validate checks a model response against the compiled schema.
func (s *Schema) Validate(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := s.compiled.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
