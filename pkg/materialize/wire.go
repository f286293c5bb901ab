package materialize

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/cairnhub/cairn/pkg/schema"
)

// wireValidator holds generated JSON Schemas for the wire format: one per
// record schema, derived from the field descriptors. Validation here is
// structural (key allowlist, value shapes); the walk enforces the precise
// coercion, length, and enum rules.
type wireValidator struct {
	reg *schema.Registry

	mu       sync.Mutex
	compiled map[string]*jsonschema.Schema
}

func newWireValidator(reg *schema.Registry) *wireValidator {
	return &wireValidator{reg: reg, compiled: make(map[string]*jsonschema.Schema)}
}

func (w *wireValidator) validate(sc *schema.Schema, doc map[string]any) error {
	compiled, err := w.schemaFor(sc)
	if err != nil {
		return fmt.Errorf("materialize: wire schema for %s: %w", sc.Name, err)
	}
	if err := compiled.Validate(doc); err != nil {
		return errf(KindInvalidType, sc.Name, "", "wire document rejected: %v", err)
	}
	return nil
}

func (w *wireValidator) schemaFor(sc *schema.Schema) (*jsonschema.Schema, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if compiled, ok := w.compiled[sc.Name]; ok {
		return compiled, nil
	}

	defs := make(map[string]any)
	for _, s := range w.reg.All() {
		defs[s.Name] = wireObject(s)
	}
	doc, err := json.Marshal(map[string]any{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"$defs":   defs,
		"$ref":    "#/$defs/" + sc.Name,
	})
	if err != nil {
		return nil, err
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	schemaURL := fmt.Sprintf("https://cairn.schemas.local/wire/%s.schema.json", sc.Name)
	if err := c.AddResource(schemaURL, strings.NewReader(string(doc))); err != nil {
		return nil, err
	}
	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, err
	}
	w.compiled[sc.Name] = compiled
	return compiled, nil
}

// wireObject renders one schema's descriptors as a JSON Schema object node.
func wireObject(sc *schema.Schema) map[string]any {
	props := make(map[string]any)
	for _, f := range sc.Fields {
		props[f.Name] = wireScalar(f)
	}
	for _, rel := range sc.Rels {
		ref := map[string]any{"$ref": "#/$defs/" + rel.Target}
		switch rel.Kind {
		case schema.HasMany:
			props[rel.Name] = map[string]any{
				"anyOf": []any{
					map[string]any{"type": "array", "items": ref},
					ref,
				},
			}
		default:
			props[rel.Name] = ref
		}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
}

func wireScalar(f schema.Field) map[string]any {
	var types []any
	switch f.Type {
	case schema.Int:
		types = []any{"integer"}
	case schema.Float:
		types = []any{"number"}
	case schema.Bool:
		types = []any{"boolean"}
	default:
		// String, Time (RFC 3339), and Bytes all arrive as strings.
		types = []any{"string"}
	}
	if f.Nullable {
		types = append(types, "null")
	}
	return map[string]any{"type": types}
}
