// Package validate checks dataset, pit and relation payloads against their
// JSON schemas.
package validate

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/jsonschema-go/jsonschema"
)

const (
	KindDataset   = "dataset"
	KindPits      = "pits"
	KindRelations = "relations"
)

var ErrUnknownKind = errors.New("unknown schema kind")

// Validator reports whether payload conforms to the schema registered for kind.
type Validator interface {
	Validate(kind string, payload interface{}) error
}

// Error is returned for a payload that does not match its schema.
type Error struct {
	Kind string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

//go:embed schemas/*.json
var schemaFS embed.FS

type Schemas struct {
	resolved map[string]*jsonschema.Resolved
	fields   map[string][]string
}

// Load compiles the embedded dataset, pits and relations schemas.
func Load() (*Schemas, error) {
	s := &Schemas{
		resolved: make(map[string]*jsonschema.Resolved),
		fields:   make(map[string][]string),
	}
	for _, kind := range []string{KindDataset, KindPits, KindRelations} {
		data, err := schemaFS.ReadFile("schemas/" + kind + ".json")
		if err != nil {
			return nil, fmt.Errorf("failed to read %s schema: %w", kind, err)
		}
		if err := s.Register(kind, data); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Register compiles a schema document and stores it under kind, replacing
// any previous one.
func (s *Schemas) Register(kind string, doc []byte) error {
	var schema jsonschema.Schema
	if err := json.Unmarshal(doc, &schema); err != nil {
		return fmt.Errorf("failed to parse %s schema: %w", kind, err)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("failed to resolve %s schema: %w", kind, err)
	}

	fields := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	s.resolved[kind] = resolved
	s.fields[kind] = fields
	return nil
}

func (s *Schemas) Validate(kind string, payload interface{}) error {
	r, ok := s.resolved[kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if err := r.Validate(payload); err != nil {
		return &Error{Kind: kind, Err: err}
	}
	return nil
}

// Fields lists the top-level properties declared by the schema of kind.
func (s *Schemas) Fields(kind string) []string {
	return s.fields[kind]
}
