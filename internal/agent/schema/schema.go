// Package schema provides the result shapes agents declare: JSON schemas describing the
// structured output of one invocation, each resolved into a validator at discovery time.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	validator "github.com/google/jsonschema-go/jsonschema"
	"github.com/invopop/jsonschema"
)

const draft202012 = "https://json-schema.org/draft/2020-12/schema"

// ErrInvalidResult indicates provider output that does not satisfy the declared shape
var ErrInvalidResult = errors.New("result does not match declared shape")

// ErrUnknownShape indicates a result shape reference that cannot be resolved
var ErrUnknownShape = errors.New("unknown result shape")

// Shape is a named, resolved result schema. A Shape is immutable once built.
type Shape struct {
	name     string
	raw      json.RawMessage
	resolved *validator.Resolved
}

// Name returns the shape reference the shape was resolved from
func (s *Shape) Name() string {
	return s.name
}

// Schema returns the JSON schema document
func (s *Shape) Schema() json.RawMessage {
	return s.raw
}

// Validate parses raw provider output and checks it against the schema.
// Only JSON objects are accepted.
func (s *Shape) Validate(raw json.RawMessage) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: output is not a JSON object: %v", ErrInvalidResult, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: output is null", ErrInvalidResult)
	}
	if err := s.resolved.Validate(fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResult, err)
	}
	return fields, nil
}

// New resolves a JSON schema document into a Shape
func New(name string, raw []byte) (*Shape, error) {
	var sch validator.Schema
	if err := json.Unmarshal(raw, &sch); err != nil {
		return nil, fmt.Errorf("schema %q: failed to parse: %w", name, err)
	}
	if sch.Type != "" && sch.Type != "object" {
		return nil, fmt.Errorf("schema %q: result shape must describe an object, got %q", name, sch.Type)
	}

	// Only draft 2020-12 is validated; an older draft marker is dropped
	if sch.Schema != "" && sch.Schema != draft202012 {
		sch.Schema = ""
	}

	resolved, err := sch.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("schema %q: failed to resolve: %w", name, err)
	}

	return &Shape{
		name:     name,
		raw:      append(json.RawMessage(nil), raw...),
		resolved: resolved,
	}, nil
}

// Generate creates a JSON schema document for the given type
func Generate[T any]() json.RawMessage {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		Anonymous:                 true,
	}

	var v T

	schema := reflector.Reflect(v)
	// The draft URI is not needed by providers
	schema.Version = ""

	raw, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("schema: failed to marshal reflected schema: %v", err))
	}
	return raw
}

// Resolve looks up a result shape reference. A reference is either a built-in shape
// name or a path ending in ".json" read from fsys.
func Resolve(ref string, fsys fs.FS) (*Shape, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrUnknownShape)
	}

	if shape, ok := builtins[ref]; ok {
		return shape, nil
	}

	if strings.HasSuffix(ref, ".json") && fsys != nil {
		raw, err := fs.ReadFile(fsys, ref)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnknownShape, ref, err)
		}
		return New(ref, raw)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownShape, ref)
}

// Builtins returns the names of the built-in shapes in sorted order
func Builtins() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
