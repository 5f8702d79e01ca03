package server

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const schemaBaseURL = "https://stag.local/schemas/"

// Request schema names.
const (
	SchemaCreate = "create.schema.json"
	SchemaAction = "action.schema.json"
)

// ErrInvalidRequest wraps schema violations of a request body.
var ErrInvalidRequest = errors.New("invalid request")

// PayloadValidator checks request bodies against the embedded JSON schemas
// before they reach the table service.
type PayloadValidator struct {
	schemas map[string]*jsonschema.Schema
}

// NewPayloadValidator compiles every embedded schema.
func NewPayloadValidator() (*PayloadValidator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020

	names := []string{SchemaCreate, SchemaAction}
	for _, name := range names {
		data, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, err
		}
		if err := c.AddResource(schemaBaseURL+name, bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", name, err)
		}
	}

	v := &PayloadValidator{schemas: make(map[string]*jsonschema.Schema, len(names))}
	for _, name := range names {
		s, err := c.Compile(schemaBaseURL + name)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		v.schemas[name] = s
	}
	return v, nil
}

// ValidateJSON validates a raw JSON document.
func (v *PayloadValidator) ValidateJSON(schema string, raw []byte) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: body is not valid JSON", ErrInvalidRequest)
	}
	return v.Validate(schema, doc)
}

// Validate validates an already decoded document, such as a structpb map.
func (v *PayloadValidator) Validate(schema string, doc any) error {
	s, ok := v.schemas[schema]
	if !ok {
		return fmt.Errorf("unknown schema %s", schema)
	}
	if err := s.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("%w: %s", ErrInvalidRequest, describeViolation(ve))
		}
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// describeViolation reports the deepest cause, which names the offending field.
func describeViolation(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	if ve.InstanceLocation == "" {
		return ve.Message
	}
	return fmt.Sprintf("%s: %s", ve.InstanceLocation, ve.Message)
}
