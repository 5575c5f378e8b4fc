package flows

import (
	"encoding/json"

	"github.com/go-go-golems/agentverse/pkg/parse"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
)

var reflector = &jsonschema.Reflector{
	DoNotReference:            true,
	Anonymous:                 true,
	AllowAdditionalProperties: true,
}

func reflectSchema(v interface{}) json.RawMessage {
	s := reflector.Reflect(v)
	s.Version = ""
	if s.Type == "" {
		s.Type = "object"
	}
	b, err := json.Marshal(s)
	if err != nil {
		panic(errors.Wrap(err, "marshal reflected schema"))
	}
	return b
}

// contract holds the input and output schemas of one flow.
type contract[I any, O any] struct {
	name   string
	input  json.RawMessage
	output json.RawMessage
}

func newContract[I any, O any](name string) *contract[I, O] {
	return &contract[I, O]{
		name:   name,
		input:  reflectSchema(new(I)),
		output: reflectSchema(new(O)),
	}
}

func (c *contract[I, O]) OutputSchema() json.RawMessage {
	return c.output
}

func (c *contract[I, O]) validate(stage string, schema json.RawMessage, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "%s: marshal %s", c.name, stage)
	}
	res, err := parse.ValidateJSON(schema, b)
	if err != nil {
		return err
	}
	if !res.Valid {
		return &ValidationError{Flow: c.name, Stage: stage, Errors: res.Errors}
	}
	return nil
}

func (c *contract[I, O]) validateInput(in *I) error {
	if in == nil {
		return &ValidationError{Flow: c.name, Stage: "input", Errors: []string{"missing input"}}
	}
	return c.validate("input", c.input, in)
}

func (c *contract[I, O]) validateOutput(out *O) error {
	return c.validate("output", c.output, out)
}
