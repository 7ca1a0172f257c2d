package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const registerSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "username": {"type": "string", "minLength": 1, "maxLength": 150},
    "email":    {"type": "string", "format": "email"},
    "password": {"type": "string", "minLength": 1}
  },
  "required": ["username", "email", "password"]
}`

const orderUpdateSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "first_name":    {"type": ["string", "null"], "minLength": 1},
    "last_name":     {"type": ["string", "null"], "minLength": 1},
    "date_of_birth": {"type": ["string", "null"], "format": "date"}
  }
}`

var (
	registerRequestSchema = mustCompile("register.json", registerSchema)
	orderUpdateReqSchema  = mustCompile("order_update.json", orderUpdateSchema)
)

func mustCompile(name, src string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", name, err))
	}
	return compiler.MustCompile(name)
}

// errInvalidBody carries "field: message" strings for a 422 response.
type errInvalidBody struct {
	messages []string
}

func (e *errInvalidBody) Error() string { return strings.Join(e.messages, "; ") }

// decodeJSON validates body against schema and then decodes it into dst.
func decodeJSON(body io.Reader, schema *jsonschema.Schema, dst any) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return &errInvalidBody{messages: []string{"body: invalid JSON"}}
	}
	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return &errInvalidBody{messages: schemaMessages(ve)}
		}
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return &errInvalidBody{messages: []string{"body: " + err.Error()}}
	}
	return nil
}

// schemaMessages flattens the leaf causes of a validation error.
func schemaMessages(ve *jsonschema.ValidationError) []string {
	var out []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			field := strings.TrimPrefix(e.InstanceLocation, "/")
			if field == "" {
				field = "body"
			}
			out = append(out, field+": "+e.Message)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	sort.Strings(out)
	return out
}
