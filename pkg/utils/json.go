package utils

import (
	"bytes"
	"encoding/json"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
)

// GenerateJsonSchema reflects T into a self-contained JSON schema document.
// Properties are inlined and additional properties are rejected so the
// schema can be handed to a validator as is.
func GenerateJsonSchema[T any]() ([]byte, error) {
	r := jsonschema.Reflector{DoNotReference: true}

	s := r.ReflectFromType(reflect.TypeFor[T]())
	s.ID = ""
	s.Version = ""

	b, err := json.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal JSON schema")
	}

	return b, nil
}

// Unmarshal decodes the JSON text `s` into a new T.
func Unmarshal[T any](s string) (T, error) {
	var v T
	err := json.Unmarshal([]byte(s), &v)
	return v, err
}

// IndentJSON re-indents a JSON document with two spaces per level, keeping
// object keys in the order they arrived.
func IndentJSON(raw []byte) ([]byte, error) {
	var buf bytes.Buffer

	err := json.Indent(&buf, raw, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to indent JSON")
	}

	return buf.Bytes(), nil
}
