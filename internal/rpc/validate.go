package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// bodyField is the FieldErrors key used for problems with the args object as a whole.
const bodyField = "$"

// FieldErrors maps an argument name to what is wrong with it.
type FieldErrors map[string]string

// Add records msg for field, keeping the first message per field.
func (fe FieldErrors) Add(field, msg string) {
	if _, exists := fe[field]; !exists {
		fe[field] = msg
	}
}

// Required records a "required" error when value is blank.
func (fe FieldErrors) Required(field, value string) {
	if strings.TrimSpace(value) == "" {
		fe.Add(field, "required")
	}
}

// Err returns fe, or nil when it holds no errors.
func (fe FieldErrors) Err() FieldErrors {
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// Validator turns raw JSON args into typed args.
type Validator[A any] func(raw json.RawMessage) (A, FieldErrors)

// Checker is implemented by args types that carry their own field rules.
type Checker interface {
	Check() FieldErrors
}

// DecodeArgs strictly decodes raw into A (unknown fields are rejected) and
// then runs A's Check method when A implements Checker. Empty or null raw
// decodes as {}.
func DecodeArgs[A any](raw json.RawMessage) (A, FieldErrors) {
	var args A
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		trimmed = []byte("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&args); err != nil {
		return args, decodeFieldErrors(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return args, FieldErrors{bodyField: "trailing data after args object"}
	}

	if c, ok := any(&args).(Checker); ok {
		if fe := c.Check(); len(fe) > 0 {
			return args, fe
		}
	}
	return args, nil
}

func decodeFieldErrors(err error) FieldErrors {
	fe := FieldErrors{}

	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = bodyField
		}
		fe.Add(field, fmt.Sprintf("must be %s, got %s", jsonTypeName(typeErr.Type.Kind().String()), typeErr.Value))
	case errors.As(err, &syntaxErr):
		fe.Add(bodyField, "malformed JSON: "+syntaxErr.Error())
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		name := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		fe.Add(name, "unknown field")
	default:
		fe.Add(bodyField, err.Error())
	}
	return fe
}

func jsonTypeName(kind string) string {
	switch kind {
	case "string":
		return "a string"
	case "bool":
		return "a boolean"
	case "slice", "array":
		return "an array"
	case "map", "struct":
		return "an object"
	case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64", "float32", "float64":
		return "a number"
	default:
		return kind
	}
}
