package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"

	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/model"
)

// maxInputSize caps request bodies and query inputs.
const maxInputSize = 1 << 20

// Kind separates side-effect free queries from mutations.
type Kind int

const (
	Query Kind = iota
	Mutation
)

func (k Kind) String() string {
	if k == Mutation {
		return "mutation"
	}
	return "query"
}

// Input is implemented by every procedure input type.
type Input interface {
	Validate() error
}

// Procedure is a named remote call with a typed, validated input.
type Procedure struct {
	Name string
	Kind Kind
	call func(ctx context.Context, raw []byte) (any, error)
}

// NewProcedure adapts fn into a Procedure. The input is decoded strictly
// and validated before fn runs.
func NewProcedure[In Input, Out any](name string, kind Kind, fn func(context.Context, In) (Out, error)) Procedure {
	return Procedure{
		Name: name,
		Kind: kind,
		call: func(ctx context.Context, raw []byte) (any, error) {
			var in In
			if err := decodeInput(raw, &in); err != nil {
				return nil, err
			}
			if err := in.Validate(); err != nil {
				return nil, err
			}
			return fn(ctx, in)
		},
	}
}

// Call decodes raw, validates it and runs the procedure.
func (p Procedure) Call(ctx context.Context, raw []byte) (any, error) {
	return p.call(ctx, raw)
}

// ServeHTTP reads the input from the "input" query parameter on GET and from
// the body otherwise.
func (p Procedure) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var raw []byte
	if r.Method == http.MethodGet {
		raw = []byte(r.URL.Query().Get("input"))
		if len(raw) > maxInputSize {
			errorResponse(r.Context(), w, &model.ValidationError{Message: "input too large"})
			return
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxInputSize)
		defer r.Body.Close()
		var err error
		raw, err = io.ReadAll(r.Body)
		if err != nil {
			errorResponse(r.Context(), w, &model.ValidationError{Message: "invalid request body"})
			return
		}
	}

	result, err := p.Call(r.Context(), raw)
	if err != nil {
		errorResponse(r.Context(), w, err)
		return
	}
	resultResponse(w, result)
}

// decodeInput decodes raw into target, rejecting unknown fields and
// reporting type mismatches as validation errors on the offending field.
// An empty input decodes as an empty object.
func decodeInput(raw []byte, target any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return inputError(err)
	}
	if dec.More() {
		return &model.ValidationError{Message: "unexpected data after input"}
	}
	return nil
}

func inputError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &model.ValidationError{
			Field:   typeErr.Field,
			Message: "must be " + describeType(typeErr.Type),
		}
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return &model.ValidationError{Message: fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset)}
	}
	return &model.ValidationError{Message: err.Error()}
}

func describeType(t reflect.Type) string {
	if t == nil {
		return "a valid value"
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "an integer"
	case reflect.String:
		return "a string"
	case reflect.Struct, reflect.Map:
		return "an object"
	default:
		return "a " + t.Kind().String()
	}
}
