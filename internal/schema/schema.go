// Package schema turns loosely typed plant JSON into model.Plant.
//
// Provider payloads drift and client payloads are untrusted, so every value is
// type-checked against model.FieldSpecs. Keys the schema does not declare are
// dropped without error.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/sakif/plantkeeper/internal/apperror"
	"github.com/sakif/plantkeeper/internal/model"
)

// Mode selects how absent fields are treated.
type Mode int

const (
	// Strict requires every field marked Required in model.FieldSpecs.
	Strict Mode = iota
	// Partial checks only the fields that were supplied.
	Partial
)

func (m Mode) String() string {
	if m == Partial {
		return "partial"
	}
	return "strict"
}

// Messages mirror the wording clients of the previous API already parse.
const (
	msgRequired = "Missing data for required field."
	msgNull     = "Field may not be null."
	msgInt      = "Not a valid integer."
	msgPositive = "Must be a positive integer."
	msgString   = "Not a valid string."
	msgBlank    = "Must not be blank."
	msgList     = "Not a valid list."
	msgMapping  = "Not a valid mapping type."
	msgBool     = "Not a valid boolean."
	msgToxic    = "Must be a boolean or an integer."
	msgImages   = "Must be a string or a list."
)

// Result is a validated plant plus the names of the known fields that were
// present in the input, in schema order.
type Result struct {
	Plant  model.Plant
	Fields []string
}

// Has reports whether name was supplied.
func (r *Result) Has(name string) bool {
	for _, f := range r.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// Decode reads a single JSON object. Numbers are kept as json.Number so that
// integer fields can be checked without float rounding.
func Decode(r io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperror.BadRequest("request body is required")
		}
		return nil, apperror.BadRequest("invalid JSON body")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, apperror.BadRequest("request body must be a JSON object")
	}
	return obj, nil
}

// DecodeBytes is Decode for an in-memory payload.
func DecodeBytes(data []byte) (map[string]any, error) {
	return Decode(bytes.NewReader(data))
}

// Validate checks raw against the plant schema and builds the record.
// All field problems are collected before returning; the error is an
// *apperror.AppError wrapping apperror.ErrValidation with one entry per field.
func Validate(raw map[string]any, mode Mode) (*Result, error) {
	res := &Result{}
	problems := make(map[string]string)

	for _, f := range res.Plant.Fields() {
		name := f.Spec.Name
		v, present := raw[name]
		if !present {
			if mode == Strict && f.Spec.Required {
				problems[name] = msgRequired
			}
			continue
		}
		res.Fields = append(res.Fields, name)

		if v == nil {
			if f.Spec.Required {
				problems[name] = msgNull
			}
			continue
		}
		if msg := assign(f, v); msg != "" {
			problems[name] = msg
		}
	}

	if len(problems) > 0 {
		return nil, apperror.Invalid(problems)
	}
	return res, nil
}

// assign stores v into the field and returns a message on type mismatch.
func assign(f model.Field, v any) string {
	switch f.Spec.Kind {
	case model.KindInt:
		n, ok := asInt64(v)
		if !ok {
			return msgInt
		}
		if n <= 0 {
			return msgPositive
		}
		*(f.Ptr.(*int64)) = n

	case model.KindString:
		s, ok := v.(string)
		if !ok {
			return msgString
		}
		if f.Spec.Required {
			if strings.TrimSpace(s) == "" {
				return msgBlank
			}
			*(f.Ptr.(*string)) = s
			return ""
		}
		*(f.Ptr.(**string)) = &s

	case model.KindStringList:
		list, msg := asStringList(v)
		if msg != "" {
			return msg
		}
		*(f.Ptr.(*[]string)) = list

	case model.KindObject:
		m, ok := v.(map[string]any)
		if !ok {
			return msgMapping
		}
		*(f.Ptr.(*map[string]any)) = normalizeNumbers(m).(map[string]any)

	case model.KindBool:
		b, ok := v.(bool)
		if !ok {
			return msgBool
		}
		*(f.Ptr.(**bool)) = &b

	case model.KindToxicity:
		t, err := model.ParseToxicity(v)
		if err != nil {
			return msgToxic
		}
		*(f.Ptr.(*model.Toxicity)) = t

	case model.KindJSON:
		switch v.(type) {
		case string, []any:
		default:
			return msgImages
		}
		data, err := json.Marshal(v)
		if err != nil {
			return msgImages
		}
		*(f.Ptr.(*json.RawMessage)) = data

	default:
		return fmt.Sprintf("unsupported field kind %s", f.Spec.Kind)
	}
	return ""
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case float64:
		if n != math.Trunc(n) || n > math.MaxInt64 || n < math.MinInt64 {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

func asStringList(v any) ([]string, string) {
	switch list := v.(type) {
	case []string:
		return list, ""
	case []any:
		out := make([]string, 0, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Sprintf("Item %d: %s", i, msgString)
			}
			out = append(out, s)
		}
		return out, ""
	default:
		return nil, msgList
	}
}

// normalizeNumbers converts json.Number leaves into int64 or float64 so that
// nested objects compare and re-encode like values decoded without UseNumber.
func normalizeNumbers(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, item := range x {
			x[k] = normalizeNumbers(item)
		}
		return x
	case []any:
		for i, item := range x {
			x[i] = normalizeNumbers(item)
		}
		return x
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	default:
		return v
	}
}
