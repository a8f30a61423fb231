package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

// ErrToxicityType is returned when a toxicity value is neither a boolean nor an integer.
var ErrToxicityType = errors.New("must be a boolean or an integer")

type toxicityKind uint8

const (
	toxicityUnset toxicityKind = iota
	toxicityBool
	toxicityInt
)

// Toxicity is a poisonous_to_* flag. The provider sends either a boolean or
// an integer (0/1) for it, and the value is kept in whichever form it arrived.
// The zero value is unset and encodes as null.
type Toxicity struct {
	kind toxicityKind
	b    bool
	i    int64
}

// ToxicityBool returns a boolean toxicity value.
func ToxicityBool(v bool) Toxicity { return Toxicity{kind: toxicityBool, b: v} }

// ToxicityInt returns an integer toxicity value.
func ToxicityInt(v int64) Toxicity { return Toxicity{kind: toxicityInt, i: v} }

// IsSet reports whether the value is non-null.
func (t Toxicity) IsSet() bool { return t.kind != toxicityUnset }

// Bool returns the boolean form and whether the value was stored as one.
func (t Toxicity) Bool() (bool, bool) { return t.b, t.kind == toxicityBool }

// Int returns the integer form and whether the value was stored as one.
func (t Toxicity) Int() (int64, bool) { return t.i, t.kind == toxicityInt }

// Value returns the value as a plain Go value: nil, bool or int64.
func (t Toxicity) Value() any {
	switch t.kind {
	case toxicityBool:
		return t.b
	case toxicityInt:
		return t.i
	default:
		return nil
	}
}

func (t Toxicity) String() string {
	switch t.kind {
	case toxicityBool:
		return strconv.FormatBool(t.b)
	case toxicityInt:
		return strconv.FormatInt(t.i, 10)
	default:
		return "null"
	}
}

// MarshalJSON implements json.Marshaler.
func (t Toxicity) MarshalJSON() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Toxicity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "null":
		*t = Toxicity{}
		return nil
	case "true":
		*t = ToxicityBool(true)
		return nil
	case "false":
		*t = ToxicityBool(false)
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return ErrToxicityType
	}
	*t = ToxicityInt(n)
	return nil
}

// ParseToxicity converts a decoded JSON value into a Toxicity.
// Accepts nil, bool, json.Number, integral float64, int and int64.
func ParseToxicity(v any) (Toxicity, error) {
	switch x := v.(type) {
	case nil:
		return Toxicity{}, nil
	case bool:
		return ToxicityBool(x), nil
	case int:
		return ToxicityInt(int64(x)), nil
	case int64:
		return ToxicityInt(x), nil
	case float64:
		if x != float64(int64(x)) {
			return Toxicity{}, ErrToxicityType
		}
		return ToxicityInt(int64(x)), nil
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return Toxicity{}, ErrToxicityType
		}
		return ToxicityInt(n), nil
	default:
		return Toxicity{}, ErrToxicityType
	}
}
