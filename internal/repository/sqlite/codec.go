package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sakif/plantkeeper/internal/model"
)

// encode converts one plant field into a bind value. Absent values become nil (NULL).
func encode(f model.Field) (any, error) {
	switch ptr := f.Ptr.(type) {
	case *int64:
		return *ptr, nil
	case *string:
		return *ptr, nil
	case **string:
		if *ptr == nil {
			return nil, nil
		}
		return **ptr, nil
	case **bool:
		if *ptr == nil {
			return nil, nil
		}
		if **ptr {
			return int64(1), nil
		}
		return int64(0), nil
	case *[]string:
		if *ptr == nil {
			return nil, nil
		}
		return marshalText(*ptr)
	case *map[string]any:
		if *ptr == nil {
			return nil, nil
		}
		return marshalText(*ptr)
	case *model.Toxicity:
		if !ptr.IsSet() {
			return nil, nil
		}
		return ptr.String(), nil
	case *json.RawMessage:
		if len(*ptr) == 0 {
			return nil, nil
		}
		return string(*ptr), nil
	default:
		return nil, fmt.Errorf("field %s: unsupported type %T", f.Spec.Name, f.Ptr)
	}
}

func marshalText(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// scanner collects scan destinations for one row and copies them into a Plant.
type scanner struct {
	plant *model.Plant
	dests []any
	apply []func() error
}

func newScanner() *scanner {
	s := &scanner{plant: &model.Plant{}}
	for _, f := range s.plant.Fields() {
		switch ptr := f.Ptr.(type) {
		case *int64, *string:
			s.dests = append(s.dests, ptr)

		case **string:
			var ns sql.NullString
			s.dests = append(s.dests, &ns)
			s.apply = append(s.apply, func() error {
				if ns.Valid {
					v := ns.String
					*ptr = &v
				}
				return nil
			})

		case **bool:
			var nb sql.NullBool
			s.dests = append(s.dests, &nb)
			s.apply = append(s.apply, func() error {
				if nb.Valid {
					v := nb.Bool
					*ptr = &v
				}
				return nil
			})

		default:
			// JSON text columns
			var ns sql.NullString
			name, target := f.Spec.Name, f.Ptr
			s.dests = append(s.dests, &ns)
			s.apply = append(s.apply, func() error {
				if !ns.Valid {
					return nil
				}
				if err := json.Unmarshal([]byte(ns.String), target); err != nil {
					return fmt.Errorf("decoding column %s: %w", name, err)
				}
				return nil
			})
		}
	}
	return s
}

func (s *scanner) scan(row interface{ Scan(...any) error }) (*model.Plant, error) {
	if err := row.Scan(s.dests...); err != nil {
		return nil, err
	}
	for _, fn := range s.apply {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return s.plant, nil
}
