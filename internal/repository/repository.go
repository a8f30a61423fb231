// Package repository declares the storage contract for plant records.
package repository

import (
	"context"

	"github.com/sakif/plantkeeper/internal/model"
)

type ListOptions struct {
	Limit   int
	Offset  int
	Search  string         // case-insensitive substring of common_name; empty matches all
	Filters []model.Filter // equality predicates, ANDed
}

type ListResult struct {
	Plants []model.Plant
	// Total is the number of rows in the store, ignoring Search and Filters.
	Total int
}

// PlantRepository persists plant records.
//
// Absence is not an error: GetByID, Update and Delete return nil, nil when
// no row has the id. Every mutation is atomic.
type PlantRepository interface {
	// Upsert inserts p or, if its id exists, replaces every column. Returns the stored row.
	Upsert(ctx context.Context, p *model.Plant) (*model.Plant, error)
	GetByID(ctx context.Context, id int64) (*model.Plant, error)
	List(ctx context.Context, opts ListOptions) (*ListResult, error)
	// Update writes only the named fields of p to row id and returns the row
	// after the change. The id field is never rewritten.
	Update(ctx context.Context, id int64, p *model.Plant, fields []string) (*model.Plant, error)
	// Delete removes row id and returns it as it was before removal.
	Delete(ctx context.Context, id int64) (*model.Plant, error)
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

// UpdatableFields returns the known, non-id names in fields, in schema order.
func UpdatableFields(fields []string) []string {
	want := make(map[string]bool, len(fields))
	for _, f := range fields {
		want[f] = true
	}
	out := make([]string, 0, len(fields))
	for _, spec := range model.FieldSpecs {
		if spec.Name != "id" && want[spec.Name] {
			out = append(out, spec.Name)
		}
	}
	return out
}
