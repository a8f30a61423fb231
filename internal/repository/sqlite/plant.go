package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sakif/plantkeeper/internal/dbx"
	"github.com/sakif/plantkeeper/internal/model"
	"github.com/sakif/plantkeeper/internal/repository"
)

// Compile-time check that *DB satisfies the interface.
var _ repository.PlantRepository = (*DB)(nil)

var (
	columnList = func() string {
		names := make([]string, len(model.FieldSpecs))
		for i, spec := range model.FieldSpecs {
			names[i] = spec.Name
		}
		return strings.Join(names, ", ")
	}()

	selectSQL = "SELECT " + columnList + " FROM plants"

	upsertSQL = func() string {
		var sets []string
		for _, spec := range model.FieldSpecs {
			if spec.Name != "id" {
				sets = append(sets, spec.Name+" = excluded."+spec.Name)
			}
		}
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(model.FieldSpecs)), ", ")
		return "INSERT INTO plants (" + columnList + ") VALUES (" + marks + ")" +
			" ON CONFLICT(id) DO UPDATE SET " + strings.Join(sets, ", ")
	}()
)

// Upsert inserts the plant or replaces the existing row with the same id.
//
// Re-ingesting the same provider id is idempotent: the second call
// overwrites the first, it never fails on the primary key.
func (db *DB) Upsert(ctx context.Context, p *model.Plant) (*model.Plant, error) {
	args := make([]any, 0, len(model.FieldSpecs))
	for _, f := range p.Fields() {
		v, err := encode(f)
		if err != nil {
			return nil, fmt.Errorf("sqlite: upserting plant %d: %w", p.ID, err)
		}
		args = append(args, v)
	}

	var stored *model.Plant
	err := dbx.WithTx(ctx, db.conn, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, upsertSQL, args...); err != nil {
			return err
		}
		var err error
		stored, err = getByID(ctx, tx, p.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: upserting plant %d: %w", p.ID, err)
	}
	return stored, nil
}

// GetByID returns nil, nil when no row has the id.
func (db *DB) GetByID(ctx context.Context, id int64) (*model.Plant, error) {
	p, err := getByID(ctx, db.conn, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting plant %d: %w", id, err)
	}
	return p, nil
}

func getByID(ctx context.Context, q dbx.DBTX, id int64) (*model.Plant, error) {
	p, err := newScanner().scan(q.QueryRowContext(ctx, selectSQL+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// List returns one page of plants plus the unfiltered row count.
//
// Both queries run on one dedicated connection, released on every return path.
func (db *DB) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult, error) {
	conn, err := db.conn.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite: acquiring connection: %w", err)
	}
	defer conn.Close()

	total, err := count(ctx, conn)
	if err != nil {
		return nil, err
	}

	where, args, err := whereClause(opts)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing plants: %w", err)
	}
	query := selectSQL + where + " ORDER BY id LIMIT ? OFFSET ?"
	args = append(args, opts.Limit, opts.Offset)

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing plants: %w", err)
	}
	defer rows.Close()

	plants := []model.Plant{}
	for rows.Next() {
		p, err := newScanner().scan(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning plant row: %w", err)
		}
		plants = append(plants, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating plant rows: %w", err)
	}
	return &repository.ListResult{Plants: plants, Total: total}, nil
}

// whereClause builds the filter SQL. Column names come only from
// model.FilterColumn; every value is a bound parameter.
func whereClause(opts repository.ListOptions) (string, []any, error) {
	var (
		conds []string
		args  []any
	)
	if opts.Search != "" {
		conds = append(conds, `LOWER(common_name) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+dbx.EscapeLike(strings.ToLower(opts.Search))+"%")
	}
	for _, f := range opts.Filters {
		if !f.Column.Valid() {
			return "", nil, fmt.Errorf("invalid filter column %q", f.Column)
		}
		conds = append(conds, string(f.Column)+" = ?")
		if b, ok := f.Value.(bool); ok {
			if b {
				args = append(args, 1)
			} else {
				args = append(args, 0)
			}
			continue
		}
		args = append(args, f.Value)
	}
	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func (db *DB) Count(ctx context.Context) (int, error) {
	return count(ctx, db.conn)
}

func count(ctx context.Context, q dbx.DBTX) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM plants").Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting plants: %w", err)
	}
	return n, nil
}

// Update writes the named fields of p to row id inside one transaction.
// It returns nil, nil if the row does not exist.
func (db *DB) Update(ctx context.Context, id int64, p *model.Plant, fields []string) (*model.Plant, error) {
	fields = repository.UpdatableFields(fields)

	var (
		sets []string
		args []any
	)
	for _, name := range fields {
		f, _ := p.Field(name)
		v, err := encode(f)
		if err != nil {
			return nil, fmt.Errorf("sqlite: updating plant %d: %w", id, err)
		}
		sets = append(sets, name+" = ?")
		args = append(args, v)
	}
	args = append(args, id)

	var updated *model.Plant
	err := dbx.WithTx(ctx, db.conn, nil, func(ctx context.Context, tx dbx.DBTX) error {
		current, err := getByID(ctx, tx, id)
		if err != nil || current == nil {
			return err
		}
		if len(sets) == 0 {
			updated = current
			return nil
		}
		query := "UPDATE plants SET " + strings.Join(sets, ", ") + " WHERE id = ?"
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
		updated, err = getByID(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating plant %d: %w", id, err)
	}
	return updated, nil
}

// Delete removes row id and returns its prior state, or nil, nil if absent.
func (db *DB) Delete(ctx context.Context, id int64) (*model.Plant, error) {
	var deleted *model.Plant
	err := dbx.WithTx(ctx, db.conn, nil, func(ctx context.Context, tx dbx.DBTX) error {
		current, err := getByID(ctx, tx, id)
		if err != nil || current == nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM plants WHERE id = ?", id); err != nil {
			return err
		}
		deleted = current
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: deleting plant %d: %w", id, err)
	}
	return deleted, nil
}
