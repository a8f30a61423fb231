package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sakif/plantkeeper/internal/dbx"
	"github.com/sakif/plantkeeper/internal/model"
	"github.com/sakif/plantkeeper/internal/repository"
)

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
		marks := make([]string, len(model.FieldSpecs))
		var sets []string
		for i, spec := range model.FieldSpecs {
			marks[i] = "$" + strconv.Itoa(i+1)
			if spec.Name != "id" {
				sets = append(sets, spec.Name+" = EXCLUDED."+spec.Name)
			}
		}
		return "INSERT INTO plants (" + columnList + ") VALUES (" + strings.Join(marks, ", ") + ")" +
			" ON CONFLICT (id) DO UPDATE SET " + strings.Join(sets, ", ") +
			" RETURNING " + columnList
	}()
)

func (db *DB) Upsert(ctx context.Context, p *model.Plant) (*model.Plant, error) {
	args := make([]any, 0, len(model.FieldSpecs))
	for _, f := range p.Fields() {
		v, err := encode(f)
		if err != nil {
			return nil, fmt.Errorf("postgres: upserting plant %d: %w", p.ID, err)
		}
		args = append(args, v)
	}

	var stored *model.Plant
	err := dbx.WithTx(ctx, db.conn, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		stored, err = newScanner().scan(tx.QueryRowContext(ctx, upsertSQL, args...))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: upserting plant %d: %w", p.ID, err)
	}
	return stored, nil
}

func (db *DB) GetByID(ctx context.Context, id int64) (*model.Plant, error) {
	p, err := getByID(ctx, db.conn, id, false)
	if err != nil {
		return nil, fmt.Errorf("postgres: getting plant %d: %w", id, err)
	}
	return p, nil
}

func getByID(ctx context.Context, q dbx.DBTX, id int64, lock bool) (*model.Plant, error) {
	query := selectSQL + " WHERE id = $1"
	if lock {
		query += " FOR UPDATE"
	}
	p, err := newScanner().scan(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (db *DB) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult, error) {
	conn, err := db.conn.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: acquiring connection: %w", err)
	}
	defer conn.Close()

	total, err := count(ctx, conn)
	if err != nil {
		return nil, err
	}

	where, args, err := whereClause(opts)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing plants: %w", err)
	}
	n := len(args)
	query := selectSQL + where + " ORDER BY id LIMIT $" + strconv.Itoa(n+1) + " OFFSET $" + strconv.Itoa(n+2)
	args = append(args, opts.Limit, opts.Offset)

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing plants: %w", err)
	}
	defer rows.Close()

	plants := []model.Plant{}
	for rows.Next() {
		p, err := newScanner().scan(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scanning plant row: %w", err)
		}
		plants = append(plants, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating plant rows: %w", err)
	}
	return &repository.ListResult{Plants: plants, Total: total}, nil
}

// whereClause: column names only from model.FilterColumn, values always bound.
func whereClause(opts repository.ListOptions) (string, []any, error) {
	var (
		conds []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if opts.Search != "" {
		conds = append(conds, `common_name ILIKE `+next("%"+dbx.EscapeLike(opts.Search)+"%")+` ESCAPE '\'`)
	}
	for _, f := range opts.Filters {
		if !f.Column.Valid() {
			return "", nil, fmt.Errorf("invalid filter column %q", f.Column)
		}
		conds = append(conds, string(f.Column)+" = "+next(f.Value))
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
		return 0, fmt.Errorf("postgres: counting plants: %w", err)
	}
	return n, nil
}

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
			return nil, fmt.Errorf("postgres: updating plant %d: %w", id, err)
		}
		args = append(args, v)
		sets = append(sets, name+" = $"+strconv.Itoa(len(args)))
	}
	args = append(args, id)
	query := "UPDATE plants SET " + strings.Join(sets, ", ") +
		" WHERE id = $" + strconv.Itoa(len(args)) + " RETURNING " + columnList

	var updated *model.Plant
	err := dbx.WithTx(ctx, db.conn, nil, func(ctx context.Context, tx dbx.DBTX) error {
		current, err := getByID(ctx, tx, id, true)
		if err != nil || current == nil {
			return err
		}
		if len(sets) == 0 {
			updated = current
			return nil
		}
		updated, err = newScanner().scan(tx.QueryRowContext(ctx, query, args...))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: updating plant %d: %w", id, err)
	}
	return updated, nil
}

func (db *DB) Delete(ctx context.Context, id int64) (*model.Plant, error) {
	var deleted *model.Plant
	err := dbx.WithTx(ctx, db.conn, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		deleted, err = newScanner().scan(tx.QueryRowContext(ctx,
			"DELETE FROM plants WHERE id = $1 RETURNING "+columnList, id))
		if errors.Is(err, sql.ErrNoRows) {
			deleted = nil
			return nil
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: deleting plant %d: %w", id, err)
	}
	return deleted, nil
}
