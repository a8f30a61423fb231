package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/plantkeeper/internal/model"
	"github.com/sakif/plantkeeper/internal/repository"
	"github.com/sakif/plantkeeper/internal/repository/repotest"
)

// newTestDB opens a fresh in-memory database that lives only for the test.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLite_Compliance(t *testing.T) {
	repotest.Run(t, func(t *testing.T) repository.PlantRepository {
		return newTestDB(t)
	})
}

func TestNew_MigrationIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plants.db")

	db, err := New(path)
	require.NoError(t, err)
	_, err = db.Upsert(context.Background(), &model.Plant{ID: 1, CommonName: "Fern"})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = New(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	got, err := db.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Fern", got.CommonName)
}

func TestUpsert_FailedStatementLeavesNoRow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.conn.ExecContext(ctx, `CREATE TRIGGER reject_bad BEFORE INSERT ON plants
		WHEN NEW.common_name = 'bad' BEGIN SELECT RAISE(ABORT, 'rejected'); END`)
	require.NoError(t, err)

	_, err = db.Upsert(ctx, &model.Plant{ID: 1, CommonName: "bad"})
	require.Error(t, err)

	n, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWhereClause(t *testing.T) {
	where, args, err := whereClause(repository.ListOptions{
		Search:  "Rose_",
		Filters: []model.Filter{{Column: model.FilterThorny, Value: false}},
	})
	require.NoError(t, err)
	assert.Equal(t, ` WHERE LOWER(common_name) LIKE ? ESCAPE '\' AND thorny = ?`, where)
	assert.Equal(t, []any{`%rose\_%`, 0}, args)

	where, args, err = whereClause(repository.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, where)
	assert.Nil(t, args)
}

func TestCreateTableSQL(t *testing.T) {
	ddl := createTableSQL()
	assert.Contains(t, ddl, "id INTEGER PRIMARY KEY")
	assert.Contains(t, ddl, "common_name TEXT NOT NULL")
	assert.Contains(t, ddl, "indoor INTEGER")
	assert.Contains(t, ddl, "sunlight TEXT")
}

func TestDSN(t *testing.T) {
	assert.Equal(t, ":memory:", dsn(":memory:"))
	assert.Equal(t,
		"file:data/plants.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate",
		dsn("data/plants.db"))
	assert.Equal(t,
		"file:p.db?cache=shared&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate",
		dsn("file:p.db?cache=shared"))
}

// A file database is served by many pooled connections; overlapping writers
// must wait for each other instead of failing with SQLITE_BUSY.
func TestFileDB_ConcurrentWriters(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "plants.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()

	const writers = 40
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	record := func(err error) {
		if err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}
	}

	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// half the writers collide on id 1
			id := int64(1)
			if i%2 == 1 {
				id = int64(i + 1)
			}
			_, err := db.Upsert(ctx, &model.Plant{ID: id, CommonName: fmt.Sprintf("Plant %d", i)})
			record(err)
		}()
	}
	wg.Wait()
	require.Empty(t, errs)

	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cycle := fmt.Sprintf("cycle-%d", i)
			_, err := db.Update(ctx, 1, &model.Plant{Cycle: &cycle}, []string{"cycle"})
			record(err)
		}()
	}
	wg.Wait()
	require.Empty(t, errs)

	n, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1+writers/2, n)

	got, err := db.GetByID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got.Cycle)
}
