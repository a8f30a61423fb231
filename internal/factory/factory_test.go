package factory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/plantkeeper/internal/config"
)

func TestNewRepository_SQLiteCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "plants.db")

	repo, err := NewRepository(context.Background(), &config.Config{DBDriver: config.DriverSQLite, DBPath: path})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	assert.NoError(t, repo.Ping(context.Background()))
	assert.FileExists(t, path)
}

func TestNewRepository_UnknownDriver(t *testing.T) {
	_, err := NewRepository(context.Background(), &config.Config{DBDriver: "mongo"})
	assert.Error(t, err)
}
