// Package testdb provides migrated throwaway databases for tests.
package testdb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tweetty/database"
)

// New returns a migrated sqlite database living in a temporary directory.
// The connection is closed when the test finishes.
func New(t *testing.T) *gorm.DB {
	t.Helper()

	db := database.NewDB(database.Config{
		Driver: database.DriverSQLite,
		Name:   filepath.Join(t.TempDir(), "tweetty.db"),
	})
	require.NoError(t, database.Open(db, true))
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, database.AutoMigrate(db))

	return db.Gorm
}
