// Package dbtest opens throwaway in-memory SQLite stores for tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/sahilchouksey/pyq-archive/database"
	"github.com/sahilchouksey/pyq-archive/model"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm/logger"
)

// New returns a migrated store that is closed when the test ends.
func New(t *testing.T) *database.GORMStore {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	store, err := database.Open(sqlite.Open(dsn), logger.Default.LogMode(logger.Silent))
	require.NoError(t, err, "Failed to open sqlite store")

	sqlDB, err := store.DB().DB()
	require.NoError(t, err)
	// a single connection keeps the shared in-memory database alive and serialises writes
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, store.Init(), "Failed to migrate schema")

	t.Cleanup(func() {
		require.NoError(t, store.Close(), "Failed to close database")
	})
	return store
}

// Fixture is a minimal university -> department -> course chain
type Fixture struct {
	University model.University
	Department model.Department
	Course     model.Course
}

// Seed inserts a KUET / CSE / CSE135 chain with fixed IDs.
func Seed(t *testing.T, store database.Storage) Fixture {
	t.Helper()
	db := store.DB()

	f := Fixture{
		University: model.University{ID: "U1", Name: "Khulna University of Engineering & Technology", Slug: "kuet"},
		Department: model.Department{ID: "D1", Name: "Computer Science & Engineering", Slug: "cse", UniversityID: "U1"},
		Course:     model.Course{ID: "C1", Code: "CSE135", Name: "Data Structures", Slug: "cse135", DepartmentID: "D1"},
	}
	require.NoError(t, db.Create(&f.University).Error)
	require.NoError(t, db.Create(&f.Department).Error)
	require.NoError(t, db.Create(&f.Course).Error)
	return f
}
