package repo

import (
	"context"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hajeen-app/go-care-backend/internal/domain"
)

// ---------- test helpers ----------

// newTestDB opens a fresh in-memory SQLite database with the full schema.
// cache=shared with a unique name keeps it alive across pooled connections
// but isolated between tests. A single connection serializes writers.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// newGuardian creates a user + guardian pair and returns the guardian.
func newGuardian(t *testing.T, db *gorm.DB) *domain.Guardian {
	t.Helper()
	ctx := context.Background()
	phone := "+9665" + uuid.NewString()[:8]
	u, err := CreateUser(ctx, db, phone, domain.RoleGuardian)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	g, err := CreateGuardian(ctx, db, u.ID)
	if err != nil {
		t.Fatalf("create guardian: %v", err)
	}
	return g
}

// newDependent creates a dependent under the guardian.
func newDependent(t *testing.T, db *gorm.DB, guardianID, name string) *domain.Dependent {
	t.Helper()
	d, err := CreateDependent(context.Background(), db, guardianID, name, "other", "eye")
	if err != nil {
		t.Fatalf("create dependent: %v", err)
	}
	return d
}
