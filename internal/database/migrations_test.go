package database

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/tasklet-labs/tasklet/backend/internal/todo"
	"gorm.io/gorm"
)

func newMigrationTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:tasklet_migrations_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&todo.List{}, &todo.Task{}, &todo.SyncLog{}, &migrationRecord{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func TestApplyMigrationsBackfillsEmptyListColors(t *testing.T) {
	db := newMigrationTestDB(t)

	now := time.Unix(1700000000, 0).UTC()
	seed := todo.List{
		ID:        "list-legacy",
		OwnerID:   "user-1",
		Name:      "Inbox",
		Color:     "",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Create(&seed).Error; err != nil {
		t.Fatalf("failed to seed list: %v", err)
	}

	if err := applyMigrations(db, nil); err != nil {
		t.Fatalf("unexpected migration error: %v", err)
	}

	var stored todo.List
	if err := db.Where("id = ?", "list-legacy").Take(&stored).Error; err != nil {
		t.Fatalf("failed to load list: %v", err)
	}
	if stored.Color != todo.DefaultListColor {
		t.Fatalf("expected backfilled color %s, got %q", todo.DefaultListColor, stored.Color)
	}
	if !stored.UpdatedAt.Equal(now) {
		t.Fatalf("backfill must not bump updated_at, got %v", stored.UpdatedAt)
	}
}

func TestApplyMigrationsRecordsEachMigrationOnce(t *testing.T) {
	db := newMigrationTestDB(t)

	if err := applyMigrations(db, nil); err != nil {
		t.Fatalf("unexpected migration error: %v", err)
	}
	if err := applyMigrations(db, nil); err != nil {
		t.Fatalf("unexpected error on second run: %v", err)
	}

	var count int64
	if err := db.Model(&migrationRecord{}).Where("name = ?", migrationBackfillListColors).Count(&count).Error; err != nil {
		t.Fatalf("failed to count records: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one migration record, got %d", count)
	}
}
