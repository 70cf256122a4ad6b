package todo

import (
	"context"
	"testing"
	"time"
)

func TestTaskUpsertKeepsStoredParent(t *testing.T) {
	service, db, clock := newTestService(t, nil)
	owner := mustOwnerID(t, "user-a")
	ctx := context.Background()

	if _, err := service.Push(ctx, owner, PushBatch{
		Lists: []ListChange{{ID: "list-1", Name: "Groceries"}},
		Tasks: []TaskChange{{ID: "task-1", ListID: "list-1", Title: "Milk"}},
	}); err != nil {
		t.Fatalf("seed push failed: %v", err)
	}

	// The client references a parent that does not exist; the change still
	// lands as an update and the stored parent stays authoritative.
	clock.Advance(time.Minute)
	if _, err := service.Push(ctx, owner, PushBatch{
		Tasks: []TaskChange{{ID: "task-1", ListID: "list-ghost", Title: "Oat milk"}},
	}); err != nil {
		t.Fatalf("update push failed: %v", err)
	}

	var stored Task
	if err := db.First(&stored, "id = ?", "task-1").Error; err != nil {
		t.Fatalf("missing task row: %v", err)
	}
	if stored.ListID != "list-1" {
		t.Fatalf("expected parent unchanged, got %q", stored.ListID)
	}
	if stored.Title != "Oat milk" {
		t.Fatalf("expected title updated, got %q", stored.Title)
	}
}

func TestTaskUpsertRevivesTombstonedTask(t *testing.T) {
	service, db, clock := newTestService(t, nil)
	owner := mustOwnerID(t, "user-a")
	ctx := context.Background()

	if _, err := service.Push(ctx, owner, PushBatch{
		Lists: []ListChange{{ID: "list-1", Name: "Groceries"}},
		Tasks: []TaskChange{{ID: "task-1", ListID: "list-1", Title: "Milk"}},
	}); err != nil {
		t.Fatalf("seed push failed: %v", err)
	}

	clock.Advance(time.Minute)
	if _, err := service.Push(ctx, owner, PushBatch{DeletedTaskIDs: []string{"task-1"}}); err != nil {
		t.Fatalf("delete push failed: %v", err)
	}

	clock.Advance(time.Minute)
	if _, err := service.Push(ctx, owner, PushBatch{
		Tasks: []TaskChange{{ID: "task-1", ListID: "list-1", Title: "Milk again"}},
	}); err != nil {
		t.Fatalf("revival push failed: %v", err)
	}

	var stored Task
	if err := db.First(&stored, "id = ?", "task-1").Error; err != nil {
		t.Fatalf("missing task row: %v", err)
	}
	if stored.DeletedAt != nil {
		t.Fatal("expected tombstone cleared after upsert")
	}
	if stored.Title != "Milk again" {
		t.Fatalf("unexpected title %q", stored.Title)
	}
}

func TestTaskDeleteReplayPreservesTombstoneTime(t *testing.T) {
	service, db, clock := newTestService(t, nil)
	owner := mustOwnerID(t, "user-a")
	ctx := context.Background()

	if _, err := service.Push(ctx, owner, PushBatch{
		Lists: []ListChange{{ID: "list-1", Name: "Groceries"}},
		Tasks: []TaskChange{{ID: "task-1", ListID: "list-1", Title: "Milk"}},
	}); err != nil {
		t.Fatalf("seed push failed: %v", err)
	}

	clock.Advance(time.Minute)
	firstDelete := clock.Now()
	if _, err := service.Push(ctx, owner, PushBatch{DeletedTaskIDs: []string{"task-1"}}); err != nil {
		t.Fatalf("first delete failed: %v", err)
	}

	clock.Advance(time.Hour)
	if _, err := service.Push(ctx, owner, PushBatch{DeletedTaskIDs: []string{"task-1"}}); err != nil {
		t.Fatalf("replayed delete failed: %v", err)
	}

	var stored Task
	if err := db.First(&stored, "id = ?", "task-1").Error; err != nil {
		t.Fatalf("missing task row: %v", err)
	}
	if stored.DeletedAt == nil || !stored.DeletedAt.Equal(firstDelete) {
		t.Fatalf("expected tombstone timestamp %v preserved, got %v", firstDelete, stored.DeletedAt)
	}
}

func TestClientSuppliedCreatedAtIsKept(t *testing.T) {
	service, db, clock := newTestService(t, nil)
	owner := mustOwnerID(t, "user-a")

	offlineCreation := clock.Now().Add(-48 * time.Hour)
	if _, err := service.Push(context.Background(), owner, PushBatch{
		Lists: []ListChange{{ID: "list-1", Name: "Groceries", CreatedAt: &offlineCreation}},
	}); err != nil {
		t.Fatalf("push failed: %v", err)
	}

	var stored List
	if err := db.First(&stored, "id = ?", "list-1").Error; err != nil {
		t.Fatalf("missing list row: %v", err)
	}
	if !stored.CreatedAt.Equal(offlineCreation) {
		t.Fatalf("expected offline creation time kept, got %v", stored.CreatedAt)
	}
	if !stored.UpdatedAt.Equal(clock.Now()) {
		t.Fatalf("expected updated_at stamped with server time, got %v", stored.UpdatedAt)
	}
}
