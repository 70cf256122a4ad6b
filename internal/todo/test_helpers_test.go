package todo

import (
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type staticIDGenerator struct {
	ids   []string
	index int
}

func (g *staticIDGenerator) NewID() (string, error) {
	if g.index >= len(g.ids) {
		return "", errors.New("exhausted ids")
	}
	id := g.ids[g.index]
	g.index++
	return id, nil
}

// testClock is a mutable clock so tests can place writes on either side of a
// watermark deterministically.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) Advance(d time.Duration) time.Time {
	c.now = c.now.Add(d)
	return c.now
}

func mustOwnerID(t *testing.T, value string) OwnerID {
	t.Helper()
	id, err := NewOwnerID(value)
	if err != nil {
		t.Fatalf("unexpected owner id error: %v", err)
	}
	return id
}

func mustEntityID(t *testing.T, value string) EntityID {
	t.Helper()
	id, err := NewEntityID(value)
	if err != nil {
		t.Fatalf("unexpected entity id error: %v", err)
	}
	return id
}

func newTestService(t *testing.T, ids []string) (*Service, *gorm.DB, *testClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:tasklet_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&List{}, &Task{}, &SyncLog{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	generator := &staticIDGenerator{ids: ids}
	clock := &testClock{now: time.Unix(1700000000, 0).UTC()}

	service, err := NewService(ServiceConfig{
		Database:   db,
		Clock:      clock.Now,
		IDProvider: generator,
	})
	if err != nil {
		t.Fatalf("failed to construct todo service: %v", err)
	}

	return service, db, clock
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var count int64
	if err := db.Model(model).Count(&count).Error; err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	return count
}
