package server

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/tasklet-labs/tasklet/backend/internal/todo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubTokenValidator struct {
	subject     string
	validateErr error
}

func (s stubTokenValidator) ValidateToken(token string) (string, error) {
	if s.validateErr != nil {
		return "", s.validateErr
	}
	return s.subject, nil
}

type sequentialIDGenerator struct {
	prefix string
	next   int
}

func (g *sequentialIDGenerator) NewID() (string, error) {
	g.next++
	return fmt.Sprintf("%s-%d", g.prefix, g.next), nil
}

func newRouterTestService(t *testing.T) *todo.Service {
	t.Helper()

	dsn := fmt.Sprintf("file:tasklet_router_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&todo.List{}, &todo.Task{}, &todo.SyncLog{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	service, err := todo.NewService(todo.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: &sequentialIDGenerator{prefix: "generated"},
		Logger:     zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to construct todo service: %v", err)
	}
	return service
}

func newTestRouter(t *testing.T, subject string) http.Handler {
	t.Helper()

	handler, err := NewHTTPHandler(Dependencies{
		TokenValidator: stubTokenValidator{subject: subject},
		TodoService:    newRouterTestService(t),
		Logger:         zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to build router: %v", err)
	}
	return handler
}
