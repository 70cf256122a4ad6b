package todo

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// EntityType distinguishes audit trail subjects.
type EntityType string

const (
	// EntityTypeList marks audit entries for todo lists.
	EntityTypeList EntityType = "list"
	// EntityTypeTask marks audit entries for tasks.
	EntityTypeTask EntityType = "task"
)

// AuditAction enumerates the recorded operations.
type AuditAction string

const (
	// AuditActionUpsert covers create-or-update writes.
	AuditActionUpsert AuditAction = "upsert"
	// AuditActionUpdate covers partial updates from the CRUD surface.
	AuditActionUpdate AuditAction = "update"
	// AuditActionDelete covers soft deletes.
	AuditActionDelete AuditAction = "delete"
)

const maxIdentifierLength = 190

// DefaultListColor is applied when a list change carries no color.
const DefaultListColor = "#3B82F6"

var (
	// ErrInvalidOwnerID indicates an empty or oversized owner identifier.
	ErrInvalidOwnerID = errors.New("todo: invalid owner id")
	// ErrInvalidEntityID indicates an empty or oversized entity identifier.
	ErrInvalidEntityID = errors.New("todo: invalid entity id")
	// ErrNameRequired indicates a list change without a name.
	ErrNameRequired = errors.New("todo: list name is required")
	// ErrTitleRequired indicates a task change without a title.
	ErrTitleRequired = errors.New("todo: task title is required")
	// ErrListRefRequired indicates a task change without a parent list id.
	ErrListRefRequired = errors.New("todo: task list id is required")
	// ErrNotFound indicates the referenced entity does not exist for the
	// caller. Rows owned by other users report the same error so that
	// existence is never disclosed across owners.
	ErrNotFound = errors.New("todo: entity not found")
)

// OwnerID represents a validated owning principal identifier.
type OwnerID string

// NewOwnerID validates raw input and returns an OwnerID.
func NewOwnerID(rawInput string) (OwnerID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidOwnerID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidOwnerID, maxIdentifierLength)
	}
	return OwnerID(trimmed), nil
}

// String returns the underlying string identifier.
func (id OwnerID) String() string {
	return string(id)
}

// EntityID represents a validated list or task identifier.
type EntityID string

// NewEntityID validates raw input and returns an EntityID.
func NewEntityID(rawInput string) (EntityID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidEntityID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidEntityID, maxIdentifierLength)
	}
	return EntityID(trimmed), nil
}

// String returns the underlying string identifier.
func (id EntityID) String() string {
	return string(id)
}

// List models a persisted todo list. A non-nil DeletedAt is a tombstone:
// the row and all of its tasks are excluded from every read path, but the
// row is retained so removal can be reported to other devices.
type List struct {
	ID        string     `gorm:"column:id;primaryKey;size:190;not null"`
	OwnerID   string     `gorm:"column:user_id;size:190;not null;index:idx_lists_owner_updated,priority:1"`
	Name      string     `gorm:"column:name;size:255;not null"`
	Color     string     `gorm:"column:color;size:32;not null"`
	CreatedAt time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt time.Time  `gorm:"column:updated_at;not null;index:idx_lists_owner_updated,priority:2"`
	DeletedAt *time.Time `gorm:"column:deleted_at;index"`
}

// TableName provides the explicit table binding for GORM.
func (List) TableName() string {
	return "todo_lists"
}

// Task models a persisted task. Ownership is transitive through the parent
// list; ListID is immutable after creation.
type Task struct {
	ID          string     `gorm:"column:id;primaryKey;size:190;not null"`
	ListID      string     `gorm:"column:list_id;size:190;not null;index:idx_tasks_list"`
	Title       string     `gorm:"column:title;size:255;not null"`
	Description string     `gorm:"column:description;type:text;not null"`
	Completed   bool       `gorm:"column:completed;not null;default:false"`
	Reminder    *time.Time `gorm:"column:reminder"`
	CreatedAt   time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;not null"`
	DeletedAt   *time.Time `gorm:"column:deleted_at;index"`
}

// TableName provides the explicit table binding for GORM.
func (Task) TableName() string {
	return "tasks"
}

// SyncLog captures an append-only audit trail of reconciler writes.
type SyncLog struct {
	ID         int64       `gorm:"column:id;primaryKey;autoIncrement"`
	OwnerID    string      `gorm:"column:user_id;size:190;not null;index:idx_sync_log_owner_time,priority:1"`
	EntityType EntityType  `gorm:"column:entity_type;size:32;not null"`
	EntityID   string      `gorm:"column:entity_id;size:190;not null"`
	Action     AuditAction `gorm:"column:action;size:32;not null"`
	CreatedAt  time.Time   `gorm:"column:created_at;not null;index:idx_sync_log_owner_time,priority:2"`
}

// TableName provides the explicit table binding for GORM.
func (SyncLog) TableName() string {
	return "sync_log"
}
