package todo

import (
	"fmt"
	"strings"
	"time"
)

// ListChange is an upsert-shaped descriptor for a list. An empty ID asks the
// server to assign one; a populated ID that already exists is applied as an
// update, which keeps redelivery of the same change idempotent.
type ListChange struct {
	ID        string
	Name      string
	Color     string
	CreatedAt *time.Time
}

func (c ListChange) validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrNameRequired
	}
	if c.ID != "" {
		if _, err := NewEntityID(c.ID); err != nil {
			return err
		}
	}
	return nil
}

// TaskChange is an upsert-shaped descriptor for a task. ListID must resolve
// to a live list owned by the caller when the change creates a new row; on
// updates the stored parent is authoritative and ListID is never rewritten.
type TaskChange struct {
	ID          string
	ListID      string
	Title       string
	Description string
	Completed   bool
	Reminder    *time.Time
	CreatedAt   *time.Time
}

func (c TaskChange) validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return ErrTitleRequired
	}
	if strings.TrimSpace(c.ListID) == "" {
		return ErrListRefRequired
	}
	if c.ID != "" {
		if _, err := NewEntityID(c.ID); err != nil {
			return err
		}
	}
	return nil
}

// ListUpdate describes a partial update from the CRUD surface. Nil fields
// are left unchanged.
type ListUpdate struct {
	Name  *string
	Color *string
}

// TaskUpdate describes a partial update from the CRUD surface. Nil fields
// are left unchanged.
type TaskUpdate struct {
	Title       *string
	Description *string
	Completed   *bool
	Reminder    *time.Time
}

// PushBatch carries one client's locally-known change set: upserts plus
// deletion descriptors. Deletions are bare ids and always soft-delete.
type PushBatch struct {
	Lists          []ListChange
	Tasks          []TaskChange
	DeletedListIDs []string
	DeletedTaskIDs []string
}

func (b PushBatch) validate() error {
	for i, change := range b.Lists {
		if err := change.validate(); err != nil {
			return fmt.Errorf("lists[%d]: %w", i, err)
		}
	}
	for i, change := range b.Tasks {
		if err := change.validate(); err != nil {
			return fmt.Errorf("tasks[%d]: %w", i, err)
		}
	}
	return nil
}

// PushResult reports the counts applied by one Push batch and the commit
// timestamp the client may adopt as its next watermark.
type PushResult struct {
	SyncedLists  int
	SyncedTasks  int
	DeletedLists int
	DeletedTasks int
	ServerTime   time.Time
}

// PullDelta is the incremental response to a Pull: rows changed after the
// watermark plus the ids of rows tombstoned after it. ServerTime is captured
// before the queries run so the client can replay it as the next watermark
// without skipping concurrent writes.
type PullDelta struct {
	Lists          []List
	Tasks          []Task
	DeletedListIDs []string
	DeletedTaskIDs []string
	ServerTime     time.Time
}

// Snapshot is a full live view of the caller's data with no tombstones,
// used for recovery and first-device bootstrap.
type Snapshot struct {
	Lists      []List
	Tasks      []Task
	ServerTime time.Time
}
