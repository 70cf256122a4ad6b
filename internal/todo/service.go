package todo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

// ServiceError wraps a failure with a stable operation.reason code.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew = "todo.service.new"
	opPush       = "todo.push"
	opPull       = "todo.pull"
	opFullSync   = "todo.full_sync"
	opCompact    = "todo.compact_tombstones"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// ServiceConfig describes the dependencies of the sync service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// IDProvider issues stable identifiers for server-assigned entities.
type IDProvider interface {
	NewID() (string, error)
}

// Service reconciles client change sets against the store and computes the
// deltas callers still need. Every operation takes the owning identity as an
// explicit parameter; there is no ambient session state.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService validates the configuration and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// Push applies one client batch atomically: deletes before upserts, lists
// before tasks in both phases. Any failure rolls the whole batch back and
// nothing is counted. The returned ServerTime is the commit timestamp
// stamped on every row the batch touched.
func (s *Service) Push(ctx context.Context, owner OwnerID, batch PushBatch) (PushResult, error) {
	if err := batch.validate(); err != nil {
		return PushResult{}, newServiceError(opPush, "invalid_batch", err)
	}

	now := s.clock().UTC()
	audits := make([]SyncLog, 0, len(batch.Lists)+len(batch.Tasks)+len(batch.DeletedListIDs)+len(batch.DeletedTaskIDs))
	result := PushResult{ServerTime: now}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range batch.DeletedListIDs {
			if err := s.applyListDelete(tx, owner, id, now); err != nil {
				s.logError(opPush, "list_delete_failed", err,
					zap.String("user_id", owner.String()), zap.String("list_id", id))
				return newServiceError(opPush, "list_delete_failed", err)
			}
			audits = append(audits, SyncLog{OwnerID: owner.String(), EntityType: EntityTypeList, EntityID: id, Action: AuditActionDelete, CreatedAt: now})
			result.DeletedLists++
		}
		for _, id := range batch.DeletedTaskIDs {
			if err := s.applyTaskDelete(tx, owner, id, now); err != nil {
				s.logError(opPush, "task_delete_failed", err,
					zap.String("user_id", owner.String()), zap.String("task_id", id))
				return newServiceError(opPush, "task_delete_failed", err)
			}
			audits = append(audits, SyncLog{OwnerID: owner.String(), EntityType: EntityTypeTask, EntityID: id, Action: AuditActionDelete, CreatedAt: now})
			result.DeletedTasks++
		}
		for _, change := range batch.Lists {
			id, err := s.applyListUpsert(tx, owner, change, now)
			if err != nil {
				s.logError(opPush, "list_upsert_failed", err,
					zap.String("user_id", owner.String()), zap.String("list_id", change.ID))
				return newServiceError(opPush, "list_upsert_failed", err)
			}
			audits = append(audits, SyncLog{OwnerID: owner.String(), EntityType: EntityTypeList, EntityID: id, Action: AuditActionUpsert, CreatedAt: now})
			result.SyncedLists++
		}
		for _, change := range batch.Tasks {
			id, err := s.applyTaskUpsert(tx, owner, change, now)
			if err != nil {
				s.logError(opPush, "task_upsert_failed", err,
					zap.String("user_id", owner.String()), zap.String("task_id", change.ID))
				return newServiceError(opPush, "task_upsert_failed", err)
			}
			audits = append(audits, SyncLog{OwnerID: owner.String(), EntityType: EntityTypeTask, EntityID: id, Action: AuditActionUpsert, CreatedAt: now})
			result.SyncedTasks++
		}
		return nil
	})
	if txErr != nil {
		return PushResult{}, txErr
	}

	s.recordAudit(ctx, audits)
	return result, nil
}

// Pull computes the delta the caller still needs. With no watermark it
// returns the entire live snapshot and empty deletion lists. With a
// watermark it returns rows updated strictly after it and ids tombstoned
// strictly after it; the strict comparison prevents re-delivering rows whose
// timestamp equals a previously issued watermark.
func (s *Service) Pull(ctx context.Context, owner OwnerID, since *time.Time) (PullDelta, error) {
	serverTime := s.clock().UTC()
	delta := PullDelta{
		Lists:          []List{},
		Tasks:          []Task{},
		DeletedListIDs: []string{},
		DeletedTaskIDs: []string{},
		ServerTime:     serverTime,
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		liveLists := tx.Where("user_id = ? AND deleted_at IS NULL", owner.String())
		liveTasks := tx.Model(&Task{}).Select("tasks.*").
			Joins("JOIN todo_lists ON todo_lists.id = tasks.list_id").
			Where("todo_lists.user_id = ? AND tasks.deleted_at IS NULL AND todo_lists.deleted_at IS NULL", owner.String())

		if since != nil {
			watermark := since.UTC()
			if err := liveLists.Where("updated_at > ?", watermark).Find(&delta.Lists).Error; err != nil {
				return newServiceError(opPull, "list_query_failed", err)
			}
			if err := liveTasks.Where("tasks.updated_at > ?", watermark).Find(&delta.Tasks).Error; err != nil {
				return newServiceError(opPull, "task_query_failed", err)
			}
			if err := tx.Model(&List{}).
				Where("user_id = ? AND deleted_at IS NOT NULL AND deleted_at > ?", owner.String(), watermark).
				Pluck("id", &delta.DeletedListIDs).Error; err != nil {
				return newServiceError(opPull, "deleted_list_query_failed", err)
			}
			if err := tx.Model(&Task{}).
				Joins("JOIN todo_lists ON todo_lists.id = tasks.list_id").
				Where("todo_lists.user_id = ? AND tasks.deleted_at IS NOT NULL AND tasks.deleted_at > ?", owner.String(), watermark).
				Pluck("tasks.id", &delta.DeletedTaskIDs).Error; err != nil {
				return newServiceError(opPull, "deleted_task_query_failed", err)
			}
			return nil
		}

		if err := liveLists.Find(&delta.Lists).Error; err != nil {
			return newServiceError(opPull, "list_query_failed", err)
		}
		if err := liveTasks.Find(&delta.Tasks).Error; err != nil {
			return newServiceError(opPull, "task_query_failed", err)
		}
		return nil
	})
	if txErr != nil {
		s.logError(opPull, "query_failed", txErr, zap.String("user_id", owner.String()))
		return PullDelta{}, txErr
	}

	return delta, nil
}

// FullSync returns a read-only live snapshot for recovery and reset flows.
// A fresh baseline has nothing to subtract, so no deletion lists are
// returned.
func (s *Service) FullSync(ctx context.Context, owner OwnerID) (Snapshot, error) {
	serverTime := s.clock().UTC()
	snapshot := Snapshot{Lists: []List{}, Tasks: []Task{}, ServerTime: serverTime}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND deleted_at IS NULL", owner.String()).
			Order("created_at DESC").
			Find(&snapshot.Lists).Error; err != nil {
			return newServiceError(opFullSync, "list_query_failed", err)
		}
		if err := tx.Model(&Task{}).Select("tasks.*").
			Joins("JOIN todo_lists ON todo_lists.id = tasks.list_id").
			Where("todo_lists.user_id = ? AND tasks.deleted_at IS NULL AND todo_lists.deleted_at IS NULL", owner.String()).
			Order("tasks.completed ASC, tasks.created_at DESC").
			Find(&snapshot.Tasks).Error; err != nil {
			return newServiceError(opFullSync, "task_query_failed", err)
		}
		return nil
	})
	if txErr != nil {
		s.logError(opFullSync, "query_failed", txErr, zap.String("user_id", owner.String()))
		return Snapshot{}, txErr
	}

	return snapshot, nil
}

// CompactTombstones physically removes tombstones older than the retention
// window. Clients whose watermark predates the window must FullSync.
func (s *Service) CompactTombstones(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	cutoff := s.clock().UTC().Add(-retention)

	var purged int64
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tasks := tx.Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).Delete(&Task{})
		if tasks.Error != nil {
			return newServiceError(opCompact, "task_purge_failed", tasks.Error)
		}
		lists := tx.Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).Delete(&List{})
		if lists.Error != nil {
			return newServiceError(opCompact, "list_purge_failed", lists.Error)
		}
		purged = tasks.RowsAffected + lists.RowsAffected
		return nil
	})
	if txErr != nil {
		s.logError(opCompact, "purge_failed", txErr)
		return 0, txErr
	}

	if purged > 0 {
		s.logger.Info("tombstones compacted",
			zap.Int64("rows", purged),
			zap.Time("cutoff", cutoff))
	}
	return purged, nil
}

// recordAudit appends sync_log entries after the parent transaction has
// committed. Failures are logged and swallowed: the audit trail is
// best-effort and must never fail the operation it describes.
func (s *Service) recordAudit(ctx context.Context, entries []SyncLog) {
	if len(entries) == 0 {
		return
	}
	if err := s.db.WithContext(ctx).Create(&entries).Error; err != nil {
		s.logger.Warn("audit trail write failed", zap.Error(err), zap.Int("entries", len(entries)))
	}
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("todo service error", attrs...)
}
