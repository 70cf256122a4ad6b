package todo

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// The REST surface reuses the reconciler primitives: create is the same
// idempotent upsert the sync protocol applies, delete is the same soft
// delete. Only partial updates are specific to this file.

const (
	opListLists   = "todo.list_lists"
	opGetList     = "todo.get_list"
	opCreateList  = "todo.create_list"
	opUpdateList  = "todo.update_list"
	opDeleteList  = "todo.delete_list"
	opListTasks   = "todo.list_tasks"
	opTasksByList = "todo.tasks_by_list"
	opGetTask     = "todo.get_task"
	opCreateTask  = "todo.create_task"
	opUpdateTask  = "todo.update_task"
	opDeleteTask  = "todo.delete_task"
)

// ListLists returns the caller's live lists, newest first.
func (s *Service) ListLists(ctx context.Context, owner OwnerID) ([]List, error) {
	lists := []List{}
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND deleted_at IS NULL", owner.String()).
		Order("created_at DESC").
		Find(&lists).Error; err != nil {
		s.logError(opListLists, "query_failed", err, zap.String("user_id", owner.String()))
		return nil, newServiceError(opListLists, "query_failed", err)
	}
	return lists, nil
}

// GetList returns one live list owned by the caller.
func (s *Service) GetList(ctx context.Context, owner OwnerID, id EntityID) (List, error) {
	var list List
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND deleted_at IS NULL", id.String(), owner.String()).
		Take(&list).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return List{}, newServiceError(opGetList, "not_found", ErrNotFound)
	}
	if err != nil {
		s.logError(opGetList, "query_failed", err, zap.String("user_id", owner.String()))
		return List{}, newServiceError(opGetList, "query_failed", err)
	}
	return list, nil
}

// CreateList applies a single list upsert and returns the stored row.
func (s *Service) CreateList(ctx context.Context, owner OwnerID, change ListChange) (List, error) {
	if err := change.validate(); err != nil {
		return List{}, newServiceError(opCreateList, "invalid_change", err)
	}

	now := s.clock().UTC()
	var stored List
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := s.applyListUpsert(tx, owner, change, now)
		if err != nil {
			return newServiceError(opCreateList, "upsert_failed", err)
		}
		return tx.Where("id = ?", id).Take(&stored).Error
	})
	if txErr != nil {
		s.logError(opCreateList, "write_failed", txErr, zap.String("user_id", owner.String()))
		return List{}, txErr
	}

	s.recordAudit(ctx, []SyncLog{{OwnerID: owner.String(), EntityType: EntityTypeList, EntityID: stored.ID, Action: AuditActionUpsert, CreatedAt: now}})
	return stored, nil
}

// UpdateList partially updates a live list; nil fields are untouched.
func (s *Service) UpdateList(ctx context.Context, owner OwnerID, id EntityID, update ListUpdate) (List, error) {
	columns := map[string]interface{}{}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return List{}, newServiceError(opUpdateList, "invalid_change", ErrNameRequired)
		}
		columns["name"] = name
	}
	if update.Color != nil {
		columns["color"] = strings.TrimSpace(*update.Color)
	}

	now := s.clock().UTC()
	columns["updated_at"] = now

	var stored List
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&List{}).
			Where("id = ? AND user_id = ? AND deleted_at IS NULL", id.String(), owner.String()).
			UpdateColumns(columns)
		if result.Error != nil {
			return newServiceError(opUpdateList, "update_failed", result.Error)
		}
		if result.RowsAffected == 0 {
			return newServiceError(opUpdateList, "not_found", ErrNotFound)
		}
		return tx.Where("id = ?", id.String()).Take(&stored).Error
	})
	if txErr != nil {
		if !errors.Is(txErr, ErrNotFound) {
			s.logError(opUpdateList, "write_failed", txErr, zap.String("user_id", owner.String()))
		}
		return List{}, txErr
	}

	s.recordAudit(ctx, []SyncLog{{OwnerID: owner.String(), EntityType: EntityTypeList, EntityID: stored.ID, Action: AuditActionUpdate, CreatedAt: now}})
	return stored, nil
}

// DeleteList soft-deletes a list and cascades to its tasks. Unknown or
// already-deleted ids succeed without effect.
func (s *Service) DeleteList(ctx context.Context, owner OwnerID, id EntityID) error {
	now := s.clock().UTC()
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.applyListDelete(tx, owner, id.String(), now)
	})
	if txErr != nil {
		s.logError(opDeleteList, "delete_failed", txErr, zap.String("user_id", owner.String()))
		return newServiceError(opDeleteList, "delete_failed", txErr)
	}

	s.recordAudit(ctx, []SyncLog{{OwnerID: owner.String(), EntityType: EntityTypeList, EntityID: id.String(), Action: AuditActionDelete, CreatedAt: now}})
	return nil
}

// ListTasks returns every live task the caller owns across all lists.
func (s *Service) ListTasks(ctx context.Context, owner OwnerID) ([]Task, error) {
	tasks := []Task{}
	if err := s.db.WithContext(ctx).Model(&Task{}).Select("tasks.*").
		Joins("JOIN todo_lists ON todo_lists.id = tasks.list_id").
		Where("todo_lists.user_id = ? AND tasks.deleted_at IS NULL AND todo_lists.deleted_at IS NULL", owner.String()).
		Order("tasks.completed ASC, tasks.created_at DESC").
		Find(&tasks).Error; err != nil {
		s.logError(opListTasks, "query_failed", err, zap.String("user_id", owner.String()))
		return nil, newServiceError(opListTasks, "query_failed", err)
	}
	return tasks, nil
}

// TasksByList returns the live tasks of one list the caller owns.
func (s *Service) TasksByList(ctx context.Context, owner OwnerID, listID EntityID) ([]Task, error) {
	var list List
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND deleted_at IS NULL", listID.String(), owner.String()).
		Take(&list).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newServiceError(opTasksByList, "not_found", ErrNotFound)
	}
	if err != nil {
		s.logError(opTasksByList, "query_failed", err, zap.String("user_id", owner.String()))
		return nil, newServiceError(opTasksByList, "query_failed", err)
	}

	tasks := []Task{}
	if err := s.db.WithContext(ctx).
		Where("list_id = ? AND deleted_at IS NULL", list.ID).
		Order("created_at DESC").
		Find(&tasks).Error; err != nil {
		s.logError(opTasksByList, "query_failed", err, zap.String("user_id", owner.String()))
		return nil, newServiceError(opTasksByList, "query_failed", err)
	}
	return tasks, nil
}

// GetTask returns one live task owned by the caller through its list.
func (s *Service) GetTask(ctx context.Context, owner OwnerID, id EntityID) (Task, error) {
	var task Task
	err := s.db.WithContext(ctx).Model(&Task{}).Select("tasks.*").
		Joins("JOIN todo_lists ON todo_lists.id = tasks.list_id").
		Where("tasks.id = ? AND todo_lists.user_id = ? AND tasks.deleted_at IS NULL AND todo_lists.deleted_at IS NULL", id.String(), owner.String()).
		Take(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Task{}, newServiceError(opGetTask, "not_found", ErrNotFound)
	}
	if err != nil {
		s.logError(opGetTask, "query_failed", err, zap.String("user_id", owner.String()))
		return Task{}, newServiceError(opGetTask, "query_failed", err)
	}
	return task, nil
}

// CreateTask applies a single task upsert and returns the stored row.
func (s *Service) CreateTask(ctx context.Context, owner OwnerID, change TaskChange) (Task, error) {
	if err := change.validate(); err != nil {
		return Task{}, newServiceError(opCreateTask, "invalid_change", err)
	}

	now := s.clock().UTC()
	var stored Task
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := s.applyTaskUpsert(tx, owner, change, now)
		if err != nil {
			return newServiceError(opCreateTask, "upsert_failed", err)
		}
		return tx.Where("id = ?", id).Take(&stored).Error
	})
	if txErr != nil {
		if !errors.Is(txErr, ErrNotFound) {
			s.logError(opCreateTask, "write_failed", txErr, zap.String("user_id", owner.String()))
		}
		return Task{}, txErr
	}

	s.recordAudit(ctx, []SyncLog{{OwnerID: owner.String(), EntityType: EntityTypeTask, EntityID: stored.ID, Action: AuditActionUpsert, CreatedAt: now}})
	return stored, nil
}

// UpdateTask partially updates a live task; nil fields are untouched.
func (s *Service) UpdateTask(ctx context.Context, owner OwnerID, id EntityID, update TaskUpdate) (Task, error) {
	columns := map[string]interface{}{}
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return Task{}, newServiceError(opUpdateTask, "invalid_change", ErrTitleRequired)
		}
		columns["title"] = title
	}
	if update.Description != nil {
		columns["description"] = *update.Description
	}
	if update.Completed != nil {
		columns["completed"] = *update.Completed
	}
	if update.Reminder != nil {
		reminder := update.Reminder.UTC()
		columns["reminder"] = reminder
	}

	now := s.clock().UTC()
	columns["updated_at"] = now

	var stored Task
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&Task{}).
			Where("id = ? AND deleted_at IS NULL AND list_id IN (?)", id.String(), ownedListIDs(tx, owner)).
			UpdateColumns(columns)
		if result.Error != nil {
			return newServiceError(opUpdateTask, "update_failed", result.Error)
		}
		if result.RowsAffected == 0 {
			return newServiceError(opUpdateTask, "not_found", ErrNotFound)
		}
		return tx.Where("id = ?", id.String()).Take(&stored).Error
	})
	if txErr != nil {
		if !errors.Is(txErr, ErrNotFound) {
			s.logError(opUpdateTask, "write_failed", txErr, zap.String("user_id", owner.String()))
		}
		return Task{}, txErr
	}

	s.recordAudit(ctx, []SyncLog{{OwnerID: owner.String(), EntityType: EntityTypeTask, EntityID: stored.ID, Action: AuditActionUpdate, CreatedAt: now}})
	return stored, nil
}

// DeleteTask soft-deletes a task. Unknown or already-deleted ids succeed
// without effect.
func (s *Service) DeleteTask(ctx context.Context, owner OwnerID, id EntityID) error {
	now := s.clock().UTC()
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.applyTaskDelete(tx, owner, id.String(), now)
	})
	if txErr != nil {
		s.logError(opDeleteTask, "delete_failed", txErr, zap.String("user_id", owner.String()))
		return newServiceError(opDeleteTask, "delete_failed", txErr)
	}

	s.recordAudit(ctx, []SyncLog{{OwnerID: owner.String(), EntityType: EntityTypeTask, EntityID: id.String(), Action: AuditActionDelete, CreatedAt: now}})
	return nil
}
