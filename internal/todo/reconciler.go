package todo

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// The reconciler primitives below run inside a caller-supplied transaction.
// Upserts are single conditional writes: the ON CONFLICT branch only fires
// when the stored row belongs to the caller, so an id collision with another
// owner's row surfaces as RowsAffected == 0 and is reported as ErrNotFound,
// identical to a genuinely missing row.

func (s *Service) applyListUpsert(tx *gorm.DB, owner OwnerID, change ListChange, now time.Time) (string, error) {
	id := strings.TrimSpace(change.ID)
	if id == "" {
		generated, err := s.idProvider.NewID()
		if err != nil {
			return "", err
		}
		id = generated
	}

	name := strings.TrimSpace(change.Name)
	color := strings.TrimSpace(change.Color)
	if color == "" {
		color = DefaultListColor
	}
	createdAt := now
	if change.CreatedAt != nil {
		createdAt = change.CreatedAt.UTC()
	}

	row := List{
		ID:        id,
		OwnerID:   owner.String(),
		Name:      name,
		Color:     color,
		CreatedAt: createdAt,
		UpdatedAt: now,
	}
	result := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"name":       name,
			"color":      color,
			"updated_at": now,
			"deleted_at": nil,
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Eq{Column: clause.Column{Table: "todo_lists", Name: "user_id"}, Value: owner.String()},
		}},
	}).Create(&row)
	if result.Error != nil {
		return "", result.Error
	}
	if result.RowsAffected == 0 {
		return "", ErrNotFound
	}
	return id, nil
}

func (s *Service) applyTaskUpsert(tx *gorm.DB, owner OwnerID, change TaskChange, now time.Time) (string, error) {
	id := strings.TrimSpace(change.ID)
	if id == "" {
		generated, err := s.idProvider.NewID()
		if err != nil {
			return "", err
		}
		id = generated
	}

	title := strings.TrimSpace(change.Title)
	listID := strings.TrimSpace(change.ListID)
	reminder := change.Reminder
	if reminder != nil {
		utc := reminder.UTC()
		reminder = &utc
	}

	var parent List
	err := tx.Where("id = ? AND user_id = ? AND deleted_at IS NULL", listID, owner.String()).Take(&parent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// The referenced parent is missing, tombstoned, or not the
		// caller's. Creation is impossible, but the change is still a
		// legal update when the task already lives under a list the
		// caller owns; the stored parent stays authoritative.
		result := tx.Model(&Task{}).
			Where("id = ? AND list_id IN (?)", id, ownedListIDs(tx, owner)).
			UpdateColumns(map[string]interface{}{
				"title":       title,
				"description": change.Description,
				"completed":   change.Completed,
				"reminder":    reminder,
				"updated_at":  now,
				"deleted_at":  nil,
			})
		if result.Error != nil {
			return "", result.Error
		}
		if result.RowsAffected == 0 {
			return "", ErrNotFound
		}
		return id, nil
	}
	if err != nil {
		return "", err
	}

	createdAt := now
	if change.CreatedAt != nil {
		createdAt = change.CreatedAt.UTC()
	}
	row := Task{
		ID:          id,
		ListID:      parent.ID,
		Title:       title,
		Description: change.Description,
		Completed:   change.Completed,
		Reminder:    reminder,
		CreatedAt:   createdAt,
		UpdatedAt:   now,
	}
	result := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"title":       title,
			"description": change.Description,
			"completed":   change.Completed,
			"reminder":    reminder,
			"updated_at":  now,
			"deleted_at":  nil,
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{
				SQL:  "tasks.list_id IN (SELECT id FROM todo_lists WHERE user_id = ?)",
				Vars: []interface{}{owner.String()},
			},
		}},
	}).Create(&row)
	if result.Error != nil {
		return "", result.Error
	}
	if result.RowsAffected == 0 {
		return "", ErrNotFound
	}
	return id, nil
}

// applyListDelete tombstones a list and cascades to its tasks. Deleting an
// unknown or already-deleted id is a no-op success so deletion descriptors
// can be replayed freely.
func (s *Service) applyListDelete(tx *gorm.DB, owner OwnerID, rawID string, now time.Time) error {
	id := strings.TrimSpace(rawID)
	if id == "" {
		return nil
	}
	result := tx.Model(&List{}).
		Where("id = ? AND user_id = ? AND deleted_at IS NULL", id, owner.String()).
		UpdateColumn("deleted_at", now)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return nil
	}
	return tx.Model(&Task{}).
		Where("list_id = ? AND deleted_at IS NULL", id).
		UpdateColumn("deleted_at", now).Error
}

func (s *Service) applyTaskDelete(tx *gorm.DB, owner OwnerID, rawID string, now time.Time) error {
	id := strings.TrimSpace(rawID)
	if id == "" {
		return nil
	}
	return tx.Model(&Task{}).
		Where("id = ? AND deleted_at IS NULL AND list_id IN (?)", id, ownedListIDs(tx, owner)).
		UpdateColumn("deleted_at", now).Error
}

// ownedListIDs builds the subquery scoping task rows to the caller through
// their parent list.
func ownedListIDs(tx *gorm.DB, owner OwnerID) *gorm.DB {
	return tx.Session(&gorm.Session{NewDB: true}).
		Model(&List{}).
		Select("id").
		Where("user_id = ?", owner.String())
}
