package database

import (
	"errors"
	"time"

	"github.com/tasklet-labs/tasklet/backend/internal/todo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationBackfillListColors = "2026-08-18_backfill_list_colors"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationBackfillListColors, apply: backfillListColors},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// Rows imported from pre-color clients carry an empty color string; reads
// assume the column is always populated.
func backfillListColors(db *gorm.DB) error {
	return db.Model(&todo.List{}).
		Where("color = ''").
		UpdateColumn("color", todo.DefaultListColor).Error
}
