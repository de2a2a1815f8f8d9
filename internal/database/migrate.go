package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migration records an applied schema step.
type Migration struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"uniqueIndex;size:255;not null"`
	AppliedAt time.Time `gorm:"not null"`
}

// Step is a named schema change; Models are auto-migrated when it runs.
type Step struct {
	Name   string
	Models []any
}

// RunMigrations applies every step not yet recorded in the migrations table.
func RunMigrations(db *gorm.DB, log *zap.Logger, steps ...Step) error {
	if log == nil {
		log = zap.NewNop()
	}
	if err := db.AutoMigrate(&Migration{}); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, step := range steps {
		var count int64
		if err := db.Model(&Migration{}).Where("name = ?", step.Name).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		if count > 0 {
			log.Debug("skipping migration", zap.String("name", step.Name))
			continue
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(step.Models...); err != nil {
				return err
			}
			return tx.Create(&Migration{Name: step.Name, AppliedAt: time.Now().UTC()}).Error
		})
		if err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", step.Name, err)
		}
		log.Info("applied migration", zap.String("name", step.Name), zap.String("dialect", db.Dialector.Name()))
	}
	return nil
}
