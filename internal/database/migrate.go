package database

import (
	"fmt"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"

	"foodorder/internal/domain"
	"foodorder/migrations"
)

// Migrate applies the embedded goose migrations on PostgreSQL and
// falls back to AutoMigrate for SQLite.
func Migrate(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return db.AutoMigrate(
			&domain.Product{},
			&domain.Addon{},
			&domain.Order{},
			&domain.PaymentTransaction{},
		)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := goose.Up(sqlDB, "."); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
