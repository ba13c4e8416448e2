package db

import (
	"gorm.io/gorm"

	"github.com/devonelson50/Monarch/internal/models"
	"gorm.io/driver/postgres"
)

var DB *gorm.DB

func ConnectDatabase(dsn string) error {
	var err error

	// TranslateError turns driver duplicate-key failures into
	// gorm.ErrDuplicatedKey, which the store relies on for conflict detection.
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})

	if err != nil {
		return err
	}

	return nil
}

func MigrateDatabase() error {
	tables := []interface{}{
		&models.App{},
		&models.Source{},
		&models.PollCycle{},
		&models.Incident{},
		&models.TicketReference{},
		&models.Notification{},
	}

	migrator := DB.Migrator()

	for _, model := range tables {
		if !migrator.HasTable(model) {
			if err := DB.AutoMigrate(model); err != nil {
				return err
			}
		}
	}

	return nil
}
