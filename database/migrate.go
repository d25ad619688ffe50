package database

import (
	"fmt"

	"github.com/yeremiapane/tablebook/models"
	"github.com/yeremiapane/tablebook/utils"
	"gorm.io/gorm"
)

// occupancyIndexes back the one-booking-per-slot rules. Migrate refuses to
// report success without them.
var occupancyIndexes = []string{
	"idx_reservations_table_slot",
	"idx_reservations_user_slot",
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Table{},
		&models.Timeslot{},
		&models.Reservation{},
	)
	if err != nil {
		return fmt.Errorf("failed to AutoMigrate: %w", err)
	}

	for _, name := range occupancyIndexes {
		if !db.Migrator().HasIndex(&models.Reservation{}, name) {
			return fmt.Errorf("index %s missing after migration", name)
		}
		utils.InfoLogger.Debugf("Index verified: %s", name)
	}

	utils.InfoLogger.Println("AutoMigrate completed.")
	return nil
}
