package database

import (
	"log"

	"github.com/atypikhouse/booking-service/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresDB(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Property{}, &models.Booking{}); err != nil {
		log.Fatalf("failed to auto-migrate: %v", err)
	}

	EnsureConstraints(db)

	return db
}

// EnsureConstraints installs the range exclusion constraint that makes the
// overlap check and the insert atomic at the storage layer: no two active
// (pending/confirmed) bookings for the same property may overlap, even when
// concurrent requests race past the application-level conflict query or run
// in separate process instances.
func EnsureConstraints(db *gorm.DB) {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS btree_gist`).Error; err != nil {
		log.Fatalf("failed to install btree_gist extension: %v", err)
	}
	if err := db.Exec(`
		DO $$
		BEGIN
			IF NOT EXISTS (
				SELECT 1 FROM pg_constraint WHERE conname = 'bookings_no_overlap'
			) THEN
				ALTER TABLE bookings ADD CONSTRAINT bookings_no_overlap
				EXCLUDE USING gist (
					property_id WITH =,
					daterange(start_date, end_date) WITH &&
				) WHERE (status IN ('pending', 'confirmed'));
			END IF;
		END$$
	`).Error; err != nil {
		log.Fatalf("failed to install bookings_no_overlap constraint: %v", err)
	}
}
