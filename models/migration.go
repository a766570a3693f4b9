package models

import "github.com/brewcrafthq/brewery_backend/config"

// MigrateTable runs gorm auto-migration for every table this service owns.
func MigrateTable() {
	db := config.GetDB()
	err := db.AutoMigrate(
		&Tank{},
		&Batch{},
		&Lot{},
		&LotBatch{},
		&TankAssignment{},
		&TankTransfer{},
		&GravityReading{},
		&BatchTimeline{},
		&IdempotencyKey{},
	)
	if err != nil {
		panic(err)
	}
}
