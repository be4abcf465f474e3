package models

import "github.com/mmdatafocus/seedstore_backend/config"

// MigrateTable syncs the schema. Order matters for foreign keys: master
// data first, then lots, then the documents that reference them.
func MigrateTable() {
	db := config.GetDB()
	err := db.AutoMigrate(
		&User{},
		&Warehouse{},
		&SeedClass{},
		&SeedProduct{},
		&Lot{},
		&LotMovement{},
		&SRV{},
		&SRVItem{},
		&SIV{},
		&SIVItem{},
		&CleaningEvent{},
		&CleaningOutput{},
	)
	if err != nil {
		panic(err)
	}
}
