package mysql

import "gorm.io/gorm"

// Migrate creates or updates every table used by the repositories.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
