package model

import "gorm.io/gorm"

// allModels lists every model to be auto-migrated.
var allModels = []interface{}{
	&Profile{},
	&Night{},
	&Drink{},
	&Venue{},
	&Media{},
	&MoodEntry{},
	&Comment{},
	&Reaction{},
	&Friendship{},
	&LocationPoint{},
	&Song{},
	&LiveUpdate{},
	&Report{},
	&AuditLog{},
}

// AutoMigrate creates or updates all tables in the given database.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(allModels...)
}

// NightChildren lists the child tables cascade-deleted with a night,
// in deletion order.
var NightChildren = []interface{}{
	&Drink{},
	&Venue{},
	&Media{},
	&MoodEntry{},
	&Comment{},
	&Reaction{},
	&LocationPoint{},
	&Song{},
	&LiveUpdate{},
}
