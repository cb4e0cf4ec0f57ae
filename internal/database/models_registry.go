package database

import "pictogram/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Story{},
		&models.Follow{},
		&models.Like{},
		&models.Notification{},
	}
}
