package database

import "snapgram/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
// Order matters: referenced tables come before the tables that point at them.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Follow{},
		&models.Post{},
		&models.Story{},
		&models.StoryView{},
		&models.Comment{},
		&models.Like{},
		&models.Save{},
		&models.Notification{},
		&models.Report{},
	}
}
