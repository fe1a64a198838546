package models

import (
	"time"

	"gorm.io/gorm"
)

// Post is a permanent piece of media shared by its owner.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user"`
	Caption   string    `gorm:"type:text" json:"caption"`
	Hashtags  string    `gorm:"size:500" json:"hashtags"`
	Media     string    `gorm:"not null" json:"media"`
	MediaType MediaType `gorm:"size:10;not null;index" json:"media_type"`
	Location  string    `gorm:"size:100" json:"location"`
	// LikesCount is not persisted; computed at query time
	LikesCount int64 `gorm:"->;-:migration" json:"likes_count"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int64 `gorm:"->;-:migration" json:"comments_count"`
	// Viewer-relative flags, computed per request and never cached.
	IsLiked     bool           `gorm:"->;-:migration" json:"is_liked"`
	IsSaved     bool           `gorm:"->;-:migration" json:"is_saved"`
	IsFollowing bool           `gorm:"->;-:migration" json:"is_following"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
