package models

import "time"

// StoryTTL is how long a story stays active when no expiry is given.
const StoryTTL = 24 * time.Hour

// Story is time-limited media. It is active while now < ExpiresAt; nothing
// deletes expired rows, they are filtered out at query time.
type Story struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user"`
	Media     string    `gorm:"not null" json:"media"`
	MediaType MediaType `gorm:"size:10;not null" json:"media_type"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	IsViewed  bool      `gorm:"->;-:migration" json:"is_viewed"`
	// ViewCount is only filled in for the owner.
	ViewCount *int64 `gorm:"-" json:"view_count,omitempty"`
}

// IsExpired reports whether the story is no longer active at now.
func (s Story) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// StoryView records that a user has seen a story.
type StoryView struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StoryID   uint      `gorm:"not null;uniqueIndex:idx_story_view_pair" json:"story_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_story_view_pair;index" json:"user_id"`
	Story     Story     `gorm:"foreignKey:StoryID;constraint:OnDelete:CASCADE" json:"-"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"viewed_at"`
}

// StoryGroup is one owner's active stories, newest first.
type StoryGroup struct {
	User        User    `json:"user"`
	Stories     []Story `json:"stories"`
	IsFollowing bool    `json:"is_following"`
	AllViewed   bool    `json:"all_viewed"`
}
