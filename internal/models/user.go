// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User represents an account on the network.
type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Username   string    `gorm:"uniqueIndex;size:30;not null" json:"username"`
	Email      string    `gorm:"uniqueIndex;not null" json:"email,omitempty"`
	Phone      *string   `gorm:"uniqueIndex;size:20" json:"phone,omitempty"`
	Password   string    `gorm:"not null" json:"-"`
	FullName   string    `gorm:"size:100" json:"full_name"`
	Bio        string    `gorm:"type:text" json:"bio"`
	Avatar     string    `json:"avatar"`
	Website    string    `gorm:"size:200" json:"website"`
	IsPrivate  bool      `gorm:"not null;default:false" json:"is_private"`
	IsVerified bool      `gorm:"not null;default:false" json:"is_verified"`
	IsAdmin    bool      `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Public strips fields only the account owner should see.
func (u User) Public() User {
	u.Email = ""
	u.Phone = nil
	return u
}

// UserProfile is a user as seen by a particular viewer.
type UserProfile struct {
	User
	PostsCount     int64 `json:"posts_count"`
	FollowersCount int64 `json:"followers_count"`
	FollowingCount int64 `json:"following_count"`
	IsFollowing    bool  `json:"is_following"`
	IsSelf         bool  `json:"is_self"`
}
