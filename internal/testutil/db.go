// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"snapgram/internal/database"
	"snapgram/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens an isolated in-memory SQLite database with every
// persistent table migrated. A single connection keeps the schema visible
// to all queries.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// CreateUser inserts a user named username with a derived email.
func CreateUser(t testing.TB, db *gorm.DB, username string, opts ...func(*models.User)) *models.User {
	t.Helper()
	u := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "x",
		FullName: username,
	}
	for _, opt := range opts {
		opt(u)
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// CreatePost inserts a post owned by owner with the given media reference.
// Successive calls get strictly increasing created_at values.
func CreatePost(t testing.TB, db *gorm.DB, owner *models.User, media string) *models.Post {
	t.Helper()
	mt, err := models.DeriveMediaType(media)
	if err != nil {
		t.Fatalf("media type for %s: %v", media, err)
	}
	p := &models.Post{
		UserID:    owner.ID,
		Media:     media,
		MediaType: mt,
		Caption:   fmt.Sprintf("%s post", owner.Username),
		CreatedAt: nextTick(),
	}
	if err := db.Omit("User").Create(p).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}

// CreateStory inserts a story for owner expiring at expiresAt.
func CreateStory(t testing.TB, db *gorm.DB, owner *models.User, expiresAt time.Time) *models.Story {
	t.Helper()
	s := &models.Story{
		UserID:    owner.ID,
		Media:     "stories/s.jpg",
		MediaType: models.MediaImage,
		CreatedAt: nextTick(),
		ExpiresAt: expiresAt,
	}
	if err := db.Omit("User").Create(s).Error; err != nil {
		t.Fatalf("create story: %v", err)
	}
	return s
}

// Follow inserts the edge follower -> followed.
func Follow(t testing.TB, db *gorm.DB, follower, followed *models.User) {
	t.Helper()
	if err := db.Omit("Follower", "Followed").Create(&models.Follow{FollowerID: follower.ID, FollowedID: followed.ID}).Error; err != nil {
		t.Fatalf("follow: %v", err)
	}
}

var (
	tickMu sync.Mutex
	tick   = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
)

func nextTick() time.Time {
	tickMu.Lock()
	defer tickMu.Unlock()
	tick = tick.Add(time.Second)
	return tick
}
