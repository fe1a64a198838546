package repository

import (
	"context"
	"time"

	"snapgram/internal/models"

	"gorm.io/gorm"
)

// StoryRepository persists stories and their view markers.
type StoryRepository interface {
	Create(ctx context.Context, story *models.Story) error
	GetByID(ctx context.Context, id uint) (*models.Story, error)
	Delete(ctx context.Context, id uint) error
	// ListActiveByOwners returns stories with expires_at > now, grouped by
	// owner and newest first within each owner.
	ListActiveByOwners(ctx context.Context, ownerIDs []uint, viewerID uint, now time.Time) ([]models.Story, error)
	MarkViewed(ctx context.Context, storyID, userID uint) (bool, error)
	CountViews(ctx context.Context, storyID uint) (int64, error)
}

type storyRepository struct {
	db *gorm.DB
}

// NewStoryRepository creates a new StoryRepository.
func NewStoryRepository(db *gorm.DB) StoryRepository {
	return &storyRepository{db: db}
}

func (r *storyRepository) Create(ctx context.Context, story *models.Story) error {
	if err := r.db.WithContext(ctx).Omit("User").Create(story).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *storyRepository) GetByID(ctx context.Context, id uint) (*models.Story, error) {
	var story models.Story
	if err := r.db.WithContext(ctx).Preload("User", publicAuthor).First(&story, id).Error; err != nil {
		return nil, lookupError(err, "Story", id)
	}
	return &story, nil
}

func (r *storyRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("story_id = ?", id).Delete(&models.StoryView{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Story{}, id).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *storyRepository) ListActiveByOwners(ctx context.Context, ownerIDs []uint, viewerID uint, now time.Time) ([]models.Story, error) {
	if len(ownerIDs) == 0 {
		return nil, nil
	}
	var stories []models.Story
	err := readDB(r.db).WithContext(ctx).
		Model(&models.Story{}).
		Select("stories.*, EXISTS(SELECT 1 FROM story_views WHERE story_views.story_id = stories.id AND story_views.user_id = ?) AS is_viewed", viewerID).
		Preload("User", publicAuthor).
		Where("stories.user_id IN ? AND stories.expires_at > ?", ownerIDs, now).
		Order("stories.user_id").
		Order("stories.created_at DESC").
		Order("stories.id DESC").
		Find(&stories).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return stories, nil
}

// MarkViewed records a view once; repeated calls are no-ops.
func (r *storyRepository) MarkViewed(ctx context.Context, storyID, userID uint) (bool, error) {
	return insertFact(r.db.WithContext(ctx), &models.StoryView{StoryID: storyID, UserID: userID})
}

func (r *storyRepository) CountViews(ctx context.Context, storyID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.StoryView{}).Where("story_id = ?", storyID).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}
