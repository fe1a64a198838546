package repository

import (
	"context"

	"snapgram/internal/models"

	"gorm.io/gorm"
)

// InteractionRepository persists like and save toggle facts.
type InteractionRepository interface {
	ToggleLike(ctx context.Context, userID, postID uint) (liked bool, created bool, err error)
	ToggleSave(ctx context.Context, userID, postID uint) (saved bool, created bool, err error)
	CountLikes(ctx context.Context, postID uint) (int64, error)
}

type interactionRepository struct {
	db *gorm.DB
}

// NewInteractionRepository creates a new InteractionRepository.
func NewInteractionRepository(db *gorm.DB) InteractionRepository {
	return &interactionRepository{db: db}
}

func (r *interactionRepository) ToggleLike(ctx context.Context, userID, postID uint) (bool, bool, error) {
	return toggleFact(r.db.WithContext(ctx),
		&models.Like{UserID: userID, PostID: postID},
		"user_id = ? AND post_id = ?", userID, postID,
	)
}

func (r *interactionRepository) ToggleSave(ctx context.Context, userID, postID uint) (bool, bool, error) {
	return toggleFact(r.db.WithContext(ctx),
		&models.Save{UserID: userID, PostID: postID},
		"user_id = ? AND post_id = ?", userID, postID,
	)
}

func (r *interactionRepository) CountLikes(ctx context.Context, postID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Like{}).Where("post_id = ?", postID).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}
