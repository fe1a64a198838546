package repository

import (
	"context"

	"snapgram/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations. Every read
// takes the viewer so per-viewer flags are computed in the same query.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error)
	ListByOwners(ctx context.Context, ownerIDs []uint, viewerID uint, limit, offset int) ([]*models.Post, error)
	ListByMediaType(ctx context.Context, mediaType models.MediaType, viewerID uint, limit, offset int) ([]*models.Post, error)
	ListSaved(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit("User").Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
	var post models.Post
	err := applyPostDetails(r.db.WithContext(ctx), viewerID).
		Preload("User", publicAuthor).
		First(&post, id).Error
	if err != nil {
		return nil, lookupError(err, "Post", id)
	}
	return &post, nil
}

// ListByOwners returns posts whose owner is in ownerIDs, newest first.
func (r *postRepository) ListByOwners(ctx context.Context, ownerIDs []uint, viewerID uint, limit, offset int) ([]*models.Post, error) {
	if len(ownerIDs) == 0 {
		return nil, nil
	}
	return r.list(applyPostDetails(readDB(r.db).WithContext(ctx), viewerID).
		Where("posts.user_id IN ?", ownerIDs), limit, offset)
}

func (r *postRepository) ListByMediaType(ctx context.Context, mediaType models.MediaType, viewerID uint, limit, offset int) ([]*models.Post, error) {
	return r.list(applyPostDetails(readDB(r.db).WithContext(ctx), viewerID).
		Where("posts.media_type = ?", mediaType), limit, offset)
}

// ListSaved returns the user's saved posts, most recently saved first.
func (r *postRepository) ListSaved(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := applyPostDetails(readDB(r.db).WithContext(ctx), userID).
		Joins("JOIN saves ON saves.post_id = posts.id AND saves.user_id = ?", userID).
		Preload("User", publicAuthor).
		Order("saves.created_at DESC").
		Order("posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) list(q *gorm.DB, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := q.Preload("User", publicAuthor).
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

// Update writes the editable fields only; media and media_type never change.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Model(post).
		Select("caption", "hashtags", "location").
		Updates(post).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Post{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// applyPostDetails adds subqueries for counts and the viewer's flags in a
// single query. Viewer 0 is anonymous and gets all flags false.
func applyPostDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	selectQuery := "posts.*, " +
		"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id AND comments.deleted_at IS NULL) AS comments_count, " +
		"(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) AS likes_count"

	if viewerID == 0 {
		return db.Model(&models.Post{}).Select(selectQuery + ", false AS is_liked, false AS is_saved, false AS is_following")
	}
	return db.Model(&models.Post{}).Select(selectQuery+
		", EXISTS(SELECT 1 FROM likes WHERE likes.post_id = posts.id AND likes.user_id = ?) AS is_liked"+
		", EXISTS(SELECT 1 FROM saves WHERE saves.post_id = posts.id AND saves.user_id = ?) AS is_saved"+
		", EXISTS(SELECT 1 FROM follows WHERE follows.followed_id = posts.user_id AND follows.follower_id = ?) AS is_following",
		viewerID, viewerID, viewerID)
}
