package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"snapgram/internal/models"
	"snapgram/internal/observability"
	"snapgram/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	maxCaptionLen  = 2200
	maxHashtagsLen = 500
	maxLocationLen = 100
)

type PostService struct {
	posts    repository.PostRepository
	users    repository.UserRepository
	media    MediaProcessor
	notifier NotificationSender
	maxDim   int
}

type CreatePostInput struct {
	Caption  string
	Hashtags string
	Media    string
	Location string
}

type UpdatePostInput struct {
	Caption  *string
	Hashtags *string
	Location *string
}

func NewPostService(
	posts repository.PostRepository,
	users repository.UserRepository,
	media MediaProcessor,
	notifier NotificationSender,
	maxDim int,
) *PostService {
	if maxDim <= 0 {
		maxDim = DefaultMediaMaxDimension
	}
	return &PostService{posts: posts, users: users, media: media, notifier: notifier, maxDim: maxDim}
}

// Create stores a post for actorID. The media type is derived from the media
// reference; an unrecognized extension is rejected. Stored raster images are
// then downscaled.
func (s *PostService) Create(ctx context.Context, actorID uint, in CreatePostInput) (*models.Post, error) {
	ctx, end := observability.StartSpan(ctx, "post.create", attribute.Int("actor_id", int(actorID)))
	post, err := s.create(ctx, actorID, in)
	end(err)
	return post, err
}

func (s *PostService) create(ctx context.Context, actorID uint, in CreatePostInput) (*models.Post, error) {
	if strings.TrimSpace(in.Media) == "" {
		return nil, models.NewValidationError("Media is required")
	}
	if err := checkPostText(in.Caption, in.Hashtags, in.Location); err != nil {
		return nil, err
	}
	mediaType, err := models.DeriveMediaType(in.Media)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		UserID:    actorID,
		Caption:   in.Caption,
		Hashtags:  in.Hashtags,
		Media:     in.Media,
		MediaType: mediaType,
		Location:  in.Location,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	if s.media != nil {
		if err := s.media.Downscale(ctx, post.Media, s.maxDim); err != nil {
			slog.WarnContext(ctx, "post media left unprocessed", "post_id", post.ID, "error", err)
		}
	}
	notifyMentions(ctx, s.users, s.notifier, actorID, post.ID, post.Caption, "a post")

	return s.posts.GetByID(ctx, post.ID, actorID)
}

func (s *PostService) Get(ctx context.Context, viewerID, postID uint) (*models.Post, error) {
	return s.posts.GetByID(ctx, postID, viewerID)
}

// Update edits caption, hashtags and location. Only the owner may edit.
func (s *PostService) Update(ctx context.Context, actorID, postID uint, in UpdatePostInput) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID, actorID)
	if err != nil {
		return nil, err
	}
	if post.UserID != actorID {
		return nil, models.NewForbiddenError("You can only edit your own posts")
	}
	if in.Caption != nil {
		post.Caption = *in.Caption
	}
	if in.Hashtags != nil {
		post.Hashtags = *in.Hashtags
	}
	if in.Location != nil {
		post.Location = *in.Location
	}
	if err := checkPostText(post.Caption, post.Hashtags, post.Location); err != nil {
		return nil, err
	}
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, err
	}
	return s.posts.GetByID(ctx, postID, actorID)
}

// Delete removes a post. Only the owner may delete it.
func (s *PostService) Delete(ctx context.Context, actorID, postID uint) error {
	post, err := s.posts.GetByID(ctx, postID, actorID)
	if err != nil {
		return err
	}
	if post.UserID != actorID {
		return models.NewForbiddenError("You can only delete your own posts")
	}
	return s.posts.Delete(ctx, postID)
}

// ByOwner lists ownerID's posts as seen by viewerID.
func (s *PostService) ByOwner(ctx context.Context, viewerID, ownerID uint, page Page) ([]*models.Post, bool, error) {
	page = page.normalize(DefaultFeedPageSize)
	posts, err := s.posts.ListByOwners(ctx, []uint{ownerID}, viewerID, page.PerPage+1, page.offset())
	if err != nil {
		return nil, false, err
	}
	return trimPage(posts, page.PerPage)
}

// Saved lists the posts actorID has saved, most recently saved first.
func (s *PostService) Saved(ctx context.Context, actorID uint, page Page) ([]*models.Post, bool, error) {
	page = page.normalize(DefaultFeedPageSize)
	posts, err := s.posts.ListSaved(ctx, actorID, page.PerPage+1, page.offset())
	if err != nil {
		return nil, false, err
	}
	return trimPage(posts, page.PerPage)
}

func (s *PostService) CountByUser(ctx context.Context, userID uint) (int64, error) {
	return s.posts.CountByUser(ctx, userID)
}

func checkPostText(caption, hashtags, location string) error {
	if len([]rune(caption)) > maxCaptionLen {
		return models.NewValidationError(fmt.Sprintf("Caption too long (max %d characters)", maxCaptionLen))
	}
	if len([]rune(hashtags)) > maxHashtagsLen {
		return models.NewValidationError(fmt.Sprintf("Hashtags too long (max %d characters)", maxHashtagsLen))
	}
	if len([]rune(location)) > maxLocationLen {
		return models.NewValidationError(fmt.Sprintf("Location too long (max %d characters)", maxLocationLen))
	}
	return nil
}

// trimPage drops the look-ahead row fetched to compute has_more.
func trimPage[T any](items []T, perPage int) ([]T, bool, error) {
	if len(items) > perPage {
		return items[:perPage], true, nil
	}
	return items, false, nil
}
