package service

import (
	"context"

	"snapgram/internal/models"
	"snapgram/internal/repository"
)

// FeedService composes the following and explore feeds. Per-viewer flags
// come straight from the post queries and are never cached.
type FeedService struct {
	posts   repository.PostRepository
	follows repository.FollowRepository
}

func NewFeedService(posts repository.PostRepository, follows repository.FollowRepository) *FeedService {
	return &FeedService{posts: posts, follows: follows}
}

// Following returns posts by actorID and everyone actorID follows, newest
// first. The bool reports whether another page exists.
func (s *FeedService) Following(ctx context.Context, actorID uint, page Page) ([]*models.Post, bool, error) {
	page = page.normalize(DefaultFeedPageSize)
	ids, err := s.follows.FollowingIDs(ctx, actorID)
	if err != nil {
		return nil, false, err
	}
	owners := append([]uint{actorID}, ids...)
	posts, err := s.posts.ListByOwners(ctx, owners, actorID, page.PerPage+1, page.offset())
	if err != nil {
		return nil, false, err
	}
	return trimPage(posts, page.PerPage)
}

// Explore returns every video post, newest first. Private accounts are not
// filtered out here.
func (s *FeedService) Explore(ctx context.Context, actorID uint, page Page) ([]*models.Post, bool, error) {
	page = page.normalize(DefaultExplorePageSize)
	posts, err := s.posts.ListByMediaType(ctx, models.MediaVideo, actorID, page.PerPage+1, page.offset())
	if err != nil {
		return nil, false, err
	}
	return trimPage(posts, page.PerPage)
}
