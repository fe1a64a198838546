package service

import (
	"context"
	"fmt"
	"log/slog"

	"snapgram/internal/models"
	"snapgram/internal/observability"
	"snapgram/internal/repository"
)

// FollowService manages the directed follow graph.
type FollowService struct {
	follows  repository.FollowRepository
	users    repository.UserRepository
	notifier NotificationSender
}

// NewFollowService returns a new FollowService.
func NewFollowService(follows repository.FollowRepository, users repository.UserRepository, notifier NotificationSender) *FollowService {
	return &FollowService{follows: follows, users: users, notifier: notifier}
}

// Toggle follows targetID when actorID does not follow it yet, and unfollows
// otherwise. Only a newly created edge notifies the target.
func (s *FollowService) Toggle(ctx context.Context, actorID, targetID uint) (models.FollowResult, error) {
	if actorID == targetID {
		return models.FollowResult{}, models.NewInvalidOperationError("You cannot follow yourself")
	}
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		return models.FollowResult{}, err
	}

	following, created, err := s.follows.Toggle(ctx, actorID, targetID)
	if err != nil {
		return models.FollowResult{}, err
	}
	observability.RecordToggle("follow", following)

	if created {
		s.notifyFollow(ctx, actorID, targetID)
	}

	count, err := s.follows.CountFollowers(ctx, targetID)
	if err != nil {
		return models.FollowResult{}, err
	}
	return models.FollowResult{Following: following, FollowersCount: count}, nil
}

// notifyFollow runs after the edge is committed, so a failure is logged and
// not returned: a client retry would flip the follow back.
func (s *FollowService) notifyFollow(ctx context.Context, actorID, targetID uint) {
	if s.notifier == nil {
		return
	}
	actor, err := s.users.GetByID(ctx, actorID)
	if err == nil {
		_, err = s.notifier.Notify(ctx, NotifyInput{
			RecipientID: targetID,
			Sender:      *actor,
			Type:        models.NotificationFollow,
			Text:        fmt.Sprintf("%s started following you", actor.Username),
		})
	}
	if err != nil {
		slog.WarnContext(ctx, "follow notification failed",
			"follower_id", actorID, "followed_id", targetID, "error", err)
	}
}

func (s *FollowService) IsFollowing(ctx context.Context, actorID, targetID uint) (bool, error) {
	if actorID == 0 || actorID == targetID {
		return false, nil
	}
	return s.follows.Exists(ctx, actorID, targetID)
}

func (s *FollowService) FollowersCount(ctx context.Context, userID uint) (int64, error) {
	return s.follows.CountFollowers(ctx, userID)
}

func (s *FollowService) FollowingCount(ctx context.Context, userID uint) (int64, error) {
	return s.follows.CountFollowing(ctx, userID)
}

// Followers lists the users following username.
func (s *FollowService) Followers(ctx context.Context, username string, page Page) ([]models.User, error) {
	user, err := s.lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	page = page.normalize(DefaultExplorePageSize)
	return s.follows.ListFollowers(ctx, user.ID, page.PerPage, page.offset())
}

// Following lists the users username follows.
func (s *FollowService) Following(ctx context.Context, username string, page Page) ([]models.User, error) {
	user, err := s.lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	page = page.normalize(DefaultExplorePageSize)
	return s.follows.ListFollowing(ctx, user.ID, page.PerPage, page.offset())
}

func (s *FollowService) lookup(ctx context.Context, username string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", username)
	}
	return user, nil
}
