package service

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"snapgram/internal/models"
	"snapgram/internal/repository"
)

// StoryService manages ephemeral stories and their view receipts.
type StoryService struct {
	stories repository.StoryRepository
	follows repository.FollowRepository
	users   repository.UserRepository
	media   MediaProcessor
	maxDim  int
	now     Clock
}

type CreateStoryInput struct {
	Media string
	// ExpiresAt defaults to now + StoryTTL.
	ExpiresAt *time.Time
}

func NewStoryService(
	stories repository.StoryRepository,
	follows repository.FollowRepository,
	users repository.UserRepository,
	media MediaProcessor,
	maxDim int,
) *StoryService {
	if maxDim <= 0 {
		maxDim = DefaultMediaMaxDimension
	}
	return &StoryService{
		stories: stories,
		follows: follows,
		users:   users,
		media:   media,
		maxDim:  maxDim,
		now:     time.Now,
	}
}

// WithClock replaces the service clock.
func (s *StoryService) WithClock(c Clock) *StoryService {
	s.now = c
	return s
}

func (s *StoryService) Create(ctx context.Context, actorID uint, in CreateStoryInput) (*models.Story, error) {
	if strings.TrimSpace(in.Media) == "" {
		return nil, models.NewValidationError("Media is required")
	}
	mediaType, err := models.DeriveMediaType(in.Media)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	expiresAt := now.Add(models.StoryTTL)
	if in.ExpiresAt != nil {
		if !in.ExpiresAt.After(now) {
			return nil, models.NewValidationError("expires_at must be in the future")
		}
		expiresAt = in.ExpiresAt.UTC()
	}

	story := &models.Story{
		UserID:    actorID,
		Media:     in.Media,
		MediaType: mediaType,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}
	if err := s.stories.Create(ctx, story); err != nil {
		return nil, err
	}
	if s.media != nil {
		if err := s.media.Downscale(ctx, story.Media, s.maxDim); err != nil {
			slog.WarnContext(ctx, "story media left unprocessed", "story_id", story.ID, "error", err)
		}
	}
	return story, nil
}

// MarkViewed records that actorID has seen the story. Repeat views and the
// owner's own views are no-ops beyond the first receipt.
func (s *StoryService) MarkViewed(ctx context.Context, actorID, storyID uint) error {
	story, err := s.stories.GetByID(ctx, storyID)
	if err != nil {
		return err
	}
	if story.IsExpired(s.now()) {
		return models.NewNotFoundError("Story", storyID)
	}
	_, err = s.stories.MarkViewed(ctx, storyID, actorID)
	return err
}

// Delete removes a story. Only the owner may delete it.
func (s *StoryService) Delete(ctx context.Context, actorID, storyID uint) error {
	story, err := s.stories.GetByID(ctx, storyID)
	if err != nil {
		return err
	}
	if story.UserID != actorID {
		return models.NewForbiddenError("You can only delete your own stories")
	}
	return s.stories.Delete(ctx, storyID)
}

// Visible returns active stories from actorID and the users it follows,
// grouped by owner. The actor's own stories carry their view count. The actor's own group comes first, then groups with
// unseen stories, then by most recent story.
func (s *StoryService) Visible(ctx context.Context, actorID uint) ([]models.StoryGroup, error) {
	following, err := s.follows.FollowingIDs(ctx, actorID)
	if err != nil {
		return nil, err
	}
	owners := append([]uint{actorID}, following...)
	stories, err := s.stories.ListActiveByOwners(ctx, owners, actorID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if len(stories) == 0 {
		return []models.StoryGroup{}, nil
	}
	for i := range stories {
		if stories[i].UserID != actorID {
			continue
		}
		n, err := s.stories.CountViews(ctx, stories[i].ID)
		if err != nil {
			return nil, err
		}
		stories[i].ViewCount = &n
	}

	followed := make(map[uint]bool, len(following))
	for _, id := range following {
		followed[id] = true
	}
	return groupStories(stories, actorID, followed), nil
}

func groupStories(stories []models.Story, actorID uint, followed map[uint]bool) []models.StoryGroup {
	index := map[uint]int{}
	var groups []models.StoryGroup
	for _, st := range stories {
		i, ok := index[st.UserID]
		if !ok {
			i = len(groups)
			index[st.UserID] = i
			groups = append(groups, models.StoryGroup{
				User:        st.User.Public(),
				IsFollowing: followed[st.UserID],
				AllViewed:   true,
			})
		}
		st.User = st.User.Public()
		groups[i].Stories = append(groups[i].Stories, st)
		if !st.IsViewed {
			groups[i].AllViewed = false
		}
	}
	for i := range groups {
		sortStoriesNewestFirst(groups[i].Stories)
	}
	sortGroups(groups, actorID)
	return groups
}

func sortStoriesNewestFirst(stories []models.Story) {
	slices.SortStableFunc(stories, func(a, b models.Story) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}

func sortGroups(groups []models.StoryGroup, actorID uint) {
	slices.SortStableFunc(groups, func(a, b models.StoryGroup) int {
		if (a.User.ID == actorID) != (b.User.ID == actorID) {
			if a.User.ID == actorID {
				return -1
			}
			return 1
		}
		if a.AllViewed != b.AllViewed {
			if !a.AllViewed {
				return -1
			}
			return 1
		}
		return b.Stories[0].CreatedAt.Compare(a.Stories[0].CreatedAt)
	})
}
