package service

import (
	"context"
	"testing"
	"time"

	"snapgram/internal/models"
	"snapgram/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postIDs(posts []*models.Post) []uint {
	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestFeedService_FollowingFeed(t *testing.T) {
	r := newRepos(t)
	svc := NewFeedService(r.posts, r.follows)
	a := testutil.CreateUser(t, r.db, "alice")
	b := testutil.CreateUser(t, r.db, "bob")
	c := testutil.CreateUser(t, r.db, "carol")
	testutil.Follow(t, r.db, a, b)

	pa := testutil.CreatePost(t, r.db, a, "a.jpg")
	pb := testutil.CreatePost(t, r.db, b, "b.jpg")
	pc := testutil.CreatePost(t, r.db, c, "c.jpg")

	posts, hasMore, err := svc.Following(context.Background(), a.ID, Page{})
	require.NoError(t, err)
	assert.False(t, hasMore)
	assert.Equal(t, []uint{pb.ID, pa.ID}, postIDs(posts))
	assert.NotContains(t, postIDs(posts), pc.ID)
	assert.True(t, posts[0].IsFollowing)
}

func TestFeedService_FollowingFeedPagination(t *testing.T) {
	r := newRepos(t)
	svc := NewFeedService(r.posts, r.follows)
	a := testutil.CreateUser(t, r.db, "alice")
	for i := 0; i < 12; i++ {
		testutil.CreatePost(t, r.db, a, "x.jpg")
	}

	first, hasMore, err := svc.Following(context.Background(), a.ID, Page{Page: 1})
	require.NoError(t, err)
	assert.Len(t, first, DefaultFeedPageSize)
	assert.True(t, hasMore)

	second, hasMore, err := svc.Following(context.Background(), a.ID, Page{Page: 2})
	require.NoError(t, err)
	assert.Len(t, second, 2)
	assert.False(t, hasMore)
	assert.Greater(t, first[len(first)-1].ID, second[0].ID)
}

func TestFeedService_ExploreIgnoresPrivacy(t *testing.T) {
	r := newRepos(t)
	svc := NewFeedService(r.posts, r.follows)
	viewer := testutil.CreateUser(t, r.db, "viewer")
	hidden := testutil.CreateUser(t, r.db, "hidden", func(u *models.User) { u.IsPrivate = true })
	open := testutil.CreateUser(t, r.db, "open")

	v1 := testutil.CreatePost(t, r.db, hidden, "one.mp4")
	testutil.CreatePost(t, r.db, open, "photo.jpg")
	v2 := testutil.CreatePost(t, r.db, open, "two.wmv")

	posts, _, err := svc.Explore(context.Background(), viewer.ID, Page{})
	require.NoError(t, err)
	assert.Equal(t, []uint{v2.ID, v1.ID}, postIDs(posts))
	for _, p := range posts {
		assert.Equal(t, models.MediaVideo, p.MediaType)
	}
}

func TestStoryService_VisibleGroupsActiveStories(t *testing.T) {
	r := newRepos(t)
	now := time.Now().UTC()
	svc := NewStoryService(r.stories, r.follows, r.users, nil, 0).WithClock(func() time.Time { return now })
	ctx := context.Background()
	a := testutil.CreateUser(t, r.db, "alice")
	b := testutil.CreateUser(t, r.db, "bob")
	c := testutil.CreateUser(t, r.db, "carol")
	testutil.Follow(t, r.db, a, b)

	testutil.CreateStory(t, r.db, b, now.Add(-time.Second))
	b1 := testutil.CreateStory(t, r.db, b, now.Add(time.Hour))
	b2 := testutil.CreateStory(t, r.db, b, now.Add(time.Hour))
	own := testutil.CreateStory(t, r.db, a, now.Add(time.Hour))
	testutil.CreateStory(t, r.db, c, now.Add(time.Hour))

	require.NoError(t, svc.MarkViewed(ctx, a.ID, b1.ID))
	require.NoError(t, svc.MarkViewed(ctx, a.ID, b1.ID))

	groups, err := svc.Visible(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, a.ID, groups[0].User.ID)
	require.Len(t, groups[0].Stories, 1)
	assert.Equal(t, own.ID, groups[0].Stories[0].ID)
	require.NotNil(t, groups[0].Stories[0].ViewCount)
	assert.Zero(t, *groups[0].Stories[0].ViewCount)

	assert.Equal(t, b.ID, groups[1].User.ID)
	assert.True(t, groups[1].IsFollowing)
	assert.False(t, groups[1].AllViewed)
	require.Len(t, groups[1].Stories, 2)
	assert.Equal(t, b2.ID, groups[1].Stories[0].ID)
	assert.False(t, groups[1].Stories[0].IsViewed)
	assert.True(t, groups[1].Stories[1].IsViewed)
	assert.Nil(t, groups[1].Stories[1].ViewCount)
	for _, g := range groups {
		for _, s := range g.Stories {
			assert.False(t, s.IsExpired(now))
		}
	}
}

func TestStoryService_CreateDefaultsExpiry(t *testing.T) {
	r := newRepos(t)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	var downscaled []string
	media := noopMedia()
	media.downscaleFn = func(_ context.Context, ref string, maxDim int) error {
		downscaled = append(downscaled, ref)
		assert.Equal(t, DefaultMediaMaxDimension, maxDim)
		return nil
	}
	svc := NewStoryService(r.stories, r.follows, r.users, media, 0).WithClock(func() time.Time { return now })
	a := testutil.CreateUser(t, r.db, "alice")

	s, err := svc.Create(context.Background(), a.ID, CreateStoryInput{Media: "stories/beach.JPG"})
	require.NoError(t, err)
	assert.Equal(t, models.MediaImage, s.MediaType)
	assert.Equal(t, now.Add(24*time.Hour), s.ExpiresAt)
	assert.Equal(t, []string{"stories/beach.JPG"}, downscaled)

	_, err = svc.Create(context.Background(), a.ID, CreateStoryInput{Media: "stories/archive.zip"})
	assertValidationError(t, err)

	past := now.Add(-time.Minute)
	_, err = svc.Create(context.Background(), a.ID, CreateStoryInput{Media: "x.mp4", ExpiresAt: &past})
	assertValidationError(t, err)
}

func TestStoryService_ExpiredStoryCannotBeViewed(t *testing.T) {
	r := newRepos(t)
	now := time.Now().UTC()
	svc := NewStoryService(r.stories, r.follows, r.users, nil, 0).WithClock(func() time.Time { return now })
	a := testutil.CreateUser(t, r.db, "alice")
	s := testutil.CreateStory(t, r.db, a, now.Add(-time.Minute))

	assertCode(t, svc.MarkViewed(context.Background(), a.ID, s.ID), models.CodeNotFound)
}

func TestStoryService_DeleteOwnerOnly(t *testing.T) {
	r := newRepos(t)
	svc := NewStoryService(r.stories, r.follows, r.users, nil, 0)
	a := testutil.CreateUser(t, r.db, "alice")
	b := testutil.CreateUser(t, r.db, "bob")
	s := testutil.CreateStory(t, r.db, a, time.Now().UTC().Add(time.Hour))

	assertCode(t, svc.Delete(context.Background(), b.ID, s.ID), models.CodeForbidden)
	require.NoError(t, svc.Delete(context.Background(), a.ID, s.ID))
}
