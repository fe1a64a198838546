package service

import (
	"context"
	"errors"
	"testing"

	"snapgram/internal/models"
	"snapgram/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowService_SelfFollowIsInvalid(t *testing.T) {
	r := newRepos(t)
	notifier := &notifierStub{}
	svc := NewFollowService(r.follows, r.users, notifier)
	a := testutil.CreateUser(t, r.db, "alice")

	for i := 0; i < 2; i++ {
		_, err := svc.Toggle(context.Background(), a.ID, a.ID)
		assertCode(t, err, models.CodeInvalidOperation)
	}
	assert.Empty(t, notifier.Calls())
}

func TestFollowService_UnknownTarget(t *testing.T) {
	r := newRepos(t)
	svc := NewFollowService(r.follows, r.users, &notifierStub{})
	a := testutil.CreateUser(t, r.db, "alice")

	_, err := svc.Toggle(context.Background(), a.ID, 999)
	assertCode(t, err, models.CodeNotFound)
}

func TestFollowService_ToggleTwiceRestoresCountAndNotifiesOnce(t *testing.T) {
	r := newRepos(t)
	notifier := &notifierStub{}
	svc := NewFollowService(r.follows, r.users, notifier)
	ctx := context.Background()
	a := testutil.CreateUser(t, r.db, "alice")
	b := testutil.CreateUser(t, r.db, "bob")

	before, err := svc.FollowersCount(ctx, b.ID)
	require.NoError(t, err)

	res, err := svc.Toggle(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, res.Following)
	assert.Equal(t, before+1, res.FollowersCount)

	following, err := svc.IsFollowing(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, following)

	res, err = svc.Toggle(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, res.Following)
	assert.Equal(t, before, res.FollowersCount)

	calls := notifier.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, b.ID, calls[0].RecipientID)
	assert.Equal(t, models.NotificationFollow, calls[0].Type)
	assert.Equal(t, "alice started following you", calls[0].Text)
	assert.Nil(t, calls[0].PostID)
}

func TestFollowService_ListsByUsername(t *testing.T) {
	r := newRepos(t)
	svc := NewFollowService(r.follows, r.users, nil)
	ctx := context.Background()
	a := testutil.CreateUser(t, r.db, "alice")
	b := testutil.CreateUser(t, r.db, "bob")
	testutil.Follow(t, r.db, a, b)

	followers, err := svc.Followers(ctx, "bob", Page{})
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, "alice", followers[0].Username)

	following, err := svc.Following(ctx, "alice", Page{})
	require.NoError(t, err)
	require.Len(t, following, 1)

	_, err = svc.Followers(ctx, "ghost", Page{})
	assertCode(t, err, models.CodeNotFound)

	n, err := svc.FollowingCount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestFollowService_NotifyFailureKeepsCommittedFollow(t *testing.T) {
	r := newRepos(t)
	notifier := &notifierStub{notifyFn: func(context.Context, NotifyInput) (*models.Notification, error) {
		return nil, errors.New("insert failed")
	}}
	svc := NewFollowService(r.follows, r.users, notifier)
	ctx := context.Background()
	a := testutil.CreateUser(t, r.db, "alice")
	b := testutil.CreateUser(t, r.db, "bob")

	res, err := svc.Toggle(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, res.Following)
	assert.Equal(t, int64(1), res.FollowersCount)
	assert.Len(t, notifier.Calls(), 1)

	following, err := svc.IsFollowing(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, following)
}
