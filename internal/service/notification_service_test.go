package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"snapgram/internal/cache"
	"snapgram/internal/models"
	"snapgram/internal/observability"
	"snapgram/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestNotificationService_NotifyPublishesEvent(t *testing.T) {
	r := newRepos(t)
	var gotUser uint
	var gotPayload string
	pub := &publisherStub{publishFn: func(_ context.Context, userID uint, payload string) error {
		gotUser, gotPayload = userID, payload
		return nil
	}}
	svc := NewNotificationService(r.notifications, pub)
	a := testutil.CreateUser(t, r.db, "alice")
	b := testutil.CreateUser(t, r.db, "bob")

	n, err := svc.Notify(context.Background(), NotifyInput{
		RecipientID: b.ID,
		Sender:      *a,
		Type:        models.NotificationFollow,
		Text:        "alice started following you",
	})
	require.NoError(t, err)
	assert.NotZero(t, n.ID)
	assert.Equal(t, b.ID, gotUser)

	var event struct {
		Type    string              `json:"type"`
		Payload models.Notification `json:"payload"`
	}
	require.NoError(t, json.Unmarshal([]byte(gotPayload), &event))
	assert.Equal(t, "new_notification", event.Type)
	assert.Equal(t, n.ID, event.Payload.ID)
	assert.Equal(t, "alice", event.Payload.Sender.Username)
	assert.Empty(t, event.Payload.Sender.Email)
}

func TestNotificationService_PublishFailureKeepsRow(t *testing.T) {
	r := newRepos(t)
	pub := &publisherStub{publishFn: func(context.Context, uint, string) error {
		return errors.New("redis down")
	}}
	svc := NewNotificationService(r.notifications, pub)
	a := testutil.CreateUser(t, r.db, "alice")
	b := testutil.CreateUser(t, r.db, "bob")

	before := promtestutil.ToFloat64(observability.LivePushFailures)
	_, err := svc.Notify(context.Background(), NotifyInput{RecipientID: b.ID, Sender: *a, Type: models.NotificationLike, Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, before+1, promtestutil.ToFloat64(observability.LivePushFailures))

	items, unread, err := svc.List(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int64(1), unread)
}

func TestNotificationService_MarkAllReadIsPerUser(t *testing.T) {
	r := newRepos(t)
	svc := NewNotificationService(r.notifications, nil)
	ctx := context.Background()
	a := testutil.CreateUser(t, r.db, "alice")
	b := testutil.CreateUser(t, r.db, "bob")

	for i := 0; i < 2; i++ {
		_, err := svc.Notify(ctx, NotifyInput{RecipientID: a.ID, Sender: *b, Type: models.NotificationLike, Text: "like"})
		require.NoError(t, err)
	}
	other, err := svc.Notify(ctx, NotifyInput{RecipientID: b.ID, Sender: *a, Type: models.NotificationLike, Text: "like"})
	require.NoError(t, err)

	changed, err := svc.MarkAllRead(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)

	_, unread, err := svc.List(ctx, a.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)
	_, unread, err = svc.List(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	assertCode(t, svc.MarkRead(ctx, a.ID, other.ID), models.CodeNotFound)
	require.NoError(t, svc.MarkRead(ctx, b.ID, other.ID))
}

func TestNotificationService_UnreadCountIsCached(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	r := newRepos(t)
	svc := NewNotificationService(r.notifications, nil)
	ctx := context.Background()
	a := testutil.CreateUser(t, r.db, "alice")
	b := testutil.CreateUser(t, r.db, "bob")

	first, err := svc.Notify(ctx, NotifyInput{RecipientID: a.ID, Sender: *b, Type: models.NotificationLike, Text: "like"})
	require.NoError(t, err)
	_, unread, err := svc.List(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
	cached, err := mr.Get(cache.UnreadKey(a.ID))
	require.NoError(t, err)
	assert.Equal(t, "1", cached)

	// A row written behind the service's back is not seen until invalidation.
	require.NoError(t, r.notifications.Create(ctx, &models.Notification{
		RecipientID: a.ID, SenderID: b.ID, Type: models.NotificationComment, Text: "hi",
	}))
	_, unread, err = svc.List(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	require.NoError(t, svc.MarkRead(ctx, a.ID, first.ID))
	assert.False(t, mr.Exists(cache.UnreadKey(a.ID)))
	_, unread, err = svc.List(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	_, err = svc.Notify(ctx, NotifyInput{RecipientID: a.ID, Sender: *b, Type: models.NotificationFollow, Text: "follow"})
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.UnreadKey(a.ID)))
	_, unread, err = svc.List(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	_, err = svc.MarkAllRead(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.UnreadKey(a.ID)))
	_, unread, err = svc.List(ctx, a.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)
}
