package repository

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"snapgram/internal/cache"
	"snapgram/internal/models"
	"snapgram/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	tests := []struct {
		name         string
		userID       uint
		mockBehavior func()
		wantUsername string
		wantCode     string
	}{
		{
			name:   "Success",
			userID: 1,
			mockBehavior: func() {
				rows := sqlmock.NewRows([]string{"id", "username", "email"}).
					AddRow(1, "jane", "jane@example.com")
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(1, 1).
					WillReturnRows(rows)
			},
			wantUsername: "jane",
		},
		{
			name:   "Not Found",
			userID: 99,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(99, 1).
					WillReturnError(gorm.ErrRecordNotFound)
			},
			wantCode: models.CodeNotFound,
		},
		{
			name:   "Driver Error",
			userID: 5,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users"`)).
					WillReturnError(assert.AnError)
			},
			wantCode: models.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			user, err := repo.GetByID(ctx, tt.userID)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, models.IsCode(err, tt.wantCode))
			} else if assert.NoError(t, err) {
				assert.Equal(t, tt.wantUsername, user.Username)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_CreateDuplicateIsConflict(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{Username: "jane", Email: "jane@example.com", Password: "x"}))
	err := repo.Create(ctx, &models.User{Username: "jane", Email: "other@example.com", Password: "x"})
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeConflict))
}

func TestUserRepository_LookupsAndSearch(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	jane := testutil.CreateUser(t, db, "jane_doe", func(u *models.User) { u.FullName = "Jane Doe" })
	testutil.CreateUser(t, db, "johnny", func(u *models.User) { u.FullName = "John Smith" })
	testutil.CreateUser(t, db, "percent", func(u *models.User) { u.FullName = "100% Real" })

	u, err := repo.GetByUsername(ctx, "JANE_DOE")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "jane_doe", u.Username)

	u, err = repo.GetByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, u)

	u, err = repo.GetByLogin(ctx, "Johnny@Example.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "johnny", u.Username)

	found, err := repo.Search(ctx, "doe", 0, 20)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "jane_doe", found[0].Username)

	found, err = repo.Search(ctx, "doe", jane.ID, 20)
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = repo.Search(ctx, "SMITH", 0, 20)
	require.NoError(t, err)
	require.Len(t, found, 1)

	// Wildcards in the query are literal.
	found, err = repo.Search(ctx, "%", 0, 20)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "percent", found[0].Username)

	found, err = repo.Search(ctx, "j", 0, 1)
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestUserRepository_SetFlag(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "jane")

	require.NoError(t, repo.SetFlag(ctx, u.ID, "is_verified", true))
	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsVerified)

	assert.True(t, models.IsCode(repo.SetFlag(ctx, 999, "is_admin", true), models.CodeNotFound))
	assert.True(t, models.IsCode(repo.SetFlag(ctx, u.ID, "password", true), models.CodeValidation))
}

func TestFollowRepository_ToggleRoundTrip(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "alice")
	b := testutil.CreateUser(t, db, "bob")

	before, err := repo.CountFollowers(ctx, b.ID)
	require.NoError(t, err)

	following, created, err := repo.Toggle(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, following)
	assert.True(t, created)

	ok, err := repo.Exists(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	n, _ := repo.CountFollowing(ctx, a.ID)
	assert.Equal(t, int64(1), n)

	following, created, err = repo.Toggle(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, following)
	assert.False(t, created)

	after, err := repo.CountFollowers(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestFollowRepository_ListsAndMembership(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "alice")
	b := testutil.CreateUser(t, db, "bob")
	c := testutil.CreateUser(t, db, "carol")
	testutil.Follow(t, db, a, b)
	testutil.Follow(t, db, c, b)

	ids, err := repo.FollowingIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{b.ID}, ids)

	followers, err := repo.ListFollowers(ctx, b.ID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, followers, 2)

	following, err := repo.ListFollowing(ctx, a.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, "bob", following[0].Username)
}

func TestInteractionRepository_LikeToggleIsIdentityOnCount(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewInteractionRepository(db)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "owner")
	fan := testutil.CreateUser(t, db, "fan")
	p := testutil.CreatePost(t, db, owner, "a.jpg")

	start, err := repo.CountLikes(ctx, p.ID)
	require.NoError(t, err)

	liked, created, err := repo.ToggleLike(ctx, fan.ID, p.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.True(t, created)
	n, _ := repo.CountLikes(ctx, p.ID)
	assert.Equal(t, start+1, n)

	liked, _, err = repo.ToggleLike(ctx, fan.ID, p.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	n, _ = repo.CountLikes(ctx, p.ID)
	assert.Equal(t, start, n)
}

func TestInteractionRepository_SaveToggle(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewInteractionRepository(db)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "owner")
	p := testutil.CreatePost(t, db, owner, "a.jpg")

	saved, _, err := repo.ToggleSave(ctx, owner.ID, p.ID)
	require.NoError(t, err)
	assert.True(t, saved)
	assert.Equal(t, int64(1), countRows(t, db, &models.Save{}))

	saved, _, err = repo.ToggleSave(ctx, owner.ID, p.ID)
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Zero(t, countRows(t, db, &models.Save{}))
}

func TestInteractionRepository_ConcurrentTogglesNeverDuplicate(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewInteractionRepository(db)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "owner")
	fan := testutil.CreateUser(t, db, "fan")
	p := testutil.CreatePost(t, db, owner, "a.jpg")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := repo.ToggleLike(ctx, fan.ID, p.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var rows int64
	require.NoError(t, db.Model(&models.Like{}).Where("user_id = ? AND post_id = ?", fan.ID, p.ID).Count(&rows).Error)
	assert.LessOrEqual(t, rows, int64(1))
}

func TestInsertFact_DuplicateIsNoop(t *testing.T) {
	db := testutil.NewTestDB(t)
	owner := testutil.CreateUser(t, db, "owner")
	s := testutil.CreateStory(t, db, owner, time.Now().Add(time.Hour))

	inserted, err := insertFact(db, &models.StoryView{StoryID: s.ID, UserID: owner.ID})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = insertFact(db, &models.StoryView{StoryID: s.ID, UserID: owner.ID})
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestIsUniqueConstraintError(t *testing.T) {
	assert.True(t, isUniqueConstraintError(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueConstraintError(assertErr(`ERROR: duplicate key value violates unique constraint "idx_like_user_post" (SQLSTATE 23505)`)))
	assert.True(t, isUniqueConstraintError(assertErr("UNIQUE constraint failed: likes.user_id, likes.post_id")))
	assert.False(t, isUniqueConstraintError(assertErr("connection refused")))
	assert.False(t, isUniqueConstraintError(nil))
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestUserRepository_GetByUsernameCachesID(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	jane := testutil.CreateUser(t, db, "jane")

	u, err := repo.GetByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, u)
	assert.False(t, mr.Exists(cache.UsernameKey("nobody")))

	u, err = repo.GetByUsername(ctx, "JANE")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, jane.ID, u.ID)
	assert.True(t, mr.Exists(cache.UsernameKey("jane")))
	assert.True(t, mr.Exists(cache.UserKey(jane.ID)))

	u.Bio = "updated"
	require.NoError(t, repo.Update(ctx, u))
	assert.False(t, mr.Exists(cache.UsernameKey("jane")))

	u, err = repo.GetByUsername(ctx, "jane")
	require.NoError(t, err)
	assert.Equal(t, "updated", u.Bio)

	// A stale mapping to a vanished row resolves to no user.
	require.NoError(t, mr.Set(cache.UsernameKey("ghost"), "9999"))
	u, err = repo.GetByUsername(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, u)
	assert.False(t, mr.Exists(cache.UsernameKey("ghost")))
}
