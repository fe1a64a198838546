package repository

import (
	"context"

	"snapgram/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository persists directed follow edges.
type FollowRepository interface {
	// Toggle removes the edge if present, otherwise inserts it. created is
	// true only when this call inserted the row.
	Toggle(ctx context.Context, followerID, followedID uint) (following bool, created bool, err error)
	Exists(ctx context.Context, followerID, followedID uint) (bool, error)
	CountFollowers(ctx context.Context, userID uint) (int64, error)
	CountFollowing(ctx context.Context, userID uint) (int64, error)
	FollowingIDs(ctx context.Context, userID uint) ([]uint, error)
	ListFollowers(ctx context.Context, userID uint, limit, offset int) ([]models.User, error)
	ListFollowing(ctx context.Context, userID uint, limit, offset int) ([]models.User, error)
}

type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository creates a new FollowRepository.
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Toggle(ctx context.Context, followerID, followedID uint) (bool, bool, error) {
	return toggleFact(r.db.WithContext(ctx),
		&models.Follow{FollowerID: followerID, FollowedID: followedID},
		"follower_id = ? AND followed_id = ?", followerID, followedID,
	)
}

func (r *followRepository) Exists(ctx context.Context, followerID, followedID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *followRepository) CountFollowers(ctx context.Context, userID uint) (int64, error) {
	return r.count(ctx, "followed_id = ?", userID)
}

func (r *followRepository) CountFollowing(ctx context.Context, userID uint) (int64, error) {
	return r.count(ctx, "follower_id = ?", userID)
}

func (r *followRepository) count(ctx context.Context, where string, userID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).Where(where, userID).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

func (r *followRepository) FollowingIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", userID).
		Pluck("followed_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *followRepository) ListFollowers(ctx context.Context, userID uint, limit, offset int) ([]models.User, error) {
	return r.listUsers(ctx, "follows.follower_id", "follows.followed_id = ?", userID, limit, offset)
}

func (r *followRepository) ListFollowing(ctx context.Context, userID uint, limit, offset int) ([]models.User, error) {
	return r.listUsers(ctx, "follows.followed_id", "follows.follower_id = ?", userID, limit, offset)
}

func (r *followRepository) listUsers(ctx context.Context, joinCol, where string, userID uint, limit, offset int) ([]models.User, error) {
	var users []models.User
	err := readDB(r.db).WithContext(ctx).
		Joins("JOIN follows ON users.id = "+joinCol).
		Where(where, userID).
		Order("follows.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// toggleFact flips a unique (actor, target) row. The delete runs first; if
// nothing was removed an insert is attempted with ON CONFLICT DO NOTHING, so
// a concurrent duplicate insert resolves to "already present" rather than an
// error.
func toggleFact(db *gorm.DB, row interface{}, where string, args ...interface{}) (on bool, created bool, err error) {
	err = db.Transaction(func(tx *gorm.DB) error {
		del := tx.Where(where, args...).Delete(row)
		if del.Error != nil {
			return del.Error
		}
		if del.RowsAffected > 0 {
			on = false
			return nil
		}
		ins := tx.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(row)
		if ins.Error != nil {
			if isUniqueConstraintError(ins.Error) {
				on = true
				return nil
			}
			return ins.Error
		}
		on = true
		created = ins.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, false, models.NewInternalError(err)
	}
	return on, created, nil
}

// insertFact inserts a unique row if absent and reports whether it did.
func insertFact(db *gorm.DB, row interface{}) (bool, error) {
	res := db.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(row)
	if res.Error != nil {
		if isUniqueConstraintError(res.Error) {
			return false, nil
		}
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}
