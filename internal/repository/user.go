package repository

import (
	"context"
	"errors"
	"strings"

	"snapgram/internal/cache"
	"snapgram/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByLogin(ctx context.Context, identifier string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Search(ctx context.Context, query string, excludeID uint, limit int) ([]models.User, error)
	SetFlag(ctx context.Context, id uint, column string, value bool) error
	ListAdmins(ctx context.Context) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// GetByID is cache-aside. Cached copies omit the password hash, so
// credential checks must use GetByLogin.
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, func() error {
		if err := readDB(r.db).WithContext(ctx).First(&user, id).Error; err != nil {
			return lookupError(err, "User", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []models.User
	if err := readDB(r.db).WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "LOWER(email) = ?", strings.ToLower(email))
}

var errNoSuchUsername = errors.New("no such username")

// GetByUsername caches the username to ID mapping and resolves the record
// through GetByID. Misses are not cached so a fresh signup is found at once.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var id uint
	err := cache.Aside(ctx, cache.UsernameKey(username), &id, cache.UserTTL, func() error {
		user, err := r.findOne(ctx, "LOWER(username) = ?", strings.ToLower(username))
		if err != nil {
			return err
		}
		if user == nil {
			return errNoSuchUsername
		}
		id = user.ID
		return nil
	})
	if errors.Is(err, errNoSuchUsername) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	user, err := r.GetByID(ctx, id)
	if models.IsCode(err, models.CodeNotFound) {
		cache.Invalidate(ctx, cache.UsernameKey(username))
		return nil, nil
	}
	return user, err
}

// GetByLogin resolves a username or email, reading from the primary so a
// just-registered account can sign in.
func (r *userRepository) GetByLogin(ctx context.Context, identifier string) (*models.User, error) {
	id := strings.ToLower(strings.TrimSpace(identifier))
	var user models.User
	err := r.db.WithContext(ctx).
		Where("LOWER(username) = ? OR LOWER(email) = ?", id, id).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// findOne returns nil, nil when no row matches.
func (r *userRepository) findOne(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	var user models.User
	if err := readDB(r.db).WithContext(ctx).Where(where, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("username, email or phone already in use")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// Update saves profile fields. The password hash is never written here since
// user may come from the cache without it.
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Omit("password", "created_at").Save(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("username, email or phone already in use")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, user.ID, user.Username)
	return nil
}

// Search matches username or full name, case-insensitively. excludeID is
// left out of the results; zero excludes nobody.
func (r *userRepository) Search(ctx context.Context, query string, excludeID uint, limit int) ([]models.User, error) {
	pattern := containsPattern(query)
	var users []models.User
	err := readDB(r.db).WithContext(ctx).
		Where(`(LOWER(username) LIKE ? ESCAPE '\' OR LOWER(full_name) LIKE ? ESCAPE '\')`, pattern, pattern).
		Where("id <> ?", excludeID).
		Order("is_verified DESC, username ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

var userFlagColumns = map[string]struct{}{
	"is_verified": {},
	"is_admin":    {},
	"is_private":  {},
}

// SetFlag updates one boolean account flag.
func (r *userRepository) SetFlag(ctx context.Context, id uint, column string, value bool) error {
	if _, ok := userFlagColumns[column]; !ok {
		return models.NewValidationError("unknown user flag " + column)
	}
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	cache.Invalidate(ctx, cache.UserKey(id))
	return nil
}

func (r *userRepository) ListAdmins(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Where("is_admin = ?", true).Order("id").Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}
