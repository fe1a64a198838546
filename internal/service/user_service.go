package service

import (
	"context"
	"net/url"
	"strings"

	"snapgram/internal/models"
	"snapgram/internal/repository"
	"snapgram/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const (
	maxBioLen      = 150
	maxFullNameLen = 100
	maxWebsiteLen  = 200
)

// UserService covers accounts, profiles and search.
type UserService struct {
	users     repository.UserRepository
	follows   repository.FollowRepository
	posts     repository.PostRepository
	media     MediaProcessor
	avatarDim int
	// bcryptCost is lowered in tests.
	bcryptCost int
}

type SignupInput struct {
	Username string
	Email    string
	Password string
	FullName string
}

type UpdateProfileInput struct {
	FullName  *string
	Bio       *string
	Website   *string
	Phone     *string
	IsPrivate *bool
}

func NewUserService(
	users repository.UserRepository,
	follows repository.FollowRepository,
	posts repository.PostRepository,
	media MediaProcessor,
	avatarDim int,
) *UserService {
	if avatarDim <= 0 {
		avatarDim = DefaultAvatarMaxDimension
	}
	return &UserService{
		users:      users,
		follows:    follows,
		posts:      posts,
		media:      media,
		avatarDim:  avatarDim,
		bcryptCost: bcrypt.DefaultCost,
	}
}

// Signup registers a new account. Usernames are stored lowercased.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	username := validation.NormalizeUsername(in.Username)
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, models.NewValidationError("email is required")
	}
	if len([]rune(in.FullName)) > maxFullNameLen {
		return nil, models.NewValidationError("Full name too long (max 100 characters)")
	}

	if existing, err := s.users.GetByUsername(ctx, username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, models.NewConflictError("Username is already taken")
	}
	if existing, err := s.users.GetByEmail(ctx, email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, models.NewConflictError("Email is already registered")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{
		Username: username,
		Email:    email,
		Password: string(hashed),
		FullName: strings.TrimSpace(in.FullName),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks a username-or-email and password pair.
func (s *UserService) Authenticate(ctx context.Context, identifier, password string) (*models.User, error) {
	if strings.TrimSpace(identifier) == "" || password == "" {
		return nil, models.NewValidationError("Username and password are required")
	}
	user, err := s.users.GetByLogin(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// Lookup resolves username to its account.
func (s *UserService) Lookup(ctx context.Context, username string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", username)
	}
	return user, nil
}

// Profile returns username's profile with counts and the viewer's relation.
func (s *UserService) Profile(ctx context.Context, viewerID uint, username string) (*models.UserProfile, error) {
	user, err := s.Lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	profile := &models.UserProfile{User: *user, IsSelf: user.ID == viewerID}
	if !profile.IsSelf {
		profile.User = user.Public()
	}
	if profile.PostsCount, err = s.posts.CountByUser(ctx, user.ID); err != nil {
		return nil, err
	}
	if profile.FollowersCount, err = s.follows.CountFollowers(ctx, user.ID); err != nil {
		return nil, err
	}
	if profile.FollowingCount, err = s.follows.CountFollowing(ctx, user.ID); err != nil {
		return nil, err
	}
	if viewerID != 0 && !profile.IsSelf {
		if profile.IsFollowing, err = s.follows.Exists(ctx, viewerID, user.ID); err != nil {
			return nil, err
		}
	}
	return profile, nil
}

// UpdateProfile applies the non-nil fields of in to actorID's account.
func (s *UserService) UpdateProfile(ctx context.Context, actorID uint, in UpdateProfileInput) (*models.User, error) {
	user, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if in.FullName != nil {
		if len([]rune(*in.FullName)) > maxFullNameLen {
			return nil, models.NewValidationError("Full name too long (max 100 characters)")
		}
		user.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.Bio != nil {
		if len([]rune(*in.Bio)) > maxBioLen {
			return nil, models.NewValidationError("Bio too long (max 150 characters)")
		}
		user.Bio = *in.Bio
	}
	if in.Website != nil {
		site := strings.TrimSpace(*in.Website)
		if site != "" {
			if len(site) > maxWebsiteLen {
				return nil, models.NewValidationError("Website too long (max 200 characters)")
			}
			if u, err := url.ParseRequestURI(site); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
				return nil, models.NewValidationError("website must be a valid URL")
			}
		}
		user.Website = site
	}
	if in.Phone != nil {
		phone := strings.TrimSpace(*in.Phone)
		if phone == "" {
			user.Phone = nil
		} else {
			user.Phone = &phone
		}
	}
	if in.IsPrivate != nil {
		user.IsPrivate = *in.IsPrivate
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateAvatar stores a new avatar image and shrinks it to the avatar size.
// The new file is removed if anything after the store fails, and the
// replaced avatar is removed once the account points at the new one.
func (s *UserService) UpdateAvatar(ctx context.Context, actorID uint, filename string, content []byte) (*models.User, error) {
	if mt, err := models.DeriveMediaType(filename); err != nil {
		return nil, err
	} else if mt != models.MediaImage {
		return nil, models.NewValidationError("Avatar must be an image")
	}
	if s.media == nil {
		return nil, models.NewInternalError(errNoMediaStore)
	}
	user, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	ref, err := s.media.Store(ctx, MediaKindAvatar, filename, content)
	if err != nil {
		return nil, err
	}
	if err := s.media.Downscale(ctx, ref, s.avatarDim); err != nil {
		s.media.Remove(ref)
		return nil, err
	}
	previous := user.Avatar
	user.Avatar = ref
	if err := s.users.Update(ctx, user); err != nil {
		s.media.Remove(ref)
		return nil, err
	}
	if previous != "" && previous != ref {
		s.media.Remove(previous)
	}
	return user, nil
}

// Search matches username or full name. A blank query returns nothing and
// the searching user never appears in their own results.
func (s *UserService) Search(ctx context.Context, actorID uint, query string) ([]models.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.User{}, nil
	}
	users, err := s.users.Search(ctx, query, actorID, SearchLimit)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i] = users[i].Public()
	}
	return users, nil
}

// SetAdmin grants or revokes admin rights.
func (s *UserService) SetAdmin(ctx context.Context, targetID uint, isAdmin bool) error {
	return s.users.SetFlag(ctx, targetID, "is_admin", isAdmin)
}

// SetVerified toggles the verified badge.
func (s *UserService) SetVerified(ctx context.Context, targetID uint, verified bool) error {
	return s.users.SetFlag(ctx, targetID, "is_verified", verified)
}

// VerifyAs lets admin actorID set the verified badge on targetID.
func (s *UserService) VerifyAs(ctx context.Context, actorID, targetID uint, verified bool) (*models.User, error) {
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin {
		return nil, models.NewForbiddenError("Admin access required")
	}
	if err := s.SetVerified(ctx, targetID, verified); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, targetID)
}

func (s *UserService) ListAdmins(ctx context.Context) ([]models.User, error) {
	return s.users.ListAdmins(ctx)
}
