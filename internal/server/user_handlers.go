package server

import (
	"snapgram/internal/models"
	"snapgram/internal/service"

	"github.com/gofiber/fiber/v2"
)

type updateProfileRequest struct {
	FullName  *string `json:"full_name" validate:"omitempty,max=100"`
	Bio       *string `json:"bio" validate:"omitempty,max=150"`
	Website   *string `json:"website" validate:"omitempty,max=200"`
	Phone     *string `json:"phone" validate:"omitempty,max=20"`
	IsPrivate *bool   `json:"is_private"`
}

// GetProfile handles GET /api/users/:username
// @Summary User profile
// @Description Profile with counts, the viewer's relation and the first page of posts
// @Tags users
// @Security BearerAuth
// @Produce json
// @Param username path string true "Username"
// @Param per_page query int false "Posts per page"
// @Success 200 {object} object{user=models.UserProfile,posts=[]models.Post,has_more=bool}
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{username} [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	viewerID := actorID(c)
	profile, err := s.users.Profile(c.UserContext(), viewerID, c.Params("username"))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	page := parsePage(c, service.DefaultFeedPageSize)
	page.Page = 1
	posts, hasMore, err := s.posts.ByOwner(c.UserContext(), viewerID, profile.ID, page)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(fiber.Map{
		"user":     profile,
		"posts":    posts,
		"has_more": hasMore,
	})
}

// GetUserPosts handles GET /api/users/:username/posts
// @Summary Posts by user
// @Tags users
// @Security BearerAuth
// @Produce json
// @Param username path string true "Username"
// @Param page query int false "Page"
// @Param per_page query int false "Per page"
// @Success 200 {object} object{posts=[]models.Post,page=int,has_more=bool}
// @Router /users/{username}/posts [get]
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	owner, err := s.users.Lookup(c.UserContext(), c.Params("username"))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	page := parsePage(c, service.DefaultFeedPageSize)
	posts, hasMore, err := s.posts.ByOwner(c.UserContext(), actorID(c), owner.ID, page)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(postPage(posts, page, hasMore))
}

// GetFollowers handles GET /api/users/:username/followers
// @Summary Followers of a user
// @Tags users
// @Security BearerAuth
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} object{users=[]models.User}
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{username}/followers [get]
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	users, err := s.follows.Followers(c.UserContext(), c.Params("username"), parsePage(c, service.DefaultExplorePageSize))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"users": publicUsers(users)})
}

// GetFollowing handles GET /api/users/:username/following
// @Summary Users a user follows
// @Tags users
// @Security BearerAuth
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} object{users=[]models.User}
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{username}/following [get]
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	users, err := s.follows.Following(c.UserContext(), c.Params("username"), parsePage(c, service.DefaultExplorePageSize))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"users": publicUsers(users)})
}

// ToggleFollow handles POST /api/users/:id/follow
// @Summary Follow or unfollow a user
// @Tags users
// @Security BearerAuth
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.FollowResult
// @Failure 404 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /users/{id}/follow [post]
func (s *Server) ToggleFollow(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	result, err := s.follows.Toggle(c.UserContext(), actorID(c), targetID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(result)
}

// UpdateProfile handles PUT /api/profile
// @Summary Update own profile
// @Tags users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body updateProfileRequest true "Fields to change"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /profile [put]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var req updateProfileRequest
	if err := bindBody(c, &req); err != nil {
		return nil
	}
	user, err := s.users.UpdateProfile(c.UserContext(), actorID(c), service.UpdateProfileInput{
		FullName:  req.FullName,
		Bio:       req.Bio,
		Website:   req.Website,
		Phone:     req.Phone,
		IsPrivate: req.IsPrivate,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}

// UpdateAvatar handles POST /api/profile/avatar
// @Summary Upload a profile picture
// @Description The image is resized to fit the avatar bounds
// @Tags users
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param avatar formData file true "Image"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Router /profile/avatar [post]
func (s *Server) UpdateAvatar(c *fiber.Ctx) error {
	fh := formFile(c, "avatar")
	if fh == nil {
		return models.RespondWithAppError(c, models.NewValidationError("avatar file is required"))
	}
	content, err := readUpload(fh, s.config.MaxUploadBytes())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	user, err := s.users.UpdateAvatar(c.UserContext(), actorID(c), fh.Filename, content)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}

// SearchUsers handles GET /api/search?q=
// @Summary Search users
// @Description Case-insensitive substring match on username or full name
// @Tags users
// @Security BearerAuth
// @Produce json
// @Param q query string true "Query"
// @Success 200 {object} object{users=[]models.User}
// @Router /search [get]
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	users, err := s.users.Search(c.UserContext(), actorID(c), c.Query("q"))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"users": users})
}
