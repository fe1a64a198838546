package server

import (
	"snapgram/internal/models"
	"snapgram/internal/service"

	"github.com/gofiber/fiber/v2"
)

// createPostRequest is accepted as JSON or as multipart form fields next to
// a "media" file part.
type createPostRequest struct {
	Caption  string `json:"caption" form:"caption" validate:"max=2200"`
	Hashtags string `json:"hashtags" form:"hashtags" validate:"max=500"`
	Location string `json:"location" form:"location" validate:"max=100"`
	Media    string `json:"media" form:"media"`
}

type updatePostRequest struct {
	Caption  *string `json:"caption" validate:"omitempty,max=2200"`
	Hashtags *string `json:"hashtags" validate:"omitempty,max=500"`
	Location *string `json:"location" validate:"omitempty,max=100"`
}

type createCommentRequest struct {
	Content string `json:"content" validate:"notblank,max=2200"`
}

type postPageResponse struct {
	Posts   []*models.Post `json:"posts"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
	HasMore bool           `json:"has_more"`
}

func postPage(posts []*models.Post, page service.Page, hasMore bool) postPageResponse {
	if posts == nil {
		posts = []*models.Post{}
	}
	return postPageResponse{Posts: posts, Page: page.Page, PerPage: page.PerPage, HasMore: hasMore}
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Description Upload a file in the "media" part or pass a media reference in JSON
// @Tags posts
// @Security BearerAuth
// @Accept json,multipart/form-data
// @Produce json
// @Param media formData file false "Image or video"
// @Param caption formData string false "Caption"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := bindBody(c, &req); err != nil {
		return nil
	}

	ref, uploaded, err := s.storeUpload(c, service.MediaKindPost, req.Media)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	post, err := s.posts.Create(c.UserContext(), actorID(c), service.CreatePostInput{
		Caption:  req.Caption,
		Hashtags: req.Hashtags,
		Location: req.Location,
		Media:    ref,
	})
	if err != nil {
		if uploaded {
			s.media.Remove(ref)
		}
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// storeUpload saves the multipart "media" file when present and returns its
// reference; otherwise fallback is returned unchanged.
func (s *Server) storeUpload(c *fiber.Ctx, kind, fallback string) (string, bool, error) {
	fh := formFile(c, "media")
	if fh == nil {
		return fallback, false, nil
	}
	content, err := readUpload(fh, s.config.MaxUploadBytes())
	if err != nil {
		return "", false, err
	}
	ref, err := s.media.Store(c.UserContext(), kind, fh.Filename, content)
	if err != nil {
		return "", false, err
	}
	return ref, true, nil
}

// GetFeed handles GET /api/posts
// @Summary Following feed
// @Description Posts by the caller and the accounts they follow, newest first
// @Tags posts
// @Security BearerAuth
// @Produce json
// @Param page query int false "Page"
// @Param per_page query int false "Per page (default 10)"
// @Success 200 {object} postPageResponse
// @Router /posts [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	page := parsePage(c, service.DefaultFeedPageSize)
	posts, hasMore, err := s.feed.Following(c.UserContext(), actorID(c), page)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(postPage(posts, page, hasMore))
}

// GetExplore handles GET /api/posts/explore
// @Summary Explore feed
// @Description Video posts from everyone, newest first
// @Tags posts
// @Security BearerAuth
// @Produce json
// @Param page query int false "Page"
// @Param per_page query int false "Per page (default 20)"
// @Success 200 {object} postPageResponse
// @Router /posts/explore [get]
func (s *Server) GetExplore(c *fiber.Ctx) error {
	page := parsePage(c, service.DefaultExplorePageSize)
	posts, hasMore, err := s.feed.Explore(c.UserContext(), actorID(c), page)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(postPage(posts, page, hasMore))
}

// GetSaved handles GET /api/posts/saved
// @Summary Saved posts
// @Tags posts
// @Security BearerAuth
// @Produce json
// @Success 200 {object} postPageResponse
// @Router /posts/saved [get]
func (s *Server) GetSaved(c *fiber.Ctx) error {
	page := parsePage(c, service.DefaultFeedPageSize)
	posts, hasMore, err := s.posts.Saved(c.UserContext(), actorID(c), page)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(postPage(posts, page, hasMore))
}

// GetPost handles GET /api/posts/:id
// @Summary Get a post
// @Tags posts
// @Security BearerAuth
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.posts.Get(c.UserContext(), actorID(c), postID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(post)
}

// UpdatePost handles PUT /api/posts/:id
// @Summary Edit a post
// @Description Only caption, hashtags and location are editable
// @Tags posts
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param request body updatePostRequest true "Fields to change"
// @Success 200 {object} models.Post
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req updatePostRequest
	if err := bindBody(c, &req); err != nil {
		return nil
	}
	post, err := s.posts.Update(c.UserContext(), actorID(c), postID, service.UpdatePostInput{
		Caption:  req.Caption,
		Hashtags: req.Hashtags,
		Location: req.Location,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete a post
// @Tags posts
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.posts.Delete(c.UserContext(), actorID(c), postID); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ToggleLike handles POST /api/posts/:id/like
// @Summary Like or unlike a post
// @Tags posts
// @Security BearerAuth
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.LikeResult
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/like [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	result, err := s.interactions.ToggleLike(c.UserContext(), actorID(c), postID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(result)
}

// ToggleSave handles POST /api/posts/:id/save
// @Summary Save or unsave a post
// @Tags posts
// @Security BearerAuth
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.SaveResult
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/save [post]
func (s *Server) ToggleSave(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	result, err := s.interactions.ToggleSave(c.UserContext(), actorID(c), postID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(result)
}

// GetComments handles GET /api/posts/:id/comments
// @Summary Comments on a post
// @Tags comments
// @Security BearerAuth
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} object{comments=[]models.Comment,page=int,has_more=bool}
// @Router /posts/{id}/comments [get]
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePage(c, service.DefaultCommentPerPage)
	comments, hasMore, err := s.interactions.Comments(c.UserContext(), postID, page)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	return c.JSON(fiber.Map{
		"comments": comments,
		"page":     page.Page,
		"has_more": hasMore,
	})
}

// CreateComment handles POST /api/posts/:id/comments
// @Summary Comment on a post
// @Tags comments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param request body createCommentRequest true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req createCommentRequest
	if err := bindBody(c, &req); err != nil {
		return nil
	}
	comment, err := s.interactions.AddComment(c.UserContext(), actorID(c), postID, req.Content)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// DeleteComment handles DELETE /api/comments/:id
// @Summary Delete a comment
// @Tags comments
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.interactions.DeleteComment(c.UserContext(), actorID(c), commentID); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
