package server

import (
	"time"

	"snapgram/internal/models"
	"snapgram/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createStoryRequest struct {
	Media     string     `json:"media" form:"media"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// GetStories handles GET /api/stories
// @Summary Active stories
// @Description Unexpired stories from the caller and followed accounts, grouped by owner
// @Tags stories
// @Security BearerAuth
// @Produce json
// @Success 200 {object} object{groups=[]models.StoryGroup}
// @Router /stories [get]
func (s *Server) GetStories(c *fiber.Ctx) error {
	groups, err := s.stories.Visible(c.UserContext(), actorID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	if groups == nil {
		groups = []models.StoryGroup{}
	}
	return c.JSON(fiber.Map{"groups": groups})
}

// CreateStory handles POST /api/stories
// @Summary Post a story
// @Description Upload a file in the "media" part or pass a media reference in JSON. Stories expire after 24 hours unless expires_at is given.
// @Tags stories
// @Security BearerAuth
// @Accept json,multipart/form-data
// @Produce json
// @Param media formData file false "Image or video"
// @Success 201 {object} models.Story
// @Failure 400 {object} models.ErrorResponse
// @Router /stories [post]
func (s *Server) CreateStory(c *fiber.Ctx) error {
	var req createStoryRequest
	if err := bindBody(c, &req); err != nil {
		return nil
	}

	ref, uploaded, err := s.storeUpload(c, service.MediaKindStory, req.Media)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	story, err := s.stories.Create(c.UserContext(), actorID(c), service.CreateStoryInput{
		Media:     ref,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		if uploaded {
			s.media.Remove(ref)
		}
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(story)
}

// ViewStory handles POST /api/stories/:id/view
// @Summary Mark a story as viewed
// @Tags stories
// @Security BearerAuth
// @Param id path int true "Story ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /stories/{id}/view [post]
func (s *Server) ViewStory(c *fiber.Ctx) error {
	storyID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.stories.MarkViewed(c.UserContext(), actorID(c), storyID); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteStory handles DELETE /api/stories/:id
// @Summary Delete a story
// @Tags stories
// @Security BearerAuth
// @Param id path int true "Story ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /stories/{id} [delete]
func (s *Server) DeleteStory(c *fiber.Ctx) error {
	storyID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.stories.Delete(c.UserContext(), actorID(c), storyID); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
