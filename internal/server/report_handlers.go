package server

import (
	"strconv"

	"snapgram/internal/models"
	"snapgram/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createReportRequest struct {
	ReportedUserID *uint  `json:"reported_user_id"`
	ReportedPostID *uint  `json:"reported_post_id"`
	Reason         string `json:"reason" validate:"required,oneof=spam inappropriate harassment violence hate_speech false_info other"`
	Description    string `json:"description" validate:"max=1000"`
}

type verifyRequest struct {
	Verified *bool `json:"verified"`
}

// CreateReport handles POST /api/reports
// @Summary Report a user or post
// @Tags reports
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body createReportRequest true "Report"
// @Success 201 {object} models.Report
// @Failure 400 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /reports [post]
func (s *Server) CreateReport(c *fiber.Ctx) error {
	var req createReportRequest
	if err := bindBody(c, &req); err != nil {
		return nil
	}
	report, err := s.reports.Create(c.UserContext(), actorID(c), service.CreateReportInput{
		ReportedUserID: req.ReportedUserID,
		ReportedPostID: req.ReportedPostID,
		Reason:         models.ReportReason(req.Reason),
		Description:    req.Description,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

// GetReports handles GET /api/admin/reports
// @Summary List reports
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param reviewed query bool false "Filter by review state"
// @Success 200 {object} object{reports=[]models.Report}
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/reports [get]
func (s *Server) GetReports(c *fiber.Ctx) error {
	var reviewed *bool
	if raw := c.Query("reviewed"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return models.RespondWithAppError(c, models.NewValidationError("reviewed must be true or false"))
		}
		reviewed = &v
	}
	reports, err := s.reports.List(c.UserContext(), actorID(c), reviewed, parsePage(c, service.DefaultExplorePageSize))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	if reports == nil {
		reports = []models.Report{}
	}
	return c.JSON(fiber.Map{"reports": reports})
}

// ReviewReport handles POST /api/admin/reports/:id/review
// @Summary Mark a report reviewed
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param id path int true "Report ID"
// @Success 200 {object} models.Report
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/reports/{id}/review [post]
func (s *Server) ReviewReport(c *fiber.Ctx) error {
	reportID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	report, err := s.reports.Review(c.UserContext(), actorID(c), reportID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(report)
}

// VerifyUser handles POST /api/admin/users/:id/verify
// @Summary Set a user's verified badge
// @Description Defaults to verified=true when the body is empty
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body verifyRequest false "Badge state"
// @Success 200 {object} models.User
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/users/{id}/verify [post]
func (s *Server) VerifyUser(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req verifyRequest
	if len(c.Body()) > 0 {
		if err := bindBody(c, &req); err != nil {
			return nil
		}
	}
	verified := true
	if req.Verified != nil {
		verified = *req.Verified
	}
	user, err := s.users.VerifyAs(c.UserContext(), actorID(c), targetID, verified)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}
