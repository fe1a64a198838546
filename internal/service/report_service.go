package service

import (
	"context"
	"time"

	"snapgram/internal/models"
	"snapgram/internal/repository"
)

const maxReportDescriptionLen = 1000

// ReportService files abuse reports and lets admins review them.
type ReportService struct {
	reports repository.ReportRepository
	users   repository.UserRepository
	posts   repository.PostRepository
	now     Clock
}

type CreateReportInput struct {
	ReportedUserID *uint
	ReportedPostID *uint
	Reason         models.ReportReason
	Description    string
}

func NewReportService(reports repository.ReportRepository, users repository.UserRepository, posts repository.PostRepository) *ReportService {
	return &ReportService{reports: reports, users: users, posts: posts, now: time.Now}
}

// Create files a report against a user, a post or both.
func (s *ReportService) Create(ctx context.Context, actorID uint, in CreateReportInput) (*models.Report, error) {
	if !in.Reason.Valid() {
		return nil, models.NewValidationError("Invalid report reason")
	}
	if in.ReportedUserID == nil && in.ReportedPostID == nil {
		return nil, models.NewValidationError("A reported user or post is required")
	}
	if len([]rune(in.Description)) > maxReportDescriptionLen {
		return nil, models.NewValidationError("Description too long (max 1000 characters)")
	}
	if in.ReportedUserID != nil {
		if *in.ReportedUserID == actorID {
			return nil, models.NewInvalidOperationError("You cannot report yourself")
		}
		if _, err := s.users.GetByID(ctx, *in.ReportedUserID); err != nil {
			return nil, err
		}
	}
	if in.ReportedPostID != nil {
		post, err := s.posts.GetByID(ctx, *in.ReportedPostID, actorID)
		if err != nil {
			return nil, err
		}
		if post.UserID == actorID {
			return nil, models.NewInvalidOperationError("You cannot report your own post")
		}
	}

	report := &models.Report{
		ReporterID:     actorID,
		ReportedUserID: in.ReportedUserID,
		ReportedPostID: in.ReportedPostID,
		Reason:         in.Reason,
		Description:    in.Description,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// List returns reports for an admin; reviewed filters when non-nil.
func (s *ReportService) List(ctx context.Context, actorID uint, reviewed *bool, page Page) ([]models.Report, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	page = page.normalize(DefaultExplorePageSize)
	return s.reports.List(ctx, reviewed, page.PerPage, page.offset())
}

// Review marks a report reviewed by actorID.
func (s *ReportService) Review(ctx context.Context, actorID, reportID uint) (*models.Report, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	if err := s.reports.MarkReviewed(ctx, reportID, actorID, s.now().UTC()); err != nil {
		return nil, err
	}
	return s.reports.GetByID(ctx, reportID)
}

func (s *ReportService) requireAdmin(ctx context.Context, actorID uint) error {
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return models.NewUnauthorizedError("Unknown user")
		}
		return err
	}
	if !actor.IsAdmin {
		return models.NewForbiddenError("Admin access required")
	}
	return nil
}
