package repository

import (
	"context"
	"time"

	"snapgram/internal/models"

	"gorm.io/gorm"
)

// ReportRepository persists moderation reports.
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id uint) (*models.Report, error)
	List(ctx context.Context, reviewed *bool, limit, offset int) ([]models.Report, error)
	MarkReviewed(ctx context.Context, id, reviewerID uint, at time.Time) error
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new ReportRepository.
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *models.Report) error {
	if err := r.db.WithContext(ctx).Omit("Reporter").Create(report).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *reportRepository) GetByID(ctx context.Context, id uint) (*models.Report, error) {
	var report models.Report
	if err := r.db.WithContext(ctx).Preload("Reporter").First(&report, id).Error; err != nil {
		return nil, lookupError(err, "Report", id)
	}
	return &report, nil
}

// List returns reports oldest first; reviewed filters when non-nil.
func (r *reportRepository) List(ctx context.Context, reviewed *bool, limit, offset int) ([]models.Report, error) {
	q := r.db.WithContext(ctx).Preload("Reporter")
	if reviewed != nil {
		q = q.Where("is_reviewed = ?", *reviewed)
	}
	var out []models.Report
	if err := q.Order("created_at ASC").Order("id ASC").Limit(limit).Offset(offset).Find(&out).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

func (r *reportRepository) MarkReviewed(ctx context.Context, id, reviewerID uint, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Report{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_reviewed":    true,
			"reviewed_by_id": reviewerID,
			"reviewed_at":    at,
		})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Report", id)
	}
	return nil
}
