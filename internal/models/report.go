package models

import "time"

// ReportReason is the closed set of reasons a report may cite.
type ReportReason string

const (
	ReasonSpam          ReportReason = "spam"
	ReasonInappropriate ReportReason = "inappropriate"
	ReasonHarassment    ReportReason = "harassment"
	ReasonViolence      ReportReason = "violence"
	ReasonHateSpeech    ReportReason = "hate_speech"
	ReasonFalseInfo     ReportReason = "false_info"
	ReasonOther         ReportReason = "other"
)

// Valid reports whether r is one of the known reasons.
func (r ReportReason) Valid() bool {
	switch r {
	case ReasonSpam, ReasonInappropriate, ReasonHarassment, ReasonViolence,
		ReasonHateSpeech, ReasonFalseInfo, ReasonOther:
		return true
	}
	return false
}

// Report flags a user or post for moderator review.
type Report struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	ReporterID     uint         `gorm:"not null;index" json:"reporter_id"`
	Reporter       User         `gorm:"foreignKey:ReporterID;constraint:OnDelete:CASCADE" json:"reporter"`
	ReportedUserID *uint        `gorm:"index" json:"reported_user_id,omitempty"`
	ReportedPostID *uint        `gorm:"index" json:"reported_post_id,omitempty"`
	Reason         ReportReason `gorm:"size:20;not null" json:"reason"`
	Description    string       `gorm:"type:text" json:"description"`
	IsReviewed     bool         `gorm:"not null;default:false;index" json:"is_reviewed"`
	ReviewedByID   *uint        `json:"reviewed_by_id,omitempty"`
	ReviewedAt     *time.Time   `json:"reviewed_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}
