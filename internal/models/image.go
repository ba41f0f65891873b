package models

import (
	"time"

	"github.com/google/uuid"
)

type ImageStatus string

const (
	ImageStatusPending  ImageStatus = "pending"
	ImageStatusApproved ImageStatus = "approved"
	ImageStatusRejected ImageStatus = "rejected"
)

func IsValidImageStatus(s ImageStatus) bool {
	switch s {
	case ImageStatusPending, ImageStatusApproved, ImageStatusRejected:
		return true
	}
	return false
}

// CanReviewImage reports whether an image in status s may still be approved or rejected.
func CanReviewImage(s ImageStatus) bool {
	return s == ImageStatusPending
}

// IsValidImageDecision reports whether s is an outcome a reviewer can choose.
func IsValidImageDecision(s ImageStatus) bool {
	return s == ImageStatusApproved || s == ImageStatusRejected
}

type Image struct {
	ID               uuid.UUID   `json:"id"`
	CampaignID       uuid.UUID   `json:"campaign_id"`
	UploadedBy       uuid.UUID   `json:"uploaded_by"`
	Filename         string      `json:"filename"`
	OriginalFilename string      `json:"original_filename"`
	FilePath         string      `json:"-"`
	ThumbnailPath    *string     `json:"-"`
	FileSize         int64       `json:"file_size"`
	MimeType         string      `json:"mime_type"`
	Width            *int        `json:"width,omitempty"`
	Height           *int        `json:"height,omitempty"`
	Notes            *string     `json:"notes,omitempty"`
	Status           ImageStatus `json:"status"`
	RejectionReason  *string     `json:"rejection_reason,omitempty"`
	ReviewedBy       *uuid.UUID  `json:"reviewed_by,omitempty"`
	ReviewedAt       *time.Time  `json:"reviewed_at,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

func (i *Image) HasThumbnail() bool {
	return i.ThumbnailPath != nil && *i.ThumbnailPath != ""
}

// ImageWithCampaign joins an image with the fields needed for visibility checks and display.
type ImageWithCampaign struct {
	Image
	CampaignName      string    `json:"campaign_name"`
	CompanyID         uuid.UUID `json:"company_id"`
	UploaderFirstName string    `json:"uploader_first_name"`
	UploaderLastName  string    `json:"uploader_last_name"`
}
