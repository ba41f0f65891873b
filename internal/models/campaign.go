package models

import (
	"time"

	"github.com/google/uuid"
)

type CampaignStatus string

// Campaign statuses
const (
	CampaignStatusNew        CampaignStatus = "new"
	CampaignStatusInProgress CampaignStatus = "in_progress"
	CampaignStatusCompleted  CampaignStatus = "completed"
	CampaignStatusCancelled  CampaignStatus = "cancelled"
)

// ValidCampaignTransitions lists allowed moves: from -> []to. Statuses only move forward.
var ValidCampaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignStatusNew:        {CampaignStatusInProgress, CampaignStatusCancelled},
	CampaignStatusInProgress: {CampaignStatusCompleted, CampaignStatusCancelled},
	CampaignStatusCompleted:  {},
	CampaignStatusCancelled:  {},
}

func IsValidCampaignStatus(s CampaignStatus) bool {
	_, ok := ValidCampaignTransitions[s]
	return ok
}

func CanTransitionCampaign(from, to CampaignStatus) bool {
	allowed, ok := ValidCampaignTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a campaign in status s can no longer change.
func (s CampaignStatus) IsTerminal() bool {
	return len(ValidCampaignTransitions[s]) == 0
}

type Campaign struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Description *string        `json:"description,omitempty"`
	CompanyID   uuid.UUID      `json:"company_id"`
	Status      CampaignStatus `json:"status"`
	StartDate   *time.Time     `json:"start_date,omitempty"`
	EndDate     *time.Time     `json:"end_date,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	CreatedBy   uuid.UUID      `json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// CampaignWithCompany embeds Campaign and adds the company name for list screens.
type CampaignWithCompany struct {
	Campaign
	CompanyName string `json:"company_name"`
}

type CampaignStats struct {
	CampaignID          uuid.UUID `json:"campaign_id"`
	TotalImages         int       `json:"total_images"`
	PendingImages       int       `json:"pending_images"`
	ApprovedImages      int       `json:"approved_images"`
	RejectedImages      int       `json:"rejected_images"`
	AssignedContractors int       `json:"assigned_contractors"`
}
