package models

import (
	"time"

	"github.com/google/uuid"
)

// CampaignAssignment links a contractor to a campaign. Unique per (campaign, contractor).
type CampaignAssignment struct {
	ID           uuid.UUID  `json:"id"`
	CampaignID   uuid.UUID  `json:"campaign_id"`
	ContractorID uuid.UUID  `json:"contractor_id"`
	AssignedBy   *uuid.UUID `json:"assigned_by,omitempty"`
	AssignedAt   time.Time  `json:"assigned_at"`
}

// AssignmentWithContractor adds contractor contact details to an assignment.
type AssignmentWithContractor struct {
	CampaignAssignment
	ContractorEmail     string `json:"contractor_email"`
	ContractorFirstName string `json:"contractor_first_name"`
	ContractorLastName  string `json:"contractor_last_name"`
}
