package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions
const (
	AuditLogin                 = "login"
	AuditLogout                = "logout"
	AuditPasswordChanged       = "password_changed"
	AuditPasswordResetRequest  = "password_reset_requested"
	AuditPasswordResetComplete = "password_reset_completed"
	AuditCompanyCreated        = "company_created"
	AuditCompanyUpdated        = "company_updated"
	AuditCompanyDeleted        = "company_deleted"
	AuditUserCreated           = "user_created"
	AuditUserUpdated           = "user_updated"
	AuditUserActivated         = "user_activated"
	AuditUserDeactivated       = "user_deactivated"
	AuditCampaignCreated       = "campaign_created"
	AuditCampaignUpdated       = "campaign_updated"
	AuditCampaignStatusChanged = "campaign_status_changed"
	AuditCampaignDeleted       = "campaign_deleted"
	AuditContractorAssigned    = "contractor_assigned"
	AuditContractorUnassigned  = "contractor_unassigned"
	AuditImageUploaded         = "image_uploaded"
	AuditImageApproved         = "image_approved"
	AuditImageRejected         = "image_rejected"
	AuditImageDeleted          = "image_deleted"
	AuditUploadBlocked         = "upload_blocked"
)

// Audit entity types
const (
	EntityCompany  = "company"
	EntityUser     = "user"
	EntityCampaign = "campaign"
	EntityImage    = "image"
	EntitySession  = "session"
)

type AuditLog struct {
	ID         uuid.UUID  `json:"id"`
	UserID     *uuid.UUID `json:"user_id,omitempty"`
	Action     string     `json:"action"`
	EntityType string     `json:"entity_type"`
	EntityID   *uuid.UUID `json:"entity_id,omitempty"`
	OldValues  any        `json:"old_values,omitempty"`
	NewValues  any        `json:"new_values,omitempty"`
	IPAddress  *string    `json:"ip_address,omitempty"`
	UserAgent  *string    `json:"user_agent,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
