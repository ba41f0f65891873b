package rbac

import (
	"fmt"

	"github.com/google/uuid"
)

type Role string

// Role constants
const (
	RoleCompanyEmployee Role = "company_employee"
	RoleClient          Role = "client"
	RoleContractor      Role = "contractor"
)

var AllRoles = []Role{RoleCompanyEmployee, RoleClient, RoleContractor}

func IsValidRole(r Role) bool {
	for _, role := range AllRoles {
		if role == r {
			return true
		}
	}
	return false
}

// Permission constants
const (
	PermManageCompanies   = "manage_companies"
	PermManageUsers       = "manage_users"
	PermManageCampaigns   = "manage_campaigns"
	PermManageAssignments = "manage_assignments"
	PermReviewImages      = "review_images"
	PermUploadImages      = "upload_images"
	PermViewAuditLogs     = "view_audit_logs"
	PermViewCampaigns     = "view_campaigns"
	PermViewImages        = "view_images"
)

// RolePermissions defines what each role can do.
var RolePermissions = map[Role][]string{
	RoleCompanyEmployee: {
		PermManageCompanies, PermManageUsers, PermManageCampaigns, PermManageAssignments,
		PermReviewImages, PermViewAuditLogs, PermViewCampaigns, PermViewImages,
	},
	RoleClient: {
		PermViewCampaigns, PermViewImages,
	},
	RoleContractor: {
		PermUploadImages, PermViewCampaigns, PermViewImages,
	},
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role Role, permission string) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}

// ValidateCompanyForRole enforces that clients and contractors belong to a company
// and company employees do not.
func ValidateCompanyForRole(role Role, companyID *uuid.UUID) error {
	switch role {
	case RoleCompanyEmployee:
		if companyID != nil {
			return fmt.Errorf("company employees cannot be linked to a company")
		}
	case RoleClient, RoleContractor:
		if companyID == nil {
			return fmt.Errorf("%s users must be linked to a company", role)
		}
	default:
		return fmt.Errorf("invalid role %q", role)
	}
	return nil
}
