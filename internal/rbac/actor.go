package rbac

import "github.com/google/uuid"

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID    uuid.UUID  `json:"user_id"`
	Role      Role       `json:"role"`
	CompanyID *uuid.UUID `json:"company_id,omitempty"`
	SessionID uuid.UUID  `json:"session_id"`
	IP        string     `json:"-"`
	UserAgent string     `json:"-"`
}

func (a Actor) IsEmployee() bool   { return a.Role == RoleCompanyEmployee }
func (a Actor) IsClient() bool     { return a.Role == RoleClient }
func (a Actor) IsContractor() bool { return a.Role == RoleContractor }

func (a Actor) Can(permission string) bool {
	return HasPermission(a.Role, permission)
}

// Scope is the row-level visibility filter applied to campaign and image queries.
// Exactly one of the restrictions is set for non-employees; an actor with an
// unknown role gets a scope that matches nothing.
type Scope struct {
	Unrestricted bool
	CompanyID    *uuid.UUID
	ContractorID *uuid.UUID
	Deny         bool
}

func ScopeFor(a Actor) Scope {
	switch a.Role {
	case RoleCompanyEmployee:
		return Scope{Unrestricted: true}
	case RoleClient:
		if a.CompanyID == nil {
			return Scope{Deny: true}
		}
		id := *a.CompanyID
		return Scope{CompanyID: &id}
	case RoleContractor:
		id := a.UserID
		return Scope{ContractorID: &id}
	default:
		return Scope{Deny: true}
	}
}
