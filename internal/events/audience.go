package events

import "github.com/postertrack/backend/internal/rbac"

// VisibleTo reports whether the actor may receive the event. Auth events are never
// forwarded to clients.
func VisibleTo(stream string, e Event, a rbac.Actor) bool {
	if stream == StreamAuth {
		return false
	}
	switch a.Role {
	case rbac.RoleCompanyEmployee:
		return true
	case rbac.RoleClient:
		return a.CompanyID != nil && e.CompanyID != nil && *a.CompanyID == *e.CompanyID
	case rbac.RoleContractor:
		for _, id := range e.ContractorIDs {
			if id == a.UserID {
				return true
			}
		}
	}
	return false
}
