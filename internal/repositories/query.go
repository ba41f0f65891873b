package repositories

import (
	"fmt"
	"strings"

	"github.com/postertrack/backend/internal/rbac"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// whereBuilder accumulates AND-ed conditions with positional arguments.
// Each condition is a format string with a single %d for its placeholder index.
type whereBuilder struct {
	conds []string
	args  []any
}

func (w *whereBuilder) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *whereBuilder) raw(cond string) {
	w.conds = append(w.conds, cond)
}

func (w *whereBuilder) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// page appends LIMIT/OFFSET placeholders and returns the clause plus the full arg list.
func (w *whereBuilder) page(limit, offset int) (string, []any) {
	limit = normalizeLimit(limit)
	if offset < 0 {
		offset = 0
	}
	n := len(w.args)
	args := append(append([]any{}, w.args...), limit, offset)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2), args
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > maxLimit {
		return defaultLimit
	}
	return limit
}

// applyScope restricts a query over campaigns aliased as campaignAlias to what the scope may see.
func (w *whereBuilder) applyScope(scope rbac.Scope, campaignAlias string) {
	switch {
	case scope.Deny:
		w.raw("FALSE")
	case scope.Unrestricted:
	case scope.CompanyID != nil:
		w.add(campaignAlias+".company_id = $%d", *scope.CompanyID)
	case scope.ContractorID != nil:
		w.add("EXISTS (SELECT 1 FROM campaign_assignments sa WHERE sa.campaign_id = "+campaignAlias+".id AND sa.contractor_id = $%d)", *scope.ContractorID)
	default:
		w.raw("FALSE")
	}
}

// likePattern escapes LIKE metacharacters and wraps the term for a substring match.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(term)) + "%"
}
