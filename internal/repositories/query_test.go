package repositories

import (
	"testing"

	"github.com/google/uuid"
	"github.com/postertrack/backend/internal/rbac"
	"github.com/stretchr/testify/assert"
)

func TestWhereBuilder(t *testing.T) {
	var w whereBuilder
	assert.Equal(t, "", w.sql())

	w.add("c.status = $%d", "new")
	w.add("c.name ILIKE $%d", "%x%")
	assert.Equal(t, " WHERE c.status = $1 AND c.name ILIKE $2", w.sql())

	clause, args := w.page(500, -3)
	assert.Equal(t, " LIMIT $3 OFFSET $4", clause)
	assert.Equal(t, []any{"new", "%x%", defaultLimit, 0}, args)
	assert.Len(t, w.args, 2, "page must not mutate builder args")
}

func TestApplyScope(t *testing.T) {
	company := uuid.New()
	contractor := uuid.New()

	var w whereBuilder
	w.applyScope(rbac.Scope{Unrestricted: true}, "c")
	assert.Equal(t, "", w.sql())

	w = whereBuilder{}
	w.applyScope(rbac.Scope{CompanyID: &company}, "c")
	assert.Equal(t, " WHERE c.company_id = $1", w.sql())
	assert.Equal(t, []any{company}, w.args)

	w = whereBuilder{}
	w.add("i.status = $%d", "pending")
	w.applyScope(rbac.Scope{ContractorID: &contractor}, "c")
	assert.Contains(t, w.sql(), "sa.contractor_id = $2")
	assert.Contains(t, w.sql(), "sa.campaign_id = c.id")

	w = whereBuilder{}
	w.applyScope(rbac.Scope{Deny: true}, "c")
	assert.Equal(t, " WHERE FALSE", w.sql())

	w = whereBuilder{}
	w.applyScope(rbac.Scope{}, "c")
	assert.Equal(t, " WHERE FALSE", w.sql())
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%spring%", likePattern("  spring "))
	assert.Equal(t, `%50\%\_off%`, likePattern("50%_off"))
}
