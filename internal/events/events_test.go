package events

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/postertrack/backend/internal/rbac"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestVisibleTo(t *testing.T) {
	company := uuid.New()
	otherCompany := uuid.New()
	contractor := uuid.New()

	e := Event{Type: EventImageUploaded, CompanyID: &company, ContractorIDs: []uuid.UUID{contractor}}

	tests := []struct {
		name   string
		stream string
		actor  rbac.Actor
		want   bool
	}{
		{"employee sees everything", StreamImage, rbac.Actor{Role: rbac.RoleCompanyEmployee}, true},
		{"client of company", StreamImage, rbac.Actor{Role: rbac.RoleClient, CompanyID: &company}, true},
		{"client of other company", StreamImage, rbac.Actor{Role: rbac.RoleClient, CompanyID: &otherCompany}, false},
		{"client without company", StreamImage, rbac.Actor{Role: rbac.RoleClient}, false},
		{"assigned contractor", StreamCampaign, rbac.Actor{Role: rbac.RoleContractor, UserID: contractor}, true},
		{"other contractor", StreamCampaign, rbac.Actor{Role: rbac.RoleContractor, UserID: uuid.New()}, false},
		{"auth stream hidden", StreamAuth, rbac.Actor{Role: rbac.RoleCompanyEmployee}, false},
		{"unknown role", StreamImage, rbac.Actor{Role: "admin"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VisibleTo(tt.stream, e, tt.actor))
		})
	}
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), StreamCampaign, Event{Type: EventCampaignCreated}))
}
