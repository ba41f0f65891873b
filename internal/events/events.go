package events

import (
	"context"

	"github.com/google/uuid"
)

// Streams
const (
	StreamCampaign = "events:campaign"
	StreamImage    = "events:image"
	StreamAuth     = "events:auth"
)

// Event types
const (
	EventCampaignCreated        = "campaign_created"
	EventCampaignStatusChanged  = "campaign_status_changed"
	EventContractorAssigned     = "contractor_assigned"
	EventContractorUnassigned   = "contractor_unassigned"
	EventImageUploaded          = "image_uploaded"
	EventImageReviewed          = "image_reviewed"
	EventImageDeleted           = "image_deleted"
	EventPasswordResetRequested = "password_reset_requested"
)

// Event is the message published on a stream. CompanyID and ContractorIDs address
// campaign and image events so subscribers can filter by visibility.
type Event struct {
	Type          string         `json:"type"`
	CompanyID     *uuid.UUID     `json:"company_id,omitempty"`
	ContractorIDs []uuid.UUID    `json:"contractor_ids,omitempty"`
	Payload       map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, handler func(stream string, event Event), streams ...string) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, Event) error { return nil }
