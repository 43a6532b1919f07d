// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"property_portal_backend/internal/interventions/domain"
	"property_portal_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Intervention Domain Events
// =============================================================================

// InterventionCreated is published when a manager opens a new intervention.
type InterventionCreated struct {
	BaseEvent
	InterventionID uuid.UUID    `json:"interventionId"`
	TeamID         uuid.UUID    `json:"teamId"`
	Title          string       `json:"title"`
	Urgency        string       `json:"urgency"`
	Actor          domain.Actor `json:"actor"`
}

func (e InterventionCreated) EventName() string { return "interventions.created" }

// InterventionStatusChanged is published after a transition is persisted.
type InterventionStatusChanged struct {
	BaseEvent
	InterventionID uuid.UUID     `json:"interventionId"`
	TeamID         uuid.UUID     `json:"teamId"`
	Title          string        `json:"title"`
	Action         domain.Action `json:"action"`
	From           domain.Status `json:"from"`
	To             domain.Status `json:"to"`
	Reason         string        `json:"reason,omitempty"`
	IsContested    bool          `json:"isContested"`
	Actor          domain.Actor  `json:"actor"`
}

func (e InterventionStatusChanged) EventName() string { return "interventions.status_changed" }

// InterventionAssigned is published when a user is bound to an intervention.
type InterventionAssigned struct {
	BaseEvent
	InterventionID uuid.UUID    `json:"interventionId"`
	TeamID         uuid.UUID    `json:"teamId"`
	Title          string       `json:"title"`
	UserID         uuid.UUID    `json:"userId"`
	Role           domain.Role  `json:"role"`
	IsPrimary      bool         `json:"isPrimary"`
	Actor          domain.Actor `json:"actor"`
}

func (e InterventionAssigned) EventName() string { return "interventions.assigned" }

// =============================================================================
// Quote Domain Events
// =============================================================================

// Quote decisions.
const (
	QuoteDecisionAccepted = "accepted"
	QuoteDecisionRejected = "rejected"
)

// QuoteDecided is published for every quote whose status became final.
type QuoteDecided struct {
	BaseEvent
	QuoteID           uuid.UUID    `json:"quoteId"`
	InterventionID    uuid.UUID    `json:"interventionId"`
	InterventionTitle string       `json:"interventionTitle"`
	TeamID            uuid.UUID    `json:"teamId"`
	ProviderID        uuid.UUID    `json:"providerId"`
	Decision          string       `json:"decision"`
	Reason            string       `json:"reason,omitempty"`
	AmountCents       int64        `json:"amountCents"`
	Actor             domain.Actor `json:"actor"`
}

func (e QuoteDecided) EventName() string { return "quotes.decided" }

// QuoteSubmitted is published when a provider sends a quote.
type QuoteSubmitted struct {
	BaseEvent
	QuoteID        uuid.UUID    `json:"quoteId"`
	InterventionID uuid.UUID    `json:"interventionId"`
	TeamID         uuid.UUID    `json:"teamId"`
	AmountCents    int64        `json:"amountCents"`
	Actor          domain.Actor `json:"actor"`
}

func (e QuoteSubmitted) EventName() string { return "quotes.submitted" }

// =============================================================================
// Conversation Domain Events
// =============================================================================

// ConversationMessagePosted is published after a message is stored in a thread.
type ConversationMessagePosted struct {
	BaseEvent
	MessageID      uuid.UUID    `json:"messageId"`
	ThreadID       uuid.UUID    `json:"threadId"`
	ThreadTitle    string       `json:"threadTitle"`
	InterventionID uuid.UUID    `json:"interventionId"`
	TeamID         uuid.UUID    `json:"teamId"`
	Preview        string       `json:"preview"`
	Actor          domain.Actor `json:"actor"`
}

func (e ConversationMessagePosted) EventName() string { return "conversations.message_posted" }

// =============================================================================
// Document Domain Events
// =============================================================================

// DocumentUploaded is published after a file is stored for an intervention.
type DocumentUploaded struct {
	BaseEvent
	DocumentID     uuid.UUID    `json:"documentId"`
	InterventionID uuid.UUID    `json:"interventionId"`
	TeamID         uuid.UUID    `json:"teamId"`
	FileName       string       `json:"fileName"`
	Actor          domain.Actor `json:"actor"`
}

func (e DocumentUploaded) EventName() string { return "documents.uploaded" }
