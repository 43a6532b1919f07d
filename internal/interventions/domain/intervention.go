package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MinContestCommentLength is the minimum number of characters a tenant must
// write when contesting completed work.
const MinContestCommentLength = 10

// Urgency levels.
const (
	UrgencyLow    = "basse"
	UrgencyNormal = "normale"
	UrgencyHigh   = "haute"
	UrgencyUrgent = "urgente"
)

// Intervention is a work order against a property lot.
type Intervention struct {
	ID              uuid.UUID  `json:"id"`
	TeamID          uuid.UUID  `json:"teamId"`
	LotID           *uuid.UUID `json:"lotId,omitempty"`
	TenantID        *uuid.UUID `json:"tenantId,omitempty"`
	CreatedBy       uuid.UUID  `json:"createdBy"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Category        string     `json:"category"`
	Urgency         string     `json:"urgency"`
	Status          Status     `json:"status"`
	RejectionReason *string    `json:"rejectionReason,omitempty"`
	FinalCostCents  *int64     `json:"finalCostCents,omitempty"`
	IsContested     bool       `json:"isContested"`
	ScheduledDate   *time.Time `json:"scheduledDate,omitempty"`
	CompletedDate   *time.Time `json:"completedDate,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Assignment binds a user to an intervention with a role.
type Assignment struct {
	InterventionID uuid.UUID `json:"interventionId"`
	UserID         uuid.UUID `json:"userId"`
	Role           Role      `json:"role"`
	IsPrimary      bool      `json:"isPrimary"`
}

// Payload carries the action-specific data of a transition request.
type Payload struct {
	Reason         string
	Comment        string
	ScheduledDate  *time.Time
	FinalCostCents *int64
	QuoteID        *uuid.UUID
}

// ValidatePayload returns a non-empty reason when payload is not acceptable
// for action.
func ValidatePayload(action Action, payload Payload) string {
	switch action {
	case ActionReject:
		if strings.TrimSpace(payload.Reason) == "" {
			return "a rejection reason is required"
		}
	case ActionReopen:
		if strings.TrimSpace(payload.Reason) == "" {
			return "a reason is required to reopen an intervention"
		}
	case ActionContest:
		if utf8.RuneCountInString(strings.TrimSpace(payload.Comment)) < MinContestCommentLength {
			return "a contest comment of at least 10 characters is required"
		}
	case ActionSchedule:
		if payload.ScheduledDate == nil || payload.ScheduledDate.IsZero() {
			return "a scheduled date is required"
		}
	case ActionAcceptQuote:
		if payload.QuoteID == nil || *payload.QuoteID == uuid.Nil {
			return "a quote id is required"
		}
	case ActionComplete:
		if payload.FinalCostCents != nil && *payload.FinalCostCents < 0 {
			return "final cost cannot be negative"
		}
	}
	return ""
}

// Apply returns a copy of iv moved to target with the payload-derived fields set.
func Apply(iv Intervention, action Action, target Status, payload Payload, now time.Time) Intervention {
	next := iv
	next.Status = target
	next.UpdatedAt = now

	switch action {
	case ActionReject:
		reason := strings.TrimSpace(payload.Reason)
		next.RejectionReason = &reason
	case ActionSchedule:
		scheduled := payload.ScheduledDate.UTC()
		next.ScheduledDate = &scheduled
	case ActionComplete:
		completed := now
		next.CompletedDate = &completed
		if payload.FinalCostCents != nil {
			cost := *payload.FinalCostCents
			next.FinalCostCents = &cost
		}
	case ActionContest:
		next.IsContested = true
	case ActionValidate:
		next.IsContested = false
	case ActionReopen:
		next.CompletedDate = nil
	}
	return next
}

// ReportContent is the text stored in the report an action records.
func ReportContent(action Action, payload Payload) string {
	if action == ActionContest {
		return strings.TrimSpace(payload.Comment)
	}
	if c := strings.TrimSpace(payload.Comment); c != "" {
		return c
	}
	return strings.TrimSpace(payload.Reason)
}
