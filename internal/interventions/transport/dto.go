package transport

import (
	"time"

	"property_portal_backend/internal/interventions/domain"

	"github.com/google/uuid"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// AssignmentRequest binds a user to an intervention.
type AssignmentRequest struct {
	UserID    uuid.UUID `json:"userId" validate:"required"`
	Role      string    `json:"role" validate:"required,oneof=manager provider tenant"`
	IsPrimary bool      `json:"isPrimary"`
}

// CreateInterventionRequest is the request body for opening an intervention.
type CreateInterventionRequest struct {
	LotID       *uuid.UUID          `json:"lotId"`
	TenantID    *uuid.UUID          `json:"tenantId"`
	Title       string              `json:"title" validate:"required,min=3,max=200"`
	Description string              `json:"description" validate:"max=5000"`
	Category    string              `json:"category" validate:"max=100"`
	Urgency     string              `json:"urgency" validate:"omitempty,oneof=basse normale haute urgente"`
	Assignments []AssignmentRequest `json:"assignments" validate:"omitempty,dive"`
}

// TransitionRequest asks for one workflow action on an intervention.
type TransitionRequest struct {
	Action         string     `json:"action" validate:"required"`
	Reason         string     `json:"reason" validate:"max=2000"`
	Comment        string     `json:"comment" validate:"max=5000"`
	ScheduledDate  *time.Time `json:"scheduledDate"`
	FinalCostCents *int64     `json:"finalCostCents" validate:"omitempty,min=0"`
	QuoteID        *uuid.UUID `json:"quoteId"`
}

// ListInterventionsRequest holds the query parameters of the list endpoint.
type ListInterventionsRequest struct {
	Status string `form:"status"`
	Limit  int    `form:"limit" validate:"min=0,max=100"`
	Offset int    `form:"offset" validate:"min=0"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// RuleResponse describes one legal transition.
type RuleResponse struct {
	From   domain.Status `json:"from"`
	Action domain.Action `json:"action"`
	To     domain.Status `json:"to"`
	Roles  []domain.Role `json:"roles"`
}

// ── Mapping ───────────────────────────────────────────────────────────────────

// ToAssignment converts the request into a domain assignment.
func (r AssignmentRequest) ToAssignment(interventionID uuid.UUID) domain.Assignment {
	return domain.Assignment{
		InterventionID: interventionID,
		UserID:         r.UserID,
		Role:           domain.Role(r.Role),
		IsPrimary:      r.IsPrimary,
	}
}

// ToPayload converts the request into the action payload.
func (r TransitionRequest) ToPayload() domain.Payload {
	return domain.Payload{
		Reason:         r.Reason,
		Comment:        r.Comment,
		ScheduledDate:  r.ScheduledDate,
		FinalCostCents: r.FinalCostCents,
		QuoteID:        r.QuoteID,
	}
}

// ToRuleResponses lists the registry rules for clients building workflow UIs.
func ToRuleResponses(rules []domain.Rule) []RuleResponse {
	out := make([]RuleResponse, 0, len(rules))
	for _, r := range rules {
		out = append(out, RuleResponse{From: r.From, Action: r.Action, To: r.To, Roles: r.Roles})
	}
	return out
}
