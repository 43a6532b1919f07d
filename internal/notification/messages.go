package notification

import (
	"fmt"
	"strings"

	"property_portal_backend/internal/events"
	"property_portal_backend/internal/interventions/domain"
	"property_portal_backend/internal/notification/inapp"

	"github.com/google/uuid"
)

// Notification types stored on the row and sent with push payloads.
const (
	TypeIntervention = "intervention"
	TypeQuote        = "quote"
	TypeConversation = "conversation"
	TypeDocument     = "document"
	TypeAssignment   = "assignment"
)

// Notice is the rendered content of one notification, identical for every recipient.
type Notice struct {
	Type     string
	Priority string
	Title    string
	Message  string
	URL      string
	Metadata map[string]any
}

var actionTitles = map[domain.Action]string{
	domain.ActionApprove:       "Intervention approuvée",
	domain.ActionReject:        "Intervention rejetée",
	domain.ActionRequestQuotes: "Devis demandés",
	domain.ActionAcceptQuote:   "Devis accepté",
	domain.ActionSchedule:      "Intervention planifiée",
	domain.ActionStart:         "Intervention démarrée",
	domain.ActionComplete:      "Travaux terminés",
	domain.ActionValidate:      "Intervention validée",
	domain.ActionContest:       "Intervention contestée",
	domain.ActionFinalize:      "Intervention clôturée",
	domain.ActionReopen:        "Intervention replanifiée",
	domain.ActionCancel:        "Intervention annulée",
}

var statusLabels = map[domain.Status]string{
	domain.StatusRequested:        "demande",
	domain.StatusApproved:         "approuvée",
	domain.StatusQuoteRequested:   "demande de devis",
	domain.StatusScheduled:        "planifiée",
	domain.StatusInProgress:       "en cours",
	domain.StatusClosedByProvider: "clôturée par le prestataire",
	domain.StatusClosedByTenant:   "clôturée par le locataire",
	domain.StatusClosedByManager:  "clôturée par le gestionnaire",
	domain.StatusRejected:         "rejetée",
	domain.StatusCancelled:        "annulée",
}

var roleLabels = map[domain.Role]string{
	domain.RoleAdmin:    "administrateur",
	domain.RoleManager:  "gestionnaire",
	domain.RoleProvider: "prestataire",
	domain.RoleTenant:   "locataire",
}

// RoleLabel returns the French label of a role.
func RoleLabel(r domain.Role) string {
	return roleLabels[r]
}

func interventionURL(baseURL string, id uuid.UUID) string {
	return strings.TrimRight(baseURL, "/") + "/interventions/" + id.String()
}

func statusNotice(e events.InterventionStatusChanged, baseURL string) Notice {
	title, ok := actionTitles[e.Action]
	if !ok {
		title = "Intervention mise à jour"
	}

	msg := fmt.Sprintf("« %s » est maintenant %s.", e.Title, statusLabels[e.To])
	if e.Reason != "" {
		msg += " Motif : " + e.Reason
	}

	priority := inapp.PriorityNormal
	switch e.Action {
	case domain.ActionReject, domain.ActionContest:
		priority = inapp.PriorityHigh
	case domain.ActionCancel:
		priority = inapp.PriorityLow
	}

	return Notice{
		Type:     TypeIntervention,
		Priority: priority,
		Title:    title,
		Message:  msg,
		URL:      interventionURL(baseURL, e.InterventionID),
		Metadata: map[string]any{
			"interventionId": e.InterventionID,
			"action":         e.Action,
			"from":           e.From,
			"to":             e.To,
			"isContested":    e.IsContested,
		},
	}
}

func quoteDecidedNotice(e events.QuoteDecided, baseURL string) Notice {
	n := Notice{
		Type:     TypeQuote,
		Priority: inapp.PriorityNormal,
		URL:      interventionURL(baseURL, e.InterventionID),
		Metadata: map[string]any{
			"interventionId": e.InterventionID,
			"quoteId":        e.QuoteID,
			"decision":       e.Decision,
			"amountCents":    e.AmountCents,
		},
	}
	amount := formatEUR(e.AmountCents)
	if e.Decision == events.QuoteDecisionAccepted {
		n.Priority = inapp.PriorityHigh
		n.Title = "Votre devis a été accepté"
		n.Message = fmt.Sprintf("Votre devis de %s pour « %s » a été retenu.", amount, e.InterventionTitle)
		return n
	}
	n.Title = "Votre devis n'a pas été retenu"
	n.Message = fmt.Sprintf("Votre devis de %s pour « %s » n'a pas été retenu.", amount, e.InterventionTitle)
	if e.Reason != "" {
		n.Message += " Motif : " + e.Reason
	}
	return n
}

func quoteSubmittedNotice(e events.QuoteSubmitted, title, baseURL string) Notice {
	return Notice{
		Type:     TypeQuote,
		Priority: inapp.PriorityNormal,
		Title:    "Nouveau devis reçu",
		Message:  fmt.Sprintf("Un devis de %s a été déposé pour « %s ».", formatEUR(e.AmountCents), title),
		URL:      interventionURL(baseURL, e.InterventionID),
		Metadata: map[string]any{
			"interventionId": e.InterventionID,
			"quoteId":        e.QuoteID,
		},
	}
}

func messagePostedNotice(e events.ConversationMessagePosted, baseURL string) Notice {
	title := "Nouveau message"
	if e.ThreadTitle != "" {
		title = "Nouveau message : " + e.ThreadTitle
	}
	return Notice{
		Type:     TypeConversation,
		Priority: inapp.PriorityNormal,
		Title:    title,
		Message:  e.Preview,
		URL:      interventionURL(baseURL, e.InterventionID) + "/conversations/" + e.ThreadID.String(),
		Metadata: map[string]any{
			"interventionId": e.InterventionID,
			"threadId":       e.ThreadID,
			"messageId":      e.MessageID,
		},
	}
}

func documentNotice(e events.DocumentUploaded, title, baseURL string) Notice {
	return Notice{
		Type:     TypeDocument,
		Priority: inapp.PriorityLow,
		Title:    "Nouveau document",
		Message:  fmt.Sprintf("%s a été ajouté à « %s ».", e.FileName, title),
		URL:      interventionURL(baseURL, e.InterventionID),
		Metadata: map[string]any{
			"interventionId": e.InterventionID,
			"documentId":     e.DocumentID,
		},
	}
}

func assignedNotice(e events.InterventionAssigned, baseURL string) Notice {
	return Notice{
		Type:     TypeAssignment,
		Priority: inapp.PriorityNormal,
		Title:    "Nouvelle intervention",
		Message:  fmt.Sprintf("Vous avez été ajouté à « %s » en tant que %s.", e.Title, RoleLabel(e.Role)),
		URL:      interventionURL(baseURL, e.InterventionID),
		Metadata: map[string]any{"interventionId": e.InterventionID},
	}
}

func createdNotice(e events.InterventionCreated, baseURL string) Notice {
	priority := inapp.PriorityNormal
	if e.Urgency == domain.UrgencyUrgent {
		priority = inapp.PriorityUrgent
	}
	return Notice{
		Type:     TypeIntervention,
		Priority: priority,
		Title:    "Nouvelle demande d'intervention",
		Message:  fmt.Sprintf("« %s » a été créée.", e.Title),
		URL:      interventionURL(baseURL, e.InterventionID),
		Metadata: map[string]any{"interventionId": e.InterventionID},
	}
}

func formatEUR(cents int64) string {
	return fmt.Sprintf("%d,%02d €", cents/100, cents%100)
}
