// Package notification fans domain events out to the users concerned,
// through in-app rows, push notifications and throttled emails.
// Domain modules only publish events; they never know about channels.
package notification

import (
	"context"

	"property_portal_backend/internal/directory"
	"property_portal_backend/internal/effects"
	"property_portal_backend/internal/events"
	apphttp "property_portal_backend/internal/http"
	"property_portal_backend/internal/interventions/domain"
	notifhandler "property_portal_backend/internal/notification/handler"
	"property_portal_backend/platform/config"
	"property_portal_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// InterventionReader loads an intervention and its assignments.
type InterventionReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Intervention, error)
	ListAssignments(ctx context.Context, interventionID uuid.UUID) ([]domain.Assignment, error)
}

// ParticipantReader lists the members of a conversation thread.
type ParticipantReader interface {
	ListParticipants(ctx context.Context, threadID uuid.UUID) ([]uuid.UUID, error)
}

// DirectoryReader resolves contacts and team staff.
type DirectoryReader interface {
	ContactsByIDs(ctx context.Context, ids []uuid.UUID) ([]directory.Contact, error)
	TeamStaff(ctx context.Context, teamID uuid.UUID) ([]directory.Contact, error)
}

// Readers are the lookups recipient computation needs.
type Readers struct {
	Interventions InterventionReader
	Participants  ParticipantReader
	Directory     DirectoryReader
}

// Module handles all notification-related event subscriptions.
type Module struct {
	readers    Readers
	dispatcher *Dispatcher
	cfg        config.NotificationConfig
	log        *logger.Logger
	handler    *notifhandler.HTTPHandler
	observer   func(event string, report effects.Report)
}

// New creates the notification module.
func New(readers Readers, channels Channels, runner EffectRunner, cfg config.NotificationConfig, log *logger.Logger) *Module {
	return &Module{
		readers:    readers,
		dispatcher: NewDispatcher(channels, readers.Directory, runner, log),
		cfg:        cfg,
		log:        log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "notification" }

// SetHTTPHandler injects the inbox, stream and device endpoints.
func (m *Module) SetHTTPHandler(h *notifhandler.HTTPHandler) { m.handler = h }

// RegisterRoutes registers notification API routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	if m.handler == nil {
		return
	}
	m.handler.RegisterRoutes(ctx.Protected.Group("/notifications"))
	m.handler.RegisterDeviceRoutes(ctx.Protected.Group("/devices"))
}

// RegisterHandlers subscribes to all relevant domain events on the event bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.InterventionCreated{}.EventName(), m)
	bus.Subscribe(events.InterventionStatusChanged{}.EventName(), m)
	bus.Subscribe(events.InterventionAssigned{}.EventName(), m)
	bus.Subscribe(events.QuoteDecided{}.EventName(), m)
	bus.Subscribe(events.QuoteSubmitted{}.EventName(), m)
	bus.Subscribe(events.ConversationMessagePosted{}.EventName(), m)
	bus.Subscribe(events.DocumentUploaded{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method. Channel failures
// are logged, never returned: the event that triggered them already happened.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.InterventionCreated:
		return m.handleCreated(ctx, e)
	case events.InterventionStatusChanged:
		return m.handleStatusChanged(ctx, e)
	case events.InterventionAssigned:
		return m.handleAssigned(ctx, e)
	case events.QuoteDecided:
		return m.handleQuoteDecided(ctx, e)
	case events.QuoteSubmitted:
		return m.handleQuoteSubmitted(ctx, e)
	case events.ConversationMessagePosted:
		return m.handleMessagePosted(ctx, e)
	case events.DocumentUploaded:
		return m.handleDocumentUploaded(ctx, e)
	default:
		return nil
	}
}

func (m *Module) baseURL() string {
	if m.cfg == nil {
		return ""
	}
	return m.cfg.GetAppBaseURL()
}

func (m *Module) dispatch(ctx context.Context, eventName string, d Dispatch) effects.Report {
	report := m.dispatcher.Dispatch(ctx, d)
	if failed := report.Failed(); len(failed) > 0 {
		names := make([]string, 0, len(failed))
		for _, o := range failed {
			names = append(names, o.Name)
		}
		m.log.Error("notification dispatch incomplete",
			"event", eventName,
			"failedChannels", names,
			"recipients", len(d.Recipients),
		)
	}
	if m.observer != nil {
		m.observer(eventName, report)
	}
	return report
}

// loadIntervention fetches the intervention and its assignments concurrently.
func (m *Module) loadIntervention(ctx context.Context, id uuid.UUID) (domain.Intervention, []domain.Assignment, error) {
	var (
		iv          domain.Intervention
		assignments []domain.Assignment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		iv, err = m.readers.Interventions.GetByID(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		assignments, err = m.readers.Interventions.ListAssignments(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Intervention{}, nil, err
	}
	return iv, assignments, nil
}

func (m *Module) handleStatusChanged(ctx context.Context, e events.InterventionStatusChanged) error {
	iv, assignments, err := m.loadIntervention(ctx, e.InterventionID)
	if err != nil {
		m.log.Error("failed to resolve status recipients", "error", err, "interventionId", e.InterventionID)
		return nil
	}

	m.dispatch(ctx, e.EventName(), Dispatch{
		TeamID:     e.TeamID,
		Actor:      e.Actor,
		Notice:     statusNotice(e, m.baseURL()),
		Recipients: StatusRecipients(iv, assignments, e.Action, e.Actor),
	})
	return nil
}

func (m *Module) handleQuoteDecided(ctx context.Context, e events.QuoteDecided) error {
	m.dispatch(ctx, e.EventName(), Dispatch{
		TeamID:     e.TeamID,
		Actor:      e.Actor,
		Notice:     quoteDecidedNotice(e, m.baseURL()),
		Recipients: QuoteRecipients(e.ProviderID, e.Actor),
	})
	return nil
}

func (m *Module) handleQuoteSubmitted(ctx context.Context, e events.QuoteSubmitted) error {
	iv, assignments, err := m.loadIntervention(ctx, e.InterventionID)
	if err != nil {
		m.log.Error("failed to resolve quote recipients", "error", err, "interventionId", e.InterventionID)
		return nil
	}

	var staff []directory.Contact
	if !hasRole(assignments, domain.RoleManager) {
		if staff, err = m.readers.Directory.TeamStaff(ctx, e.TeamID); err != nil {
			m.log.Error("failed to load team staff", "error", err, "teamId", e.TeamID)
			return nil
		}
	}

	m.dispatch(ctx, e.EventName(), Dispatch{
		TeamID:     e.TeamID,
		Actor:      e.Actor,
		Notice:     quoteSubmittedNotice(e, iv.Title, m.baseURL()),
		Recipients: QuoteSubmittedRecipients(assignments, staff, e.Actor),
	})
	return nil
}

func (m *Module) handleMessagePosted(ctx context.Context, e events.ConversationMessagePosted) error {
	var (
		participants []uuid.UUID
		staff        []directory.Contact
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		participants, err = m.readers.Participants.ListParticipants(gctx, e.ThreadID)
		return err
	})
	g.Go(func() error {
		var err error
		staff, err = m.readers.Directory.TeamStaff(gctx, e.TeamID)
		return err
	})
	if err := g.Wait(); err != nil {
		m.log.Error("failed to resolve conversation recipients", "error", err, "threadId", e.ThreadID)
		return nil
	}

	threadID := e.ThreadID
	m.dispatch(ctx, e.EventName(), Dispatch{
		TeamID:     e.TeamID,
		Actor:      e.Actor,
		ThreadID:   &threadID,
		Notice:     messagePostedNotice(e, m.baseURL()),
		Recipients: ConversationRecipients(participants, staff, e.Actor),
	})
	return nil
}

func (m *Module) handleDocumentUploaded(ctx context.Context, e events.DocumentUploaded) error {
	iv, assignments, err := m.loadIntervention(ctx, e.InterventionID)
	if err != nil {
		m.log.Error("failed to resolve document recipients", "error", err, "interventionId", e.InterventionID)
		return nil
	}

	m.dispatch(ctx, e.EventName(), Dispatch{
		TeamID:     e.TeamID,
		Actor:      e.Actor,
		Notice:     documentNotice(e, iv.Title, m.baseURL()),
		Recipients: DocumentRecipients(iv, assignments, e.Actor),
	})
	return nil
}

func (m *Module) handleAssigned(ctx context.Context, e events.InterventionAssigned) error {
	m.dispatch(ctx, e.EventName(), Dispatch{
		TeamID:     e.TeamID,
		Actor:      e.Actor,
		Notice:     assignedNotice(e, m.baseURL()),
		Recipients: AssignedRecipients(e.UserID, e.Role, e.Actor),
	})
	return nil
}

func (m *Module) handleCreated(ctx context.Context, e events.InterventionCreated) error {
	staff, err := m.readers.Directory.TeamStaff(ctx, e.TeamID)
	if err != nil {
		m.log.Error("failed to load team staff", "error", err, "teamId", e.TeamID)
		return nil
	}

	m.dispatch(ctx, e.EventName(), Dispatch{
		TeamID:     e.TeamID,
		Actor:      e.Actor,
		Notice:     createdNotice(e, m.baseURL()),
		Recipients: TeamRecipients(staff, e.Actor),
	})
	return nil
}

func hasRole(assignments []domain.Assignment, role domain.Role) bool {
	for _, a := range assignments {
		if a.Role == role {
			return true
		}
	}
	return false
}
