package notification

import (
	"property_portal_backend/internal/directory"
	"property_portal_backend/internal/interventions/domain"

	"github.com/google/uuid"
)

// Recipient is one user a notification is addressed to. IsPersonal marks
// users addressed directly rather than informed as members of the team.
type Recipient struct {
	UserID     uuid.UUID
	Role       domain.Role
	IsPersonal bool
}

// statusAudience lists, per action, the assignment roles informed of the change.
var statusAudience = map[domain.Action][]domain.Role{
	domain.ActionApprove:       {domain.RoleManager, domain.RoleTenant},
	domain.ActionReject:        {domain.RoleManager, domain.RoleTenant},
	domain.ActionRequestQuotes: {domain.RoleManager, domain.RoleProvider},
	domain.ActionAcceptQuote:   {domain.RoleManager, domain.RoleProvider, domain.RoleTenant},
	domain.ActionSchedule:      {domain.RoleManager, domain.RoleProvider, domain.RoleTenant},
	domain.ActionStart:         {domain.RoleManager, domain.RoleTenant},
	domain.ActionComplete:      {domain.RoleManager, domain.RoleTenant},
	domain.ActionValidate:      {domain.RoleManager, domain.RoleProvider},
	domain.ActionContest:       {domain.RoleManager, domain.RoleProvider},
	domain.ActionFinalize:      {domain.RoleManager, domain.RoleProvider, domain.RoleTenant},
	domain.ActionReopen:        {domain.RoleManager, domain.RoleProvider, domain.RoleTenant},
	domain.ActionCancel:        {domain.RoleManager, domain.RoleProvider, domain.RoleTenant},
}

// Audience returns the roles informed when action is performed.
func Audience(action domain.Action) []domain.Role {
	roles := statusAudience[action]
	out := make([]domain.Role, len(roles))
	copy(out, roles)
	return out
}

// recipientSet deduplicates users while keeping insertion order.
// A user added several times is personal if any addition was.
type recipientSet struct {
	actor uuid.UUID
	order []uuid.UUID
	byID  map[uuid.UUID]*Recipient
}

func newRecipientSet(actor uuid.UUID) *recipientSet {
	return &recipientSet{actor: actor, byID: make(map[uuid.UUID]*Recipient)}
}

func (s *recipientSet) add(userID uuid.UUID, role domain.Role, personal bool) {
	if userID == uuid.Nil || userID == s.actor {
		return
	}
	if r, ok := s.byID[userID]; ok {
		r.IsPersonal = r.IsPersonal || personal
		if r.Role == "" {
			r.Role = role
		}
		return
	}
	s.byID[userID] = &Recipient{UserID: userID, Role: role, IsPersonal: personal}
	s.order = append(s.order, userID)
}

func (s *recipientSet) list() []Recipient {
	out := make([]Recipient, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.byID[id])
	}
	return out
}

// StatusRecipients computes who hears about a transition. Assignment users
// whose role is in the action's audience are included, personal when the
// assignment is primary. The intervention's tenant counts as a primary tenant.
func StatusRecipients(iv domain.Intervention, assignments []domain.Assignment, action domain.Action, actor domain.Actor) []Recipient {
	set := newRecipientSet(actor.ID)
	audience := make(map[domain.Role]bool)
	for _, r := range statusAudience[action] {
		audience[r] = true
	}

	for _, a := range assignments {
		if audience[a.Role] {
			set.add(a.UserID, a.Role, a.IsPrimary)
		}
	}
	if audience[domain.RoleTenant] && iv.TenantID != nil {
		set.add(*iv.TenantID, domain.RoleTenant, true)
	}
	return set.list()
}

// ConversationRecipients is the thread's participants plus every team
// manager or admin with a login. Participants are personal; staff added
// only for transparency are not.
func ConversationRecipients(participants []uuid.UUID, staff []directory.Contact, actor domain.Actor) []Recipient {
	set := newRecipientSet(actor.ID)
	for _, id := range participants {
		set.add(id, "", true)
	}
	for _, c := range staff {
		if c.Role.IsStaff() && c.HasAuthAccount {
			set.add(c.UserID, c.Role, false)
		}
	}
	return set.list()
}

// QuoteRecipients addresses the provider who sent the quote.
func QuoteRecipients(providerID uuid.UUID, actor domain.Actor) []Recipient {
	set := newRecipientSet(actor.ID)
	set.add(providerID, domain.RoleProvider, true)
	return set.list()
}

// DocumentRecipients informs every assigned user and the tenant.
func DocumentRecipients(iv domain.Intervention, assignments []domain.Assignment, actor domain.Actor) []Recipient {
	set := newRecipientSet(actor.ID)
	for _, a := range assignments {
		set.add(a.UserID, a.Role, a.IsPrimary)
	}
	if iv.TenantID != nil {
		set.add(*iv.TenantID, domain.RoleTenant, true)
	}
	return set.list()
}

// AssignedRecipients addresses the newly assigned user.
func AssignedRecipients(userID uuid.UUID, role domain.Role, actor domain.Actor) []Recipient {
	set := newRecipientSet(actor.ID)
	set.add(userID, role, true)
	return set.list()
}

// QuoteSubmittedRecipients informs the managers assigned to the intervention,
// or the whole team staff when none is assigned.
func QuoteSubmittedRecipients(assignments []domain.Assignment, staff []directory.Contact, actor domain.Actor) []Recipient {
	set := newRecipientSet(actor.ID)
	for _, a := range assignments {
		if a.Role == domain.RoleManager {
			set.add(a.UserID, a.Role, a.IsPrimary)
		}
	}
	if len(set.order) == 0 {
		return TeamRecipients(staff, actor)
	}
	return set.list()
}

// TeamRecipients informs the team staff, none of them personally.
func TeamRecipients(staff []directory.Contact, actor domain.Actor) []Recipient {
	set := newRecipientSet(actor.ID)
	for _, c := range staff {
		if c.Role.IsStaff() {
			set.add(c.UserID, c.Role, false)
		}
	}
	return set.list()
}
