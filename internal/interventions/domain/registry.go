package domain

// Rule is one legal transition: from a status, an action leads to a target
// status when performed by one of the listed roles.
type Rule struct {
	From   Status
	Action Action
	To     Status
	Roles  []Role
}

var (
	staff           = []Role{RoleManager, RoleAdmin}
	staffOrProvider = []Role{RoleManager, RoleAdmin, RoleProvider}
	tenantOnly      = []Role{RoleTenant}
)

var defaultRules = []Rule{
	{From: StatusRequested, Action: ActionApprove, To: StatusApproved, Roles: staff},
	{From: StatusRequested, Action: ActionReject, To: StatusRejected, Roles: staff},
	{From: StatusApproved, Action: ActionRequestQuotes, To: StatusQuoteRequested, Roles: staff},
	{From: StatusQuoteRequested, Action: ActionAcceptQuote, To: StatusScheduled, Roles: staff},
	{From: StatusApproved, Action: ActionSchedule, To: StatusScheduled, Roles: staffOrProvider},
	{From: StatusScheduled, Action: ActionStart, To: StatusInProgress, Roles: staffOrProvider},
	{From: StatusInProgress, Action: ActionComplete, To: StatusClosedByProvider, Roles: staffOrProvider},
	{From: StatusClosedByProvider, Action: ActionValidate, To: StatusClosedByTenant, Roles: tenantOnly},
	{From: StatusClosedByProvider, Action: ActionContest, To: StatusClosedByTenant, Roles: tenantOnly},
	{From: StatusClosedByProvider, Action: ActionFinalize, To: StatusClosedByManager, Roles: staff},
	{From: StatusClosedByTenant, Action: ActionFinalize, To: StatusClosedByManager, Roles: staff},
	{From: StatusClosedByProvider, Action: ActionReopen, To: StatusScheduled, Roles: staff},
	{From: StatusClosedByTenant, Action: ActionReopen, To: StatusScheduled, Roles: staff},
	{From: StatusRequested, Action: ActionCancel, To: StatusCancelled, Roles: []Role{RoleManager, RoleAdmin, RoleTenant}},
	{From: StatusApproved, Action: ActionCancel, To: StatusCancelled, Roles: staff},
	{From: StatusQuoteRequested, Action: ActionCancel, To: StatusCancelled, Roles: staff},
	{From: StatusScheduled, Action: ActionCancel, To: StatusCancelled, Roles: staff},
}

type ruleKey struct {
	from   Status
	action Action
}

// Registry answers every legality question about the intervention workflow.
// It is immutable once built and safe for concurrent use.
type Registry struct {
	rules       []Rule
	byKey       map[ruleKey]Rule
	actionRoles map[Action]map[Role]bool
}

// NewRegistry indexes rules. A later rule for the same (from, action) pair
// replaces an earlier one.
func NewRegistry(rules []Rule) *Registry {
	r := &Registry{
		rules:       make([]Rule, 0, len(rules)),
		byKey:       make(map[ruleKey]Rule, len(rules)),
		actionRoles: make(map[Action]map[Role]bool),
	}
	for _, rule := range rules {
		r.rules = append(r.rules, rule)
		r.byKey[ruleKey{from: rule.From, action: rule.Action}] = rule
		roles, ok := r.actionRoles[rule.Action]
		if !ok {
			roles = make(map[Role]bool)
			r.actionRoles[rule.Action] = roles
		}
		for _, role := range rule.Roles {
			roles[role] = true
		}
	}
	return r
}

// DefaultRegistry is the workflow used by the portal.
var DefaultRegistry = NewRegistry(defaultRules)

// CanTransition reports whether role may perform action from current.
func (r *Registry) CanTransition(current Status, action Action, role Role) bool {
	rule, ok := r.byKey[ruleKey{from: current, action: action}]
	if !ok {
		return false
	}
	for _, allowed := range rule.Roles {
		if allowed == role {
			return true
		}
	}
	return false
}

// Target returns the status reached by performing action from current.
func (r *Registry) Target(current Status, action Action) (Status, bool) {
	rule, ok := r.byKey[ruleKey{from: current, action: action}]
	if !ok {
		return "", false
	}
	return rule.To, true
}

// ActionAllowedFor reports whether role may perform action from at least one status.
func (r *Registry) ActionAllowedFor(action Action, role Role) bool {
	return r.actionRoles[action][role]
}

// AvailableActions lists the actions role may perform from current.
func (r *Registry) AvailableActions(current Status, role Role) []Action {
	out := make([]Action, 0)
	for _, action := range allActions {
		if r.CanTransition(current, action, role) {
			out = append(out, action)
		}
	}
	return out
}

// Rules returns a copy of the indexed rules.
func (r *Registry) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// CanTransition checks the default registry.
func CanTransition(current Status, action Action, role Role) bool {
	return DefaultRegistry.CanTransition(current, action, role)
}
