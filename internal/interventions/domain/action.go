package domain

import "fmt"

// Action is a workflow step requested on an intervention.
type Action string

const (
	ActionApprove       Action = "approve"
	ActionReject        Action = "reject"
	ActionRequestQuotes Action = "request_quotes"
	ActionAcceptQuote   Action = "accept_quote"
	ActionSchedule      Action = "schedule"
	ActionStart         Action = "start"
	ActionComplete      Action = "complete"
	ActionValidate      Action = "validate"
	ActionContest       Action = "contest"
	ActionFinalize      Action = "finalize"
	ActionReopen        Action = "reopen"
	ActionCancel        Action = "cancel"
)

var allActions = []Action{
	ActionApprove,
	ActionReject,
	ActionRequestQuotes,
	ActionAcceptQuote,
	ActionSchedule,
	ActionStart,
	ActionComplete,
	ActionValidate,
	ActionContest,
	ActionFinalize,
	ActionReopen,
	ActionCancel,
}

// ParseAction converts a submitted value into an Action.
func ParseAction(value string) (Action, error) {
	for _, a := range allActions {
		if string(a) == value {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown intervention action %q", value)
}

// Actions returns every known action.
func Actions() []Action {
	out := make([]Action, len(allActions))
	copy(out, allActions)
	return out
}

func (a Action) String() string { return string(a) }

// ReportKind is the kind of report an action records, if any.
type ReportKind string

const (
	ReportCompletion   ReportKind = "completion"
	ReportValidation   ReportKind = "validation"
	ReportContestation ReportKind = "contestation"
)

// ReportFor returns the report kind recorded when action succeeds.
func ReportFor(action Action) (ReportKind, bool) {
	switch action {
	case ActionComplete:
		return ReportCompletion, true
	case ActionValidate:
		return ReportValidation, true
	case ActionContest:
		return ReportContestation, true
	default:
		return "", false
	}
}
