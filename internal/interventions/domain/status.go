// Package domain holds the intervention workflow rules: the closed status,
// role and action sets and the registry of legal transitions.
package domain

import "fmt"

// Status is the workflow position of an intervention.
type Status string

const (
	StatusRequested        Status = "demande"
	StatusApproved         Status = "approuvee"
	StatusQuoteRequested   Status = "demande_de_devis"
	StatusScheduled        Status = "planifiee"
	StatusInProgress       Status = "en_cours"
	StatusClosedByProvider Status = "cloturee_par_prestataire"
	StatusClosedByTenant   Status = "cloturee_par_locataire"
	StatusClosedByManager  Status = "cloturee_par_gestionnaire"
	StatusRejected         Status = "rejetee"
	StatusCancelled        Status = "annulee"
)

var allStatuses = []Status{
	StatusRequested,
	StatusApproved,
	StatusQuoteRequested,
	StatusScheduled,
	StatusInProgress,
	StatusClosedByProvider,
	StatusClosedByTenant,
	StatusClosedByManager,
	StatusRejected,
	StatusCancelled,
}

var terminalStatuses = map[Status]bool{
	StatusClosedByManager: true,
	StatusRejected:        true,
	StatusCancelled:       true,
}

// Statuses returns every known status in workflow order.
func Statuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a stored or submitted value into a Status.
func ParseStatus(value string) (Status, error) {
	for _, s := range allStatuses {
		if string(s) == value {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown intervention status %q", value)
}

// Valid reports whether s belongs to the closed status set.
func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// IsTerminal reports whether no action can leave s.
func IsTerminal(s Status) bool {
	return terminalStatuses[s]
}

func (s Status) String() string { return string(s) }
