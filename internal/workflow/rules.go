package workflow

import "github.com/openmahalla/portalcore/internal/domain"

// Rules is the per-kind transition table. The three submission kinds share
// one engine; only this data differs between them.
type Rules struct {
	// Open is the kind's initial state, and the only state from which the
	// citizen may edit the submission.
	Open domain.Status
	// Working is where a denied confirmation returns the submission to.
	// Deny is an objection to the administrator's claim of resolution, not
	// a terminal decision, so it never lands on a terminal status.
	Working domain.Status
	// CancelDisallowed is the kind's terminal-or-pending-confirmation set.
	CancelDisallowed map[domain.Status]bool
	// Statuses is the kind's full status set, including the
	// administrator-driven states this client only observes.
	Statuses map[domain.Status]bool
}

// rulesByKind is the canonical rule set. The request kind deliberately has a
// wider cancel window than the other two: requests have no confirmation
// step, so cancellation stays open all the way until an administrator
// resolves or rejects them.
var rulesByKind = map[domain.Kind]Rules{
	domain.KindRequest: {
		Open:    domain.StatusPending,
		Working: domain.StatusPending,
		CancelDisallowed: map[domain.Status]bool{
			domain.StatusResolved:  true,
			domain.StatusRejected:  true,
			domain.StatusCancelled: true,
		},
		Statuses: map[domain.Status]bool{
			domain.StatusPending:   true,
			domain.StatusInReview:  true,
			domain.StatusResolved:  true,
			domain.StatusRejected:  true,
			domain.StatusCancelled: true,
		},
	},
	domain.KindServiceReport: {
		Open:    domain.StatusUnavailable,
		Working: domain.StatusInProgress,
		CancelDisallowed: map[domain.Status]bool{
			domain.StatusPendingConfirmation: true,
			domain.StatusConfirmed:           true,
			domain.StatusRejected:            true,
			domain.StatusCancelled:           true,
		},
		Statuses: map[domain.Status]bool{
			domain.StatusUnavailable:         true,
			domain.StatusInProgress:          true,
			domain.StatusPendingConfirmation: true,
			domain.StatusConfirmed:           true,
			domain.StatusRejected:            true,
			domain.StatusCancelled:           true,
		},
	},
	domain.KindMskOrder: {
		Open:    domain.StatusPending,
		Working: domain.StatusPending,
		CancelDisallowed: map[domain.Status]bool{
			domain.StatusPendingConfirmation: true,
			domain.StatusConfirmed:           true,
			domain.StatusRejected:            true,
			domain.StatusCancelled:           true,
		},
		Statuses: map[domain.Status]bool{
			domain.StatusPending:             true,
			domain.StatusInReview:            true,
			domain.StatusPendingConfirmation: true,
			domain.StatusConfirmed:           true,
			domain.StatusRejected:            true,
			domain.StatusCancelled:           true,
		},
	},
}

// RulesFor returns the transition table for a kind.
func RulesFor(kind domain.Kind) (Rules, bool) {
	r, ok := rulesByKind[kind]
	return r, ok
}

// CanEdit reports whether the citizen may still edit the submission.
func CanEdit(sub *domain.Submission) bool {
	r, ok := rulesByKind[sub.Kind]
	return ok && sub.Status == r.Open
}

// CanCancel reports whether the citizen may still cancel the submission.
func CanCancel(sub *domain.Submission) bool {
	r, ok := rulesByKind[sub.Kind]
	return ok && r.Statuses[sub.Status] && !r.CancelDisallowed[sub.Status]
}

// CanConfirm reports whether the submission is waiting on the citizen's
// confirm/deny acknowledgment.
func CanConfirm(sub *domain.Submission) bool {
	return sub.Status == domain.StatusPendingConfirmation
}
