package expenses

import "fmt"

// transitions is the review workflow. Submitted expenses get one of four
// decisions; flagged ones are re-decided; ready_to_pay closes with payment.
// validated, declined and paid are terminal.
var transitions = map[Status]map[Status]bool{
	StatusSubmitted: {
		StatusReadyToPay: true,
		StatusValidated:  true,
		StatusDeclined:   true,
		StatusFlagged:    true,
	},
	StatusFlagged: {
		StatusReadyToPay: true,
		StatusValidated:  true,
		StatusDeclined:   true,
	},
	StatusReadyToPay: {
		StatusPaid: true,
	},
}

// CanTransition reports whether the workflow allows moving from one status
// to another.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// IsTerminal reports whether no further transitions are possible.
func IsTerminal(status Status) bool {
	return len(transitions[status]) == 0
}

// ValidateTransition checks the workflow edge and the type gating: only
// reimbursable and payable expenses carry a payment leg, so
// non-reimbursable ones are closed via validated instead of ready_to_pay.
func ValidateTransition(expenseType Type, from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if expenseType == TypeNonReimbursable && (to == StatusReadyToPay || to == StatusPaid) {
		return fmt.Errorf("%w: non-reimbursable expenses cannot be marked %s", ErrInvalidTransition, to)
	}
	return nil
}
