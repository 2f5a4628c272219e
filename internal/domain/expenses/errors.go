package expenses

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("expense not found")
	ErrNotOwner            = errors.New("expense belongs to another profile")
	ErrNotEditable         = errors.New("expense can no longer be modified")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrBankDetailsRequired = errors.New("bank details required for reimbursable expenses")
	ErrConflict            = errors.New("expense conflict")
)

// FieldError reports a validation failure for a single input field.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
