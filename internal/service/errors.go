package service

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Errors returned by the coordinator. Callers match them with errors.Is.
var (
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrAlreadyFinalized   = errors.New("already finalized")
	ErrNoAssigneeFound    = errors.New("no assignee found")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrConcurrentUpdate   = errors.New("changed by another request, please retry")

	ErrReasonRequired       = errors.New("reason is required")
	ErrInvalidPaymentMethod = errors.New("invalid payment_method")
	ErrInvalidQuantity      = errors.New("quantity must be > 0")
	ErrEmptyItems           = errors.New("items are required")
	ErrInvalidTip           = errors.New("tip must be >= 0")
	ErrInvalidNotification  = errors.New("invalid notification")
	ErrInvalidTableStatus   = errors.New("invalid table status")
)

// TransitionError names the state an entity was in and the state that was
// requested. It matches ErrInvalidTransition.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot move from %s to %s", e.Entity, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

func preconditionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPreconditionFailed, fmt.Sprintf(format, args...))
}

// lookupErr maps a missing row to ErrNotFound.
func lookupErr(entity string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", entity, ErrNotFound)
	}
	return fmt.Errorf("get %s: %w", entity, err)
}

// casErr maps a compare-and-swap that matched no row to ErrConcurrentUpdate.
func casErr(entity string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", entity, ErrConcurrentUpdate)
	}
	return fmt.Errorf("update %s: %w", entity, err)
}

// assignmentErr maps a second active assignment, rejected by the unique
// index, to ErrConcurrentUpdate.
func assignmentErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("assignment: %w", ErrConcurrentUpdate)
	}
	return fmt.Errorf("create assignment: %w", err)
}
