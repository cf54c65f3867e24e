package tx

import (
	"errors"
	"fmt"
)

// Kind classifies where a transactional failure happened.
type Kind string

const (
	KindBegin      Kind = "begin"
	KindUnitOfWork Kind = "unit_of_work"
	KindCommit     Kind = "commit"
	KindRollback   Kind = "rollback"
)

// Error is returned by the executor for every failure it observes.
//
// For KindRollback, Err is the rollback failure and Cause is the failure that
// triggered the rollback. Both stay reachable through errors.Is and errors.As.
type Error struct {
	Kind  Kind
	Err   error
	Cause error
}

var (
	ErrBegin      = &Error{Kind: KindBegin}
	ErrUnitOfWork = &Error{Kind: KindUnitOfWork}
	ErrCommit     = &Error{Kind: KindCommit}
	ErrRollback   = &Error{Kind: KindRollback}
)

var (
	// ErrRollbackOnly is the commit failure reported when a joined participant
	// failed but the owner still attempted to commit.
	ErrRollbackOnly = errors.New("transaction marked rollback-only")
	// ErrNoTransaction is returned for MANDATORY without an ambient transaction.
	ErrNoTransaction = errors.New("no ambient transaction")
	// ErrTransactionExists is returned for NEVER with an ambient transaction.
	ErrTransactionExists = errors.New("ambient transaction exists")
	// ErrTransactionSuspended is returned when a context holding a suspended
	// transaction is used while an independent transaction is running.
	ErrTransactionSuspended = errors.New("transaction is suspended")
	// ErrTransactionDone is returned when a context outlives its transaction.
	ErrTransactionDone = errors.New("transaction already completed")
)

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Err == nil:
		return fmt.Sprintf("transaction %s failure", e.Kind)
	case e.Kind == KindRollback && e.Cause != nil:
		return fmt.Sprintf("transaction rollback failed: %v (original error: %v)", e.Err, e.Cause)
	case e.Kind == KindUnitOfWork:
		return e.Err.Error()
	default:
		return fmt.Sprintf("transaction %s failed: %v", e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Err != nil {
		out = append(out, e.Err)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

// Is matches the kind sentinels (ErrBegin, ErrCommit, ...).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Err != nil || t.Cause != nil {
		return false
	}
	return t.Kind == e.Kind
}

func wrapWork(err error) error {
	var typed *Error
	if errors.As(err, &typed) {
		return err
	}
	return &Error{Kind: KindUnitOfWork, Err: err}
}
