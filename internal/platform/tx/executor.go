package tx

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"ledgertx/internal/platform/logger"
)

// Executor runs units of work under a propagation mode against one Backend.
// The ambient transaction travels in the context passed to each unit of work;
// the executor keeps no per-caller state of its own.
type Executor struct {
	backend Backend
	log     *logger.Logger
	seq     atomic.Uint64
}

func NewExecutor(backend Backend, log *logger.Logger) *Executor {
	if log == nil {
		log = logger.NewNop()
	}
	return &Executor{backend: backend, log: log.With("component", "tx")}
}

func (e *Executor) Required(ctx context.Context, fn func(context.Context) error) error {
	return e.Run(ctx, Required, fn)
}

func (e *Executor) RequiresNew(ctx context.Context, fn func(context.Context) error) error {
	return e.Run(ctx, RequiresNew, fn)
}

func (e *Executor) Run(ctx context.Context, propagation Propagation, fn func(context.Context) error) error {
	ambient, err := Current(ctx)
	if err != nil {
		return err
	}
	switch propagation {
	case Required:
		if ambient != nil {
			return e.join(ctx, ambient, fn)
		}
		return e.begin(ctx, propagation, nil, fn)
	case RequiresNew:
		return e.begin(ctx, propagation, ambient, fn)
	case Supports:
		if ambient != nil {
			return e.join(ctx, ambient, fn)
		}
		return e.plain(ctx, fn)
	case NotSupported:
		if ambient == nil {
			return e.plain(ctx, fn)
		}
		return e.withoutTransaction(ctx, ambient, fn)
	case Mandatory:
		if ambient == nil {
			return ErrNoTransaction
		}
		return e.join(ctx, ambient, fn)
	case Never:
		if ambient != nil {
			return ErrTransactionExists
		}
		return e.plain(ctx, fn)
	case Nested:
		if ambient == nil {
			return e.begin(ctx, propagation, nil, fn)
		}
		return e.savepoint(ctx, ambient, fn)
	default:
		return fmt.Errorf("unsupported propagation %s", propagation)
	}
}

// begin owns a new physical transaction. When suspended is non-nil it is
// detached for the duration and resumed before after-commit hooks run.
func (e *Executor) begin(ctx context.Context, propagation Propagation, suspended *Transaction, fn func(context.Context) error) error {
	hooks, err := e.own(ctx, propagation, suspended, fn)
	for _, hook := range hooks {
		hook(ctx)
	}
	return err
}

func (e *Executor) own(ctx context.Context, propagation Propagation, suspended *Transaction, fn func(context.Context) error) ([]func(context.Context), error) {
	if suspended != nil {
		if err := e.suspend(suspended); err != nil {
			return nil, err
		}
		defer e.resume(suspended)
	}

	handle, err := e.backend.Begin(ctx)
	if err != nil {
		e.log.Warn("transaction begin failed", "propagation", propagation.String(), "error", err)
		return nil, &Error{Kind: KindBegin, Err: err}
	}
	t := newTransaction(e.seq.Add(1), propagation, handle, suspended)
	e.log.Debug("transaction begun", "tx_id", t.id, "propagation", propagation.String())

	if err := e.invoke(ctx, t, fn); err != nil {
		return nil, e.rollback(ctx, t, wrapWork(err))
	}
	if t.RollbackOnly() {
		return nil, e.rollback(ctx, t, &Error{Kind: KindCommit, Err: ErrRollbackOnly})
	}
	if err := handle.Commit(ctx); err != nil {
		t.setState(StateRolledBack)
		t.takeHooks()
		var typed *Error
		if errors.As(err, &typed) {
			e.log.Error("transaction commit failed", "tx_id", t.id, "kind", string(typed.Kind), "error", err)
			return nil, err
		}
		e.log.Warn("transaction commit failed", "tx_id", t.id, "error", err)
		return nil, &Error{Kind: KindCommit, Err: err}
	}
	t.setState(StateCommitted)
	e.log.Debug("transaction committed", "tx_id", t.id)
	return t.takeHooks(), nil
}

func (e *Executor) invoke(ctx context.Context, t *Transaction, fn func(context.Context) error) error {
	defer func() {
		if p := recover(); p != nil {
			_ = e.rollback(ctx, t, fmt.Errorf("panic: %v", p))
			panic(p)
		}
	}()
	return fn(withTransaction(ctx, t))
}

func (e *Executor) rollback(ctx context.Context, t *Transaction, cause error) error {
	rbErr := t.handle.Rollback(context.WithoutCancel(ctx))
	t.setState(StateRolledBack)
	t.takeHooks()
	if rbErr != nil {
		e.log.Error("transaction rollback failed", "tx_id", t.id, "error", rbErr, "cause", cause)
		return &Error{Kind: KindRollback, Err: rbErr, Cause: cause}
	}
	e.log.Debug("transaction rolled back", "tx_id", t.id, "cause", cause)
	return cause
}

// join runs fn inside the ambient transaction without a commit boundary.
// A failure marks the transaction rollback-only so the owner cannot commit it.
func (e *Executor) join(ctx context.Context, t *Transaction, fn func(context.Context) error) error {
	defer func() {
		if p := recover(); p != nil {
			t.markRollbackOnly()
			panic(p)
		}
	}()
	e.log.Debug("joined transaction", "tx_id", t.id, "owner_propagation", t.Propagation().String())
	if err := fn(ctx); err != nil {
		t.markRollbackOnly()
		return wrapWork(err)
	}
	return nil
}

func (e *Executor) plain(ctx context.Context, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		return wrapWork(err)
	}
	return nil
}

func (e *Executor) withoutTransaction(ctx context.Context, ambient *Transaction, fn func(context.Context) error) error {
	if err := e.suspend(ambient); err != nil {
		return err
	}
	defer e.resume(ambient)
	return e.plain(withTransaction(ctx, nil), fn)
}

func (e *Executor) savepoint(ctx context.Context, t *Transaction, fn func(context.Context) error) error {
	name, hookMark := t.nextSavepoint()
	wasRollbackOnly := t.RollbackOnly()
	if err := t.handle.Savepoint(ctx, name); err != nil {
		return &Error{Kind: KindBegin, Err: err}
	}
	e.log.Debug("savepoint created", "tx_id", t.id, "savepoint", name)

	undo := func(cause error) error {
		if rbErr := t.handle.RollbackToSavepoint(context.WithoutCancel(ctx), name); rbErr != nil {
			t.markRollbackOnly()
			e.log.Error("savepoint rollback failed", "tx_id", t.id, "savepoint", name, "error", rbErr)
			return &Error{Kind: KindRollback, Err: rbErr, Cause: cause}
		}
		t.truncateHooks(hookMark)
		t.mu.Lock()
		t.rollbackOnly = wasRollbackOnly
		t.mu.Unlock()
		e.log.Debug("rolled back to savepoint", "tx_id", t.id, "savepoint", name)
		return cause
	}

	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				_ = undo(fmt.Errorf("panic: %v", p))
				panic(p)
			}
		}()
		return fn(ctx)
	}()
	if err != nil {
		return undo(wrapWork(err))
	}
	if err := t.handle.ReleaseSavepoint(ctx, name); err != nil {
		return undo(&Error{Kind: KindCommit, Err: err})
	}
	return nil
}

func (e *Executor) suspend(t *Transaction) error {
	if !t.transition(StateActive, StateSuspended) {
		return fmt.Errorf("suspend transaction %d: %w", t.id, ErrTransactionSuspended)
	}
	e.log.Debug("transaction suspended", "tx_id", t.id)
	return nil
}

func (e *Executor) resume(t *Transaction) {
	if !t.transition(StateSuspended, StateActive) {
		e.log.Error("resume of a transaction that is not suspended", "tx_id", t.id, "state", t.State().String())
		return
	}
	e.log.Debug("transaction resumed", "tx_id", t.id)
}

func savepointName(n int) string {
	return fmt.Sprintf("ledgertx_sp_%d", n)
}
