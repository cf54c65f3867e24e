package tx

import (
	"context"
	"sync"
)

// State is the lifecycle position of one physical transaction.
type State int

const (
	StateNone State = iota
	StateActive
	StateSuspended
	StateCommitted
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "ACTIVE"
	case StateSuspended:
		return "SUSPENDED"
	case StateCommitted:
		return "COMMITTED"
	case StateRolledBack:
		return "ROLLED_BACK"
	default:
		return "NONE"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateRolledBack
}

// Backend is the persistence resource the executor demarcates.
type Backend interface {
	Begin(ctx context.Context) (Handle, error)
}

// Handle is one open backend transaction. Adapters type-assert it back to
// their concrete type to run statements.
type Handle interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Savepoint(ctx context.Context, name string) error
	RollbackToSavepoint(ctx context.Context, name string) error
	ReleaseSavepoint(ctx context.Context, name string) error
}

// Transaction is the ambient transaction carried by a context.
type Transaction struct {
	id          uint64
	propagation Propagation
	handle      Handle
	suspended   *Transaction

	mu           sync.Mutex
	state        State
	rollbackOnly bool
	savepoints   int
	hooks        []func(context.Context)
}

func newTransaction(id uint64, propagation Propagation, handle Handle, suspended *Transaction) *Transaction {
	return &Transaction{id: id, propagation: propagation, handle: handle, suspended: suspended, state: StateActive}
}

func (t *Transaction) ID() uint64 { return t.id }

// Propagation is the mode the transaction was started under.
func (t *Transaction) Propagation() Propagation { return t.propagation }

func (t *Transaction) Handle() Handle { return t.handle }

// Suspended returns the transaction this one suspended, if any.
func (t *Transaction) Suspended() *Transaction { return t.suspended }

func (t *Transaction) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transaction) RollbackOnly() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rollbackOnly
}

func (t *Transaction) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// transition moves from -> to and reports whether the current state matched.
func (t *Transaction) transition(from, to State) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != from {
		return false
	}
	t.state = to
	return true
}

func (t *Transaction) markRollbackOnly() {
	t.mu.Lock()
	t.rollbackOnly = true
	t.mu.Unlock()
}

func (t *Transaction) nextSavepoint() (string, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.savepoints++
	return savepointName(t.savepoints), len(t.hooks)
}

func (t *Transaction) addHook(hook func(context.Context)) {
	t.mu.Lock()
	t.hooks = append(t.hooks, hook)
	t.mu.Unlock()
}

func (t *Transaction) truncateHooks(n int) {
	t.mu.Lock()
	if n < len(t.hooks) {
		t.hooks = t.hooks[:n]
	}
	t.mu.Unlock()
}

func (t *Transaction) takeHooks() []func(context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	hooks := t.hooks
	t.hooks = nil
	return hooks
}

type ctxKey struct{}

func withTransaction(ctx context.Context, t *Transaction) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

// FromContext returns the transaction bound to ctx without checking its state.
func FromContext(ctx context.Context) *Transaction {
	t, _ := ctx.Value(ctxKey{}).(*Transaction)
	return t
}

// Current returns the transaction statements on ctx must run in, or nil when
// ctx carries none.
func Current(ctx context.Context) (*Transaction, error) {
	t := FromContext(ctx)
	if t == nil {
		return nil, nil
	}
	state := t.State()
	switch {
	case state.Terminal():
		return nil, ErrTransactionDone
	case state == StateSuspended:
		return nil, ErrTransactionSuspended
	default:
		return t, nil
	}
}

// AfterCommit registers hook to run once the physical transaction on ctx
// commits. Without an ambient transaction the hook runs immediately.
func AfterCommit(ctx context.Context, hook func(context.Context)) error {
	t, err := Current(ctx)
	if err != nil {
		return err
	}
	if t == nil {
		hook(ctx)
		return nil
	}
	t.addHook(hook)
	return nil
}
