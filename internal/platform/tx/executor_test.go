package tx_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgertx/internal/platform/tx"
)

// fakeBackend records every boundary call in order, e.g. "begin#1",
// "commit#1", "savepoint#1:ledgertx_sp_1".
type fakeBackend struct {
	mu          sync.Mutex
	events      []string
	seq         int
	beginErr    error
	commitErr   error
	rollbackErr error
	releaseErr  error
}

type fakeHandle struct {
	id      int
	backend *fakeBackend
}

func (b *fakeBackend) record(event string) {
	b.mu.Lock()
	b.events = append(b.events, event)
	b.mu.Unlock()
}

func (b *fakeBackend) Events() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.events...)
}

func (b *fakeBackend) Begin(context.Context) (tx.Handle, error) {
	if b.beginErr != nil {
		return nil, b.beginErr
	}
	b.mu.Lock()
	b.seq++
	id := b.seq
	b.mu.Unlock()
	b.record(fmt.Sprintf("begin#%d", id))
	return &fakeHandle{id: id, backend: b}, nil
}

func (h *fakeHandle) Commit(context.Context) error {
	if h.backend.commitErr != nil {
		return h.backend.commitErr
	}
	h.backend.record(fmt.Sprintf("commit#%d", h.id))
	return nil
}

func (h *fakeHandle) Rollback(context.Context) error {
	h.backend.record(fmt.Sprintf("rollback#%d", h.id))
	return h.backend.rollbackErr
}

func (h *fakeHandle) Savepoint(_ context.Context, name string) error {
	h.backend.record(fmt.Sprintf("savepoint#%d:%s", h.id, name))
	return nil
}

func (h *fakeHandle) RollbackToSavepoint(_ context.Context, name string) error {
	h.backend.record(fmt.Sprintf("rollback_to#%d:%s", h.id, name))
	return nil
}

func (h *fakeHandle) ReleaseSavepoint(_ context.Context, name string) error {
	if h.backend.releaseErr != nil {
		return h.backend.releaseErr
	}
	h.backend.record(fmt.Sprintf("release#%d:%s", h.id, name))
	return nil
}

func newExecutor() (*tx.Executor, *fakeBackend) {
	backend := &fakeBackend{}
	return tx.NewExecutor(backend, nil), backend
}

var errBusiness = errors.New("network timeout")

func TestRequiredWithoutAmbientBeginsAndCommitsOnce(t *testing.T) {
	t.Parallel()
	exec, backend := newExecutor()

	var seen *tx.Transaction
	err := exec.Required(context.Background(), func(ctx context.Context) error {
		current, err := tx.Current(ctx)
		require.NoError(t, err)
		require.NotNil(t, current)
		assert.Equal(t, tx.StateActive, current.State())
		seen = current
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"begin#1", "commit#1"}, backend.Events())
	assert.Equal(t, tx.StateCommitted, seen.State())
}

func TestRequiredWithoutAmbientRollsBackOnFailure(t *testing.T) {
	t.Parallel()
	exec, backend := newExecutor()

	err := exec.Required(context.Background(), func(context.Context) error { return errBusiness })
	require.Error(t, err)
	assert.ErrorIs(t, err, errBusiness)
	assert.ErrorIs(t, err, tx.ErrUnitOfWork)
	assert.NotErrorIs(t, err, tx.ErrRollback)
	assert.Equal(t, []string{"begin#1", "rollback#1"}, backend.Events())
}

func TestRequiredJoinsAmbientWithoutNewBoundary(t *testing.T) {
	t.Parallel()
	exec, backend := newExecutor()

	err := exec.Required(context.Background(), func(ctx context.Context) error {
		outer, _ := tx.Current(ctx)
		return exec.Required(ctx, func(inner context.Context) error {
			joined, err := tx.Current(inner)
			require.NoError(t, err)
			assert.Same(t, outer, joined)
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"begin#1", "commit#1"}, backend.Events())
}

func TestRequiredJoinedEffectsFollowOuterFailure(t *testing.T) {
	t.Parallel()
	exec, backend := newExecutor()

	err := exec.Required(context.Background(), func(ctx context.Context) error {
		if err := exec.Required(ctx, func(context.Context) error { return nil }); err != nil {
			return err
		}
		return errBusiness
	})
	assert.ErrorIs(t, err, errBusiness)
	assert.Equal(t, []string{"begin#1", "rollback#1"}, backend.Events())
}

func TestSwallowedJoinedFailureMarksRollbackOnly(t *testing.T) {
	t.Parallel()
	exec, backend := newExecutor()

	err := exec.Required(context.Background(), func(ctx context.Context) error {
		inner := exec.Required(ctx, func(context.Context) error { return errBusiness })
		assert.ErrorIs(t, inner, errBusiness)
		current, _ := tx.Current(ctx)
		assert.True(t, current.RollbackOnly())
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, tx.ErrCommit)
	assert.ErrorIs(t, err, tx.ErrRollbackOnly)
	assert.Equal(t, []string{"begin#1", "rollback#1"}, backend.Events())
}

func TestRequiresNewSuspendsAndResumesAmbient(t *testing.T) {
	t.Parallel()
	exec, backend := newExecutor()

	err := exec.Required(context.Background(), func(ctx context.Context) error {
		outer, _ := tx.Current(ctx)
		err := exec.RequiresNew(ctx, func(inner context.Context) error {
			independent, err := tx.Current(inner)
			require.NoError(t, err)
			assert.NotSame(t, outer, independent)
			assert.Same(t, outer, independent.Suspended())
			assert.Equal(t, tx.StateSuspended, outer.State())

			_, err = tx.Current(ctx)
			assert.ErrorIs(t, err, tx.ErrTransactionSuspended)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, tx.StateActive, outer.State())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"begin#1", "begin#2", "commit#2", "commit#1"}, backend.Events())
}

func TestRequiresNewCommitsEvenWhenOuterFails(t *testing.T) {
	t.Parallel()
	exec, backend := newExecutor()

	err := exec.Required(context.Background(), func(ctx context.Context) error {
		require.NoError(t, exec.RequiresNew(ctx, func(context.Context) error { return nil }))
		return errBusiness
	})
	assert.ErrorIs(t, err, errBusiness)
	assert.Equal(t, []string{"begin#1", "begin#2", "commit#2", "rollback#1"}, backend.Events())
}

func TestRequiresNewFailureRollsBackOnlyItsOwnTransaction(t *testing.T) {
	t.Parallel()
	exec, backend := newExecutor()

	err := exec.Required(context.Background(), func(ctx context.Context) error {
		inner := exec.RequiresNew(ctx, func(context.Context) error { return errBusiness })
		assert.ErrorIs(t, inner, errBusiness)
		current, err := tx.Current(ctx)
		require.NoError(t, err)
		assert.False(t, current.RollbackOnly())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"begin#1", "begin#2", "rollback#2", "commit#1"}, backend.Events())
}

func TestRequiresNewResumesInLIFOOrder(t *testing.T) {
	t.Parallel()
	exec, backend := newExecutor()

	err := exec.Required(context.Background(), func(ctx1 context.Context) error {
		t1, _ := tx.Current(ctx1)
		return exec.RequiresNew(ctx1, func(ctx2 context.Context) error {
			t2, _ := tx.Current(ctx2)
			err := exec.RequiresNew(ctx2, func(ctx3 context.Context) error {
				assert.Equal(t, tx.StateSuspended, t1.State())
				assert.Equal(t, tx.StateSuspended, t2.State())
				return nil
			})
			assert.Equal(t, tx.StateActive, t2.State())
			assert.Equal(t, tx.StateSuspended, t1.State())
			return err
		})
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"begin#1", "begin#2", "begin#3", "commit#3", "commit#2", "commit#1"}, backend.Events())
}

func TestRollbackFailureIsSurfacedDistinctly(t *testing.T) {
	t.Parallel()
	backend := &fakeBackend{rollbackErr: errors.New("connection reset")}
	exec := tx.NewExecutor(backend, nil)

	err := exec.Required(context.Background(), func(context.Context) error { return errBusiness })
	require.Error(t, err)
	assert.ErrorIs(t, err, tx.ErrRollback)
	assert.ErrorIs(t, err, errBusiness)
	assert.ErrorIs(t, err, backend.rollbackErr)

	var txErr *tx.Error
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, tx.KindRollback, txErr.Kind)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Contains(t, err.Error(), "network timeout")
}

func TestBeginAndCommitFailures(t *testing.T) {
	t.Parallel()

	beginFails := tx.NewExecutor(&fakeBackend{beginErr: errors.New("pool exhausted")}, nil)
	called := false
	err := beginFails.Required(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, tx.ErrBegin)
	assert.False(t, called)

	commitFails := tx.NewExecutor(&fakeBackend{commitErr: errors.New("disk full")}, nil)
	err = commitFails.Required(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, tx.ErrCommit)
	assert.NotErrorIs(t, err, tx.ErrUnitOfWork)

	stuck := &tx.Error{Kind: tx.KindRollback, Err: errors.New("conn dropped"), Cause: &tx.Error{Kind: tx.KindCommit, Err: errors.New("database is locked")}}
	cleanupFails := tx.NewExecutor(&fakeBackend{commitErr: stuck}, nil)
	err = cleanupFails.Required(context.Background(), func(context.Context) error { return nil })
	assert.Same(t, stuck, err)
	assert.ErrorIs(t, err, tx.ErrCommit)
	assert.ErrorIs(t, err, tx.ErrRollback)
}

func TestPanicRollsBackAndRepanics(t *testing.T) {
	t.Parallel()
	exec, backend := newExecutor()

	assert.PanicsWithValue(t, "boom", func() {
		_ = exec.Required(context.Background(), func(context.Context) error { panic("boom") })
	})
	assert.Equal(t, []string{"begin#1", "rollback#1"}, backend.Events())
}

func TestSupportsAndNever(t *testing.T) {
	t.Parallel()
	exec, backend := newExecutor()

	err := exec.Run(context.Background(), tx.Supports, func(ctx context.Context) error {
		current, err := tx.Current(ctx)
		require.NoError(t, err)
		assert.Nil(t, current)
		return nil
	})
	require.NoError(t, err)

	err = exec.Run(context.Background(), tx.Never, func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.Empty(t, backend.Events())

	err = exec.Required(context.Background(), func(ctx context.Context) error {
		require.NoError(t, exec.Run(ctx, tx.Supports, func(inner context.Context) error {
			current, _ := tx.Current(inner)
			assert.NotNil(t, current)
			return nil
		}))
		return exec.Run(ctx, tx.Never, func(context.Context) error { return nil })
	})
	assert.ErrorIs(t, err, tx.ErrTransactionExists)
}

func TestMandatoryRequiresAmbient(t *testing.T) {
	t.Parallel()
	exec, backend := newExecutor()

	called := false
	err := exec.Run(context.Background(), tx.Mandatory, func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, tx.ErrNoTransaction)
	assert.False(t, called)

	err = exec.Required(context.Background(), func(ctx context.Context) error {
		return exec.Run(ctx, tx.Mandatory, func(context.Context) error { return nil })
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"begin#1", "commit#1"}, backend.Events())
}

func TestNotSupportedRunsOutsideAndResumes(t *testing.T) {
	t.Parallel()
	exec, backend := newExecutor()

	err := exec.Required(context.Background(), func(ctx context.Context) error {
		outer, _ := tx.Current(ctx)
		err := exec.Run(ctx, tx.NotSupported, func(inner context.Context) error {
			current, err := tx.Current(inner)
			require.NoError(t, err)
			assert.Nil(t, current)
			assert.Equal(t, tx.StateSuspended, outer.State())
			return nil
		})
		assert.Equal(t, tx.StateActive, outer.State())
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"begin#1", "commit#1"}, backend.Events())
}

func TestNestedUsesSavepoints(t *testing.T) {
	t.Parallel()
	exec, backend := newExecutor()

	err := exec.Required(context.Background(), func(ctx context.Context) error {
		require.NoError(t, exec.Run(ctx, tx.Nested, func(context.Context) error { return nil }))
		nestedErr := exec.Run(ctx, tx.Nested, func(context.Context) error { return errBusiness })
		assert.ErrorIs(t, nestedErr, errBusiness)
		current, _ := tx.Current(ctx)
		assert.False(t, current.RollbackOnly())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"begin#1",
		"savepoint#1:ledgertx_sp_1",
		"release#1:ledgertx_sp_1",
		"savepoint#1:ledgertx_sp_2",
		"rollback_to#1:ledgertx_sp_2",
		"commit#1",
	}, backend.Events())
}

func TestNestedReleaseFailureRollsBackToSavepoint(t *testing.T) {
	t.Parallel()
	exec, backend := newExecutor()
	backend.releaseErr = errors.New("savepoint vanished")

	var fired []string
	err := exec.Required(context.Background(), func(ctx context.Context) error {
		nestedErr := exec.Run(ctx, tx.Nested, func(inner context.Context) error {
			return tx.AfterCommit(inner, func(context.Context) { fired = append(fired, "nested") })
		})
		assert.ErrorIs(t, nestedErr, tx.ErrCommit)
		assert.ErrorIs(t, nestedErr, backend.releaseErr)
		current, _ := tx.Current(ctx)
		assert.False(t, current.RollbackOnly())
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, fired)
	assert.Equal(t, []string{
		"begin#1",
		"savepoint#1:ledgertx_sp_1",
		"rollback_to#1:ledgertx_sp_1",
		"commit#1",
	}, backend.Events())
}

func TestNestedWithoutAmbientBehavesLikeRequired(t *testing.T) {
	t.Parallel()
	exec, backend := newExecutor()

	require.NoError(t, exec.Run(context.Background(), tx.Nested, func(context.Context) error { return nil }))
	assert.Equal(t, []string{"begin#1", "commit#1"}, backend.Events())
}

func TestAfterCommitHooks(t *testing.T) {
	t.Parallel()
	exec, _ := newExecutor()

	var fired []string
	hook := func(name string) func(context.Context) {
		return func(context.Context) { fired = append(fired, name) }
	}

	err := exec.Required(context.Background(), func(ctx context.Context) error {
		require.NoError(t, tx.AfterCommit(ctx, hook("outer")))
		_ = exec.Run(ctx, tx.Nested, func(inner context.Context) error {
			require.NoError(t, tx.AfterCommit(inner, hook("discarded")))
			return errBusiness
		})
		require.NoError(t, exec.RequiresNew(ctx, func(inner context.Context) error {
			return tx.AfterCommit(inner, hook("independent"))
		}))
		assert.Equal(t, []string{"independent"}, fired)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"independent", "outer"}, fired)

	fired = nil
	err = exec.Required(context.Background(), func(ctx context.Context) error {
		require.NoError(t, tx.AfterCommit(ctx, hook("never")))
		return errBusiness
	})
	require.Error(t, err)
	assert.Empty(t, fired)

	require.NoError(t, tx.AfterCommit(context.Background(), hook("immediate")))
	assert.Equal(t, []string{"immediate"}, fired)
}

func TestContextOutlivingItsTransactionIsRejected(t *testing.T) {
	t.Parallel()
	exec, _ := newExecutor()

	var leaked context.Context
	require.NoError(t, exec.Required(context.Background(), func(ctx context.Context) error {
		leaked = ctx
		return nil
	}))
	err := exec.Required(leaked, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, tx.ErrTransactionDone)
}

func TestConcurrentCallersAreIsolated(t *testing.T) {
	t.Parallel()
	exec, backend := newExecutor()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = exec.Required(context.Background(), func(ctx context.Context) error {
				current, err := tx.Current(ctx)
				if err != nil || current == nil {
					return errors.New("missing ambient transaction")
				}
				return exec.Required(ctx, func(context.Context) error { return nil })
			})
		}()
	}
	wg.Wait()

	begins, commits := 0, 0
	for _, event := range backend.Events() {
		switch event[:5] {
		case "begin":
			begins++
		case "commi":
			commits++
		}
	}
	assert.Equal(t, 8, begins)
	assert.Equal(t, 8, commits)
}

func TestParsePropagation(t *testing.T) {
	t.Parallel()
	cases := map[string]tx.Propagation{
		"required":      tx.Required,
		"REQUIRES_NEW":  tx.RequiresNew,
		"requires-new":  tx.RequiresNew,
		"not_supported": tx.NotSupported,
		" nested ":      tx.Nested,
	}
	for raw, want := range cases {
		got, err := tx.ParsePropagation(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	_, err := tx.ParsePropagation("sometimes")
	assert.Error(t, err)
	assert.Equal(t, "REQUIRES_NEW", tx.RequiresNew.String())
}
