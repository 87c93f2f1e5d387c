// Package optimistic applies a local state change before the remote write that
// confirms it, undoing the change when the write fails.
package optimistic

import "context"

// Op describes one optimistic mutation.
//
// Apply mutates local state and must not block. Commit performs the remote write.
// Revert restores the state Apply replaced; it is only called when Commit fails.
type Op struct {
	Apply  func()
	Commit func(ctx context.Context) error
	Revert func()
}

// Run executes op. Apply always runs first and synchronously, so observers see
// the new state before any network I/O starts. When Commit fails, Revert runs
// before the error is returned.
func Run(ctx context.Context, op Op) error {
	if op.Apply != nil {
		op.Apply()
	}
	if op.Commit == nil {
		return nil
	}
	if err := op.Commit(ctx); err != nil {
		if op.Revert != nil {
			op.Revert()
		}
		return err
	}
	return nil
}
