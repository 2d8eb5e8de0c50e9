package repositories

import "context"

// LockManager provides named, non-blocking, transaction-scoped mutual
// exclusion for hierarchy rebuilds. A lock is held until the enclosing
// transaction commits or rolls back; there is no explicit release. A caller
// requesting a key another transaction holds gets false immediately.
//
// Keys are derived deterministically from fixed strings, so any two
// processes rebuilding the same space contend on the same lock.
type LockManager interface {
	// TryAcquireGlobal attempts the whole-relation rebuild lock
	TryAcquireGlobal(ctx context.Context) (bool, error)

	// TryAcquireSpace attempts the per-space rebuild lock
	TryAcquireSpace(ctx context.Context, spaceID string) (bool, error)
}
