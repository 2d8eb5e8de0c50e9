package postgres

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/jackc/pgx/v5/pgxpool"

	"canopy/internal/domain/repositories"
)

// Lock key namespaces. Keys are derived from these fixed strings, so every
// process rebuilding the same space contends on the same advisory lock
// regardless of process identity.
const (
	globalRebuildLockName      = "canopy:hierarchy:rebuild"
	spaceRebuildLockNamePrefix = "canopy:hierarchy:rebuild:space:"
)

// AdvisoryLockManager implements LockManager on Postgres advisory locks.
// pg_try_advisory_xact_lock is non-blocking and transaction-scoped: the lock
// is released automatically when the enclosing transaction ends, so a crashed
// rebuild never leaves a lock behind. Callers must run inside ExecTx.
type AdvisoryLockManager struct {
	pool *pgxpool.Pool
}

// NewAdvisoryLockManager creates a new advisory lock manager
func NewAdvisoryLockManager(config *RepositoryConfig) repositories.LockManager {
	return &AdvisoryLockManager{pool: config.Pool}
}

// TryAcquireGlobal attempts the whole-relation rebuild lock
func (m *AdvisoryLockManager) TryAcquireGlobal(ctx context.Context) (bool, error) {
	return m.tryAcquire(ctx, globalRebuildLockName)
}

// TryAcquireSpace attempts the per-space rebuild lock
func (m *AdvisoryLockManager) TryAcquireSpace(ctx context.Context, spaceID string) (bool, error) {
	return m.tryAcquire(ctx, spaceRebuildLockNamePrefix+spaceID)
}

func (m *AdvisoryLockManager) tryAcquire(ctx context.Context, name string) (bool, error) {
	executor := GetExecutor(ctx, m.pool)

	var acquired bool
	err := executor.QueryRow(ctx, "SELECT pg_try_advisory_xact_lock($1)", lockKey(name)).Scan(&acquired)
	if err != nil {
		return false, fmt.Errorf("try advisory lock %q: %w", name, err)
	}

	return acquired, nil
}

// lockKey maps a lock name onto the int64 key space Postgres advisory locks
// use. FNV-1a is stable across processes and platforms; collisions between
// the handful of keys in play would only cause spurious contention, never
// missed mutual exclusion.
func lockKey(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return int64(h.Sum64())
}
