package postgres

import (
	"testing"
)

func TestLockKeyDeterministic(t *testing.T) {
	name := spaceRebuildLockNamePrefix + "space-1"
	if lockKey(name) != lockKey(name) {
		t.Error("lockKey is not deterministic for the same name")
	}
}

func TestLockKeyDistinct(t *testing.T) {
	names := []string{
		globalRebuildLockName,
		spaceRebuildLockNamePrefix + "space-1",
		spaceRebuildLockNamePrefix + "space-2",
		spaceRebuildLockNamePrefix + "space-10",
	}

	seen := make(map[int64]string, len(names))
	for _, name := range names {
		key := lockKey(name)
		if prev, ok := seen[key]; ok {
			t.Errorf("lockKey collision: %q and %q both map to %d", prev, name, key)
		}
		seen[key] = name
	}
}
