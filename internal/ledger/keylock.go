package ledger

import (
	"bytes"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type rowKey struct {
	storeID uuid.UUID
	skuID   uuid.UUID
}

// LockManager guards ledger rows with one mutex per (store, SKU) pair.
// Multi-row operations must acquire every lock through a single Acquire call
// so the ascending SKU ordering holds globally; that fixed order is what rules
// out deadlock between overlapping operations.
type LockManager struct {
	mu    sync.Mutex
	locks map[rowKey]*sync.Mutex
}

// NewLockManager builds an empty lock manager.
func NewLockManager() *LockManager {
	return &LockManager{locks: make(map[rowKey]*sync.Mutex)}
}

func (m *LockManager) lockFor(key rowKey) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[key] = lock
	}
	return lock
}

// Acquire locks the rows for the given SKUs at one store, in ascending SKU
// order with duplicates collapsed, and returns a release function that unlocks
// them in reverse order. Acquire blocks until every lock is held.
func (m *LockManager) Acquire(storeID uuid.UUID, skuIDs []uuid.UUID) func() {
	ordered := sortedDistinct(skuIDs)
	held := make([]*sync.Mutex, 0, len(ordered))
	for _, skuID := range ordered {
		lock := m.lockFor(rowKey{storeID: storeID, skuID: skuID})
		lock.Lock()
		held = append(held, lock)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

func sortedDistinct(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}
