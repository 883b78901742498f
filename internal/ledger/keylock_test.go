package ledger

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSortedDistinctOrdersAscendingAndDedupes(t *testing.T) {
	t.Parallel()

	a := uuid.New()
	b := uuid.New()
	c := uuid.New()

	out := sortedDistinct([]uuid.UUID{c, a, b, a, c})
	if len(out) != 3 {
		t.Fatalf("expected 3 distinct ids, got %d", len(out))
	}
	for i := 1; i < len(out); i++ {
		if bytes.Compare(out[i-1][:], out[i][:]) >= 0 {
			t.Fatalf("ids not in ascending order at %d", i)
		}
	}
}

func TestAcquireSerializesOverlappingSets(t *testing.T) {
	t.Parallel()

	manager := NewLockManager()
	storeID := uuid.New()
	shared := uuid.New()
	other := uuid.New()

	release := manager.Acquire(storeID, []uuid.UUID{shared})

	acquired := make(chan struct{})
	go func() {
		releaseSecond := manager.Acquire(storeID, []uuid.UUID{other, shared})
		close(acquired)
		releaseSecond()
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire should block while the shared row is held")
	case <-time.After(50 * time.Millisecond):
	}

	release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquire never proceeded after release")
	}
}

func TestAcquireDisjointSetsDoNotBlock(t *testing.T) {
	t.Parallel()

	manager := NewLockManager()
	storeID := uuid.New()

	release := manager.Acquire(storeID, []uuid.UUID{uuid.New()})
	defer release()

	done := make(chan struct{})
	go func() {
		releaseOther := manager.Acquire(storeID, []uuid.UUID{uuid.New()})
		releaseOther()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disjoint acquire blocked")
	}
}

func TestConcurrentOverlappingAcquiresComplete(t *testing.T) {
	t.Parallel()

	manager := NewLockManager()
	storeID := uuid.New()
	skus := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			// overlapping subsets in varying declaration order
			set := []uuid.UUID{skus[n%3], skus[(n+1)%3]}
			release := manager.Acquire(storeID, set)
			time.Sleep(time.Millisecond)
			release()
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("overlapping acquires deadlocked")
	}
}
