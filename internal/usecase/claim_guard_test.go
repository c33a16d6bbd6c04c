package usecase

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestClaimGuard_TryAcquireRelease(t *testing.T) {
	t.Parallel()

	guard := NewClaimGuard()
	if !guard.TryAcquire("A") {
		t.Fatalf("first acquire must succeed")
	}
	if guard.TryAcquire("A") {
		t.Fatalf("second acquire without release must be rejected")
	}
	if !guard.IsClaimed("A") {
		t.Fatalf("expected A to be claimed")
	}
	if !guard.TryAcquire("B") {
		t.Fatalf("different ids must not block each other")
	}

	guard.Release("A")
	if guard.IsClaimed("A") {
		t.Fatalf("expected A to be released")
	}
	if !guard.TryAcquire("A") {
		t.Fatalf("acquire after release must succeed")
	}
	if !guard.IsClaimed("A") || !guard.IsClaimed("B") {
		t.Fatalf("expected A and B to be claimed")
	}
	if got := guard.Len(); got != 2 {
		t.Fatalf("unexpected claim count: got=%d want=2", got)
	}
}

func TestClaimGuard_RejectsEmptyID(t *testing.T) {
	t.Parallel()

	guard := NewClaimGuard()
	if guard.TryAcquire("  ") {
		t.Fatalf("empty id must be rejected")
	}
	guard.Release("missing")
}

func TestClaimGuard_ConcurrentAcquireSingleWinner(t *testing.T) {
	t.Parallel()

	guard := NewClaimGuard()
	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if guard.TryAcquire("X") {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := winners.Load(); got != 1 {
		t.Fatalf("unexpected winner count: got=%d want=1", got)
	}
}
