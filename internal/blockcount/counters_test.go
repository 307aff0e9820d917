package blockcount

import (
	"sync"
	"testing"
)

func TestIncAccumulates(t *testing.T) {
	c := New()
	c.Inc(PermissionDeny)
	c.Inc(PermissionDeny)
	c.Inc(BlacklistShell)

	if got := c.Get(PermissionDeny); got != 2 {
		t.Errorf("expected permission_deny=2, got %d", got)
	}
	if got := c.Get(BlacklistShell); got != 1 {
		t.Errorf("expected blacklist_shell=1, got %d", got)
	}
	if got := c.Get(CircuitOpen); got != 0 {
		t.Errorf("expected circuit_open=0, got %d", got)
	}
	if got := c.Total(); got != 3 {
		t.Errorf("expected total=3, got %d", got)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	c := New()
	c.Inc(Unauthorized)

	snap := c.Snapshot()
	snap[Unauthorized] = 99
	snap["bogus"] = 5

	if got := c.Get(Unauthorized); got != 1 {
		t.Errorf("snapshot mutation leaked into counters: %d", got)
	}
	if got := c.Get("bogus"); got != 0 {
		t.Errorf("snapshot mutation leaked new key: %d", got)
	}
}

func TestSnapshotOmitsUntouchedReasons(t *testing.T) {
	c := New()
	c.Inc(MemHeavyReject)

	snap := c.Snapshot()
	if len(snap) != 1 {
		t.Errorf("expected 1 entry, got %d: %v", len(snap), snap)
	}
}

func TestConcurrentInc(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Inc(ConfirmRequired)
			}
		}()
	}
	wg.Wait()

	if got := c.Get(ConfirmRequired); got != 1000 {
		t.Errorf("expected 1000 after concurrent increments, got %d", got)
	}
}
