// Package blockcount tracks how often the daemon refused an action,
// keyed by refusal reason. Diagnostics and alerts report the reason
// names verbatim, so they are stable strings.
package blockcount

import "sync"

// Refusal reasons.
const (
	Unauthorized       = "unauthorized"
	MemForceReadOnly   = "mem_force_read_only"
	MemHeavyReject     = "mem_heavy_reject"
	BlacklistAction    = "blacklist_action"
	BlacklistTool      = "blacklist_tool"
	PermissionDeny     = "permission_deny"
	ConfirmRequired    = "confirm_required"
	BlacklistCommand   = "blacklist_command"
	BlacklistPlugin    = "blacklist_plugin"
	AssistantRecursion = "assistant_recursion_block"
	BlacklistShell     = "blacklist_shell"
	RootRuntimeGuard   = "root_runtime_l3_guard"
	CircuitOpen        = "circuit_open"
)

// Counters accumulates per-reason refusal counts. Safe for concurrent use.
type Counters struct {
	mu     sync.Mutex
	counts map[string]int
}

// New creates an empty counter set.
func New() *Counters {
	return &Counters{counts: make(map[string]int)}
}

// Inc records one refusal under the given reason.
func (c *Counters) Inc(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[reason]++
}

// Get returns the current count for a reason.
func (c *Counters) Get(reason string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[reason]
}

// Snapshot returns a copy of all nonzero counters.
func (c *Counters) Snapshot() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// Total returns the sum across all reasons.
func (c *Counters) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	sum := 0
	for _, v := range c.counts {
		sum += v
	}
	return sum
}
