package dispatch

import (
	"fmt"
	"os"
	"sync"
)

// TurnGate serializes interactive conversation turns. Tool calls can
// mutate host state, so at most one turn runs per process regardless
// of the configured concurrency. A ceiling, not a tunable.
type TurnGate struct {
	mu         sync.Mutex
	configured int
}

// NewTurnGate builds the gate, warning when the configuration asked
// for more concurrency than the gate will grant.
func NewTurnGate(configured int) *TurnGate {
	if configured > 1 {
		fmt.Fprintf(os.Stderr, "dispatch: turn concurrency %d clamped to 1\n", configured)
	}
	if configured < 1 {
		configured = 1
	}
	return &TurnGate{configured: configured}
}

// Configured returns the concurrency the config asked for.
func (g *TurnGate) Configured() int { return g.configured }

// Effective returns the concurrency actually granted, always 1.
func (g *TurnGate) Effective() int { return 1 }

// Acquire blocks until the caller holds the single turn slot.
func (g *TurnGate) Acquire() { g.mu.Lock() }

// Release frees the turn slot.
func (g *TurnGate) Release() { g.mu.Unlock() }
