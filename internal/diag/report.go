// Package diag assembles the read-only status report: breaker state,
// block counters, executor availability, memory pressure, and runtime
// warnings. Building a report has no side effects.
package diag

import (
	"context"
	"fmt"
	"os"

	"github.com/ppiankov/clawgate/internal/blockcount"
	"github.com/ppiankov/clawgate/internal/confirm"
	"github.com/ppiankov/clawgate/internal/gateway"
	"github.com/ppiankov/clawgate/internal/ident"
	"github.com/ppiankov/clawgate/internal/jobqueue"
	"github.com/ppiankov/clawgate/internal/permission"
)

// Deps are the live components a report reads from. Nil fields are
// reported as absent rather than probed.
type Deps struct {
	Service        string
	Version        string
	Level          permission.Level
	Gateway        *gateway.Client
	Counters       *blockcount.Counters
	Queue          *jobqueue.Queue
	Confirm        *confirm.Manager
	Denylist       func() map[string]any
	TurnConfigured int
	TurnEffective  int
}

// Report is the diagnostics payload served by /status and read_status.
type Report struct {
	Service         string               `json:"service"`
	Version         string               `json:"version"`
	Time            string               `json:"time"`
	PermissionLevel string               `json:"permission_level"`
	EUID            int                  `json:"euid"`
	MemAvailableMB  int                  `json:"mem_available_mb"`
	Gateway         *GatewayReport       `json:"gateway,omitempty"`
	BlockCounters   map[string]int       `json:"block_counters"`
	Executors       map[string]bool      `json:"executors"`
	Worker          WorkerReport         `json:"worker"`
	PendingConfirms int                  `json:"pending_confirms"`
	Denylist        map[string]any       `json:"denylist,omitempty"`
	Warnings        []string             `json:"warnings"`
	Probe           *gateway.ProbeResult `json:"probe,omitempty"`
}

// GatewayReport summarizes upstream connectivity state.
type GatewayReport struct {
	Endpoints []string             `json:"endpoints"`
	Breaker   gateway.BreakerState `json:"breaker"`
}

// WorkerReport summarizes the job execution path.
type WorkerReport struct {
	QueueDepth  int `json:"queue_depth"`
	Concurrency int `json:"concurrency"`
}

// BuildReport assembles a Report from live components. When probe is
// true and a gateway is configured, a one-shot connectivity probe is
// included.
func BuildReport(ctx context.Context, d Deps, probe bool) *Report {
	r := &Report{
		Service:         d.Service,
		Version:         d.Version,
		Time:            ident.UTCNowISO(),
		PermissionLevel: d.Level.String(),
		EUID:            os.Geteuid(),
		MemAvailableMB:  AvailableMemMB(),
		Worker:          WorkerReport{Concurrency: 1},
	}
	if r.Service == "" {
		r.Service = "clawgate"
	}

	if d.Counters != nil {
		r.BlockCounters = d.Counters.Snapshot()
	} else {
		r.BlockCounters = map[string]int{}
	}

	if d.Gateway != nil {
		r.Gateway = &GatewayReport{
			Endpoints: d.Gateway.Endpoints(),
			Breaker:   d.Gateway.Breaker().Snapshot(),
		}
		if probe {
			result := d.Gateway.Probe(ctx)
			r.Probe = &result
		}
	}

	if d.Queue != nil {
		r.Executors = d.Queue.ExecutorsAvailable()
		r.Worker.QueueDepth = d.Queue.Depth()
	} else {
		r.Executors = map[string]bool{}
	}

	if d.Confirm != nil {
		r.PendingConfirms = d.Confirm.PendingCount()
	}

	if d.Denylist != nil {
		r.Denylist = d.Denylist()
	}

	r.Warnings = buildWarnings(d, r)
	return r
}

func buildWarnings(d Deps, r *Report) []string {
	warnings := []string{}

	if d.Gateway == nil || len(d.Gateway.Endpoints()) == 0 {
		warnings = append(warnings, "no gateway endpoints configured")
	} else if len(d.Gateway.Endpoints()) < 2 {
		warnings = append(warnings, "no backup gateway configured")
	}

	if r.MemAvailableMB >= 0 && r.MemAvailableMB < MemForceReadOnlyMB {
		warnings = append(warnings,
			fmt.Sprintf("available memory %dMB below %dMB: dispatch degraded to read-only",
				r.MemAvailableMB, MemForceReadOnlyMB))
	} else if r.MemAvailableMB >= 0 && r.MemAvailableMB < MemHeavyRejectMB {
		warnings = append(warnings,
			fmt.Sprintf("available memory %dMB below %dMB: heavy requests rejected",
				r.MemAvailableMB, MemHeavyRejectMB))
	}

	if r.EUID == 0 && d.Level < permission.L4 {
		warnings = append(warnings,
			"process runs as root while permission level is below L4: mutating handlers are restricted")
	}

	if d.TurnConfigured > d.TurnEffective && d.TurnEffective == 1 {
		warnings = append(warnings,
			fmt.Sprintf("configured turn concurrency %d clamped to 1", d.TurnConfigured))
	}

	return warnings
}
