package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// VerifyResult is the outcome of a hash chain verification, including
// a tally of what the intact portion of the log records.
type VerifyResult struct {
	Valid     bool   `json:"valid"`
	Lines     int    `json:"lines"`
	Blocked   int    `json:"blocked"`
	HighRisk  int    `json:"high_risk"`
	Confirmed int    `json:"confirmed"`
	Error     string `json:"error,omitempty"`
	ErrorLine int    `json:"error_line,omitempty"`
}

func (r VerifyResult) broken(line int, format string, args ...any) VerifyResult {
	r.Valid = false
	r.Error = fmt.Sprintf(format, args...)
	r.ErrorLine = line
	return r
}

// Verify walks a JSONL audit log and validates the hash chain: entry N
// must carry the hash of line N-1, with the first entry anchored to the
// genesis hash. While walking it counts blocked, high-risk, and
// confirmed entries so operators can see what the chain covers.
func Verify(path string) VerifyResult {
	f, err := os.Open(path)
	if err != nil {
		return VerifyResult{Error: fmt.Sprintf("open: %v", err)}
	}
	defer f.Close()

	var res VerifyResult
	wantPrev := GenesisHash

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		res.Lines++
		line := sc.Bytes()

		var entry AuditEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return res.broken(res.Lines, "parse error: %v", err)
		}
		if entry.PrevHash != wantPrev {
			if res.Lines == 1 {
				return res.broken(1, "first entry prev_hash is %q, expected genesis hash", entry.PrevHash)
			}
			return res.broken(res.Lines, "hash mismatch: expected %s, got %s", wantPrev, entry.PrevHash)
		}

		if entry.Status == StatusBlocked {
			res.Blocked++
		}
		if entry.HighRisk {
			res.HighRisk++
		}
		if entry.Confirmed {
			res.Confirmed++
		}

		wantPrev = HashLine(line)
	}

	if err := sc.Err(); err != nil {
		return res.broken(res.Lines, "scan: %v", err)
	}

	res.Valid = true
	return res
}
