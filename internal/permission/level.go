// Package permission defines the ordered privilege levels gating every
// dispatched action. Levels are integer-comparable; higher strictly
// dominates lower. The parser is total: unknown input resolves to the
// least privilege instead of failing, so a malformed config can never
// grant more than L0.
package permission

import "strings"

// Privilege level constants. Higher level = more allowed.
const (
	L0 Level = 0 // no access
	L1 Level = 1 // read-only
	L2 Level = 2 // managed commands and tools
	L3 Level = 3 // host shell and file mutation
	L4 Level = 4 // root-equivalent, dangerous modes
)

// Level is a privilege rank, comparable with >=.
type Level int

var levelNames = map[string]Level{
	"L0": L0,
	"L1": L1,
	"L2": L2,
	"L3": L3,
	"L4": L4,
}

// ParseLevel maps a level name to its rank. Unrecognized input returns
// L0: the gate fails open to least privilege, never with an error.
func ParseLevel(name string) Level {
	lv, ok := levelNames[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return L0
	}
	return lv
}

// AtLeast reports whether effective meets or exceeds required.
func AtLeast(effective, required Level) bool {
	return effective >= required
}

// String returns the canonical level name.
func (l Level) String() string {
	switch l {
	case L0:
		return "L0"
	case L1:
		return "L1"
	case L2:
		return "L2"
	case L3:
		return "L3"
	case L4:
		return "L4"
	}
	if l < L0 {
		return "L0"
	}
	return "L4"
}
