package mission

import (
	"fmt"
	"strings"

	clierr "github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/errors"
)

// Status is the mission lifecycle state. The zero value is not a valid state.
type Status uint8

const (
	StatusPreparing Status = iota + 1
	StatusLaunched
	StatusInTransit
	StatusCompleted
	StatusFailed
)

var statusNames = map[Status]string{
	StatusPreparing: "preparing",
	StatusLaunched:  "launched",
	StatusInTransit: "in_transit",
	StatusCompleted: "completed",
	StatusFailed:    "failed",
}

var statusTitles = map[Status]string{
	StatusPreparing: "Preparing",
	StatusLaunched:  "Launched",
	StatusInTransit: "In transit",
	StatusCompleted: "Completed",
	StatusFailed:    "Failed",
}

// transitions lists the successors of every non-terminal state.
var transitions = map[Status][]Status{
	StatusPreparing: {StatusLaunched, StatusFailed},
	StatusLaunched:  {StatusInTransit, StatusFailed},
	StatusInTransit: {StatusCompleted, StatusFailed},
}

// AllStatuses returns the states in lifecycle order.
func AllStatuses() []Status {
	return []Status{StatusPreparing, StatusLaunched, StatusInTransit, StatusCompleted, StatusFailed}
}

func ParseStatus(raw string) (Status, error) {
	norm := strings.ToLower(strings.TrimSpace(raw))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	for s, name := range statusNames {
		if name == norm {
			return s, nil
		}
	}
	return 0, clierr.New(clierr.CodeInvalidTransition, fmt.Sprintf("unknown mission status %q", raw))
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

func (s Status) Title() string {
	return statusTitles[s]
}

func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ReachedLaunch reports whether a mission in s has been launched at some point.
func (s Status) ReachedLaunch() bool {
	return s == StatusLaunched || s == StatusInTransit || s == StatusCompleted
}

// CanTransition reports whether to is a direct successor of from.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// resolve returns the status a mission in cur ends up in after an event
// requesting next. Re-applying a terminal status is accepted as a no-op.
func resolve(cur, next Status) (Status, error) {
	if !next.Valid() {
		return 0, clierr.New(clierr.CodeInvalidTransition, "invalid target status")
	}
	if cur.Terminal() {
		if next == cur {
			return cur, nil
		}
		return 0, clierr.New(clierr.CodeInvalidTransition, fmt.Sprintf("mission is %s; no transition to %s", cur, next))
	}
	if !CanTransition(cur, next) {
		return 0, clierr.New(clierr.CodeInvalidTransition, fmt.Sprintf("cannot move mission from %s to %s", cur, next))
	}
	return next, nil
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("marshal invalid mission status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
