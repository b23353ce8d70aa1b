package mission

import (
	"fmt"
	"strings"
	"time"

	clierr "github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/errors"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/id"
)

// TimelineEvent is one immutable entry of a mission timeline. Status is the
// event category and always names the state the mission was left in.
type TimelineEvent struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      Status    `json:"status"`
	TxHash      string    `json:"tx_hash,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type Mission struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	Name             string          `json:"name"`
	SourceChain      string          `json:"source_chain"`
	DestinationChain string          `json:"destination_chain"`
	Token            string          `json:"token"`
	Amount           id.Amount       `json:"amount"`
	CreatedAt        time.Time       `json:"created_at"`
	Status           Status          `json:"status"`
	TxHash           string          `json:"tx_hash,omitempty"`
	GasSaved         id.Amount       `json:"gas_saved"`
	Starred          bool            `json:"starred"`
	Timeline         []TimelineEvent `json:"timeline"`
}

// MissionInput is the creation request accepted at the store boundary.
type MissionInput struct {
	ID               string
	Name             string
	SourceChain      string
	DestinationChain string
	Token            string
	Amount           string
	GasSaved         string
	CreatedAt        time.Time
	Starred          bool
}

// EventInput is a status event reported by a chain-status collaborator.
// Zero Timestamp means "now"; empty Title falls back to the status title.
type EventInput struct {
	Title       string
	Description string
	TxHash      string
	Timestamp   time.Time
}

// Clone returns a copy that shares no mutable state with m.
func (m Mission) Clone() Mission {
	out := m
	out.Timeline = append([]TimelineEvent(nil), m.Timeline...)
	return out
}

// Launched reports whether the mission was launched at some point, including
// missions that failed after launch.
func (m Mission) Launched() bool {
	if m.Status.ReachedLaunch() {
		return true
	}
	for _, ev := range m.Timeline {
		if ev.Status.ReachedLaunch() {
			return true
		}
	}
	return false
}

func (m Mission) LastEvent() (TimelineEvent, bool) {
	if len(m.Timeline) == 0 {
		return TimelineEvent{}, false
	}
	return m.Timeline[len(m.Timeline)-1], true
}

// Validate checks the invariants a stored mission must satisfy: the creation
// fields, a numeric amount, a timeline that starts in preparing, follows the
// state machine and ends in the mission's status, and a transaction hash that
// is the first one the timeline recorded.
func (m Mission) Validate() error {
	switch {
	case strings.TrimSpace(m.ID) == "":
		return clierr.New(clierr.CodeUsage, "mission id is required")
	case strings.TrimSpace(m.Name) == "":
		return clierr.New(clierr.CodeUsage, fmt.Sprintf("mission %s has no name", m.ID))
	case strings.TrimSpace(m.SourceChain) == "" || strings.TrimSpace(m.DestinationChain) == "":
		return clierr.New(clierr.CodeUsage, fmt.Sprintf("mission %s is missing a chain", m.ID))
	case strings.TrimSpace(m.Token) == "":
		return clierr.New(clierr.CodeUsage, fmt.Sprintf("mission %s has no token", m.ID))
	}
	if !m.Amount.Present() {
		return clierr.New(clierr.CodeMalformedAmount, fmt.Sprintf("mission %s has no amount", m.ID))
	}
	if !m.Status.Valid() {
		return clierr.New(clierr.CodeInvalidTransition, fmt.Sprintf("mission %s has invalid status", m.ID))
	}
	if len(m.Timeline) == 0 {
		return clierr.New(clierr.CodeInvalidTransition, fmt.Sprintf("mission %s has an empty timeline", m.ID))
	}
	if m.Timeline[0].Status != StatusPreparing {
		return clierr.New(clierr.CodeInvalidTransition, fmt.Sprintf("mission %s timeline must start in preparing", m.ID))
	}
	cur := StatusPreparing
	for i, ev := range m.Timeline[1:] {
		next, err := resolve(cur, ev.Status)
		if err != nil {
			return clierr.Wrap(clierr.CodeInvalidTransition, fmt.Sprintf("mission %s timeline event %d", m.ID, i+1), err)
		}
		cur = next
	}
	if cur != m.Status {
		return clierr.New(clierr.CodeInvalidTransition, fmt.Sprintf("mission %s status %s does not match last timeline event %s", m.ID, m.Status, cur))
	}
	first := ""
	for _, ev := range m.Timeline {
		if ev.TxHash == "" {
			continue
		}
		if first == "" {
			first = ev.TxHash
		} else if ev.TxHash != first {
			return clierr.New(clierr.CodeHashConflict, fmt.Sprintf("mission %s timeline records transactions %s and %s", m.ID, first, ev.TxHash))
		}
	}
	if m.TxHash != first {
		return clierr.New(clierr.CodeHashConflict, fmt.Sprintf("mission %s transaction %q does not match its timeline %q", m.ID, m.TxHash, first))
	}
	return nil
}
