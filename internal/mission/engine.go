package mission

import (
	"context"
	"fmt"
	"strings"
	"time"

	clierr "github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/errors"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/id"
	"github.com/google/uuid"
)

// Engine is the only writer of a Store.
type Engine struct {
	store *Store
	now   func() time.Time
	newID func() string
}

type Option func(*Engine)

// WithClock overrides the timestamp source used for defaulted fields.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

func NewEngine(store *Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return "msn_" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Store() *Store { return e.store }

// Create validates in and publishes a new mission in the preparing state.
func (e *Engine) Create(ctx context.Context, userID string, in MissionInput) (Mission, error) {
	if err := ctx.Err(); err != nil {
		return Mission{}, clierr.Wrap(clierr.CodeUnavailable, "create canceled", err)
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Mission{}, clierr.New(clierr.CodeUsage, "user id is required")
	}
	name := strings.TrimSpace(in.Name)
	src := strings.TrimSpace(in.SourceChain)
	dst := strings.TrimSpace(in.DestinationChain)
	token := strings.ToUpper(strings.TrimSpace(in.Token))
	switch {
	case name == "":
		return Mission{}, clierr.New(clierr.CodeUsage, "mission name is required")
	case src == "" || dst == "":
		return Mission{}, clierr.New(clierr.CodeUsage, "source and destination chains are required")
	case token == "":
		return Mission{}, clierr.New(clierr.CodeUsage, "token is required")
	}
	amount, err := id.ParseAmount(in.Amount)
	if err != nil {
		return Mission{}, err
	}
	gas, err := id.ParseOptionalAmount(in.GasSaved)
	if err != nil {
		return Mission{}, err
	}

	missionID := strings.TrimSpace(in.ID)
	if missionID == "" {
		missionID = e.newID()
	}
	created := in.CreatedAt
	if created.IsZero() {
		created = e.now()
	}
	created = created.UTC()

	m := Mission{
		ID:               missionID,
		UserID:           userID,
		Name:             name,
		SourceChain:      src,
		DestinationChain: dst,
		Token:            token,
		Amount:           amount,
		CreatedAt:        created,
		Status:           StatusPreparing,
		GasSaved:         gas,
		Starred:          in.Starred,
		Timeline: []TimelineEvent{{
			Title:       "Mission created",
			Description: fmt.Sprintf("Bridge %s %s from %s to %s", amount, token, src, dst),
			Status:      StatusPreparing,
			Timestamp:   created,
		}},
	}
	if err := e.store.partition(userID).insert(m); err != nil {
		return Mission{}, err
	}
	return m.Clone(), nil
}

// AppendEvent records a status event on a mission and moves it to next.
//
// Events are appended in arrival order. A transaction hash is attached only
// when none is recorded yet; supplying a different one later is a
// HashConflict. Re-applying the current terminal status is accepted and
// recorded without changing state. Rejected events leave the mission as it
// was.
func (e *Engine) AppendEvent(ctx context.Context, userID, missionID string, ev EventInput, next Status) (Mission, error) {
	if err := ctx.Err(); err != nil {
		return Mission{}, clierr.Wrap(clierr.CodeUnavailable, "append canceled", err)
	}
	p, cur, unlock, err := e.store.lockWriter(userID, missionID)
	if err != nil {
		return Mission{}, err
	}
	defer unlock()

	hash := NormalizeTxHash(ev.TxHash)
	if hash != "" && cur.TxHash != "" && hash != cur.TxHash {
		return Mission{}, clierr.New(clierr.CodeHashConflict,
			fmt.Sprintf("mission %s already has transaction %s", missionID, cur.TxHash))
	}
	status, err := resolve(cur.Status, next)
	if err != nil {
		return Mission{}, err
	}

	at := ev.Timestamp
	if at.IsZero() {
		at = e.now()
	}
	title := strings.TrimSpace(ev.Title)
	if title == "" {
		title = next.Title()
	}

	updated := cur.Clone()
	updated.Timeline = append(updated.Timeline, TimelineEvent{
		Title:       title,
		Description: strings.TrimSpace(ev.Description),
		Status:      next,
		TxHash:      hash,
		Timestamp:   at.UTC(),
	})
	updated.Status = status
	if updated.TxHash == "" {
		updated.TxHash = hash
	}
	p.publish(updated)
	return updated.Clone(), nil
}

// SetStarred toggles the user flag. It does not touch the timeline.
func (e *Engine) SetStarred(ctx context.Context, userID, missionID string, starred bool) (Mission, error) {
	if err := ctx.Err(); err != nil {
		return Mission{}, clierr.Wrap(clierr.CodeUnavailable, "star canceled", err)
	}
	p, cur, unlock, err := e.store.lockWriter(userID, missionID)
	if err != nil {
		return Mission{}, err
	}
	defer unlock()
	if cur.Starred == starred {
		return cur.Clone(), nil
	}
	updated := cur.Clone()
	updated.Starred = starred
	p.publish(updated)
	return updated.Clone(), nil
}
