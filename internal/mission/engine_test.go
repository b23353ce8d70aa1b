package mission

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	clierr "github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/errors"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine() *Engine {
	seq := 0
	return NewEngine(NewStore(),
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("msn_%03d", seq)
		}),
	)
}

func mustCreate(t *testing.T, e *Engine, user string) Mission {
	t.Helper()
	m, err := e.Create(context.Background(), user, MissionInput{
		Name:             "Weekend bridge",
		SourceChain:      "ethereum",
		DestinationChain: "base",
		Token:            "usdc",
		Amount:           "100.50",
		GasSaved:         "0.01",
	})
	if err != nil {
		t.Fatalf("create mission: %v", err)
	}
	return m
}

func TestCreateStartsInPreparing(t *testing.T) {
	e := newTestEngine()
	m := mustCreate(t, e, "alice")
	if m.ID != "msn_001" || m.Status != StatusPreparing {
		t.Fatalf("unexpected mission: %+v", m)
	}
	if m.Token != "USDC" || m.Amount.String() != "100.50" {
		t.Fatalf("unexpected token/amount: %s %s", m.Token, m.Amount)
	}
	if len(m.Timeline) != 1 || m.Timeline[0].Status != StatusPreparing || !m.Timeline[0].Timestamp.Equal(fixedNow) {
		t.Fatalf("unexpected initial timeline: %+v", m.Timeline)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("created mission does not validate: %v", err)
	}
}

func TestCreateRejectsMalformedAmount(t *testing.T) {
	e := newTestEngine()
	for _, amount := range []string{"", "-1", "abc", "1e5", "1.2.3"} {
		_, err := e.Create(context.Background(), "alice", MissionInput{
			Name: "x", SourceChain: "ethereum", DestinationChain: "base", Token: "ETH", Amount: amount,
		})
		if !clierr.HasCode(err, clierr.CodeMalformedAmount) {
			t.Fatalf("amount %q: expected malformed amount, got %v", amount, err)
		}
	}
	if e.Store().Snapshot("alice").Len() != 0 {
		t.Fatal("rejected missions must not enter the store")
	}
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	e := newTestEngine()
	in := MissionInput{ID: "fixed", Name: "x", SourceChain: "ethereum", DestinationChain: "base", Token: "ETH", Amount: "1"}
	if _, err := e.Create(context.Background(), "alice", in); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := e.Create(context.Background(), "alice", in); !clierr.HasCode(err, clierr.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	// ids are scoped to the user partition
	if _, err := e.Create(context.Background(), "bob", in); err != nil {
		t.Fatalf("create for other user: %v", err)
	}
}

func TestAppendEventFollowsStateMachine(t *testing.T) {
	for _, from := range AllStatuses() {
		for _, to := range AllStatuses() {
			e := newTestEngine()
			m := mustCreate(t, e, "alice")
			if err := driveTo(e, m.ID, from); err != nil {
				t.Fatalf("drive to %s: %v", from, err)
			}
			before, _ := e.Store().Get("alice", m.ID)

			got, err := e.AppendEvent(context.Background(), "alice", m.ID, EventInput{}, to)
			switch {
			case CanTransition(from, to):
				if err != nil {
					t.Fatalf("%s -> %s: unexpected error %v", from, to, err)
				}
				if got.Status != to {
					t.Fatalf("%s -> %s: status %s", from, to, got.Status)
				}
			case from.Terminal() && from == to:
				if err != nil || got.Status != from || len(got.Timeline) != len(before.Timeline)+1 {
					t.Fatalf("%s -> %s: expected idempotent append, got %v len=%d", from, to, err, len(got.Timeline))
				}
			default:
				if !clierr.HasCode(err, clierr.CodeInvalidTransition) {
					t.Fatalf("%s -> %s: expected invalid transition, got %v", from, to, err)
				}
				after, _ := e.Store().Get("alice", m.ID)
				if after.Status != before.Status || len(after.Timeline) != len(before.Timeline) {
					t.Fatalf("%s -> %s: rejected event changed the mission", from, to)
				}
			}
		}
	}
}

func driveTo(e *Engine, missionID string, target Status) error {
	path := map[Status][]Status{
		StatusPreparing: nil,
		StatusLaunched:  {StatusLaunched},
		StatusInTransit: {StatusLaunched, StatusInTransit},
		StatusCompleted: {StatusLaunched, StatusInTransit, StatusCompleted},
		StatusFailed:    {StatusFailed},
	}
	for _, s := range path[target] {
		if _, err := e.AppendEvent(context.Background(), "alice", missionID, EventInput{}, s); err != nil {
			return err
		}
	}
	return nil
}

func TestAppendEventOnCompletedMissionIsRejected(t *testing.T) {
	e := newTestEngine()
	m := mustCreate(t, e, "alice")
	if err := driveTo(e, m.ID, StatusCompleted); err != nil {
		t.Fatalf("drive: %v", err)
	}
	_, err := e.AppendEvent(context.Background(), "alice", m.ID, EventInput{Title: "late"}, StatusInTransit)
	if !clierr.HasCode(err, clierr.CodeInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	got, _ := e.Store().Get("alice", m.ID)
	if got.Status != StatusCompleted || len(got.Timeline) != 4 {
		t.Fatalf("mission changed: status=%s timeline=%d", got.Status, len(got.Timeline))
	}
}

func TestAppendEventUnknownMission(t *testing.T) {
	e := newTestEngine()
	_, err := e.AppendEvent(context.Background(), "alice", "nope", EventInput{}, StatusLaunched)
	if !clierr.HasCode(err, clierr.CodeUnknownMission) {
		t.Fatalf("expected unknown mission, got %v", err)
	}
	m := mustCreate(t, e, "alice")
	if _, err := e.AppendEvent(context.Background(), "bob", m.ID, EventInput{}, StatusLaunched); !clierr.HasCode(err, clierr.CodeUnknownMission) {
		t.Fatalf("missions must not be visible across users, got %v", err)
	}
}

func TestAppendEventKeepsArrivalOrder(t *testing.T) {
	e := newTestEngine()
	m := mustCreate(t, e, "alice")
	late := fixedNow.Add(time.Hour)
	early := fixedNow.Add(-time.Hour)
	if _, err := e.AppendEvent(context.Background(), "alice", m.ID, EventInput{Title: "launch", Timestamp: late}, StatusLaunched); err != nil {
		t.Fatalf("launch: %v", err)
	}
	got, err := e.AppendEvent(context.Background(), "alice", m.ID, EventInput{Title: "relay", Timestamp: early}, StatusInTransit)
	if err != nil {
		t.Fatalf("relay: %v", err)
	}
	if got.Timeline[1].Title != "launch" || got.Timeline[2].Title != "relay" {
		t.Fatalf("timeline reordered: %+v", got.Timeline)
	}
}

func TestTxHashFirstWriteWins(t *testing.T) {
	e := newTestEngine()
	m := mustCreate(t, e, "alice")
	first := "0xAAAA" + strings.Repeat("0", 59) + "1"
	lower := strings.ToLower(first)
	if _, err := e.AppendEvent(context.Background(), "alice", m.ID, EventInput{TxHash: first}, StatusLaunched); err != nil {
		t.Fatalf("launch: %v", err)
	}
	// same hash in different casing is not a conflict
	got, err := e.AppendEvent(context.Background(), "alice", m.ID, EventInput{TxHash: lower}, StatusInTransit)
	if err != nil {
		t.Fatalf("same hash rejected: %v", err)
	}
	if got.TxHash != lower {
		t.Fatalf("unexpected normalized hash: %s", got.TxHash)
	}
	_, err = e.AppendEvent(context.Background(), "alice", m.ID, EventInput{TxHash: "0xbeef"}, StatusCompleted)
	if !clierr.HasCode(err, clierr.CodeHashConflict) {
		t.Fatalf("expected hash conflict, got %v", err)
	}
	after, _ := e.Store().Get("alice", m.ID)
	if after.Status != StatusInTransit || len(after.Timeline) != 3 {
		t.Fatalf("conflicting event changed the mission: %s %d", after.Status, len(after.Timeline))
	}
}

func TestConcurrentDifferentHashesConflict(t *testing.T) {
	e := newTestEngine()
	m := mustCreate(t, e, "alice")
	hashes := []string{"solana-sig-one", "solana-sig-two"}

	var wg sync.WaitGroup
	errs := make([]error, len(hashes))
	for i, h := range hashes {
		wg.Add(1)
		go func(i int, h string) {
			defer wg.Done()
			_, errs[i] = e.AppendEvent(context.Background(), "alice", m.ID, EventInput{TxHash: h}, StatusLaunched)
		}(i, h)
	}
	wg.Wait()

	winner := -1
	for i, err := range errs {
		if err == nil {
			if winner != -1 {
				t.Fatal("both events were accepted")
			}
			winner = i
			continue
		}
		if !clierr.HasCode(err, clierr.CodeHashConflict) {
			t.Fatalf("expected hash conflict for loser, got %v", err)
		}
	}
	if winner == -1 {
		t.Fatal("no event was accepted")
	}
	got, _ := e.Store().Get("alice", m.ID)
	if got.TxHash != hashes[winner] || len(got.Timeline) != 2 {
		t.Fatalf("expected winner hash %s retained, got %s (timeline %d)", hashes[winner], got.TxHash, len(got.Timeline))
	}
}

func TestConcurrentAppendsAcrossMissions(t *testing.T) {
	e := newTestEngine()
	var ids []string
	for i := 0; i < 8; i++ {
		m, err := e.Create(context.Background(), "alice", MissionInput{
			ID: fmt.Sprintf("m%d", i), Name: "n", SourceChain: "ethereum", DestinationChain: "base", Token: "ETH", Amount: "1",
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, m.ID)
	}
	var wg sync.WaitGroup
	for _, missionID := range ids {
		wg.Add(1)
		go func(missionID string) {
			defer wg.Done()
			for _, s := range []Status{StatusLaunched, StatusInTransit, StatusCompleted} {
				if _, err := e.AppendEvent(context.Background(), "alice", missionID, EventInput{}, s); err != nil {
					t.Errorf("%s -> %s: %v", missionID, s, err)
					return
				}
			}
		}(missionID)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, m := range e.Store().Snapshot("alice").Missions() {
				if err := m.Validate(); err != nil {
					t.Errorf("snapshot saw inconsistent mission: %v", err)
				}
			}
		}()
	}
	wg.Wait()
	for _, m := range e.Store().Snapshot("alice").Missions() {
		if m.Status != StatusCompleted {
			t.Fatalf("mission %s ended in %s", m.ID, m.Status)
		}
	}
}

func TestAppendEventHonorsCanceledContext(t *testing.T) {
	e := newTestEngine()
	m := mustCreate(t, e, "alice")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.AppendEvent(ctx, "alice", m.ID, EventInput{}, StatusLaunched); err == nil {
		t.Fatal("expected canceled context to be rejected")
	}
	got, _ := e.Store().Get("alice", m.ID)
	if got.Status != StatusPreparing {
		t.Fatalf("canceled append changed status to %s", got.Status)
	}
}

func TestSetStarredBumpsVersion(t *testing.T) {
	e := newTestEngine()
	m := mustCreate(t, e, "alice")
	v := e.Store().Version("alice")
	got, err := e.SetStarred(context.Background(), "alice", m.ID, true)
	if err != nil || !got.Starred {
		t.Fatalf("star: %v %+v", err, got)
	}
	if e.Store().Version("alice") != v+1 {
		t.Fatal("expected version bump")
	}
	if _, err := e.SetStarred(context.Background(), "alice", m.ID, true); err != nil {
		t.Fatalf("re-star: %v", err)
	}
	if e.Store().Version("alice") != v+1 {
		t.Fatal("unchanged flag must not bump version")
	}
}
