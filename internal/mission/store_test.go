package mission

import (
	"context"
	"testing"
	"time"

	clierr "github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/errors"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/id"
)

func TestSnapshotIsIsolatedFromLaterWrites(t *testing.T) {
	e := newTestEngine()
	m := mustCreate(t, e, "alice")
	snap := e.Store().Snapshot("alice")

	if _, err := e.AppendEvent(context.Background(), "alice", m.ID, EventInput{}, StatusLaunched); err != nil {
		t.Fatalf("launch: %v", err)
	}
	old := snap.Missions()
	if len(old) != 1 || old[0].Status != StatusPreparing || len(old[0].Timeline) != 1 {
		t.Fatalf("snapshot observed a later write: %+v", old)
	}
	if e.Store().Version("alice") == snap.Version {
		t.Fatal("expected version to move after append")
	}

	// mutating a returned copy must not leak into the store
	old[0].Timeline[0].Title = "tampered"
	fresh, _ := e.Store().Get("alice", m.ID)
	if fresh.Timeline[0].Title == "tampered" {
		t.Fatal("snapshot copy shares timeline storage with the store")
	}
}

func TestSnapshotOrdersNewestFirst(t *testing.T) {
	e := newTestEngine()
	for i, at := range []time.Time{fixedNow.Add(-2 * time.Hour), fixedNow, fixedNow} {
		_, err := e.Create(context.Background(), "alice", MissionInput{
			ID: []string{"a", "c", "b"}[i], Name: "n", SourceChain: "ethereum", DestinationChain: "base",
			Token: "ETH", Amount: "1", CreatedAt: at,
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	var ids []string
	for _, m := range e.Store().Snapshot("alice").Missions() {
		ids = append(ids, m.ID)
	}
	if len(ids) != 3 || ids[0] != "b" || ids[1] != "c" || ids[2] != "a" {
		t.Fatalf("unexpected order: %v", ids)
	}
}

func restorable(missionID string, statuses ...Status) Mission {
	m := Mission{
		ID:               missionID,
		Name:             "restored",
		SourceChain:      "ethereum",
		DestinationChain: "base",
		Token:            "ETH",
		Amount:           id.MustAmount("2"),
		CreatedAt:        fixedNow,
		Status:           StatusPreparing,
		Timeline:         []TimelineEvent{{Title: "Mission created", Status: StatusPreparing, Timestamp: fixedNow}},
	}
	for _, s := range statuses {
		m.Timeline = append(m.Timeline, TimelineEvent{Title: s.Title(), Status: s, Timestamp: fixedNow})
		m.Status = s
	}
	return m
}

func TestRestoreLoadsValidMissions(t *testing.T) {
	s := NewStore()
	ok := restorable("m1", StatusLaunched, StatusInTransit, StatusCompleted, StatusCompleted)
	if err := s.Restore("alice", []Mission{ok}); err != nil {
		t.Fatalf("restore: %v", err)
	}
	got, err := s.Get("alice", "m1")
	if err != nil || got.UserID != "alice" || got.Status != StatusCompleted {
		t.Fatalf("unexpected restored mission: %+v %v", got, err)
	}
	if s.Version("alice") != 1 {
		t.Fatalf("expected version 1, got %d", s.Version("alice"))
	}

	// restored missions accept further events through the engine
	e := NewEngine(s)
	if _, err := e.AppendEvent(context.Background(), "alice", "m1", EventInput{}, StatusFailed); !clierr.HasCode(err, clierr.CodeInvalidTransition) {
		t.Fatalf("expected invalid transition on restored terminal mission, got %v", err)
	}
}

func TestRestoreRejectsInconsistentMissions(t *testing.T) {
	skipped := restorable("skip", StatusLaunched)
	skipped.Timeline[1].Status = StatusCompleted
	skipped.Status = StatusCompleted

	mismatch := restorable("mismatch", StatusLaunched)
	mismatch.Status = StatusInTransit

	noAmount := restorable("noamount")
	noAmount.Amount = id.Amount{}

	noName := restorable("noname")
	noName.Name = " "
	noChain := restorable("nochain")
	noChain.DestinationChain = ""
	noToken := restorable("notoken")
	noToken.Token = ""

	hashDrift := restorable("hashdrift", StatusLaunched)
	hashDrift.Timeline[1].TxHash = "sig-first"
	hashDrift.TxHash = "sig-other"
	untracked := restorable("untracked", StatusLaunched)
	untracked.TxHash = "sig-nowhere"
	twoHashes := restorable("twohashes", StatusLaunched, StatusInTransit)
	twoHashes.Timeline[1].TxHash = "sig-a"
	twoHashes.Timeline[2].TxHash = "sig-b"
	twoHashes.TxHash = "sig-a"

	cases := map[string][]Mission{
		"skipped state":     {skipped},
		"status drift":      {mismatch},
		"missing amount":    {noAmount},
		"duplicate":         {restorable("d"), restorable("d")},
		"missing name":      {noName},
		"missing chain":     {noChain},
		"missing token":     {noToken},
		"hash not first":    {hashDrift},
		"hash not recorded": {untracked},
		"two hashes":        {twoHashes},
	}
	for name, batch := range cases {
		s := NewStore()
		if err := s.Restore("alice", append([]Mission{restorable("good")}, batch...)); err == nil {
			t.Fatalf("%s: expected restore to fail", name)
		}
		if s.Snapshot("alice").Len() != 0 {
			t.Fatalf("%s: partial restore left missions behind", name)
		}
	}
}

func TestRestoreAcceptsRepeatedFirstHash(t *testing.T) {
	m := restorable("m1", StatusLaunched, StatusInTransit)
	m.Timeline[1].TxHash = "sig-a"
	m.Timeline[2].TxHash = "sig-a"
	m.TxHash = "sig-a"
	if err := NewStore().Restore("alice", []Mission{m}); err != nil {
		t.Fatalf("restore: %v", err)
	}
}

func TestReadsDoNotAllocatePartitions(t *testing.T) {
	s := NewStore()
	if snap := s.Snapshot("ghost"); snap.Len() != 0 || len(snap.Missions()) != 0 {
		t.Fatalf("expected empty snapshot, got %d", snap.Len())
	}
	if s.Version("ghost") != 0 {
		t.Fatal("expected version 0 for unknown user")
	}
	if _, err := s.Get("ghost", "m1"); !clierr.HasCode(err, clierr.CodeUnknownMission) {
		t.Fatalf("expected unknown mission, got %v", err)
	}
	e := NewEngine(s)
	if _, err := e.AppendEvent(context.Background(), "ghost", "m1", EventInput{}, StatusLaunched); !clierr.HasCode(err, clierr.CodeUnknownMission) {
		t.Fatalf("expected unknown mission, got %v", err)
	}
	if _, err := e.SetStarred(context.Background(), "ghost", "m1", true); !clierr.HasCode(err, clierr.CodeUnknownMission) {
		t.Fatalf("expected unknown mission, got %v", err)
	}
	if err := s.Restore("ghost", nil); err != nil {
		t.Fatalf("empty restore: %v", err)
	}
	if len(s.partitions) != 0 {
		t.Fatalf("read paths allocated %d partitions", len(s.partitions))
	}
}
