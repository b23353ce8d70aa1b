package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/agentlog"
	clierr "github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/errors"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/id"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/mission"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/route"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/routebook"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "missions.db"), filepath.Join(dir, "missions.lock"), nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func openPair(t *testing.T) (*Store, *Store) {
	t.Helper()
	dir := t.TempDir()
	open := func() *Store {
		store, err := Open(filepath.Join(dir, "missions.db"), filepath.Join(dir, "missions.lock"), nil)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		t.Cleanup(func() { _ = store.Close() })
		return store
	}
	return open(), open()
}

// loadEngine rebuilds an engine from what store holds for alice, the way each
// CLI invocation does.
func loadEngine(t *testing.T, store *Store) *mission.Engine {
	t.Helper()
	loaded, err := store.LoadMissions("alice")
	if err != nil {
		t.Fatalf("LoadMissions failed: %v", err)
	}
	engine := mission.NewEngine(mission.NewStore())
	if err := engine.Store().Restore("alice", loaded); err != nil {
		t.Fatalf("restore: %v", err)
	}
	return engine
}

func TestMissionRoundTripRestores(t *testing.T) {
	store := openTemp(t)
	engine := mission.NewEngine(mission.NewStore())
	ctx := context.Background()
	m, err := engine.Create(ctx, "alice", mission.MissionInput{
		Name: "Payroll", SourceChain: "ethereum", DestinationChain: "base", Token: "USDC",
		Amount: "1250.000001", GasSaved: "0.004",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	m, err = engine.AppendEvent(ctx, "alice", m.ID, mission.EventInput{TxHash: "sig-1"}, mission.StatusLaunched)
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if err := store.SaveMission(m); err != nil {
		t.Fatalf("SaveMission failed: %v", err)
	}
	m, _ = engine.AppendEvent(ctx, "alice", m.ID, mission.EventInput{}, mission.StatusFailed)
	if err := store.SaveMission(m); err != nil {
		t.Fatalf("SaveMission update failed: %v", err)
	}

	loaded, err := store.LoadMissions("alice")
	if err != nil {
		t.Fatalf("LoadMissions failed: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected one mission, got %d", len(loaded))
	}
	got := loaded[0]
	if got.Status != mission.StatusFailed || got.Amount.String() != "1250.000001" || got.TxHash != "sig-1" || len(got.Timeline) != 3 {
		t.Fatalf("unexpected loaded mission: %+v", got)
	}

	fresh := mission.NewStore()
	if err := fresh.Restore("alice", loaded); err != nil {
		t.Fatalf("restore loaded missions: %v", err)
	}
	if others, _ := store.LoadMissions("bob"); len(others) != 0 {
		t.Fatalf("missions leaked across users: %d", len(others))
	}
}

func TestRoutesAndLogsRoundTrip(t *testing.T) {
	store := openTemp(t)
	book := routebook.New(nil)
	r, err := book.Save("alice", "lane", "ethereum", "base", "ETH")
	if err != nil {
		t.Fatalf("save route: %v", err)
	}
	if err := store.SaveRoute(r); err != nil {
		t.Fatalf("SaveRoute failed: %v", err)
	}
	routes, err := store.LoadRoutes("alice")
	if err != nil || len(routes) != 1 || routes[0].Name != "lane" {
		t.Fatalf("unexpected routes: %+v %v", routes, err)
	}
	if err := store.DeleteRoute("alice", r.ID); err != nil {
		t.Fatalf("DeleteRoute failed: %v", err)
	}
	if routes, _ := store.LoadRoutes("alice"); len(routes) != 0 {
		t.Fatalf("expected route deleted, got %d", len(routes))
	}

	logs := agentlog.NewRegistry(nil)
	l, _ := logs.Open("alice", "ask")
	rec := &route.Recommendation{Provider: "across", Amount: id.MustAmount("3"), GasCost: id.MustAmount("0.2"), Risk: route.RiskMedium, EstimatedTimeS: 90}
	if _, err := logs.Append("alice", l.ID, agentlog.SenderAgent, "try across", rec); err != nil {
		t.Fatalf("append: %v", err)
	}
	full, _ := logs.Get("alice", l.ID)
	if err := store.SaveLog(full); err != nil {
		t.Fatalf("SaveLog failed: %v", err)
	}
	loaded, err := store.LoadLogs("alice")
	if err != nil || len(loaded) != 1 {
		t.Fatalf("unexpected logs: %+v %v", loaded, err)
	}
	msg := loaded[0].Messages[0]
	if msg.Recommendation == nil || msg.Recommendation.Risk != route.RiskMedium || msg.Recommendation.GasCost.String() != "0.2" {
		t.Fatalf("recommendation not preserved: %+v", msg.Recommendation)
	}
}

func TestSaveRejectsMissingIDs(t *testing.T) {
	store := openTemp(t)
	if err := store.SaveMission(mission.Mission{ID: "m1"}); !clierr.HasCode(err, clierr.CodeUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestClassifyBusyErrors(t *testing.T) {
	busy := classify("save mission", errors.New("sqlite: step: database is locked (5) (SQLITE_BUSY)"))
	if !clierr.HasCode(busy, clierr.CodeUnavailable) {
		t.Fatalf("expected unavailable, got %v", busy)
	}
	timeout := classify("save mission", context.DeadlineExceeded)
	if !clierr.HasCode(timeout, clierr.CodeUnavailable) {
		t.Fatalf("expected unavailable for timeout, got %v", timeout)
	}
	other := classify("save mission", errors.New("no such table"))
	if !clierr.HasCode(other, clierr.CodeInternal) {
		t.Fatalf("expected internal, got %v", other)
	}
	if IsBusy(nil) {
		t.Fatal("nil is not busy")
	}
}

func TestInterleavedSavesDoNotLoseUpdates(t *testing.T) {
	a, b := openPair(t)
	ctx := context.Background()
	seed := mission.NewEngine(mission.NewStore())
	m, err := seed.Create(ctx, "alice", mission.MissionInput{
		Name: "Payroll", SourceChain: "ethereum", DestinationChain: "base", Token: "USDC", Amount: "10",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := a.SaveMission(m); err != nil {
		t.Fatalf("seed save: %v", err)
	}

	engineA := loadEngine(t, a)
	engineB := loadEngine(t, b)
	launched, err := engineA.AppendEvent(ctx, "alice", m.ID, mission.EventInput{TxHash: "hash-a"}, mission.StatusLaunched)
	if err != nil {
		t.Fatalf("append a: %v", err)
	}
	failed, err := engineB.AppendEvent(ctx, "alice", m.ID, mission.EventInput{TxHash: "hash-b"}, mission.StatusFailed)
	if err != nil {
		t.Fatalf("append b: %v", err)
	}
	if err := a.SaveMission(launched); err != nil {
		t.Fatalf("first writer should win: %v", err)
	}
	if err := b.SaveMission(failed); !clierr.HasCode(err, clierr.CodeUnavailable) {
		t.Fatalf("expected stale write to be refused, got %v", err)
	}

	got, err := loadEngine(t, b).Store().Get("alice", m.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != mission.StatusLaunched || got.TxHash != "hash-a" || len(got.Timeline) != 2 {
		t.Fatalf("first write lost: %+v", got)
	}

	// After reloading, the retry runs against the current mission and the
	// engine rejects the second hash.
	retry := loadEngine(t, b)
	if _, err := retry.AppendEvent(ctx, "alice", m.ID, mission.EventInput{TxHash: "hash-b"}, mission.StatusFailed); !clierr.HasCode(err, clierr.CodeHashConflict) {
		t.Fatalf("expected hash conflict on retry, got %v", err)
	}
	done, err := retry.AppendEvent(ctx, "alice", m.ID, mission.EventInput{}, mission.StatusInTransit)
	if err != nil {
		t.Fatalf("append after reload: %v", err)
	}
	if err := b.SaveMission(done); err != nil {
		t.Fatalf("save after reload: %v", err)
	}
}

func TestSaveMissionRefusesUnseenExistingRow(t *testing.T) {
	a, b := openPair(t)
	engine := mission.NewEngine(mission.NewStore())
	m, err := engine.Create(context.Background(), "alice", mission.MissionInput{
		Name: "Payroll", SourceChain: "ethereum", DestinationChain: "base", Token: "USDC", Amount: "10",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := a.SaveMission(m); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := b.SaveMission(m); !clierr.HasCode(err, clierr.CodeConflict) {
		t.Fatalf("expected conflict for a mission this handle never loaded, got %v", err)
	}
}

func TestLockHoldsAcrossHandles(t *testing.T) {
	a, b := openPair(t)
	release, err := a.Lock(context.Background())
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	book := routebook.New(nil)
	r, err := book.Save("alice", "lane", "ethereum", "base", "ETH")
	if err != nil {
		t.Fatalf("save route: %v", err)
	}
	if err := a.SaveRoute(r); err != nil {
		t.Fatalf("writes under a held lock should reuse it: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, err := b.Lock(ctx); !clierr.HasCode(err, clierr.CodeUnavailable) {
		t.Fatalf("expected unavailable while another handle holds the lock, got %v", err)
	}

	release()
	release()
	again, err := b.Lock(context.Background())
	if err != nil {
		t.Fatalf("Lock after release failed: %v", err)
	}
	again()
}
