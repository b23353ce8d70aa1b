package agentlog

import (
	"testing"
	"time"

	clierr "github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/errors"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/id"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/route"
)

func ticking() func() time.Time {
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func TestAppendKeepsOrderAndFreezesRecommendation(t *testing.T) {
	r := NewRegistry(ticking())
	l, err := r.Open("alice", "Cheapest lane to Base")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := r.Append("alice", l.ID, SenderUser, "find me a route", nil); err != nil {
		t.Fatalf("append user: %v", err)
	}
	rec := &route.Recommendation{Provider: "across", Token: "USDC", Amount: id.MustAmount("10"), Risk: route.RiskLow}
	if _, err := r.Append("alice", l.ID, SenderAgent, "use across", rec); err != nil {
		t.Fatalf("append agent: %v", err)
	}
	rec.Provider = "mutated"

	got, err := r.Get("alice", l.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Messages) != 2 || got.Messages[0].Sender != SenderUser || got.Messages[1].Sender != SenderAgent {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
	if got.Messages[1].Recommendation.Provider != "across" {
		t.Fatal("recommendation changed after it was attached")
	}
	got.Messages[1].Recommendation.Provider = "tampered"
	again, _ := r.Get("alice", l.ID)
	if again.Messages[1].Recommendation.Provider != "across" {
		t.Fatal("returned log shares recommendation storage with the registry")
	}
}

func TestAppendErrors(t *testing.T) {
	r := NewRegistry(ticking())
	if _, err := r.Append("alice", "nope", SenderUser, "hi", nil); !clierr.HasCode(err, clierr.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	l, _ := r.Open("alice", "t")
	if _, err := r.Append("alice", l.ID, Sender("robot"), "hi", nil); !clierr.HasCode(err, clierr.CodeUsage) {
		t.Fatalf("expected usage error for sender, got %v", err)
	}
	if _, err := r.Append("bob", l.ID, SenderUser, "hi", nil); !clierr.HasCode(err, clierr.CodeNotFound) {
		t.Fatalf("logs must be scoped to the user, got %v", err)
	}
	if _, err := ParseSender("Assistant"); err != nil {
		t.Fatalf("parse sender: %v", err)
	}
}

func TestListNewestFirstAndRestore(t *testing.T) {
	r := NewRegistry(ticking())
	first, _ := r.Open("alice", "first")
	second, _ := r.Open("alice", "second")
	list := r.List("alice")
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("unexpected order: %+v", list)
	}

	other := NewRegistry(ticking())
	if err := other.Restore("alice", list); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if other.Count("alice") != 2 {
		t.Fatalf("expected 2 restored logs, got %d", other.Count("alice"))
	}
	if err := other.Restore("alice", list[:1]); !clierr.HasCode(err, clierr.CodeConflict) {
		t.Fatalf("expected conflict on double restore, got %v", err)
	}
}
