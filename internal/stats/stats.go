// Package stats projects a user's mission history into dashboard statistics.
// Every figure is recomputed from missions; nothing here is stored.
package stats

import (
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/id"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/mission"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/policy"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Counts are the figures owned by other registries.
type Counts struct {
	AchievementsEarned int
	SavedRoutes        int
	AgentLogs          int
}

type UserStats struct {
	TotalMissions      int    `json:"total_missions"`
	CompletedMissions  int    `json:"completed_missions"`
	FailedMissions     int    `json:"failed_missions"`
	ActiveMissions     int    `json:"active_missions"`
	SuccessRate        string `json:"success_rate"`
	ValueBridged       string `json:"value_bridged"`
	GasSaved           string `json:"gas_saved"`
	Rank               string `json:"rank"`
	AchievementsEarned int    `json:"achievements_earned"`
	SavedRoutes        int    `json:"saved_routes"`
	AgentLogs          int    `json:"agent_logs"`
	ChainsUsed         int    `json:"chains_used"`
	LastMission        string `json:"last_mission,omitempty"`
	LastMissionID      string `json:"last_mission_id,omitempty"`
}

// Compute is total: a well-formed mission set always yields stats, and the
// result does not depend on the order of missions.
func Compute(missions []mission.Mission, p policy.Policy, c Counts) UserStats {
	out := UserStats{
		TotalMissions:      len(missions),
		Rank:               p.RankFor(len(missions)),
		AchievementsEarned: c.AchievementsEarned,
		SavedRoutes:        c.SavedRoutes,
		AgentLogs:          c.AgentLogs,
	}

	value := decimal.Zero
	gas := decimal.Zero
	var last *mission.Mission
	for i := range missions {
		m := &missions[i]
		switch m.Status {
		case mission.StatusCompleted:
			out.CompletedMissions++
			value = value.Add(m.Amount.Decimal())
			gas = gas.Add(m.GasSaved.Decimal())
		case mission.StatusFailed:
			out.FailedMissions++
		default:
			out.ActiveMissions++
		}
		if last == nil || newer(m, last) {
			last = m
		}
	}

	out.SuccessRate = SuccessRate(out.CompletedMissions, out.FailedMissions)
	out.ValueBridged = id.FormatDecimal(value)
	out.GasSaved = id.FormatDecimal(gas)
	out.ChainsUsed = ChainsUsed(missions)
	if last != nil {
		out.LastMission = last.Name
		out.LastMissionID = last.ID
	}
	return out
}

// SuccessRate renders completed/(completed+failed) as a percentage with one
// decimal, rounding half up. No finished missions yields "0%".
func SuccessRate(completed, failed int) string {
	finished := completed + failed
	if finished == 0 {
		return "0%"
	}
	rate := decimal.NewFromInt(int64(completed)).Mul(hundred).Div(decimal.NewFromInt(int64(finished)))
	return rate.StringFixed(1) + "%"
}

// ChainsUsed counts distinct chains seen as source or destination.
func ChainsUsed(missions []mission.Mission) int {
	seen := map[string]struct{}{}
	for _, m := range missions {
		for _, chain := range []string{m.SourceChain, m.DestinationChain} {
			if key := id.ChainKey(chain); key != "" {
				seen[key] = struct{}{}
			}
		}
	}
	return len(seen)
}

// GasSavedCompleted sums gas estimates over completed missions.
func GasSavedCompleted(missions []mission.Mission) decimal.Decimal {
	total := decimal.Zero
	for _, m := range missions {
		if m.Status == mission.StatusCompleted {
			total = total.Add(m.GasSaved.Decimal())
		}
	}
	return total
}

func newer(a, b *mission.Mission) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}
