// Package achievement evaluates achievement rules against mission history.
// Earned and progress state is derived on every call and never stored.
package achievement

import (
	"fmt"
	"strings"

	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/id"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/mission"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/policy"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/stats"
	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindBinary   Kind = "binary"
	KindProgress Kind = "progress"
)

// Definition is the static identity of a rule.
type Definition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Category    string `json:"category"`
	Kind        Kind   `json:"kind"`
}

type Progress struct {
	Current string `json:"current"`
	Target  string `json:"target"`
}

type Achievement struct {
	Definition
	Earned   bool      `json:"earned"`
	Progress *Progress `json:"progress,omitempty"`
}

// Rule pairs a definition with a measure returning (current, target). A rule
// is earned once current reaches target.
type Rule struct {
	Definition
	Measure func([]mission.Mission) (current, target decimal.Decimal)
}

// DefaultRules builds the process-wide rule set from policy thresholds.
func DefaultRules(p policy.Policy) []Rule {
	a := p.Achievements
	rules := []Rule{
		{
			Definition: Definition{
				ID: "first_mission", Name: "First Contact", Icon: "rocket", Category: "missions", Kind: KindBinary,
				Description: "Complete your first bridge mission.",
			},
			Measure: func(ms []mission.Mission) (decimal.Decimal, decimal.Decimal) {
				return decimal.NewFromInt(int64(countStatus(ms, mission.StatusCompleted))), decimal.NewFromInt(1)
			},
		},
		{
			Definition: Definition{
				ID: "rapid_launch", Name: "Rapid Launch", Icon: "zap", Category: "missions", Kind: KindBinary,
				Description: fmt.Sprintf("Launch %d missions on a single day.", a.DailyLaunches),
			},
			Measure: func(ms []mission.Mission) (decimal.Decimal, decimal.Decimal) {
				return decimal.NewFromInt(int64(busiestLaunchDay(ms))), decimal.NewFromInt(int64(a.DailyLaunches))
			},
		},
		{
			Definition: Definition{
				ID: "gas_saver", Name: "Gas Saver", Icon: "fuel", Category: "efficiency", Kind: KindProgress,
				Description: fmt.Sprintf("Save %s in gas across completed missions.", a.GasSavedTarget),
			},
			Measure: func(ms []mission.Mission) (decimal.Decimal, decimal.Decimal) {
				return stats.GasSavedCompleted(ms), a.GasSavedTarget.Decimal()
			},
		},
		{
			Definition: Definition{
				ID: "chain_explorer", Name: "Chain Explorer", Icon: "globe", Category: "exploration", Kind: KindProgress,
				Description: fmt.Sprintf("Bridge across %d different chains.", a.DistinctChains),
			},
			Measure: func(ms []mission.Mission) (decimal.Decimal, decimal.Decimal) {
				return decimal.NewFromInt(int64(stats.ChainsUsed(ms))), decimal.NewFromInt(int64(a.DistinctChains))
			},
		},
	}
	for i, tier := range p.Ranks {
		if i == 0 {
			continue
		}
		floor := tier.MinMissions
		rules = append(rules, Rule{
			Definition: Definition{
				ID: "rank_" + slug(tier.Name), Name: tier.Name, Icon: "medal", Category: "rank", Kind: KindBinary,
				Description: fmt.Sprintf("Reach the %s rank (%d missions).", tier.Name, floor),
			},
			Measure: func(ms []mission.Mission) (decimal.Decimal, decimal.Decimal) {
				return decimal.NewFromInt(int64(len(ms))), decimal.NewFromInt(int64(floor))
			},
		})
	}
	return rules
}

// Evaluate returns one Achievement per rule, in rule order. It is total and
// deterministic: the order of missions does not affect the result.
func Evaluate(missions []mission.Mission, rules []Rule) []Achievement {
	out := make([]Achievement, 0, len(rules))
	for _, rule := range rules {
		current, target := rule.Measure(missions)
		earned := current.GreaterThanOrEqual(target)
		ach := Achievement{Definition: rule.Definition, Earned: earned}
		if rule.Kind == KindProgress || !earned {
			if current.GreaterThan(target) {
				current = target
			}
			ach.Progress = &Progress{Current: id.FormatDecimal(current), Target: id.FormatDecimal(target)}
		}
		out = append(out, ach)
	}
	return out
}

// Earned counts earned achievements.
func Earned(list []Achievement) int {
	n := 0
	for _, a := range list {
		if a.Earned {
			n++
		}
	}
	return n
}

func countStatus(ms []mission.Mission, status mission.Status) int {
	n := 0
	for _, m := range ms {
		if m.Status == status {
			n++
		}
	}
	return n
}

// busiestLaunchDay groups missions that were ever launched by UTC creation
// date and returns the size of the largest group.
func busiestLaunchDay(ms []mission.Mission) int {
	perDay := map[string]int{}
	best := 0
	for _, m := range ms {
		if !m.Launched() {
			continue
		}
		day := m.CreatedAt.UTC().Format("2006-01-02")
		perDay[day]++
		if perDay[day] > best {
			best = perDay[day]
		}
	}
	return best
}

func slug(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	return strings.Join(fields, "_")
}
