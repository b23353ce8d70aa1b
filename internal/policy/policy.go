// Package policy holds the tunable thresholds behind ranks, achievements and
// route risk tiers. Nothing here is inferred from mission data; values come
// from Default or the config file.
package policy

import (
	"fmt"
	"strings"

	clierr "github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/errors"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/id"
)

type RankTier struct {
	Name        string `yaml:"name" json:"name"`
	MinMissions int    `yaml:"min_missions" json:"min_missions"`
}

type Achievements struct {
	DailyLaunches  int       `yaml:"daily_launches" json:"daily_launches"`
	GasSavedTarget id.Amount `yaml:"gas_saved_target" json:"gas_saved_target"`
	DistinctChains int       `yaml:"distinct_chains" json:"distinct_chains"`
}

// Risk thresholds. A route slower than TimeMediumS is at least medium risk and
// slower than TimeHighS is high risk. Liquidity below LiquidityMediumUSD is at
// least medium and below LiquidityHighUSD is high.
type Risk struct {
	TimeMediumS        int64     `yaml:"time_medium_s" json:"time_medium_s"`
	TimeHighS          int64     `yaml:"time_high_s" json:"time_high_s"`
	LiquidityMediumUSD id.Amount `yaml:"liquidity_medium_usd" json:"liquidity_medium_usd"`
	LiquidityHighUSD   id.Amount `yaml:"liquidity_high_usd" json:"liquidity_high_usd"`
}

type Policy struct {
	Ranks        []RankTier   `yaml:"ranks" json:"ranks"`
	Achievements Achievements `yaml:"achievements" json:"achievements"`
	Risk         Risk         `yaml:"risk" json:"risk"`
}

func Default() Policy {
	return Policy{
		Ranks: []RankTier{
			{Name: "Cadet", MinMissions: 0},
			{Name: "Navigator", MinMissions: 5},
			{Name: "Pilot", MinMissions: 15},
			{Name: "Commander", MinMissions: 30},
			{Name: "Admiral", MinMissions: 50},
		},
		Achievements: Achievements{
			DailyLaunches:  5,
			GasSavedTarget: id.MustAmount("0.5"),
			DistinctChains: 5,
		},
		Risk: Risk{
			TimeMediumS:        600,
			TimeHighS:          1800,
			LiquidityMediumUSD: id.MustAmount("1000000"),
			LiquidityHighUSD:   id.MustAmount("100000"),
		},
	}
}

func (p Policy) Validate() error {
	if len(p.Ranks) == 0 {
		return clierr.New(clierr.CodeUsage, "policy.ranks must not be empty")
	}
	if p.Ranks[0].MinMissions != 0 {
		return clierr.New(clierr.CodeUsage, "policy.ranks must start at min_missions 0")
	}
	seen := map[string]struct{}{}
	for i, tier := range p.Ranks {
		name := strings.ToLower(strings.TrimSpace(tier.Name))
		if name == "" {
			return clierr.New(clierr.CodeUsage, fmt.Sprintf("policy.ranks[%d] is missing a name", i))
		}
		if _, dup := seen[name]; dup {
			return clierr.New(clierr.CodeUsage, fmt.Sprintf("policy.ranks has duplicate name %q", tier.Name))
		}
		seen[name] = struct{}{}
		if i > 0 && tier.MinMissions <= p.Ranks[i-1].MinMissions {
			return clierr.New(clierr.CodeUsage, "policy.ranks min_missions must be strictly ascending")
		}
	}

	a := p.Achievements
	if a.DailyLaunches <= 0 {
		return clierr.New(clierr.CodeUsage, "policy.achievements.daily_launches must be > 0")
	}
	if a.DistinctChains <= 0 {
		return clierr.New(clierr.CodeUsage, "policy.achievements.distinct_chains must be > 0")
	}
	if !a.GasSavedTarget.Decimal().IsPositive() {
		return clierr.New(clierr.CodeUsage, "policy.achievements.gas_saved_target must be > 0")
	}

	r := p.Risk
	if r.TimeMediumS <= 0 || r.TimeHighS <= r.TimeMediumS {
		return clierr.New(clierr.CodeUsage, "policy.risk requires 0 < time_medium_s < time_high_s")
	}
	if !r.LiquidityHighUSD.Decimal().IsPositive() || r.LiquidityHighUSD.Decimal().GreaterThanOrEqual(r.LiquidityMediumUSD.Decimal()) {
		return clierr.New(clierr.CodeUsage, "policy.risk requires 0 < liquidity_high_usd < liquidity_medium_usd")
	}
	return nil
}

// RankIndex returns the index of the highest tier whose floor is reached.
func (p Policy) RankIndex(totalMissions int) int {
	idx := 0
	for i, tier := range p.Ranks {
		if totalMissions >= tier.MinMissions {
			idx = i
		}
	}
	return idx
}

func (p Policy) RankFor(totalMissions int) string {
	if len(p.Ranks) == 0 {
		return ""
	}
	return p.Ranks[p.RankIndex(totalMissions)].Name
}
