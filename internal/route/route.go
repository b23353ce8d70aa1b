// Package route classifies and ranks candidate bridge routes.
package route

import (
	"fmt"
	"sort"
	"strings"

	clierr "github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/errors"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/id"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/policy"
	"github.com/shopspring/decimal"
)

type RiskTier uint8

const (
	RiskLow RiskTier = iota + 1
	RiskMedium
	RiskHigh
)

var tierNames = map[RiskTier]string{RiskLow: "low", RiskMedium: "medium", RiskHigh: "high"}

func (t RiskTier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return fmt.Sprintf("risk(%d)", uint8(t))
}

func (t RiskTier) MarshalText() ([]byte, error) {
	if _, ok := tierNames[t]; !ok {
		return nil, fmt.Errorf("marshal invalid risk tier %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *RiskTier) UnmarshalText(text []byte) error {
	parsed, err := ParseTier(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTier reads low|medium|high. Fee volatility bands use the same scale.
func ParseTier(raw string) (RiskTier, error) {
	norm := strings.ToLower(strings.TrimSpace(raw))
	for tier, name := range tierNames {
		if name == norm {
			return tier, nil
		}
	}
	return 0, clierr.New(clierr.CodeUsage, fmt.Sprintf("unknown risk band %q (expected low|medium|high)", raw))
}

// Candidate is a quote supplied by an external quoting collaborator.
type Candidate struct {
	Provider       string `json:"provider" yaml:"provider"`
	Route          string `json:"route,omitempty" yaml:"route,omitempty"`
	GasCost        string `json:"gas_cost" yaml:"gas_cost"`
	EstimatedTimeS int64  `json:"estimated_time_s" yaml:"estimated_time_s"`
	LiquidityUSD   string `json:"liquidity_usd" yaml:"liquidity_usd"`
	FeeVolatility  string `json:"fee_volatility" yaml:"fee_volatility"`
}

// Hints bias ranking without being authoritative.
type Hints struct {
	PreferredProviders []string
	SavedRouteName     string
}

type Request struct {
	SourceChain      string
	DestinationChain string
	Token            string
	Amount           string
	Hints            Hints
}

// Recommendation is an immutable ranked result.
type Recommendation struct {
	SourceChain      string    `json:"source_chain"`
	DestinationChain string    `json:"destination_chain"`
	Token            string    `json:"token"`
	Amount           id.Amount `json:"amount"`
	Provider         string    `json:"provider"`
	Route            string    `json:"route,omitempty"`
	GasCost          id.Amount `json:"gas_cost"`
	EstimatedTimeS   int64     `json:"estimated_time_s"`
	Risk             RiskTier  `json:"risk"`
	SavedRouteName   string    `json:"saved_route_name,omitempty"`
}

// Classify maps liquidity depth, estimated time and fee volatility to a tier.
// The tier is the worst of the three dimension tiers, so more time or more
// volatility or less liquidity never lowers it.
func Classify(liquidityUSD decimal.Decimal, estimatedTimeS int64, volatility RiskTier, r policy.Risk) RiskTier {
	tier := RiskLow
	switch {
	case liquidityUSD.LessThan(r.LiquidityHighUSD.Decimal()):
		tier = RiskHigh
	case liquidityUSD.LessThan(r.LiquidityMediumUSD.Decimal()):
		tier = RiskMedium
	}
	switch {
	case estimatedTimeS > r.TimeHighS:
		tier = maxTier(tier, RiskHigh)
	case estimatedTimeS > r.TimeMediumS:
		tier = maxTier(tier, RiskMedium)
	}
	if volatility.Valid() {
		tier = maxTier(tier, volatility)
	} else {
		tier = RiskHigh
	}
	return tier
}

func (t RiskTier) Valid() bool {
	_, ok := tierNames[t]
	return ok
}

func maxTier(a, b RiskTier) RiskTier {
	if a > b {
		return a
	}
	return b
}

type Scorer struct {
	risk policy.Risk
}

func NewScorer(r policy.Risk) *Scorer {
	return &Scorer{risk: r}
}

type scored struct {
	rec       Recommendation
	gas       decimal.Decimal
	preferred int
}

// Rank returns every viable candidate in order: risk tier, gas cost, estimated
// time, preferred provider, then input order.
func (s *Scorer) Rank(req Request, candidates []Candidate) ([]Recommendation, error) {
	src := strings.TrimSpace(req.SourceChain)
	dst := strings.TrimSpace(req.DestinationChain)
	token := strings.ToUpper(strings.TrimSpace(req.Token))
	if src == "" || dst == "" {
		return nil, clierr.New(clierr.CodeUsage, "source and destination chains are required")
	}
	if token == "" {
		return nil, clierr.New(clierr.CodeUsage, "token is required")
	}
	amount, err := id.ParseAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	entries := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		if c.EstimatedTimeS <= 0 || strings.TrimSpace(c.Provider) == "" {
			continue
		}
		gas, err := id.ParseAmount(c.GasCost)
		if err != nil {
			continue
		}
		liquidity, err := id.ParseAmount(c.LiquidityUSD)
		if err != nil {
			continue
		}
		volatility, err := ParseTier(c.FeeVolatility)
		if err != nil {
			continue
		}
		entries = append(entries, scored{
			rec: Recommendation{
				SourceChain:      src,
				DestinationChain: dst,
				Token:            token,
				Amount:           amount,
				Provider:         strings.TrimSpace(c.Provider),
				Route:            strings.TrimSpace(c.Route),
				GasCost:          gas,
				EstimatedTimeS:   c.EstimatedTimeS,
				Risk:             Classify(liquidity.Decimal(), c.EstimatedTimeS, volatility, s.risk),
				SavedRouteName:   strings.TrimSpace(req.Hints.SavedRouteName),
			},
			gas:       gas.Decimal(),
			preferred: preference(c.Provider, req.Hints.PreferredProviders),
		})
	}
	if len(entries) == 0 {
		return nil, clierr.New(clierr.CodeNoViableRoute,
			fmt.Sprintf("no viable route for %s from %s to %s among %d candidates", token, src, dst, len(candidates)))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.rec.Risk != b.rec.Risk {
			return a.rec.Risk < b.rec.Risk
		}
		if cmp := a.gas.Cmp(b.gas); cmp != 0 {
			return cmp < 0
		}
		if a.rec.EstimatedTimeS != b.rec.EstimatedTimeS {
			return a.rec.EstimatedTimeS < b.rec.EstimatedTimeS
		}
		return a.preferred < b.preferred
	})

	out := make([]Recommendation, len(entries))
	for i, e := range entries {
		out[i] = e.rec
	}
	return out, nil
}

// Recommend returns the top-ranked candidate.
func (s *Scorer) Recommend(req Request, candidates []Candidate) (Recommendation, error) {
	ranked, err := s.Rank(req, candidates)
	if err != nil {
		return Recommendation{}, err
	}
	return ranked[0], nil
}

func preference(provider string, preferred []string) int {
	for i, p := range preferred {
		if strings.EqualFold(strings.TrimSpace(p), strings.TrimSpace(provider)) {
			return i
		}
	}
	return len(preferred)
}
