package id

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	clierr "github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/errors"
)

var (
	eip155ChainPattern = regexp.MustCompile(`^eip155:[0-9]+$`)
	solanaChainPattern = regexp.MustCompile(`^solana:[1-9A-HJ-NP-Za-km-z]{32,44}$`)
)

const solanaMainnetCAIP2 = "solana:5eykt4UsFv8P8NJdTREpY1vzqKqZKvdp"

type Chain struct {
	Name       string
	Slug       string
	CAIP2      string
	EVMChainID int64
}

func (c Chain) IsEVM() bool {
	return strings.HasPrefix(c.CAIP2, "eip155:")
}

var chainBySlug = map[string]Chain{
	"ethereum":  {Name: "Ethereum", Slug: "ethereum", CAIP2: "eip155:1", EVMChainID: 1},
	"mainnet":   {Name: "Ethereum", Slug: "ethereum", CAIP2: "eip155:1", EVMChainID: 1},
	"sepolia":   {Name: "Sepolia", Slug: "sepolia", CAIP2: "eip155:11155111", EVMChainID: 11155111},
	"base":      {Name: "Base", Slug: "base", CAIP2: "eip155:8453", EVMChainID: 8453},
	"arbitrum":  {Name: "Arbitrum", Slug: "arbitrum", CAIP2: "eip155:42161", EVMChainID: 42161},
	"optimism":  {Name: "Optimism", Slug: "optimism", CAIP2: "eip155:10", EVMChainID: 10},
	"polygon":   {Name: "Polygon", Slug: "polygon", CAIP2: "eip155:137", EVMChainID: 137},
	"avalanche": {Name: "Avalanche", Slug: "avalanche", CAIP2: "eip155:43114", EVMChainID: 43114},
	"fuji":      {Name: "Avalanche Fuji", Slug: "fuji", CAIP2: "eip155:43113", EVMChainID: 43113},
	"bsc":       {Name: "BSC", Slug: "bsc", CAIP2: "eip155:56", EVMChainID: 56},
	"linea":     {Name: "Linea", Slug: "linea", CAIP2: "eip155:59144", EVMChainID: 59144},
	"scroll":    {Name: "Scroll", Slug: "scroll", CAIP2: "eip155:534352", EVMChainID: 534352},
	"taiko":     {Name: "Taiko", Slug: "taiko", CAIP2: "eip155:167000", EVMChainID: 167000},
	"solana":    {Name: "Solana", Slug: "solana", CAIP2: solanaMainnetCAIP2},
}

var chainByID = func() map[int64]Chain {
	out := make(map[int64]Chain, len(chainBySlug))
	for _, chain := range chainBySlug {
		if chain.EVMChainID != 0 {
			out[chain.EVMChainID] = chain
		}
	}
	return out
}()

// ParseChain resolves a slug, CAIP-2 id or numeric EVM chain id.
func ParseChain(input string) (Chain, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Chain{}, clierr.New(clierr.CodeUsage, "chain is required")
	}
	norm := strings.ToLower(raw)

	if chain, ok := chainBySlug[norm]; ok {
		return chain, nil
	}
	if eip155ChainPattern.MatchString(norm) {
		n, _ := strconv.ParseInt(strings.TrimPrefix(norm, "eip155:"), 10, 64)
		return chainForEVMID(n), nil
	}
	if solanaChainPattern.MatchString(raw) {
		return Chain{Name: "Solana", Slug: "solana", CAIP2: raw}, nil
	}
	if n, err := strconv.ParseInt(norm, 10, 64); err == nil && n > 0 {
		return chainForEVMID(n), nil
	}
	return Chain{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("unsupported chain input: %s", input))
}

func chainForEVMID(n int64) Chain {
	if known, ok := chainByID[n]; ok {
		return known
	}
	return Chain{Name: fmt.Sprintf("EVM-%d", n), Slug: fmt.Sprintf("evm-%d", n), CAIP2: fmt.Sprintf("eip155:%d", n), EVMChainID: n}
}

// ChainKey returns a canonical identity for counting distinct chains. Known
// chains collapse to their CAIP-2 id; anything else is compared case-folded.
func ChainKey(input string) string {
	if chain, err := ParseChain(input); err == nil {
		return chain.CAIP2
	}
	return strings.ToLower(strings.TrimSpace(input))
}

// SameChain reports whether two chain inputs name the same chain.
func SameChain(a, b string) bool {
	return ChainKey(a) == ChainKey(b)
}
