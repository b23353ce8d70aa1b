package id

import (
	"encoding/json"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	clierr "github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

var decimalPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// Amount is a non-negative exact decimal that remembers the text it was parsed
// from, so chain-native precision survives a round trip.
type Amount struct {
	text  string
	value decimal.Decimal
}

// ParseAmount parses a required amount. Empty, signed, exponent or otherwise
// non-numeric input is rejected with CodeMalformedAmount.
func ParseAmount(raw string) (Amount, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return Amount{}, clierr.New(clierr.CodeMalformedAmount, "amount is required")
	}
	if !decimalPattern.MatchString(v) {
		return Amount{}, clierr.New(clierr.CodeMalformedAmount, fmt.Sprintf("amount %q must be a non-negative decimal like 1.23", raw))
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return Amount{}, clierr.Wrap(clierr.CodeMalformedAmount, fmt.Sprintf("parse amount %q", raw), err)
	}
	return Amount{text: v, value: d}, nil
}

// ParseOptionalAmount treats empty input as zero.
func ParseOptionalAmount(raw string) (Amount, error) {
	if strings.TrimSpace(raw) == "" {
		return Amount{}, nil
	}
	return ParseAmount(raw)
}

func MustAmount(raw string) Amount {
	a, err := ParseAmount(raw)
	if err != nil {
		panic(err)
	}
	return a
}

// AmountFromDecimal wraps an already computed value. Negative values clamp to zero.
func AmountFromDecimal(d decimal.Decimal) Amount {
	if d.IsNegative() {
		d = decimal.Zero
	}
	return Amount{text: d.String(), value: d}
}

// NormalizeAmount accepts either an integer base-unit amount or a decimal
// amount, never both, and returns the decimal form.
func NormalizeAmount(baseUnits, dec string, decimals int) (Amount, error) {
	baseUnits = strings.TrimSpace(baseUnits)
	dec = strings.TrimSpace(dec)
	if baseUnits != "" && dec != "" {
		return Amount{}, clierr.New(clierr.CodeUsage, "use either --amount or --amount-base, not both")
	}
	if baseUnits == "" && dec == "" {
		return Amount{}, clierr.New(clierr.CodeMalformedAmount, "amount is required")
	}
	if decimals < 0 {
		return Amount{}, clierr.New(clierr.CodeUsage, "decimals must be >= 0")
	}
	if dec != "" {
		return ParseAmount(dec)
	}
	if strings.HasPrefix(baseUnits, "-") {
		return Amount{}, clierr.New(clierr.CodeMalformedAmount, "--amount-base must be non-negative")
	}
	n, ok := new(big.Int).SetString(baseUnits, 10)
	if !ok {
		return Amount{}, clierr.New(clierr.CodeMalformedAmount, "--amount-base must be an integer string")
	}
	return AmountFromDecimal(decimal.NewFromBigInt(n, -int32(decimals))), nil
}

func (a Amount) String() string {
	if a.text == "" {
		return "0"
	}
	return a.text
}

func (a Amount) Decimal() decimal.Decimal { return a.value }

func (a Amount) IsZero() bool { return a.value.IsZero() }

// Present reports whether the amount was set, as opposed to the zero value.
func (a Amount) Present() bool { return a.text != "" }

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Amount) UnmarshalJSON(buf []byte) error {
	var raw string
	if err := json.Unmarshal(buf, &raw); err != nil {
		return clierr.Wrap(clierr.CodeMalformedAmount, "amount must be a JSON string", err)
	}
	parsed, err := ParseOptionalAmount(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (a Amount) MarshalYAML() (any, error) {
	return a.String(), nil
}

func (a *Amount) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return clierr.Wrap(clierr.CodeMalformedAmount, "amount must be a scalar", err)
	}
	parsed, err := ParseOptionalAmount(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// FormatDecimal renders an exact decimal without trailing zeros.
func FormatDecimal(d decimal.Decimal) string {
	return d.String()
}
