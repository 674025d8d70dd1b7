package currency

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Static USD multipliers. Rates are not fetched at runtime.
var defaultRates = map[string]decimal.Decimal{
	"USD": decimal.NewFromInt(1),
	"EUR": decimal.RequireFromString("0.93"),
	"GBP": decimal.RequireFromString("0.79"),
	"INR": decimal.RequireFromString("83.5"),
	"JPY": decimal.RequireFromString("150.2"),
}

type Converter struct {
	rates map[string]decimal.Decimal
}

func NewConverter() *Converter {
	return &Converter{rates: defaultRates}
}

// NewConverterWithRates is used by tests and by deployments pinning their own table.
func NewConverterWithRates(rates map[string]decimal.Decimal) *Converter {
	normalized := make(map[string]decimal.Decimal, len(rates))
	for code, rate := range rates {
		normalized[normalize(code)] = rate
	}
	return &Converter{rates: normalized}
}

// Rate returns the USD multiplier for code. Unknown codes are treated as USD.
func (c *Converter) Rate(code string) decimal.Decimal {
	if rate, ok := c.rates[normalize(code)]; ok {
		return rate
	}
	return decimal.NewFromInt(1)
}

func (c *Converter) Convert(amountUSD decimal.Decimal, code string) decimal.Decimal {
	return amountUSD.Mul(c.Rate(code))
}

func (c *Converter) Supported(code string) bool {
	_, ok := c.rates[normalize(code)]
	return ok
}

func (c *Converter) Codes() []string {
	codes := make([]string, 0, len(c.rates))
	for code := range c.rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
