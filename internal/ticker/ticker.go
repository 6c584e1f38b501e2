// Package ticker normalizes market ticker symbols between provider form
// (PETR4.SA) and filesystem-safe form (PETR4_SA).
package ticker

import "strings"

// Ticker is a parsed ticker symbol.
type Ticker struct {
	Symbol string
	Name   string
	Market string
}

// Parse reads a ticker in either form. A suffix is appended as the market
// when the symbol carries none.
func Parse(raw, suffix string) Ticker {
	sym := strings.ReplaceAll(strings.TrimSpace(raw), "_", ".")
	if suffix != "" && !strings.Contains(sym, ".") {
		sym = sym + "." + suffix
	}
	t := Ticker{Symbol: sym, Name: sym}
	if name, market, ok := strings.Cut(sym, "."); ok {
		t.Name = name
		t.Market = market
	}
	return t
}

// String returns the provider form.
func (t Ticker) String() string { return t.Symbol }

// SaveFormat returns the filesystem-safe form.
func (t Ticker) SaveFormat() string {
	return strings.ReplaceAll(t.Symbol, ".", "_")
}
