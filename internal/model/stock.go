package model

import "strings"

// Market identifies which Taiwan market a stock trades on.
type Market string

const (
	MarketTWSE Market = "TWSE" // 上市 (exchange-listed)
	MarketTPEX Market = "TPEX" // 上櫃 (over-the-counter)
)

// Suffix returns the ticker suffix the general-purpose provider expects.
func (m Market) Suffix() string {
	if m == MarketTPEX {
		return ".TWO"
	}
	return ".TW"
}

// Stock is one registered equity. The code is the bare exchange code
// (e.g. "2330"); the market determines the provider suffix.
type Stock struct {
	Code   string
	Name   string
	Market Market
}

// Ticker returns the full provider ticker, e.g. "2330.TW".
func (s Stock) Ticker() string {
	return s.Code + s.Market.Suffix()
}

// SplitSymbol separates an identifier into bare code and market.
// Identifiers without a recognized suffix report ok=false and must be
// resolved against the provider before use.
func SplitSymbol(symbol string) (code string, market Market, ok bool) {
	symbol = strings.TrimSpace(symbol)
	switch {
	case strings.HasSuffix(symbol, ".TWO"):
		return strings.TrimSuffix(symbol, ".TWO"), MarketTPEX, true
	case strings.HasSuffix(symbol, ".TW"):
		return strings.TrimSuffix(symbol, ".TW"), MarketTWSE, true
	default:
		return symbol, "", false
	}
}
