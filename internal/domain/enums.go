package domain

import "strings"

// Side is a closed set of trade directions. It is never stored: the sign of
// a transaction's share count encodes it, and Side is derived for display.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

func (s Side) String() string { return string(s) }
func (s Side) Valid() bool    { return s == SideBuy || s == SideSell }

// SideOf derives the side from a signed share count.
func SideOf(shares int64) Side {
	if shares < 0 {
		return SideSell
	}
	return SideBuy
}

func ParseSide(s string) (Side, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return SideBuy, true
	case "SELL":
		return SideSell, true
	default:
		return "", false
	}
}

// NormalizeSymbol canonicalizes a ticker for lookups and ledger rows.
func NormalizeSymbol(sym string) string {
	return strings.ToUpper(strings.TrimSpace(sym))
}
