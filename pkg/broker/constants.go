package broker

import "strings"

// Side is the canonical order direction.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// sideTokens maps vendor transaction-type codes to canonical sides.
// Additions here are enough to support new vendor vocabularies.
var sideTokens = map[string]Side{
	"B":    SideBuy,
	"BUY":  SideBuy,
	"S":    SideSell,
	"SELL": SideSell,
}

// ParseSide maps a vendor transaction-type token to a canonical Side.
// Unrecognized tokens report ok=false; callers decide the default.
func ParseSide(token string) (Side, bool) {
	side, ok := sideTokens[strings.ToUpper(strings.TrimSpace(token))]
	return side, ok
}

// Product types supported on the order API.
const (
	ProductDelivery = "CNC"
	ProductIntraday = "MIS"
	ProductNormal   = "NRML"
)

// Order types supported on the order API.
const (
	OrderTypeMarket  = "MARKET"
	OrderTypeLimit   = "LIMIT"
	OrderTypeStop    = "SL"
	OrderTypeStopMkt = "SL-M"
)

var validOrderTypes = map[string]bool{
	OrderTypeMarket:  true,
	OrderTypeLimit:   true,
	OrderTypeStop:    true,
	OrderTypeStopMkt: true,
}

// IsValidOrderType checks the order type against the supported set.
func IsValidOrderType(s string) bool {
	return validOrderTypes[strings.ToUpper(strings.TrimSpace(s))]
}
