// Package market holds the shared market vocabulary: order sides and
// types, venue contract metadata, and lot rounding.
package market

import (
	"fmt"
	"math"
)

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

func (s Side) Valid() bool {
	return s == Buy || s == Sell
}

type OrderType string

const (
	Market OrderType = "market"
	Limit  OrderType = "limit"
	Stop   OrderType = "stop"
)

func (t OrderType) Valid() bool {
	switch t {
	case Market, Limit, Stop:
		return true
	}
	return false
}

// SymbolInfo carries the venue-reported contract metadata needed to turn a
// price-based stop into a currency risk amount and to normalize lot sizes.
type SymbolInfo struct {
	Symbol       string
	Point        float64 // minimal price increment, e.g. 0.0001 for 5-digit FX
	Digits       int
	ContractSize float64 // units of base currency per 1.0 lot
	LotStep      float64
	MinLot       float64
}

// PipValuePerLot is the account-currency value of a one-pip move for a full
// lot. For USD-quoted symbols on a USD account this is Point*ContractSize.
func (s SymbolInfo) PipValuePerLot() float64 {
	return s.Point * s.ContractSize
}

func (s SymbolInfo) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("symbol info: empty symbol")
	}
	if s.Point <= 0 || s.ContractSize <= 0 {
		return fmt.Errorf("symbol info %s: point and contract size must be positive", s.Symbol)
	}
	if s.LotStep <= 0 || s.MinLot <= 0 {
		return fmt.Errorf("symbol info %s: lot step and min lot must be positive", s.Symbol)
	}
	return nil
}

// RoundDownToStep snaps x down to the nearest multiple of step. Rounding
// down keeps a computed position size from ever exceeding the requested
// risk. A small epsilon absorbs float error so 0.25/0.01 stays 25 steps.
func RoundDownToStep(x, step float64) float64 {
	if step <= 0 {
		return x
	}
	n := math.Floor(x/step + 1e-9)
	return n * step
}
