package aggregator

import (
	"github.com/shopspring/decimal"

	"github.com/hl2638/itch-vwap/internal/protocol"
)

// Order is a live entry in the order index, keyed by OrderRef.
type Order struct {
	StockLocate protocol.StockLocate
	Side        protocol.Side
	Shares      uint32
	Price       decimal.Decimal
	OrderRef    uint64
}

// Trade is a live entry in the match-number-indexed trade ledger.
type Trade struct {
	StockLocate protocol.StockLocate
	Shares      uint64
	Price       decimal.Decimal
	MatchNumber uint64
}

// SecurityStats accumulates the running VWAP inputs for one security.
type SecurityStats struct {
	TradedShares     uint64
	TotalTradedValue decimal.Decimal
}

// VWAP returns the volume-weighted average price, or zero if no shares
// have traded. Division happens here only, at report time.
func (s SecurityStats) VWAP() decimal.Decimal {
	if s.TradedShares == 0 {
		return decimal.Zero
	}
	return s.TotalTradedValue.Div(decimal.NewFromInt(int64(s.TradedShares)))
}
