// Package aggregator maintains the live order index, the trade ledger,
// and per-security VWAP statistics, and emits per-hour VWAP reports.
//
// Every exported method here is called from exactly one goroutine (the
// pipeline's parser). None of it locks; that is a design invariant, not
// an oversight — see internal/pipeline.
package aggregator

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/hl2638/itch-vwap/internal/protocol"
	"github.com/hl2638/itch-vwap/internal/report"
	"github.com/hl2638/itch-vwap/pkg/safe"
)

// Aggregator is the "SystemData" of the system: the single stateful,
// single-threaded choke point that every decoded message flows through.
type Aggregator struct {
	log *slog.Logger

	writer    report.Writer
	outputDir string

	locateToSymbol map[protocol.StockLocate]protocol.Symbol
	symbolToLocate map[protocol.Symbol]protocol.StockLocate

	orders map[uint64]Order
	trades map[uint64]Trade
	stats  map[protocol.StockLocate]*SecurityStats

	lastTimestamp protocol.TimeStamp
	haveTimestamp bool
	marketOpen    bool
}

// New constructs an Aggregator that writes hourly reports to outputDir
// using writer.
func New(writer report.Writer, outputDir string, log *slog.Logger) *Aggregator {
	if log == nil {
		log = slog.Default()
	}
	return &Aggregator{
		log:            log,
		writer:         writer,
		outputDir:      outputDir,
		locateToSymbol: make(map[protocol.StockLocate]protocol.Symbol),
		symbolToLocate: make(map[protocol.Symbol]protocol.StockLocate),
		orders:         make(map[uint64]Order),
		trades:         make(map[uint64]Trade),
		stats:          make(map[protocol.StockLocate]*SecurityStats),
	}
}

// UpdateTimestamp advances the aggregator's notion of "now". If the
// market is open and t crosses into a later hour than the last observed
// timestamp, the hourly report for the new hour fires before t is
// recorded, so the report never reflects the message that triggered it.
func (a *Aggregator) UpdateTimestamp(t protocol.TimeStamp) {
	if a.marketOpen && a.haveTimestamp && t.HourOfDay() > a.lastTimestamp.HourOfDay() {
		a.emitHourlyReport(t.HourOfDay())
	}
	a.lastTimestamp = t
	a.haveTimestamp = true
}

// OnSystemEvent applies the two recognized system event codes. Every
// other code is a documented no-op: the feed's start/end-of-messages
// bracket events do not toggle market state here.
func (a *Aggregator) OnSystemEvent(code byte) {
	switch code {
	case 'Q':
		a.marketOpen = true
	case 'M':
		a.marketOpen = false
		a.emitHourlyReport(a.lastTimestamp.HourOfDay())
	}
}

// AddStockRecord inserts both directions of the locate<->symbol
// bijection. A repeated entry that disagrees with the existing mapping
// is rejected; state is left unchanged.
func (a *Aggregator) AddStockRecord(locate protocol.StockLocate, symbol protocol.Symbol) bool {
	if existingSym, ok := a.locateToSymbol[locate]; ok && existingSym != symbol {
		a.log.Warn("directory conflict", slog.Uint64("locate", uint64(locate)), slog.String("symbol", symbol.String()))
		return false
	}
	if existingLocate, ok := a.symbolToLocate[symbol]; ok && existingLocate != locate {
		a.log.Warn("directory conflict", slog.Uint64("locate", uint64(locate)), slog.String("symbol", symbol.String()))
		return false
	}
	a.locateToSymbol[locate] = symbol
	a.symbolToLocate[symbol] = locate
	return true
}

// GetSymbol resolves a stock locate to its symbol.
func (a *Aggregator) GetSymbol(locate protocol.StockLocate) (protocol.Symbol, bool) {
	sym, ok := a.locateToSymbol[locate]
	return sym, ok
}

// GetLocate resolves a symbol to its stock locate.
func (a *Aggregator) GetLocate(symbol protocol.Symbol) (protocol.StockLocate, bool) {
	locate, ok := a.symbolToLocate[symbol]
	return locate, ok
}

// AddOrder inserts a new live order keyed by OrderRef. A duplicate
// reference number is rejected.
func (a *Aggregator) AddOrder(o Order) bool {
	if _, exists := a.orders[o.OrderRef]; exists {
		a.log.Warn("duplicate order", slog.Uint64("order_ref", o.OrderRef))
		return false
	}
	a.orders[o.OrderRef] = o
	return true
}

// GetOrder looks up a live order by reference number.
func (a *Aggregator) GetOrder(ref uint64) (Order, bool) {
	o, ok := a.orders[ref]
	return o, ok
}

// ReplaceOrder atomically retires origRef and inserts a new order under
// newRef, preserving the original's StockLocate and Side. A missing
// original or a collision on newRef leaves the index unchanged.
func (a *Aggregator) ReplaceOrder(origRef, newRef uint64, shares uint32, price decimal.Decimal) bool {
	orig, ok := a.orders[origRef]
	if !ok {
		a.log.Warn("missing order for replace", slog.Uint64("orig_ref", origRef))
		return false
	}
	if origRef != newRef {
		if _, collide := a.orders[newRef]; collide {
			a.log.Warn("order replace collision", slog.Uint64("new_ref", newRef))
			return false
		}
	}
	delete(a.orders, origRef)
	a.orders[newRef] = Order{
		StockLocate: orig.StockLocate,
		Side:        orig.Side,
		Shares:      shares,
		Price:       price,
		OrderRef:    newRef,
	}
	return true
}

// AddTrade inserts a trade into the ledger keyed by MatchNumber and
// folds its shares/value into the security's running stats. A duplicate
// match number is rejected without double-counting.
func (a *Aggregator) AddTrade(t Trade) bool {
	if _, exists := a.trades[t.MatchNumber]; exists {
		a.log.Warn("duplicate trade", slog.Uint64("match_number", t.MatchNumber))
		return false
	}
	a.trades[t.MatchNumber] = t

	st, ok := a.stats[t.StockLocate]
	if !ok {
		st = &SecurityStats{TotalTradedValue: decimal.Zero}
		a.stats[t.StockLocate] = st
	}
	st.TradedShares = safe.SafeAddU64(st.TradedShares, t.Shares)
	st.TotalTradedValue = st.TotalTradedValue.Add(t.Price.Mul(decimal.NewFromInt(int64(t.Shares))))
	return true
}

// CancelTrade reverses a previously recorded trade: its shares and
// value are subtracted from the security's stats and the ledger entry
// is erased. A missing match number leaves state unchanged.
func (a *Aggregator) CancelTrade(match uint64) bool {
	t, ok := a.trades[match]
	if !ok {
		a.log.Warn("missing trade for break", slog.Uint64("match_number", match))
		return false
	}
	if st, ok := a.stats[t.StockLocate]; ok {
		st.TradedShares = safe.SafeSubU64(st.TradedShares, t.Shares)
		st.TotalTradedValue = st.TotalTradedValue.Sub(t.Price.Mul(decimal.NewFromInt(int64(t.Shares))))
	}
	delete(a.trades, match)
	return true
}

// Stats returns a security's current statistics, if any trade has
// touched it yet.
func (a *Aggregator) Stats(locate protocol.StockLocate) (SecurityStats, bool) {
	st, ok := a.stats[locate]
	if !ok {
		return SecurityStats{}, false
	}
	return *st, true
}

func (a *Aggregator) emitHourlyReport(hour int) {
	entries := make([]report.Entry, 0, len(a.stats))
	for locate, st := range a.stats {
		sym, ok := a.locateToSymbol[locate]
		if !ok {
			// A trade against a locate never declared in a Stock Directory
			// message is a feed/decoder error, not an aggregator business
			// rule; surface it loudly and skip the entry.
			a.log.Warn("stats entry with unresolved symbol", slog.Uint64("locate", uint64(locate)))
			continue
		}
		entries = append(entries, report.Entry{Symbol: sym, VWAP: st.VWAP()})
	}
	if err := a.writer.WriteHourlyReport(a.outputDir, hour, entries); err != nil {
		a.log.Error("hourly report write failed", slog.Int("hour", hour), slog.String("error", err.Error()))
	}
}
