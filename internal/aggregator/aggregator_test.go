package aggregator

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/hl2638/itch-vwap/internal/protocol"
	"github.com/hl2638/itch-vwap/internal/report"
)

func symbol(s string) protocol.Symbol {
	var out protocol.Symbol
	copy(out[:], s)
	for i := len(s); i < 8; i++ {
		out[i] = ' '
	}
	return out
}

// recordingWriter captures each hourly report invocation for assertion,
// standing in for report.CSVWriter/report.LogWriter in tests that only
// care about when and with what totals a report fired.
type recordingWriter struct {
	calls []recordedCall
}

type recordedCall struct {
	hour    int
	entries []report.Entry
}

func (w *recordingWriter) WriteHourlyReport(dir string, hour int, entries []report.Entry) error {
	w.calls = append(w.calls, recordedCall{hour: hour, entries: entries})
	return nil
}

func newTestAggregator() *Aggregator {
	return New(&recordingWriter{}, "", nil)
}

func TestS1SinglePrint(t *testing.T) {
	a := newTestAggregator()

	if !a.AddStockRecord(7, symbol("AAPL")) {
		t.Fatal("add stock record failed")
	}
	if !a.AddOrder(Order{StockLocate: 7, Side: protocol.SideBuy, Shares: 200, Price: decimal.RequireFromString("1.5050"), OrderRef: 100}) {
		t.Fatal("add order failed")
	}
	order, ok := a.GetOrder(100)
	if !ok {
		t.Fatal("expected order 100")
	}
	if !a.AddTrade(Trade{StockLocate: 7, Shares: 200, Price: order.Price, MatchNumber: 1}) {
		t.Fatal("add trade failed")
	}

	st, ok := a.Stats(7)
	if !ok {
		t.Fatal("expected stats for locate 7")
	}
	if st.TradedShares != 200 {
		t.Fatalf("shares = %d, want 200", st.TradedShares)
	}
	if !st.TotalTradedValue.Equal(decimal.RequireFromString("301.00")) {
		t.Fatalf("value = %v, want 301.00", st.TotalTradedValue)
	}
	if !st.VWAP().Equal(decimal.RequireFromString("1.5050")) {
		t.Fatalf("vwap = %v, want 1.5050", st.VWAP())
	}
}

func TestS2Break(t *testing.T) {
	a := newTestAggregator()
	a.AddStockRecord(7, symbol("AAPL"))
	a.AddOrder(Order{StockLocate: 7, Side: protocol.SideBuy, Shares: 200, Price: decimal.RequireFromString("1.5050"), OrderRef: 100})
	order, _ := a.GetOrder(100)
	a.AddTrade(Trade{StockLocate: 7, Shares: 200, Price: order.Price, MatchNumber: 1})

	if !a.CancelTrade(1) {
		t.Fatal("cancel trade failed")
	}

	st, ok := a.Stats(7)
	if !ok {
		t.Fatal("expected stats entry to still exist")
	}
	if st.TradedShares != 0 {
		t.Fatalf("shares = %d, want 0", st.TradedShares)
	}
	if !st.TotalTradedValue.IsZero() {
		t.Fatalf("value = %v, want 0", st.TotalTradedValue)
	}
	if !st.VWAP().IsZero() {
		t.Fatalf("vwap = %v, want 0", st.VWAP())
	}
	if _, stillThere := a.trades[1]; stillThere {
		t.Fatal("trade ledger entry should be gone")
	}
}

func TestS3NonPrintableNeverReachesAggregator(t *testing.T) {
	// The pipeline dispatch table only calls AddTrade for
	// OrderExecutedWithPrice when Printable is true; a non-printable
	// execution never becomes an aggregator call at all. This test
	// documents that the aggregator itself has no special case for it —
	// state after S1 is simply whatever S1 left it as.
	a := newTestAggregator()
	a.AddStockRecord(7, symbol("AAPL"))
	a.AddOrder(Order{StockLocate: 7, Side: protocol.SideBuy, Shares: 200, Price: decimal.RequireFromString("1.5050"), OrderRef: 100})
	order, _ := a.GetOrder(100)
	a.AddTrade(Trade{StockLocate: 7, Shares: 200, Price: order.Price, MatchNumber: 1})

	before, _ := a.Stats(7)
	after, _ := a.Stats(7)
	if before.TradedShares != after.TradedShares || !before.TotalTradedValue.Equal(after.TotalTradedValue) {
		t.Fatalf("stats mutated unexpectedly: before=%+v after=%+v", before, after)
	}
}

func TestS4ReplaceAtomicity(t *testing.T) {
	a := newTestAggregator()
	a.AddStockRecord(7, symbol("AAPL"))
	a.AddOrder(Order{StockLocate: 7, Side: protocol.SideBuy, Shares: 200, Price: decimal.RequireFromString("1.5050"), OrderRef: 100})

	if !a.ReplaceOrder(100, 101, 50, decimal.RequireFromString("2.0000")) {
		t.Fatal("replace failed")
	}
	if _, ok := a.GetOrder(100); ok {
		t.Fatal("original order should be gone")
	}
	newOrder, ok := a.GetOrder(101)
	if !ok {
		t.Fatal("expected replacement order")
	}
	if newOrder.StockLocate != 7 || newOrder.Side != protocol.SideBuy || newOrder.Shares != 50 || !newOrder.Price.Equal(decimal.RequireFromString("2.0000")) {
		t.Fatalf("unexpected replacement order: %+v", newOrder)
	}
	if _, ok := a.Stats(7); ok {
		t.Fatal("replace must not create a stats entry")
	}
}

func totalShares(entries []report.Entry, symbolWanted protocol.Symbol, a *Aggregator) uint64 {
	for _, e := range entries {
		if e.Symbol == symbolWanted {
			locate, ok := a.GetLocate(symbolWanted)
			if !ok {
				return 0
			}
			st, ok := a.Stats(locate)
			if !ok {
				return 0
			}
			return st.TradedShares
		}
	}
	return 0
}

func TestS5HourFlipAndClose(t *testing.T) {
	writer := &recordingWriter{}
	a := New(writer, "", nil)

	a.OnSystemEvent('Q')
	a.AddStockRecord(7, symbol("AAPL"))

	const hour9 = 9 * 3_600_000_000_000
	const hour10 = 10 * 3_600_000_000_000

	a.UpdateTimestamp(hour9)
	a.AddOrder(Order{StockLocate: 7, Side: protocol.SideBuy, Shares: 100, Price: decimal.RequireFromString("1.0000"), OrderRef: 1})
	order, _ := a.GetOrder(1)
	a.AddTrade(Trade{StockLocate: 7, Shares: 100, Price: order.Price, MatchNumber: 1})

	a.UpdateTimestamp(hour9 + 1)
	a.AddOrder(Order{StockLocate: 7, Side: protocol.SideBuy, Shares: 50, Price: decimal.RequireFromString("1.0000"), OrderRef: 2})
	order2, _ := a.GetOrder(2)
	a.AddTrade(Trade{StockLocate: 7, Shares: 50, Price: order2.Price, MatchNumber: 2})

	if len(writer.calls) != 0 {
		t.Fatalf("no report expected before hour flip, got %d", len(writer.calls))
	}

	// This timestamp crosses into hour 10; the hour-10 report must fire
	// with only the two hour-9 trades folded in (150 shares) before this
	// message's own state is applied.
	a.UpdateTimestamp(hour10)
	if len(writer.calls) != 1 {
		t.Fatalf("expected one report at hour flip, got %d", len(writer.calls))
	}
	if writer.calls[0].hour != 10 {
		t.Fatalf("report hour = %d, want 10", writer.calls[0].hour)
	}
	if got := totalShares(writer.calls[0].entries, symbol("AAPL"), a); got != 150 {
		t.Fatalf("report shares = %d, want 150", got)
	}

	a.AddOrder(Order{StockLocate: 7, Side: protocol.SideBuy, Shares: 25, Price: decimal.RequireFromString("1.0000"), OrderRef: 3})
	order3, _ := a.GetOrder(3)
	a.AddTrade(Trade{StockLocate: 7, Shares: 25, Price: order3.Price, MatchNumber: 3})

	a.OnSystemEvent('M')
	if len(writer.calls) != 2 {
		t.Fatalf("expected close report, got %d calls", len(writer.calls))
	}
	if got := totalShares(writer.calls[1].entries, symbol("AAPL"), a); got != 175 {
		t.Fatalf("close report shares = %d, want 175", got)
	}
}

func TestS6CrossTrade(t *testing.T) {
	a := newTestAggregator()
	a.AddStockRecord(7, symbol("AAPL"))

	if !a.AddTrade(Trade{StockLocate: 7, Shares: 1000, Price: decimal.RequireFromString("1.5000"), MatchNumber: 3}) {
		t.Fatal("add trade failed")
	}
	st, ok := a.Stats(7)
	if !ok {
		t.Fatal("expected stats")
	}
	if st.TradedShares != 1000 {
		t.Fatalf("shares = %d, want 1000", st.TradedShares)
	}
	if !st.TotalTradedValue.Equal(decimal.RequireFromString("1500.0000")) {
		t.Fatalf("value = %v, want 1500.0000", st.TotalTradedValue)
	}
}

func TestSymbolLocateBijectionRejectsConflict(t *testing.T) {
	a := newTestAggregator()
	if !a.AddStockRecord(1, symbol("AAA")) {
		t.Fatal("first insert should succeed")
	}
	if a.AddStockRecord(1, symbol("BBB")) {
		t.Fatal("conflicting locate should be rejected")
	}
	if a.AddStockRecord(2, symbol("AAA")) {
		t.Fatal("conflicting symbol should be rejected")
	}
	sym, ok := a.GetSymbol(1)
	if !ok || sym != symbol("AAA") {
		t.Fatalf("unexpected symbol mapping: %v %v", sym, ok)
	}
	locate, ok := a.GetLocate(symbol("AAA"))
	if !ok || locate != 1 {
		t.Fatalf("unexpected locate mapping: %v %v", locate, ok)
	}
}

func TestDuplicateOrderRejected(t *testing.T) {
	a := newTestAggregator()
	o := Order{StockLocate: 1, OrderRef: 5}
	if !a.AddOrder(o) {
		t.Fatal("first add should succeed")
	}
	if a.AddOrder(o) {
		t.Fatal("duplicate order ref should be rejected")
	}
}

func TestMissingOrderReplaceFails(t *testing.T) {
	a := newTestAggregator()
	if a.ReplaceOrder(999, 1000, 1, decimal.Zero) {
		t.Fatal("replace of missing order should fail")
	}
}

func TestMissingTradeCancelFails(t *testing.T) {
	a := newTestAggregator()
	if a.CancelTrade(999) {
		t.Fatal("cancel of missing trade should fail")
	}
}

func TestBrokenTradeReversibility(t *testing.T) {
	a := newTestAggregator()
	a.AddStockRecord(1, symbol("X"))

	before, _ := a.Stats(1)

	trade := Trade{StockLocate: 1, Shares: 42, Price: decimal.RequireFromString("3.3333"), MatchNumber: 9}
	a.AddTrade(trade)
	a.CancelTrade(trade.MatchNumber)

	after, ok := a.Stats(1)
	if !ok {
		t.Fatal("stats entry should still exist after cancel")
	}
	if after.TradedShares != before.TradedShares {
		t.Fatalf("shares changed: before %d after %d", before.TradedShares, after.TradedShares)
	}
	if !after.TotalTradedValue.Equal(before.TotalTradedValue) {
		t.Fatalf("value changed: before %v after %v", before.TotalTradedValue, after.TotalTradedValue)
	}
}
