// Package pipeline decouples I/O-bound frame decoding from the
// aggregator's CPU-bound bookkeeping via a bounded channel, mirroring
// the reader/parser split of a producer/consumer queue guarded by a
// mutex and condition variable — a buffered Go channel already supplies
// both, plus the FIFO ordering, in one primitive.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hl2638/itch-vwap/internal/aggregator"
	"github.com/hl2638/itch-vwap/internal/protocol"
)

// DefaultQueueDepth is used when a caller does not size the channel
// explicitly.
const DefaultQueueDepth = 4096

// Pipeline wires a decoder to an aggregator through a bounded channel.
// It owns exactly one *aggregator.Aggregator, touched only by its own
// parser goroutine, matching the single-threaded choke point the
// aggregator is built to be.
type Pipeline struct {
	dec   *protocol.Decoder
	agg   *aggregator.Aggregator
	log   *slog.Logger
	depth int
}

// New constructs a Pipeline reading frames from r and driving agg.
func New(r io.Reader, agg *aggregator.Aggregator, depth int, log *slog.Logger) *Pipeline {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		dec:   protocol.NewDecoder(r),
		agg:   agg,
		log:   log,
		depth: depth,
	}
}

// Run drives the reader and parser goroutines to completion and returns
// the first fatal error encountered, or nil on a clean EOF. It blocks
// until both goroutines have exited.
func (p *Pipeline) Run() error {
	messages := make(chan protocol.Message, p.depth)
	readErr := make(chan error, 1)

	go p.read(messages, readErr)
	p.parse(messages)

	if err := <-readErr; err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("pipeline: %w", err)
	}
	return nil
}

// read decodes frames and pushes them onto messages until EOF or a
// fatal decode error, then closes messages so the parser can drain and
// exit. Blocking send under a full buffer is the pipeline's
// backpressure against a decoder faster than the aggregator.
func (p *Pipeline) read(messages chan<- protocol.Message, readErr chan<- error) {
	defer close(messages)
	for {
		msg, err := p.dec.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				readErr <- nil
			} else {
				readErr <- err
			}
			return
		}
		messages <- msg
	}
}

// parse ranges over messages, dispatching each to the aggregator per
// the variant table, until the channel is closed and drained.
func (p *Pipeline) parse(messages <-chan protocol.Message) {
	for msg := range messages {
		p.dispatch(msg)
	}
}

func (p *Pipeline) dispatch(msg protocol.Message) {
	switch msg.Type {
	case protocol.MsgSystemEvent:
		p.agg.UpdateTimestamp(msg.Timestamp)
		p.agg.OnSystemEvent(msg.EventCode)

	case protocol.MsgStockDirectory:
		p.agg.UpdateTimestamp(msg.Timestamp)
		p.agg.AddStockRecord(msg.StockLocate, msg.Symbol)

	case protocol.MsgAddOrder, protocol.MsgAddOrderMPID:
		p.agg.UpdateTimestamp(msg.Timestamp)
		p.agg.AddOrder(aggregator.Order{
			StockLocate: msg.StockLocate,
			Side:        msg.Side,
			Shares:      uint32(msg.Shares),
			Price:       msg.Price,
			OrderRef:    msg.OrderRef,
		})

	case protocol.MsgOrderExecuted:
		p.agg.UpdateTimestamp(msg.Timestamp)
		order, ok := p.agg.GetOrder(msg.OrderRef)
		if !ok {
			p.log.Warn("order executed against unknown order", slog.Uint64("order_ref", msg.OrderRef))
			return
		}
		p.agg.AddTrade(aggregator.Trade{
			StockLocate: msg.StockLocate,
			Shares:      msg.Shares,
			Price:       order.Price,
			MatchNumber: msg.MatchNumber,
		})

	case protocol.MsgOrderExecutedWithPrice:
		p.agg.UpdateTimestamp(msg.Timestamp)
		if msg.Printable {
			p.agg.AddTrade(aggregator.Trade{
				StockLocate: msg.StockLocate,
				Shares:      msg.Shares,
				Price:       msg.Price,
				MatchNumber: msg.MatchNumber,
			})
		}

	case protocol.MsgOrderReplace:
		p.agg.UpdateTimestamp(msg.Timestamp)
		p.agg.ReplaceOrder(msg.OrderRef, msg.NewOrderRef, uint32(msg.Shares), msg.Price)

	case protocol.MsgTrade, protocol.MsgCrossTrade:
		p.agg.UpdateTimestamp(msg.Timestamp)
		p.agg.AddTrade(aggregator.Trade{
			StockLocate: msg.StockLocate,
			Shares:      msg.Shares,
			Price:       msg.Price,
			MatchNumber: msg.MatchNumber,
		})

	case protocol.MsgBrokenTrade:
		p.agg.UpdateTimestamp(msg.Timestamp)
		p.agg.CancelTrade(msg.MatchNumber)
	}
}
