package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrTruncated indicates a frame ended before its declared layout was
// fully consumed. It is fatal to the decode loop.
var ErrTruncated = errors.New("protocol: truncated frame")

// Decoder consumes length-prefixed ITCH frames from an underlying reader
// and emits one Message per recognized frame.
type Decoder struct {
	r io.Reader
}

// NewDecoder wraps r for framed decoding.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Next returns the next recognized message, skipping unrecognized types
// and zero-length frames transparently. It returns io.EOF when the
// source ends cleanly on a frame boundary, and ErrTruncated when a frame
// is cut short mid-read.
func (d *Decoder) Next() (Message, error) {
	for {
		var lenBuf [2]byte
		_, err := io.ReadFull(d.r, lenBuf[:])
		switch {
		case err == io.EOF:
			return Message{}, io.EOF
		case err != nil:
			return Message{}, ErrTruncated
		}

		length := binary.BigEndian.Uint16(lenBuf[:])
		if length == 0 {
			// Implementation quirk accommodating some feed exports: not EOF.
			continue
		}

		payload := make([]byte, length)
		if _, err := io.ReadFull(d.r, payload); err != nil {
			return Message{}, ErrTruncated
		}

		typ := MsgType(payload[0])
		body := bytes.NewReader(payload[1:])

		msg, ok, err := decodeBody(typ, body)
		if err != nil {
			return Message{}, fmt.Errorf("%w: %v", ErrTruncated, err)
		}
		if !ok {
			// Unrecognized type: frame already fully consumed above.
			continue
		}
		return msg, nil
	}
}

func decodeBody(typ MsgType, r io.Reader) (Message, bool, error) {
	switch typ {
	case MsgSystemEvent:
		return decodeSystemEvent(r)
	case MsgStockDirectory:
		return decodeStockDirectory(r)
	case MsgAddOrder:
		return decodeAddOrder(r, false)
	case MsgAddOrderMPID:
		return decodeAddOrder(r, true)
	case MsgOrderExecuted:
		return decodeOrderExecuted(r)
	case MsgOrderExecutedWithPrice:
		return decodeOrderExecutedWithPrice(r)
	case MsgOrderReplace:
		return decodeOrderReplace(r)
	case MsgTrade:
		return decodeTrade(r)
	case MsgCrossTrade:
		return decodeCrossTrade(r)
	case MsgBrokenTrade:
		return decodeBrokenTrade(r)
	default:
		return Message{}, false, nil
	}
}

// preamble reads the stock_locate field and discards the 2-byte tracking
// number that follows it on every message type.
func preamble(r io.Reader) (StockLocate, error) {
	locate, err := ReadUint(r, 2)
	if err != nil {
		return 0, err
	}
	if err := Skip(r, 2); err != nil {
		return 0, err
	}
	return StockLocate(locate), nil
}

func readTimestamp(r io.Reader) (TimeStamp, error) {
	ts, err := ReadUint(r, 6)
	if err != nil {
		return 0, err
	}
	return TimeStamp(ts), nil
}

func decodeSystemEvent(r io.Reader) (Message, bool, error) {
	locate, err := preamble(r)
	if err != nil {
		return Message{}, false, err
	}
	ts, err := readTimestamp(r)
	if err != nil {
		return Message{}, false, err
	}
	var codeBuf [1]byte
	if _, err := io.ReadFull(r, codeBuf[:]); err != nil {
		return Message{}, false, ErrShortRead
	}
	return Message{
		Type:        MsgSystemEvent,
		StockLocate: locate,
		Timestamp:   ts,
		EventCode:   codeBuf[0],
	}, true, nil
}

func decodeStockDirectory(r io.Reader) (Message, bool, error) {
	locate, err := preamble(r)
	if err != nil {
		return Message{}, false, err
	}
	ts, err := readTimestamp(r)
	if err != nil {
		return Message{}, false, err
	}
	sym, err := ReadSymbol(r)
	if err != nil {
		return Message{}, false, err
	}
	if err := Skip(r, 20); err != nil {
		return Message{}, false, err
	}
	return Message{
		Type:        MsgStockDirectory,
		StockLocate: locate,
		Timestamp:   ts,
		Symbol:      sym,
	}, true, nil
}

func decodeAddOrder(r io.Reader, mpid bool) (Message, bool, error) {
	locate, err := preamble(r)
	if err != nil {
		return Message{}, false, err
	}
	ts, err := readTimestamp(r)
	if err != nil {
		return Message{}, false, err
	}
	orderRef, err := ReadUint(r, 8)
	if err != nil {
		return Message{}, false, err
	}
	var sideBuf [1]byte
	if _, err := io.ReadFull(r, sideBuf[:]); err != nil {
		return Message{}, false, ErrShortRead
	}
	shares, err := ReadUint(r, 4)
	if err != nil {
		return Message{}, false, err
	}
	sym, err := ReadSymbol(r)
	if err != nil {
		return Message{}, false, err
	}
	price, err := ReadPrice(r)
	if err != nil {
		return Message{}, false, err
	}
	if mpid {
		if err := Skip(r, 4); err != nil {
			return Message{}, false, err
		}
	}
	typ := MsgAddOrder
	if mpid {
		typ = MsgAddOrderMPID
	}
	return Message{
		Type:        typ,
		StockLocate: locate,
		Timestamp:   ts,
		OrderRef:    orderRef,
		Side:        ReadSide(sideBuf[0]),
		Shares:      shares,
		Symbol:      sym,
		Price:       price,
	}, true, nil
}

func decodeOrderExecuted(r io.Reader) (Message, bool, error) {
	locate, err := preamble(r)
	if err != nil {
		return Message{}, false, err
	}
	ts, err := readTimestamp(r)
	if err != nil {
		return Message{}, false, err
	}
	orderRef, err := ReadUint(r, 8)
	if err != nil {
		return Message{}, false, err
	}
	shares, err := ReadUint(r, 4)
	if err != nil {
		return Message{}, false, err
	}
	match, err := ReadUint(r, 8)
	if err != nil {
		return Message{}, false, err
	}
	return Message{
		Type:        MsgOrderExecuted,
		StockLocate: locate,
		Timestamp:   ts,
		OrderRef:    orderRef,
		Shares:      shares,
		MatchNumber: match,
	}, true, nil
}

func decodeOrderExecutedWithPrice(r io.Reader) (Message, bool, error) {
	locate, err := preamble(r)
	if err != nil {
		return Message{}, false, err
	}
	ts, err := readTimestamp(r)
	if err != nil {
		return Message{}, false, err
	}
	orderRef, err := ReadUint(r, 8)
	if err != nil {
		return Message{}, false, err
	}
	shares, err := ReadUint(r, 4)
	if err != nil {
		return Message{}, false, err
	}
	match, err := ReadUint(r, 8)
	if err != nil {
		return Message{}, false, err
	}
	var printableBuf [1]byte
	if _, err := io.ReadFull(r, printableBuf[:]); err != nil {
		return Message{}, false, ErrShortRead
	}
	price, err := ReadPrice(r)
	if err != nil {
		return Message{}, false, err
	}
	return Message{
		Type:        MsgOrderExecutedWithPrice,
		StockLocate: locate,
		Timestamp:   ts,
		OrderRef:    orderRef,
		Shares:      shares,
		MatchNumber: match,
		Printable:   printableBuf[0] == 'Y',
		Price:       price,
	}, true, nil
}

func decodeOrderReplace(r io.Reader) (Message, bool, error) {
	locate, err := preamble(r)
	if err != nil {
		return Message{}, false, err
	}
	ts, err := readTimestamp(r)
	if err != nil {
		return Message{}, false, err
	}
	origRef, err := ReadUint(r, 8)
	if err != nil {
		return Message{}, false, err
	}
	newRef, err := ReadUint(r, 8)
	if err != nil {
		return Message{}, false, err
	}
	shares, err := ReadUint(r, 4)
	if err != nil {
		return Message{}, false, err
	}
	price, err := ReadPrice(r)
	if err != nil {
		return Message{}, false, err
	}
	return Message{
		Type:        MsgOrderReplace,
		StockLocate: locate,
		Timestamp:   ts,
		OrderRef:    origRef,
		NewOrderRef: newRef,
		Shares:      shares,
		Price:       price,
	}, true, nil
}

func decodeTrade(r io.Reader) (Message, bool, error) {
	locate, err := preamble(r)
	if err != nil {
		return Message{}, false, err
	}
	ts, err := readTimestamp(r)
	if err != nil {
		return Message{}, false, err
	}
	if err := Skip(r, 9); err != nil { // deprecated order ref + side
		return Message{}, false, err
	}
	shares, err := ReadUint(r, 4)
	if err != nil {
		return Message{}, false, err
	}
	sym, err := ReadSymbol(r)
	if err != nil {
		return Message{}, false, err
	}
	price, err := ReadPrice(r)
	if err != nil {
		return Message{}, false, err
	}
	match, err := ReadUint(r, 8)
	if err != nil {
		return Message{}, false, err
	}
	return Message{
		Type:        MsgTrade,
		StockLocate: locate,
		Timestamp:   ts,
		Shares:      shares,
		Symbol:      sym,
		Price:       price,
		MatchNumber: match,
	}, true, nil
}

func decodeCrossTrade(r io.Reader) (Message, bool, error) {
	locate, err := preamble(r)
	if err != nil {
		return Message{}, false, err
	}
	ts, err := readTimestamp(r)
	if err != nil {
		return Message{}, false, err
	}
	shares, err := ReadUint(r, 8)
	if err != nil {
		return Message{}, false, err
	}
	sym, err := ReadSymbol(r)
	if err != nil {
		return Message{}, false, err
	}
	price, err := ReadPrice(r)
	if err != nil {
		return Message{}, false, err
	}
	match, err := ReadUint(r, 8)
	if err != nil {
		return Message{}, false, err
	}
	if err := Skip(r, 1); err != nil { // cross type
		return Message{}, false, err
	}
	return Message{
		Type:        MsgCrossTrade,
		StockLocate: locate,
		Timestamp:   ts,
		Shares:      shares,
		Symbol:      sym,
		Price:       price,
		MatchNumber: match,
	}, true, nil
}

func decodeBrokenTrade(r io.Reader) (Message, bool, error) {
	locate, err := preamble(r)
	if err != nil {
		return Message{}, false, err
	}
	ts, err := readTimestamp(r)
	if err != nil {
		return Message{}, false, err
	}
	match, err := ReadUint(r, 8)
	if err != nil {
		return Message{}, false, err
	}
	return Message{
		Type:        MsgBrokenTrade,
		StockLocate: locate,
		Timestamp:   ts,
		MatchNumber: match,
	}, true, nil
}
