// Package protocol decodes the ITCH 5.0 binary wire format into a flat,
// tagged-variant Message value.
package protocol

import (
	"errors"
	"io"

	"github.com/shopspring/decimal"
)

// ErrShortRead is returned when fewer than the requested number of bytes
// remain in the source.
var ErrShortRead = errors.New("protocol: short read")

// priceDivisorExp is the base-10 exponent applied to a wire price: prices
// are transmitted as an unsigned 32-bit integer equal to price * 10^4.
const priceDivisorExp = -4

// Symbol is an 8-byte ASCII field, right-padded with spaces. Equality is
// byte-wise, which the array representation gives for free (comparable,
// usable directly as a map key).
type Symbol [8]byte

// String returns the symbol's bytes verbatim, trailing spaces included.
func (s Symbol) String() string {
	return string(s[:])
}

// StockLocate is the per-session security handle assigned by the exchange.
type StockLocate uint16

// TimeStamp is nanoseconds since midnight Eastern Time of the trading day.
type TimeStamp uint64

// HourOfDay implements spec's hour_of_day(t) = (t / 3_600_000_000_000) mod 24.
func (t TimeStamp) HourOfDay() int {
	const nanosPerHour = 3_600_000_000_000
	return int((uint64(t) / nanosPerHour) % 24)
}

// Side identifies the resting order's buy/sell direction.
type Side uint8

const (
	SideUnknown Side = iota
	SideBuy
	SideSell
)

// ReadSide maps the wire byte to a Side: 'B' -> Buy, 'S' -> Sell, else Unknown.
func ReadSide(b byte) Side {
	switch b {
	case 'B':
		return SideBuy
	case 'S':
		return SideSell
	default:
		return SideUnknown
	}
}

// ReadUint reads exactly n bytes (1 <= n <= 8) from r and returns the
// unsigned integer whose most-significant byte is the first byte read.
func ReadUint(r io.Reader, n int) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:n]); err != nil {
		return 0, ErrShortRead
	}
	var result uint64
	for i := 0; i < n; i++ {
		result = (result << 8) | uint64(buf[i])
	}
	return result, nil
}

// ReadPrice reads 4 bytes big-endian and interprets them as price * 10^4,
// returning an exact base-10 decimal with 4 fractional digits.
func ReadPrice(r io.Reader) (decimal.Decimal, error) {
	v, err := ReadUint(r, 4)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.New(int64(v), priceDivisorExp), nil
}

// ReadSymbol reads 8 bytes verbatim.
func ReadSymbol(r io.Reader) (Symbol, error) {
	var sym Symbol
	if _, err := io.ReadFull(r, sym[:]); err != nil {
		return Symbol{}, ErrShortRead
	}
	return sym, nil
}

// Skip discards n bytes from r.
func Skip(r io.Reader, n int) error {
	if n <= 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, r, int64(n)); err != nil {
		return ErrShortRead
	}
	return nil
}
