package protocol

import "github.com/shopspring/decimal"

// MsgType is the wire type code, kept as its literal ASCII byte so the
// constant reads the same as the spec table.
type MsgType byte

const (
	MsgSystemEvent            MsgType = 'S'
	MsgStockDirectory         MsgType = 'R'
	MsgAddOrder               MsgType = 'A'
	MsgAddOrderMPID           MsgType = 'F'
	MsgOrderExecuted          MsgType = 'E'
	MsgOrderExecutedWithPrice MsgType = 'C'
	MsgOrderReplace           MsgType = 'U'
	MsgTrade                  MsgType = 'P'
	MsgCrossTrade             MsgType = 'Q'
	MsgBrokenTrade            MsgType = 'B'
)

// Message is the tagged-variant sum type over the ten recognized ITCH
// frame shapes. It is a flat value type, not an interface: pushing one
// onto the pipeline's channel does not box or heap-allocate, which is the
// "concrete element type" the spec's redesign notes ask for.
//
// Type selects which of the remaining fields are meaningful; the comment
// on each field lists the type codes that set it.
type Message struct {
	Type MsgType

	StockLocate StockLocate
	Timestamp   TimeStamp

	EventCode byte // S

	Symbol Symbol // R, A, F, P, Q

	OrderRef    uint64 // A, F, E, C
	NewOrderRef uint64 // U (also reuses OrderRef for the original ref)

	Side Side // A, F

	Shares uint64 // A, F (u32), E, C (u32), U (u32), P (u32), Q (u64)

	Price decimal.Decimal // A, F, C, U, P, Q

	MatchNumber uint64 // E, C, P, Q, B

	Printable bool // C
}
