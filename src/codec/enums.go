package codec

import (
	"fmt"
)

type UpdateAction uint8

const (
	ActionNew UpdateAction = iota
	ActionChange
	ActionDelete
	ActionDeleteThru
	ActionDeleteFrom
	ActionOverlay
)

var actionNames = [...]string{"New", "Change", "Delete", "DeleteThru", "DeleteFrom", "Overlay"}

func (a UpdateAction) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return fmt.Sprintf("UpdateAction(%d)", uint8(a))
}

// ParseUpdateAction maps MDUpdateAction and OrderUpdateAction codes.
func ParseUpdateAction(code uint64) (UpdateAction, error) {
	if code > uint64(ActionOverlay) {
		return 0, fmt.Errorf("unknown update action %d", code)
	}
	return UpdateAction(code), nil
}

type Side uint8

const (
	SideBid Side = iota
	SideAsk
)

func (s Side) String() string {
	if s == SideBid {
		return "bid"
	}
	return "ask"
}

// EntryKind separates exchange-implied liquidity from outright orders.
type EntryKind uint8

const (
	Outright EntryKind = iota
	Implied
)

func (k EntryKind) String() string {
	if k == Implied {
		return "implied"
	}
	return "outright"
}

// EntryType is MDEntryType.
type EntryType byte

const (
	EntryBid              EntryType = '0'
	EntryOffer            EntryType = '1'
	EntryTrade            EntryType = '2'
	EntryOpeningPrice     EntryType = '4'
	EntrySettlementPrice  EntryType = '6'
	EntrySessionHighPrice EntryType = '7'
	EntrySessionLowPrice  EntryType = '8'
	EntryTradeVolume      EntryType = 'B'
	EntryOpenInterest     EntryType = 'C'
	EntryImpliedBid       EntryType = 'E'
	EntryImpliedOffer     EntryType = 'F'
	EntryBookReset        EntryType = 'J'
	EntrySessionHighBid   EntryType = 'N'
	EntrySessionLowOffer  EntryType = 'O'
	EntryFixingPrice      EntryType = 'W'
	EntryElectronicVolume EntryType = 'e'
	EntryThresholdLimits  EntryType = 'g'
)

var knownEntryTypes = map[EntryType]bool{
	EntryBid: true, EntryOffer: true, EntryTrade: true, EntryOpeningPrice: true,
	EntrySettlementPrice: true, EntrySessionHighPrice: true, EntrySessionLowPrice: true,
	EntryTradeVolume: true, EntryOpenInterest: true, EntryImpliedBid: true,
	EntryImpliedOffer: true, EntryBookReset: true, EntrySessionHighBid: true,
	EntrySessionLowOffer: true, EntryFixingPrice: true, EntryElectronicVolume: true,
	EntryThresholdLimits: true,
}

func ParseEntryType(s string) (EntryType, error) {
	if len(s) != 1 || !knownEntryTypes[EntryType(s[0])] {
		return 0, fmt.Errorf("unknown entry type %q", s)
	}
	return EntryType(s[0]), nil
}

// Side reports the book side of a quote entry; ok is false for trades,
// statistics and resets.
func (t EntryType) Side() (side Side, ok bool) {
	switch t {
	case EntryBid, EntryImpliedBid:
		return SideBid, true
	case EntryOffer, EntryImpliedOffer:
		return SideAsk, true
	}
	return 0, false
}

func (t EntryType) Kind() EntryKind {
	if t == EntryImpliedBid || t == EntryImpliedOffer {
		return Implied
	}
	return Outright
}

func (t EntryType) String() string {
	return string(rune(t))
}
