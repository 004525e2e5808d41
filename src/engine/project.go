package engine

import (
	"fmt"

	"mdp-book/src/codec"
	"mdp-book/src/decoder"
)

// Templates the engine reads.
const (
	TemplateChannelReset    uint16 = 4
	TemplateBookLegacy      uint16 = 32
	TemplateOrderBookLegacy uint16 = 43
	TemplateBook            uint16 = 46
	TemplateOrderBook       uint16 = 47
	TemplateBookLongQty     uint16 = 64
)

// IsPriceBook reports templates carrying market-by-price entries.
func IsPriceBook(id uint16) bool {
	return id == TemplateBookLegacy || id == TemplateBook || id == TemplateBookLongQty
}

// IsOrderBook reports templates that may carry market-by-order entries.
func IsOrderBook(id uint16) bool {
	return id == TemplateOrderBookLegacy || id == TemplateOrderBook ||
		id == TemplateBook || id == TemplateBookLongQty
}

// entryType resolves MDEntryType; ok is false when absent or null.
func entryType(rec *decoder.Record) (codec.EntryType, bool, error) {
	s, ok := rec.Text("MDEntryType")
	if !ok {
		return 0, false, nil
	}
	t, err := codec.ParseEntryType(s)
	if err != nil {
		return 0, false, err
	}
	return t, true, nil
}

func projectAction(rec *decoder.Record, field string) (codec.UpdateAction, error) {
	code, ok := rec.Uint(field)
	if !ok {
		return 0, fmt.Errorf("template %d ordinal %d: missing %s", rec.TemplateID, rec.Ordinal, field)
	}
	return codec.ParseUpdateAction(code)
}

// ProjectMBP turns a price-level book record into an Update. ok is false
// for entries that do not touch the book, such as an order detail without
// a book entry.
func ProjectMBP(rec *decoder.Record) (Update, bool, error) {
	sec, ok := rec.Int("SecurityID")
	if !ok {
		return Update{}, false, nil
	}
	seq, ok := rec.Uint("RptSeq")
	if !ok {
		return Update{}, false, nil
	}
	typ, ok, err := entryType(rec)
	if err != nil || !ok {
		return Update{}, false, err
	}

	u := Update{
		SecurityID: int32(sec),
		SeqKey:     seq,
		Ordinal:    rec.Ordinal,
	}
	u.TransactTime, _ = rec.Uint("TransactTime")

	if typ == codec.EntryBookReset {
		u.Reset = true
		return u, true, nil
	}
	side, ok := typ.Side()
	if !ok {
		return Update{}, false, nil
	}

	action, err := projectAction(rec, "MDUpdateAction")
	if err != nil {
		return Update{}, false, err
	}
	level, ok := rec.Uint("MDPriceLevel")
	if !ok {
		return Update{}, false, fmt.Errorf("template %d ordinal %d: missing MDPriceLevel", rec.TemplateID, rec.Ordinal)
	}

	u.Side = side
	u.Kind = typ.Kind()
	u.Action = action
	u.Level = int(level)
	u.Price, _ = rec.Int("MDEntryPx")
	u.Size, _ = rec.Int("MDEntrySize")
	u.Orders, _ = rec.Int("NumberOfOrders")
	return u, true, nil
}

// ProjectMBO turns an order-level record, or an order detail joined onto a
// book entry, into an Update. The sequence key is the packet MsgSeq when
// the capture carried the exchange header, otherwise TransactTime.
func ProjectMBO(rec *decoder.Record) (Update, bool, error) {
	orderID, ok := rec.Uint("OrderID")
	if !ok {
		return Update{}, false, nil
	}
	sec, ok := rec.Int("SecurityID")
	if !ok {
		return Update{}, false, nil
	}
	typ, ok, err := entryType(rec)
	if err != nil || !ok {
		return Update{}, false, err
	}
	side, ok := typ.Side()
	if !ok {
		return Update{}, false, nil
	}

	actionField := "MDUpdateAction"
	if rec.Has("OrderUpdateAction") {
		actionField = "OrderUpdateAction"
	}
	action, err := projectAction(rec, actionField)
	if err != nil {
		return Update{}, false, err
	}

	u := Update{
		SecurityID: int32(sec),
		Side:       side,
		Kind:       typ.Kind(),
		Action:     action,
		ByOrder:    true,
		OrderID:    orderID,
		Ordinal:    rec.Ordinal,
	}
	u.Price, _ = rec.Int("MDEntryPx")
	u.Size, _ = rec.Int("MDDisplayQty")
	u.Priority, _ = rec.Uint("MDOrderPriority")
	u.TransactTime, _ = rec.Uint("TransactTime")

	if seq, ok := rec.Uint("MsgSeq"); ok {
		u.SeqKey = seq
	} else {
		u.SeqKey = u.TransactTime
	}
	return u, true, nil
}
