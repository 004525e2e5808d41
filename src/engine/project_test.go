package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdp-book/src/codec"
	"mdp-book/src/decoder"
)

type fields []decoder.Field

func (f fields) with(name string, v codec.Value) fields {
	return append(f, decoder.Field{Name: name, Value: v})
}

// bookEntry is a template 46 record for one price-level entry.
func bookEntry(ordinal uint64, securityID int32, rptSeq uint64, entryType string, action codec.UpdateAction, level uint64, price, size int64) decoder.Record {
	f := fields{}.
		with("TransactTime", codec.UintValue(1000)).
		with("MatchEventIndicator", codec.BitmaskValue(0x80)).
		with("MDEntryPx", codec.PriceValue(price)).
		with("MDEntrySize", codec.IntValue(size)).
		with("SecurityID", codec.IntValue(int64(securityID))).
		with("RptSeq", codec.UintValue(rptSeq)).
		with("NumberOfOrders", codec.IntValue(1)).
		with("MDPriceLevel", codec.UintValue(level)).
		with("MDUpdateAction", codec.UintValue(uint64(action))).
		with("MDEntryType", codec.CharValue(entryType))
	return decoder.Record{TemplateID: TemplateBook, Version: 9, Ordinal: ordinal, Fields: f}
}

// withDetail joins an order detail onto a book entry record.
func withDetail(rec decoder.Record, orderID, priority uint64, qty int64, action codec.UpdateAction) decoder.Record {
	rec.Fields = fields(rec.Fields).
		with("OrderID", codec.UintValue(orderID)).
		with("MDOrderPriority", codec.UintValue(priority)).
		with("MDDisplayQty", codec.IntValue(qty)).
		with("ReferenceID", codec.UintValue(1)).
		with("OrderUpdateAction", codec.UintValue(uint64(action)))
	return rec
}

func definition(ordinal uint64, securityID int32, symbol string, displayFactor int64) decoder.Record {
	f := fields{}.
		with("SecurityID", codec.IntValue(int64(securityID))).
		with("Symbol", codec.TextValue(symbol)).
		with("SecurityGroup", codec.TextValue("ES")).
		with("DisplayFactor", codec.PriceValue(displayFactor)).
		with("MinPriceIncrement", codec.PriceValue(250_000_000))
	return decoder.Record{TemplateID: 54, Version: 9, Ordinal: ordinal, Fields: f}
}

func TestProjectMBP(t *testing.T) {
	rec := bookEntry(3, 7, 12, "E", codec.ActionChange, 2, 100_500_000_000, 4)

	u, ok, err := ProjectMBP(&rec)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Update{
		SecurityID:   7,
		Side:         codec.SideBid,
		Kind:         codec.Implied,
		Action:       codec.ActionChange,
		Price:        100_500_000_000,
		Size:         4,
		Level:        2,
		Orders:       1,
		SeqKey:       12,
		Ordinal:      3,
		TransactTime: 1000,
	}, u)
}

func TestProjectMBPSkipsNonBookEntries(t *testing.T) {
	trade := bookEntry(1, 7, 1, "2", codec.ActionNew, 1, 100, 1)
	_, ok, err := ProjectMBP(&trade)
	require.NoError(t, err)
	assert.False(t, ok)

	// an orphaned detail carries no book entry
	orphan := decoder.Record{TemplateID: TemplateBook, Fields: fields{}.with("OrderID", codec.UintValue(5))}
	_, ok, err = ProjectMBP(&orphan)
	require.NoError(t, err)
	assert.False(t, ok)

	reset := bookEntry(2, 7, 2, "J", codec.ActionNew, 1, 0, 0)
	u, ok, err := ProjectMBP(&reset)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, u.Reset)

	bad := bookEntry(3, 7, 3, "0", codec.UpdateAction(9), 1, 100, 1)
	_, _, err = ProjectMBP(&bad)
	assert.Error(t, err)
}

func TestProjectMBOJoinedDetail(t *testing.T) {
	rec := withDetail(bookEntry(4, 7, 12, "1", codec.ActionNew, 1, 101_000_000_000, 9), 555, 80, 3, codec.ActionChange)

	updates, err := Updates(&rec)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.False(t, updates[0].ByOrder)

	mbo := updates[1]
	assert.True(t, mbo.ByOrder)
	assert.Equal(t, uint64(555), mbo.OrderID)
	assert.Equal(t, codec.ActionChange, mbo.Action)
	assert.Equal(t, codec.SideAsk, mbo.Side)
	assert.Equal(t, int64(3), mbo.Size)
	assert.Equal(t, int64(101_000_000_000), mbo.Price)
	// no exchange header, so the key falls back to TransactTime
	assert.Equal(t, uint64(1000), mbo.SeqKey)

	rec.Fields = fields(rec.Fields).with("MsgSeq", codec.UintValue(42))
	mbo, ok, err := ProjectMBO(&rec)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(42), mbo.SeqKey)
}

func TestInstruments(t *testing.T) {
	reg := NewInstruments()

	book := bookEntry(1, 7, 1, "0", codec.ActionNew, 1, 100, 1)
	assert.False(t, reg.Observe(&book))

	def := definition(0, 7, "ESZ4", 10_000_000)
	assert.True(t, reg.Observe(&def))

	inst, ok := reg.Get(7)
	require.True(t, ok)
	assert.Equal(t, "ESZ4", inst.Symbol)
	assert.Equal(t, "ES", inst.Group)
	assert.True(t, inst.MinPriceIncrement.Equal(decimal.RequireFromString("0.25")))

	got := inst.DisplayPrice(512_500_000_000)
	if !got.Equal(decimal.RequireFromString("5.125")) {
		t.Errorf("Expected display price 5.125, got: %s", got)
	}

	// without a definition the mantissa is shown as is
	bare := reg.Lookup(9)
	assert.Equal(t, int32(9), bare.SecurityID)
	assert.True(t, bare.DisplayPrice(512_500_000_000).Equal(decimal.RequireFromString("512.5")))

	assert.Len(t, reg.All(), 1)
}
