package decoder

import (
	"encoding/binary"
)

// payload assembles message bodies the way the exchange lays them out.
type payload struct {
	b []byte
}

func (p *payload) u8(v uint8) *payload {
	p.b = append(p.b, v)
	return p
}

func (p *payload) u16(v uint16) *payload {
	p.b = binary.LittleEndian.AppendUint16(p.b, v)
	return p
}

func (p *payload) u32(v uint32) *payload {
	p.b = binary.LittleEndian.AppendUint32(p.b, v)
	return p
}

func (p *payload) u64(v uint64) *payload {
	p.b = binary.LittleEndian.AppendUint64(p.b, v)
	return p
}

func (p *payload) pad(n int) *payload {
	p.b = append(p.b, make([]byte, n)...)
	return p
}

func (p *payload) raw(b []byte) *payload {
	p.b = append(p.b, b...)
	return p
}

// incremental writes the 11-byte block shared by the incremental refresh
// templates.
func (p *payload) incremental(transact uint64) *payload {
	return p.u64(transact).u8(0x80).pad(2)
}

func (p *payload) group(entryLen uint16, count uint8, entries ...[]byte) *payload {
	p.u16(entryLen).u8(count)
	for _, e := range entries {
		p.raw(e)
	}
	return p
}

func (p *payload) group8(entryLen uint16, count uint8, entries ...[]byte) *payload {
	p.u16(entryLen).pad(5).u8(count)
	for _, e := range entries {
		p.raw(e)
	}
	return p
}

const (
	mbpEntryLen    = 32
	detailEntryLen = 24
	mboEntryLen    = 40
)

func mbpBytes(price int64, size int32, securityID int32, rptSeq uint32, orders int32, level uint8, action uint8, entryType byte) []byte {
	p := &payload{}
	p.u64(uint64(price)).u32(uint32(size)).u32(uint32(securityID)).u32(rptSeq).u32(uint32(orders))
	p.u8(level).u8(action).u8(entryType)
	return p.pad(mbpEntryLen - len(p.b)).b
}

func detailBytes(orderID, priority uint64, displayQty int32, ref uint8, action uint8) []byte {
	p := &payload{}
	p.u64(orderID).u64(priority).u32(uint32(displayQty)).u8(ref).u8(action)
	return p.pad(detailEntryLen - len(p.b)).b
}

func mboBytes(orderID, priority uint64, price int64, displayQty int32, securityID int32, action uint8, entryType byte) []byte {
	p := &payload{}
	p.u64(orderID).u64(priority).u64(uint64(price)).u32(uint32(displayQty)).u32(uint32(securityID))
	p.u8(action).u8(entryType)
	return p.pad(mboEntryLen - len(p.b)).b
}
