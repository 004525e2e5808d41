package frame

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
)

type Framing string

const (
	// Direct is the exchange export layout: channel, length, messages.
	Direct Framing = "direct"
	// Capture is a libpcap file of UDP datagrams.
	Capture Framing = "capture"
)

const (
	MessageHeaderLen  = 10
	ExchangeHeaderLen = 12

	directPrefixLen  = 4
	pcapGlobalLen    = 24
	pcapRecordLen    = 16
	networkHeaderLen = 42 // Ethernet + IPv4 + UDP
	maxCaptureRecord = 1 << 18
)

var gzipMagic = [2]byte{0x1f, 0x8b}

type Options struct {
	Framing               Framing
	IncludeExchangeHeader bool
	// MaxMessages stops the reader after that many messages; zero reads
	// the whole input.
	MaxMessages uint64
}

type SequenceHeader struct {
	MsgSeq      uint32
	SendingTime uint64
}

type Envelope struct {
	MsgSize     uint16
	BlockLength uint16
	TemplateID  uint16
	SchemaID    uint16
	Version     uint16
	Header      *SequenceHeader
}

// Frame is one message: its envelope and the bytes after the message
// header.
type Frame struct {
	Ordinal  uint64
	Offset   int64 // absolute offset of the message header
	Envelope Envelope
	Payload  []byte
}

type state uint8

const (
	readEnvelope state = iota
	readPayload
	dispatch
	advance
)

// Reader walks a capture one packet at a time. The start of the next packet
// always comes from the declared length of the current one, never from how
// far message decoding got.
type Reader struct {
	src    io.ReaderAt
	size   int64
	opts   Options
	order  binary.ByteOrder
	cursor int64
	next   int64
	state  state
	count  uint64

	packet  []byte
	base    int64 // absolute offset of packet[0]
	pending []Frame

	trailing int64
}

func NewReader(src io.ReaderAt, size int64, opts Options) (*Reader, error) {
	if opts.Framing == "" {
		opts.Framing = Direct
	}
	if opts.Framing != Direct && opts.Framing != Capture {
		return nil, fmt.Errorf("unknown framing %q", opts.Framing)
	}

	r := &Reader{src: src, size: size, opts: opts, order: binary.LittleEndian}

	if size >= 2 {
		var magic [2]byte
		if _, err := src.ReadAt(magic[:], 0); err != nil {
			return nil, fmt.Errorf("failed to read input header: %w", err)
		}
		if magic == gzipMagic {
			return nil, &UnsupportedInputError{Reason: "gzip-compressed input must be decompressed first"}
		}
	}

	if opts.Framing == Capture {
		if err := r.readGlobalHeader(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Reader) readGlobalHeader() error {
	if r.size < pcapGlobalLen {
		return &StreamFramingError{Offset: 0, Reason: "capture file shorter than its global header"}
	}
	hdr := make([]byte, pcapGlobalLen)
	if _, err := r.src.ReadAt(hdr, 0); err != nil {
		return fmt.Errorf("failed to read capture header: %w", err)
	}
	switch binary.LittleEndian.Uint32(hdr) {
	case 0xa1b2c3d4, 0xa1b23c4d:
		r.order = binary.LittleEndian
	case 0xd4c3b2a1, 0x4d3cb2a1:
		r.order = binary.BigEndian
	default:
		return &StreamFramingError{Offset: 0, Reason: fmt.Sprintf("bad capture magic %#x", hdr[:4])}
	}
	r.cursor = pcapGlobalLen
	return nil
}

// Offset is the absolute position the reader has committed to: the end of
// the last packet it loaded.
func (r *Reader) Offset() int64 {
	return r.cursor
}

// Next returns the next message, or io.EOF once the input (or MaxMessages)
// is exhausted.
// TrailingBytes is the number of packet bytes skipped because they were
// too short to hold a message header.
func (r *Reader) TrailingBytes() int64 {
	return r.trailing
}

func (r *Reader) Next() (Frame, error) {
	for {
		if r.opts.MaxMessages > 0 && r.count >= r.opts.MaxMessages {
			return Frame{}, io.EOF
		}

		switch r.state {
		case readEnvelope:
			if len(r.pending) > 0 {
				r.state = dispatch
				continue
			}
			if r.cursor >= r.size {
				return Frame{}, io.EOF
			}
			if err := r.readPacket(); err != nil {
				return Frame{}, err
			}
			r.state = readPayload

		case readPayload:
			if err := r.splitMessages(); err != nil {
				return Frame{}, err
			}
			r.state = advance

		case advance:
			r.cursor = r.next
			r.state = dispatch

		case dispatch:
			if len(r.pending) == 0 {
				r.state = readEnvelope
				continue
			}
			fr := r.pending[0]
			r.pending = r.pending[1:]
			fr.Ordinal = r.count
			r.count++
			return fr, nil
		}
	}
}

// readPacket loads the next framing unit into r.packet and computes where
// the following one starts.
func (r *Reader) readPacket() error {
	var prefix, skip int64
	var length int64

	switch r.opts.Framing {
	case Direct:
		prefix = directPrefixLen
		if r.cursor+prefix > r.size {
			return &StreamFramingError{Offset: r.cursor, Reason: "truncated message prefix"}
		}
		buf := make([]byte, prefix)
		if _, err := r.src.ReadAt(buf, r.cursor); err != nil {
			return fmt.Errorf("failed to read message prefix: %w", err)
		}
		length = int64(binary.LittleEndian.Uint16(buf[2:]))

	case Capture:
		prefix = pcapRecordLen
		skip = networkHeaderLen
		if r.cursor+prefix > r.size {
			return &StreamFramingError{Offset: r.cursor, Reason: "truncated capture record header"}
		}
		buf := make([]byte, prefix)
		if _, err := r.src.ReadAt(buf, r.cursor); err != nil {
			return fmt.Errorf("failed to read capture record header: %w", err)
		}
		length = int64(r.order.Uint32(buf[8:]))
		if length > maxCaptureRecord {
			return &StreamFramingError{Offset: r.cursor, Reason: fmt.Sprintf("capture record length %d out of range", length)}
		}
		// edge case: short datagrams carry no market data
		if length < skip {
			skip = length
		}
	}

	end := r.cursor + prefix + length
	if end > r.size {
		return &StreamFramingError{
			Offset: r.cursor,
			Reason: fmt.Sprintf("declared length %d exceeds remaining %d bytes", length, r.size-r.cursor-prefix),
		}
	}
	r.next = end

	body := length - skip
	r.base = r.cursor + prefix + skip
	r.packet = make([]byte, body)
	if body > 0 {
		if _, err := r.src.ReadAt(r.packet, r.base); err != nil {
			return fmt.Errorf("failed to read packet at %d: %w", r.base, err)
		}
	}
	return nil
}

// splitMessages cuts the loaded packet into frames. Messages follow each
// other back to back until the packet's declared end.
func (r *Reader) splitMessages() error {
	pkt := r.packet
	pos := 0

	var hdr *SequenceHeader
	if r.opts.Framing == Capture || r.opts.IncludeExchangeHeader {
		if len(pkt) < ExchangeHeaderLen {
			if len(pkt) > 0 {
				log.Debug().Int64("offset", r.base).Int("bytes", len(pkt)).Msg("Packet too short for exchange header, skipped")
			}
			return nil
		}
		hdr = &SequenceHeader{
			MsgSeq:      binary.LittleEndian.Uint32(pkt[0:]),
			SendingTime: binary.LittleEndian.Uint64(pkt[4:]),
		}
		pos = ExchangeHeaderLen
	}

	for len(pkt)-pos >= MessageHeaderLen {
		env := Envelope{
			MsgSize:     binary.LittleEndian.Uint16(pkt[pos:]),
			BlockLength: binary.LittleEndian.Uint16(pkt[pos+2:]),
			TemplateID:  binary.LittleEndian.Uint16(pkt[pos+4:]),
			SchemaID:    binary.LittleEndian.Uint16(pkt[pos+6:]),
			Version:     binary.LittleEndian.Uint16(pkt[pos+8:]),
			Header:      hdr,
		}
		size := int(env.MsgSize)
		if size < MessageHeaderLen || pos+size > len(pkt) {
			return &StreamFramingError{
				Offset: r.base + int64(pos),
				Reason: fmt.Sprintf("message size %d disagrees with %d bytes left in packet", size, len(pkt)-pos),
			}
		}
		r.pending = append(r.pending, Frame{
			Offset:   r.base + int64(pos),
			Envelope: env,
			Payload:  pkt[pos+MessageHeaderLen : pos+size],
		})
		pos += size
	}

	if rest := len(pkt) - pos; rest > 0 {
		r.trailing += int64(rest)
		log.Debug().
			Int64("offset", r.base+int64(pos)).
			Int("bytes", rest).
			Msg("Trailing packet bytes shorter than a message header, skipped")
	}
	return nil
}
