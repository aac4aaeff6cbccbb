package link

import (
	"bytes"
	"encoding/binary"
	"iter"
	"sync/atomic"
)

// Parser incrementally decodes frames from an arbitrarily chunked byte
// stream. A frame split across several Feed calls is reassembled; a
// corrupt frame costs exactly one dropped byte before the parser scans
// for the next marker.
//
// Fed bytes are staged and moved into the frame buffer, bounded at
// 2*(maxPayload+Overhead) bytes, only after the frames already buffered
// are extracted. Valid frames are never dropped, however large a single
// Feed is.
//
// Parser is not safe for concurrent Feed calls. Stats may be read from
// any goroutine.
type Parser struct {
	maxPayload int
	maxBuffer  int

	buf   []byte
	off   int
	input []byte

	stats parserCounters
}

// ParserStats are counters collected by the parser.
type ParserStats struct {
	Frames         uint64
	DroppedBytes   uint64
	ChecksumErrors uint64
	Oversized      uint64
}

type parserCounters struct {
	frames, dropped, checksum, oversized atomic.Uint64
}

// NewParser creates a parser accepting payloads up to maxPayload bytes.
func NewParser(maxPayload int) *Parser {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	} else if maxPayload > MaxPayloadSize {
		maxPayload = MaxPayloadSize
	}
	maxFrame := maxPayload + Overhead
	return &Parser{
		maxPayload: maxPayload,
		maxBuffer:  maxFrame * 2,
		buf:        make([]byte, 0, maxFrame*2),
	}
}

// MaxPayload returns the largest accepted payload.
func (p *Parser) MaxPayload() int {
	return p.maxPayload
}

// Buffered returns the number of bytes fed but not yet decoded or
// dropped.
func (p *Parser) Buffered() int {
	return len(p.buf) - p.off + len(p.input)
}

// Reset discards all accumulated bytes.
func (p *Parser) Reset() {
	p.clear()
	p.input = nil
}

func (p *Parser) clear() {
	p.buf, p.off = p.buf[:0], 0
}

// Stats returns a snapshot of the counters.
func (p *Parser) Stats() ParserStats {
	return ParserStats{
		Frames:         p.stats.frames.Load(),
		DroppedBytes:   p.stats.dropped.Load(),
		ChecksumErrors: p.stats.checksum.Load(),
		Oversized:      p.stats.oversized.Load(),
	}
}

// Feed queues data and returns the sequence of frames now decodable.
// Frames left unconsumed by the caller remain queued and are yielded
// by the next Feed or Next.
func (p *Parser) Feed(data []byte) iter.Seq[*Frame] {
	p.input = append(p.input, data...)
	return func(yield func(*Frame) bool) {
		for {
			f, ok := p.Next()
			if !ok || !yield(f) {
				return
			}
		}
	}
}

// Next extracts one frame from queued bytes.
func (p *Parser) Next() (*Frame, bool) {
	for {
		if f, ok := p.extract(); ok {
			return f, true
		}
		if len(p.input) == 0 {
			return nil, false
		}
		p.fill()
	}
}

// fill moves staged input into the frame buffer up to maxBuffer.
func (p *Parser) fill() {
	if p.off > 0 {
		n := copy(p.buf, p.buf[p.off:])
		p.buf, p.off = p.buf[:n], 0
	}
	room := p.maxBuffer - len(p.buf)
	if room <= 0 {
		// a partial frame can't complete within the bound.
		p.skipMarker()
		return
	}
	if room > len(p.input) {
		room = len(p.input)
	}
	p.buf = append(p.buf, p.input[:room]...)
	p.input = p.input[room:]
	if len(p.input) == 0 {
		p.input = nil
	}
}

func (p *Parser) extract() (*Frame, bool) {
	for {
		pending := p.buf[p.off:]
		idx := bytes.IndexByte(pending, Marker)
		if idx < 0 {
			p.stats.dropped.Add(uint64(len(pending)))
			p.clear()
			return nil, false
		}
		if idx > 0 {
			p.stats.dropped.Add(uint64(idx))
			p.off += idx
			pending = pending[idx:]
		}
		if len(pending) < HeaderSize {
			return nil, false
		}
		size := int(binary.BigEndian.Uint16(pending[1:]))
		if size > p.maxPayload {
			p.stats.oversized.Add(1)
			p.skipMarker()
			continue
		}
		total := size + Overhead
		if len(pending) < total {
			return nil, false
		}
		if Checksum(pending[:total-1]) != pending[total-1] {
			p.stats.checksum.Add(1)
			p.skipMarker()
			continue
		}
		f := &Frame{
			Command: Command(binary.BigEndian.Uint16(pending[3:])),
			Payload: make([]byte, size),
		}
		copy(f.Payload, pending[HeaderSize:])
		p.off += total
		if p.off == len(p.buf) {
			p.clear()
		}
		p.stats.frames.Add(1)
		return f, true
	}
}

func (p *Parser) skipMarker() {
	p.off++
	p.stats.dropped.Add(1)
}
