package link

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Command identifies how a frame payload is interpreted.
type Command uint16

// Link commands.
const (
	// CmdRecvPCM carries captured audio from the device.
	CmdRecvPCM Command = 0x0101
	// CmdRecvControl carries a control text token from the device,
	// e.g. a detected wake phrase.
	CmdRecvControl Command = 0x0102
	// CmdSendPCM carries one playback chunk to the device.
	CmdSendPCM Command = 0x0201
	// CmdSendControl carries control bytes to the device.
	CmdSendControl Command = 0x0202
	// CmdSendVolume carries one byte of device volume (0-31).
	CmdSendVolume Command = 0x0203
)

var commandNames = map[Command]string{
	CmdRecvPCM:     "RecvPCM",
	CmdRecvControl: "RecvControl",
	CmdSendPCM:     "SendPCM",
	CmdSendControl: "SendControl",
	CmdSendVolume:  "SendVolume",
}

// String implements fmt.Stringer.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Command(0x%04x)", uint16(c))
}

// Wire layout.
const (
	// Marker starts every frame.
	Marker byte = 0xa5
	// HeaderSize is marker + length + command.
	HeaderSize = 5
	// Overhead is the number of non-payload bytes in a frame.
	Overhead = HeaderSize + 1
	// MaxPayloadSize is the largest payload the length field can express.
	MaxPayloadSize = 0xffff
	// DefaultMaxPayload bounds payloads accepted by the parser.
	DefaultMaxPayload = 2048
)

// Frame is a decoded link frame.
type Frame struct {
	Command Command
	Payload []byte
}

// Checksum returns the modulo-256 sum of b.
func Checksum(b []byte) byte {
	var sum byte
	for _, v := range b {
		sum += v
	}
	return sum
}

// AppendFrame appends the encoded frame to dst.
// The caller must ensure len(payload) <= MaxPayloadSize.
func AppendFrame(dst []byte, cmd Command, payload []byte) []byte {
	start := len(dst)
	dst = append(dst, Marker, 0, 0, 0, 0)
	binary.BigEndian.PutUint16(dst[start+1:], uint16(len(payload)))
	binary.BigEndian.PutUint16(dst[start+3:], uint16(cmd))
	dst = append(dst, payload...)
	return append(dst, Checksum(dst[start:]))
}

// Encode serializes one frame. It never fragments payload.
func Encode(cmd Command, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, ErrPayloadTooLarge
	}
	return AppendFrame(make([]byte, 0, len(payload)+Overhead), cmd, payload), nil
}

// Segment splits payload into pieces of at most chunk bytes.
// An empty payload yields a single empty piece.
func Segment(payload []byte, chunk int) [][]byte {
	if chunk <= 0 || len(payload) <= chunk {
		return [][]byte{payload}
	}
	segs := make([][]byte, 0, (len(payload)+chunk-1)/chunk)
	for len(payload) > chunk {
		segs = append(segs, payload[:chunk])
		payload = payload[chunk:]
	}
	return append(segs, payload)
}

// EncodeSegments encodes payload as consecutive frames of the same
// command, each carrying at most chunk bytes.
func EncodeSegments(cmd Command, payload []byte, chunk int) []byte {
	if chunk <= 0 || chunk > MaxPayloadSize {
		chunk = MaxPayloadSize
	}
	segs := Segment(payload, chunk)
	b := make([]byte, 0, len(payload)+len(segs)*Overhead)
	for _, seg := range segs {
		b = AppendFrame(b, cmd, seg)
	}
	return b
}

// Bytes returns encoded bytes for sending.
func (f *Frame) Bytes() ([]byte, error) {
	return Encode(f.Command, f.Payload)
}

// WriteTo writes encoded bytes.
func (f *Frame) WriteTo(w io.Writer) (int64, error) {
	b, err := f.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	return int64(n), err
}

// String implements fmt.Stringer.
func (f *Frame) String() string {
	return fmt.Sprintf("%s[%d]", f.Command, len(f.Payload))
}
