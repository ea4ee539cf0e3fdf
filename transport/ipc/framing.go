package ipc

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

const (
	HeaderLen      = 8
	MaxPayloadSize = 16 * 1024 * 1024
)

// NewMessage marshals payload to JSON and wraps it in a frame with op.
func NewMessage(op OpCode, payload any) (Message, error) {
	j, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s payload: %w", op, err)
	}
	return Message{Opcode: op, Payload: string(j)}, nil
}

// Encode renders m as [opcode u32 LE][length u32 LE][payload].
func Encode(m Message) []byte {
	buf := make([]byte, HeaderLen+len(m.Payload))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(m.Opcode))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(m.Payload)))
	copy(buf[HeaderLen:], m.Payload)
	return buf
}

// Decode parses exactly one frame occupying all of b.
func Decode(b []byte) (Message, error) {
	if len(b) < HeaderLen {
		return Message{}, ErrShortFrame
	}
	op, length, err := decodeHeader(b)
	if err != nil {
		return Message{}, err
	}
	if uint64(len(b)-HeaderLen) != uint64(length) {
		return Message{}, fmt.Errorf("%w: expected %d got %d", ErrLengthMismatch, length, len(b)-HeaderLen)
	}
	return Message{Opcode: op, Payload: string(b[HeaderLen:])}, nil
}

// ReadMessage blocks until one full frame has been read from r.
func ReadMessage(r io.Reader) (Message, error) {
	var header [HeaderLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Message{}, ErrConnectionClosed
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Message{}, ErrShortFrame
		}
		return Message{}, err
	}
	op, length, err := decodeHeader(header[:])
	if err != nil {
		return Message{}, err
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Message{}, ErrConnectionClosed
		}
		return Message{}, err
	}
	return Message{Opcode: op, Payload: string(payload)}, nil
}

// WriteMessage writes m as a single frame.
func WriteMessage(w io.Writer, m Message) error {
	_, err := w.Write(Encode(m))
	return err
}

func decodeHeader(b []byte) (OpCode, uint32, error) {
	op := OpCode(binary.LittleEndian.Uint32(b[0:4]))
	if !op.Valid() {
		return 0, 0, fmt.Errorf("%w: %d", ErrConversion, uint32(op))
	}
	length := binary.LittleEndian.Uint32(b[4:8])
	if length > MaxPayloadSize {
		return 0, 0, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, length)
	}
	return op, length, nil
}

// frameBuffer accumulates bytes from short reads until a whole frame is
// available.
type frameBuffer struct {
	buf bytes.Buffer
}

func (f *frameBuffer) write(p []byte) {
	f.buf.Write(p)
}

func (f *frameBuffer) buffered() int {
	return f.buf.Len()
}

// next pops one frame if enough bytes are buffered. The header is validated
// as soon as it is complete so a corrupt stream fails early.
func (f *frameBuffer) next() (Message, bool, error) {
	if f.buf.Len() < HeaderLen {
		return Message{}, false, nil
	}
	b := f.buf.Bytes()
	op, length, err := decodeHeader(b[:HeaderLen])
	if err != nil {
		return Message{}, false, err
	}
	total := HeaderLen + int(length)
	if len(b) < total {
		return Message{}, false, nil
	}
	msg := Message{Opcode: op, Payload: string(b[HeaderLen:total])}
	f.buf.Next(total)
	return msg, true, nil
}
