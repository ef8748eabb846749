// Package protocol implements the length-prefixed binary framing used on
// the wire: a 6-byte header (message id + payload length, both big-endian)
// followed by a UTF-8 JSON payload. It mirrors the teacher's
// internal/protocol packet codec but drops the Blowfish/RSA handshake the
// login server uses — this service's framing is unauthenticated at the byte
// level, authentication happens at the LOGIN message.
package protocol

import (
	"encoding/binary"
	"fmt"
)

const (
	// HeaderSize is the fixed 6-octet frame header: 2-byte message id +
	// 4-byte payload length, both big-endian.
	HeaderSize = 6

	// MaxPayloadSize is the largest JSON payload accepted per frame.
	// 64 KiB minus the header, per spec.
	MaxPayloadSize = 64*1024 - HeaderSize
)

// Frame is one decoded (message_id, payload) unit.
type Frame struct {
	MessageID uint16
	Payload   []byte
}

// Encode writes a frame's wire representation: header || payload.
func Encode(messageID uint16, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("encode frame %#04x: payload %d exceeds max %d", messageID, len(payload), MaxPayloadSize)
	}
	buf := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint16(buf[0:2], messageID)
	binary.BigEndian.PutUint32(buf[2:6], uint32(len(payload)))
	copy(buf[HeaderSize:], payload)
	return buf, nil
}

// ErrOversizedFrame is returned by Decoder.Feed when a frame header declares
// a payload larger than MaxPayloadSize. Callers must treat it as fatal for
// the session (spec §4.1: "a fatal protocol error for that session").
var ErrOversizedFrame = fmt.Errorf("protocol: frame payload exceeds %d bytes", MaxPayloadSize)

// Decoder accumulates inbound bytes and yields complete frames. It never
// blocks on a partial frame: a partial frame remains buffered until more
// bytes arrive. One Decoder per session, owned by that session's read loop.
type Decoder struct {
	buf []byte
}

// NewDecoder returns a Decoder with an empty receive buffer.
func NewDecoder() *Decoder {
	return &Decoder{buf: make([]byte, 0, 4096)}
}

// Feed appends newly-read bytes and drains every complete frame currently
// buffered. It returns ErrOversizedFrame if a header declares an oversized
// payload — the caller must disconnect the session in that case.
func (d *Decoder) Feed(data []byte) ([]Frame, error) {
	d.buf = append(d.buf, data...)

	var frames []Frame
	for {
		if len(d.buf) < HeaderSize {
			break
		}
		messageID := binary.BigEndian.Uint16(d.buf[0:2])
		payloadLen := binary.BigEndian.Uint32(d.buf[2:6])
		if payloadLen > MaxPayloadSize {
			return frames, ErrOversizedFrame
		}
		total := HeaderSize + int(payloadLen)
		if len(d.buf) < total {
			break // partial frame, wait for more bytes
		}
		payload := make([]byte, payloadLen)
		copy(payload, d.buf[HeaderSize:total])
		frames = append(frames, Frame{MessageID: messageID, Payload: payload})
		d.buf = d.buf[total:]
	}
	// Compact the backing array once drained so a long-lived connection
	// doesn't retain an ever-growing buffer behind a small remainder.
	if len(d.buf) == 0 && cap(d.buf) > 4096 {
		d.buf = make([]byte, 0, 4096)
	}
	return frames, nil
}
