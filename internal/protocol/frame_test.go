package protocol

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := []byte(`{"username":"alice","password":"pw"}`)
	buf, err := Encode(0x0002, payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	d := NewDecoder()
	frames, err := d.Feed(buf)
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if frames[0].MessageID != 0x0002 {
		t.Fatalf("message id mismatch: got %#04x", frames[0].MessageID)
	}
	if !bytes.Equal(frames[0].Payload, payload) {
		t.Fatalf("payload mismatch: got %q", frames[0].Payload)
	}
}

func TestDecoderBuffersPartialFrame(t *testing.T) {
	payload := []byte(`{"a":1}`)
	buf, _ := Encode(0x0010, payload)

	d := NewDecoder()
	frames, err := d.Feed(buf[:HeaderSize+2])
	if err != nil {
		t.Fatalf("feed partial: %v", err)
	}
	if len(frames) != 0 {
		t.Fatalf("expected no frames from partial feed, got %d", len(frames))
	}

	frames, err = d.Feed(buf[HeaderSize+2:])
	if err != nil {
		t.Fatalf("feed remainder: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame after remainder, got %d", len(frames))
	}
}

func TestDecoderDrainsMultipleFramesInOneFeed(t *testing.T) {
	a, _ := Encode(0x0001, []byte(`{"x":1}`))
	b, _ := Encode(0x0002, []byte(`{"y":2}`))

	d := NewDecoder()
	frames, err := d.Feed(append(a, b...))
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if frames[0].MessageID != 0x0001 || frames[1].MessageID != 0x0002 {
		t.Fatalf("frame order/ids wrong: %+v", frames)
	}
}

func TestDecoderRejectsOversizedFrame(t *testing.T) {
	header := []byte{0x00, 0x01, 0x00, 0x01, 0x00, 0x01} // payload_length = 65537
	d := NewDecoder()
	_, err := d.Feed(header)
	if err != ErrOversizedFrame {
		t.Fatalf("expected ErrOversizedFrame, got %v", err)
	}
}

func TestEncodeRejectsOversizedPayload(t *testing.T) {
	_, err := Encode(0x0001, make([]byte, MaxPayloadSize+1))
	if err == nil {
		t.Fatal("expected error for oversized payload")
	}
}
