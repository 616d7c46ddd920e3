// ABOUTME: Tests for audio output package
// ABOUTME: Tests ring buffer behavior and error sentinels
package output

import (
	"bytes"
	"errors"
	"testing"
)

func TestRingBufferWriteRead(t *testing.T) {
	rb := NewRingBuffer(16)

	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if n := rb.Write(data); n != 8 {
		t.Fatalf("expected 8 bytes written, got %d", n)
	}

	out := make([]byte, 8)
	if n := rb.Read(out); n != 8 {
		t.Fatalf("expected 8 bytes read, got %d", n)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("expected %v, got %v", data, out)
	}
}

func TestRingBufferOverflow(t *testing.T) {
	rb := NewRingBuffer(4)

	if n := rb.Write([]byte{1, 2, 3, 4, 5, 6}); n != 4 {
		t.Errorf("expected 4 bytes accepted, got %d", n)
	}
}

func TestRingBufferUnderrunZeroFills(t *testing.T) {
	rb := NewRingBuffer(8)
	rb.Write([]byte{9, 9})

	out := []byte{7, 7, 7, 7}
	if n := rb.Read(out); n != 2 {
		t.Errorf("expected 2 bytes read, got %d", n)
	}
	if out[2] != 0 || out[3] != 0 {
		t.Errorf("expected zero-fill on underrun, got %v", out)
	}
}

func TestRingBufferWrapAround(t *testing.T) {
	rb := NewRingBuffer(4)
	rb.Write([]byte{1, 2, 3, 4})

	out := make([]byte, 2)
	rb.Read(out)
	rb.Write([]byte{5, 6})

	full := make([]byte, 4)
	rb.Read(full)
	if !bytes.Equal(full, []byte{3, 4, 5, 6}) {
		t.Errorf("expected [3 4 5 6], got %v", full)
	}
}

func TestWriteBeforeOpen(t *testing.T) {
	backends := []Output{NewOto(), NewMalgo()}

	for _, b := range backends {
		if err := b.Write([]byte{0, 0}); !errors.Is(err, ErrNotOpen) {
			t.Errorf("%T: expected ErrNotOpen, got %v", b, err)
		}
	}
}
