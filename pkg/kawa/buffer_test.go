package kawa

import (
	"bytes"
	"io"
	"testing"
)

func TestBufferAppendConsume(t *testing.T) {
	b := NewBuffer(16)
	n := b.Append([]byte("hello world"))
	if n != 11 {
		t.Fatalf("Append = %d, want 11", n)
	}
	if b.AvailableData() != 11 {
		t.Errorf("AvailableData = %d, want 11", b.AvailableData())
	}
	if b.AvailableSpace() != 5 {
		t.Errorf("AvailableSpace = %d, want 5", b.AvailableSpace())
	}
	if got := b.Consume(6); got != 6 {
		t.Errorf("Consume = %d, want 6", got)
	}
	if string(b.Data()) != "world" {
		t.Errorf("Data = %q, want %q", b.Data(), "world")
	}
	// consume past the end is capped
	if got := b.Consume(100); got != 5 {
		t.Errorf("Consume = %d, want 5", got)
	}
	if !b.IsEmpty() {
		t.Error("buffer should be empty")
	}
}

func TestBufferAppendShortCount(t *testing.T) {
	b := NewBuffer(4)
	if n := b.Append([]byte("hello")); n != 4 {
		t.Fatalf("Append = %d, want short count 4", n)
	}
	if !b.IsFull() {
		t.Error("buffer should be full")
	}
	if n, err := b.Write([]byte("x")); n != 0 || err != io.ErrShortWrite {
		t.Errorf("Write = (%d, %v), want (0, ErrShortWrite)", n, err)
	}
}

func TestBufferShift(t *testing.T) {
	b := NewBuffer(16)
	b.Append([]byte("abcdefgh"))
	b.Consume(5)
	b.Head = 7

	delta := b.Shift()
	if delta != 5 {
		t.Fatalf("Shift = %d, want 5", delta)
	}
	if b.Start != 0 || b.Head != 2 || b.End != 3 {
		t.Errorf("counters = (%d,%d,%d), want (0,2,3)", b.Start, b.Head, b.End)
	}
	if string(b.Data()) != "fgh" {
		t.Errorf("Data = %q, want %q", b.Data(), "fgh")
	}
	// shifting again is a no-op
	if delta := b.Shift(); delta != 0 {
		t.Errorf("second Shift = %d, want 0", delta)
	}
}

func TestBufferShouldShift(t *testing.T) {
	b := NewBuffer(16)
	b.Append([]byte("0123456789abcdef"))
	if b.ShouldShift() {
		t.Error("full fresh buffer should not need a shift")
	}
	b.Consume(9)
	if !b.ShouldShift() {
		t.Error("start beyond half capacity should need a shift")
	}

	b = NewBuffer(16)
	b.Append([]byte("abc"))
	b.Consume(3)
	if !b.ShouldShift() {
		t.Error("drained buffer away from origin should need a shift")
	}
}

func TestBufferReserve(t *testing.T) {
	b := NewBuffer(8)
	b.Append([]byte("abcdef"))
	b.Consume(4)
	if !b.Reserve(6) {
		t.Error("Reserve(6) should fit after a shift")
	}
	if b.Reserve(7) {
		t.Error("Reserve(7) cannot fit, only 2 live bytes of 8")
	}
}

func TestBufferReadWrite(t *testing.T) {
	b := NewBuffer(32)
	if _, err := b.Write([]byte("stream")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := make([]byte, 3)
	n, err := b.Read(out)
	if err != nil || n != 3 || !bytes.Equal(out, []byte("str")) {
		t.Fatalf("Read = (%d, %v, %q)", n, err, out[:n])
	}
	n, err = b.Read(out)
	if err != nil || n != 3 || !bytes.Equal(out, []byte("eam")) {
		t.Fatalf("Read = (%d, %v, %q)", n, err, out[:n])
	}
	if _, err := b.Read(out); err != io.EOF {
		t.Errorf("Read on empty = %v, want io.EOF", err)
	}
}

func TestBufferMeter(t *testing.T) {
	b := NewBuffer(64)
	b.Append([]byte("0123456789abcdef0123456789abcdef0123456789abcdef"))
	b.Head = 32
	b.Consume(16)
	m := b.Meter(10)
	if len([]rune(m)) != 23 {
		t.Errorf("Meter width = %d, want 23 (%q)", len([]rune(m)), m)
	}
}
