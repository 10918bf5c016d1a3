package ui

import (
	"bytes"
	"io"
	"testing"
	"time"
)

func frames(vals ...byte) []byte {
	out := make([]byte, 0, len(vals)*frameBytes)
	for _, v := range vals {
		out = append(out, v, v, v, v)
	}
	return out
}

func TestAudioRingBuffer_RoundsCapacity(t *testing.T) {
	tests := []struct{ in, want int }{
		{16, 16},
		{18, 16},
		{3, 4},
		{0, 4},
	}
	for _, tt := range tests {
		if got := NewAudioRingBuffer(tt.in).capacity; got != tt.want {
			t.Errorf("capacity(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestAudioRingBuffer_WriteRead(t *testing.T) {
	rb := NewAudioRingBuffer(16)
	if d := rb.Write(frames(1, 2)); d != 0 {
		t.Errorf("dropped %d", d)
	}
	if rb.Buffered() != 8 {
		t.Fatalf("Buffered = %d, want 8", rb.Buffered())
	}
	p := make([]byte, 8)
	n, err := rb.Read(p)
	if err != nil || n != 8 || !bytes.Equal(p, frames(1, 2)) {
		t.Fatalf("Read = %d, %v, %v", n, err, p)
	}
}

func TestAudioRingBuffer_Wraps(t *testing.T) {
	rb := NewAudioRingBuffer(12)
	rb.Write(frames(1, 2))
	p := make([]byte, 4)
	rb.Read(p)
	rb.Write(frames(3, 4)) // writePos wraps

	got := make([]byte, 12)
	n, _ := rb.Read(got)
	if !bytes.Equal(got[:n], frames(2, 3, 4)) {
		t.Errorf("read %v, want frames 2 3 4", got[:n])
	}
}

func TestAudioRingBuffer_OverflowDropsOldestFrames(t *testing.T) {
	rb := NewAudioRingBuffer(12)
	rb.Write(frames(1, 2))
	if d := rb.Write(frames(3, 4)); d != frameBytes {
		t.Errorf("dropped %d, want %d", d, frameBytes)
	}
	got := make([]byte, 12)
	n, _ := rb.Read(got)
	if !bytes.Equal(got[:n], frames(2, 3, 4)) {
		t.Errorf("read %v, want frames 2 3 4", got[:n])
	}
}

func TestAudioRingBuffer_LargerThanCapacity(t *testing.T) {
	rb := NewAudioRingBuffer(8)
	if d := rb.Write(frames(1, 2, 3)); d != frameBytes {
		t.Errorf("dropped %d, want %d", d, frameBytes)
	}
	got := make([]byte, 8)
	n, _ := rb.Read(got)
	if !bytes.Equal(got[:n], frames(2, 3)) {
		t.Errorf("read %v, want frames 2 3", got[:n])
	}
}

func TestAudioRingBuffer_PartialFrameDiscarded(t *testing.T) {
	rb := NewAudioRingBuffer(16)
	rb.Write([]byte{1, 2, 3, 4, 5, 6})
	if rb.Buffered() != 4 {
		t.Errorf("Buffered = %d, want 4", rb.Buffered())
	}
}

func TestAudioRingBuffer_Clear(t *testing.T) {
	rb := NewAudioRingBuffer(16)
	rb.Write(frames(1, 2))
	rb.Clear()
	if rb.Buffered() != 0 {
		t.Errorf("Buffered = %d after Clear", rb.Buffered())
	}
}

func TestAudioRingBuffer_CloseUnblocksRead(t *testing.T) {
	rb := NewAudioRingBuffer(16)
	errc := make(chan error, 1)
	go func() {
		_, err := rb.Read(make([]byte, 4))
		errc <- err
	}()

	time.Sleep(10 * time.Millisecond)
	rb.Close()
	select {
	case err := <-errc:
		if err != io.EOF {
			t.Errorf("err = %v, want io.EOF", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Read still blocked after Close")
	}

	if rb.Write(frames(1)) != 0 || rb.Buffered() != 0 {
		t.Error("write after Close was accepted")
	}
}

// Data queued before Close is still readable.
func TestAudioRingBuffer_CloseDrains(t *testing.T) {
	rb := NewAudioRingBuffer(16)
	rb.Write(frames(9))
	rb.Close()
	p := make([]byte, 4)
	if n, err := rb.Read(p); n != 4 || err != nil {
		t.Errorf("Read = %d, %v", n, err)
	}
	if _, err := rb.Read(p); err != io.EOF {
		t.Errorf("err = %v, want io.EOF", err)
	}
}

func TestAppendSamples(t *testing.T) {
	got := appendSamples(nil, []int16{0x0102, -1})
	want := []byte{0x02, 0x01, 0xFF, 0xFF}
	if !bytes.Equal(got, want) {
		t.Errorf("appendSamples = %v, want %v", got, want)
	}
}
