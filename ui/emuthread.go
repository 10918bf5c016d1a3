package ui

import (
	"sync"
	"time"
)

// PlayState is what the playback goroutine publishes after each frame.
type PlayState struct {
	// Position is the stream position in VGM samples.
	Position uint64
	// Done is set once the stream and its loops have played.
	Done bool
}

// SharedLevels holds channel meter levels written by the playback
// goroutine and read by Ebiten's Draw() method. Writes land in a separate
// buffer so Draw can keep the snapshot it was handed.
type SharedLevels struct {
	mu         sync.Mutex
	writeLevel []float32
	readLevel  []float32
	state      PlayState
}

// NewSharedLevels creates a level store for n channels.
func NewSharedLevels(n int) *SharedLevels {
	return &SharedLevels{
		writeLevel: make([]float32, n),
		readLevel:  make([]float32, n),
	}
}

// Update copies the levels and playback state from the playback goroutine.
// Extra levels beyond the channel count are ignored.
func (sl *SharedLevels) Update(levels []float32, state PlayState) {
	sl.mu.Lock()
	copy(sl.writeLevel, levels)
	sl.state = state
	sl.mu.Unlock()
}

// Read returns a snapshot of the levels and playback state. The returned
// slice is reused by the next Read.
func (sl *SharedLevels) Read() ([]float32, PlayState) {
	sl.mu.Lock()
	copy(sl.readLevel, sl.writeLevel)
	state := sl.state
	sl.mu.Unlock()
	return sl.readLevel, state
}

// EmuControl manages pause/resume/stop coordination between
// the Ebiten thread and the playback goroutine.
type EmuControl struct {
	mu       sync.Mutex
	pauseReq bool
	paused   bool
	stopReq  bool
	ackCh    chan struct{}
}

// NewEmuControl creates a new playback control.
func NewEmuControl() *EmuControl {
	return &EmuControl{
		ackCh: make(chan struct{}, 1),
	}
}

// RequestPause asks the playback goroutine to pause and blocks
// until it acknowledges the pause or is stopped.
func (ec *EmuControl) RequestPause() {
	ec.mu.Lock()
	if ec.paused || ec.pauseReq || ec.stopReq {
		ec.mu.Unlock()
		return
	}
	ec.pauseReq = true
	ec.mu.Unlock()

	<-ec.ackCh
}

// RequestResume tells the playback goroutine to resume.
func (ec *EmuControl) RequestResume() {
	ec.mu.Lock()
	ec.pauseReq = false
	ec.paused = false
	ec.mu.Unlock()
}

// TogglePause pauses a running goroutine or resumes a paused one, and
// reports whether playback is now paused.
func (ec *EmuControl) TogglePause() bool {
	ec.mu.Lock()
	pausing := !ec.pauseReq
	ec.mu.Unlock()

	if pausing {
		ec.RequestPause()
	} else {
		ec.RequestResume()
	}
	return pausing
}

// CheckPause is called by the playback goroutine between frames.
// If a pause has been requested, it sends an acknowledgment and
// waits until resumed or stopped. Returns false if the goroutine
// should exit.
func (ec *EmuControl) CheckPause() bool {
	ec.mu.Lock()
	if ec.stopReq {
		ec.mu.Unlock()
		return false
	}
	if !ec.pauseReq {
		ec.mu.Unlock()
		return true
	}

	ec.paused = true
	ec.mu.Unlock()

	// Buffer size 1
	select {
	case ec.ackCh <- struct{}{}:
	default:
	}

	for {
		ec.mu.Lock()
		if ec.stopReq {
			ec.mu.Unlock()
			return false
		}
		if !ec.pauseReq {
			ec.paused = false
			ec.mu.Unlock()
			return true
		}
		ec.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
}

// Stop signals the playback goroutine to exit. A RequestPause still
// waiting for its acknowledgment is released.
func (ec *EmuControl) Stop() {
	ec.mu.Lock()
	ec.stopReq = true
	waiting := ec.pauseReq && !ec.paused
	ec.pauseReq = false
	ec.mu.Unlock()

	if waiting {
		select {
		case ec.ackCh <- struct{}{}:
		default:
		}
	}
}

// IsPaused returns true if the playback goroutine is currently paused.
func (ec *EmuControl) IsPaused() bool {
	ec.mu.Lock()
	p := ec.paused
	ec.mu.Unlock()
	return p
}
