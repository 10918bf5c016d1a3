package cli

import (
	"time"

	"github.com/user-none/emopl/emu"
)

// ADT buffer thresholds in bytes (50ms and 100ms of 48kHz stereo int16).
const (
	adtMinBuffer = emu.SampleRate * 4 / 20
	adtMaxBuffer = emu.SampleRate * 4 / 10
)

// drainTimeout bounds the wait for queued audio after the stream ends.
const drainTimeout = 2 * time.Second

var frameTime = time.Duration(float64(time.Second) / float64(emu.FPS))

// adtSleep returns how long to sleep after a frame that took elapsed. The
// frame period is shortened when the audio buffer runs low and stretched
// when it runs high. bufferLevel < 0 means there is no audio device.
func adtSleep(elapsed time.Duration, bufferLevel int) time.Duration {
	sleep := frameTime - elapsed
	switch {
	case bufferLevel < 0:
	case bufferLevel < adtMinBuffer:
		sleep = time.Duration(float64(sleep) * 0.9)
	case bufferLevel > adtMaxBuffer:
		sleep = time.Duration(float64(sleep) * 1.1)
	}
	return sleep
}

// frameClock paces the playback goroutine.
type frameClock struct {
	last time.Time
}

func newFrameClock() *frameClock {
	return &frameClock{last: time.Now()}
}

// wait sleeps out the rest of the frame.
func (c *frameClock) wait(bufferLevel int) {
	if sleep := adtSleep(time.Since(c.last), bufferLevel); sleep > time.Millisecond {
		time.Sleep(sleep)
	}
	c.last = time.Now()
}
