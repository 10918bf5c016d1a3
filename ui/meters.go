package ui

import (
	"fmt"
	"image/color"
	"math"

	"github.com/user-none/emopl/emu"
)

// Meter scale and peak marker timing, in 60 Hz display frames.
const (
	meterRangeDB     = 48.0
	peakHoldFrames   = 45
	peakFallPerFrame = 1.0 / 60
)

// Meter palette shared by the playback window and frontend framebuffers.
var (
	MeterBackground = color.RGBA{0x10, 0x12, 0x18, 0xFF}
	MeterTrack      = color.RGBA{0x24, 0x28, 0x34, 0xFF}
	MeterLow        = color.RGBA{0x3C, 0xC8, 0x6E, 0xFF}
	MeterMid        = color.RGBA{0xE8, 0xC8, 0x3C, 0xFF}
	MeterHigh       = color.RGBA{0xE8, 0x4C, 0x3C, 0xFF}
	MeterMarker     = color.RGBA{0xF0, 0xF0, 0xF0, 0xFF}
)

// BarColor picks the bar colour for a height fraction.
func BarColor(f float64) color.RGBA {
	switch {
	case f >= 0.9:
		return MeterHigh
	case f >= 0.7:
		return MeterMid
	default:
		return MeterLow
	}
}

// MeterFraction maps a linear channel level to a bar height fraction on
// a meterRangeDB scale. Levels at or above 1.0 fill the bar.
func MeterFraction(level float32) float64 {
	if level <= 0 {
		return 0
	}
	db := 20 * math.Log10(float64(level))
	f := 1 + db/meterRangeDB
	return math.Max(0, math.Min(1, f))
}

// PeakHold tracks a falling peak marker for each meter.
type PeakHold struct {
	peaks []float64
	hold  []int
}

// NewPeakHold creates markers for n meters.
func NewPeakHold(n int) *PeakHold {
	return &PeakHold{
		peaks: make([]float64, n),
		hold:  make([]int, n),
	}
}

// Update feeds one frame of bar fractions and returns the marker
// positions. A new peak holds for peakHoldFrames, then falls.
func (p *PeakHold) Update(fractions []float64) []float64 {
	for i, f := range fractions {
		if i >= len(p.peaks) {
			break
		}
		switch {
		case f >= p.peaks[i]:
			p.peaks[i] = f
			p.hold[i] = peakHoldFrames
		case p.hold[i] > 0:
			p.hold[i]--
		default:
			p.peaks[i] = math.Max(f, p.peaks[i]-peakFallPerFrame)
		}
	}
	return p.peaks
}

// FormatPosition renders a VGM sample position as m:ss.
func FormatPosition(samples uint64) string {
	secs := samples / emu.VGMSampleRate
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
