// Package ebiten draws the playback window with Ebiten.
package ebiten

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/user-none/emopl/ui"
)

// Logical screen size; Ebiten scales it to the window.
const (
	ScreenWidth  = 480
	ScreenHeight = 270
)

const (
	meterMargin = 12
	meterTop    = 40
	meterBottom = ScreenHeight - 28
	meterGap    = 2
	peakHeight  = 2
)

// Info is the text shown around the meters.
type Info struct {
	Title    string
	Position uint64 // VGM samples
	Length   uint64 // VGM samples, 0 if unknown
	Paused   bool
	Done     bool
}

// Meters renders one vertical level bar per FM channel.
type Meters struct {
	pixel     *ebiten.Image
	peaks     *ui.PeakHold
	fractions []float64
	drawOpts  ebiten.DrawImageOptions
}

// NewMeters creates a renderer for n channel meters.
func NewMeters(n int) *Meters {
	return &Meters{
		peaks:     ui.NewPeakHold(n),
		fractions: make([]float64, n),
	}
}

// Layout implements the ebiten.Game layout for a fixed logical screen.
func (m *Meters) Layout(outsideWidth, outsideHeight int) (int, int) {
	return ScreenWidth, ScreenHeight
}

// Draw renders the meters for levels and the status text.
func (m *Meters) Draw(screen *ebiten.Image, levels []float32, info Info) {
	if m.pixel == nil {
		m.pixel = ebiten.NewImage(1, 1)
		m.pixel.Fill(color.White)
	}
	screen.Fill(ui.MeterBackground)

	ebitenutil.DebugPrintAt(screen, info.Title, meterMargin, 8)
	ebitenutil.DebugPrintAt(screen, statusText(info), meterMargin, 22)

	n := len(m.fractions)
	if n == 0 {
		ebitenutil.DebugPrintAt(screen, "no FM channels", meterMargin, meterTop)
		return
	}
	for i := range m.fractions {
		m.fractions[i] = 0
		if i < len(levels) {
			m.fractions[i] = ui.MeterFraction(levels[i])
		}
	}
	peaks := m.peaks.Update(m.fractions)

	barW := float64(ScreenWidth-2*meterMargin)/float64(n) - meterGap
	trackH := float64(meterBottom - meterTop)
	for i, f := range m.fractions {
		x := meterMargin + float64(i)*(barW+meterGap)
		m.fillRect(screen, x, meterTop, barW, trackH, ui.MeterTrack)

		h := f * trackH
		m.fillRect(screen, x, meterBottom-h, barW, h, ui.BarColor(f))

		if p := peaks[i]; p > 0 {
			m.fillRect(screen, x, meterBottom-p*trackH, barW, peakHeight, ui.MeterMarker)
		}
	}

	// Channel numbers under the first bar of each group of nine
	for i := 0; i < n; i += 9 {
		x := meterMargin + float64(i)*(barW+meterGap)
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%d", i), int(x), meterBottom+6)
	}
}

func (m *Meters) fillRect(screen *ebiten.Image, x, y, w, h float64, c color.Color) {
	if w <= 0 || h <= 0 {
		return
	}
	m.drawOpts = ebiten.DrawImageOptions{}
	m.drawOpts.GeoM.Scale(w, h)
	m.drawOpts.GeoM.Translate(x, y)
	m.drawOpts.ColorScale.ScaleWithColor(c)
	screen.DrawImage(m.pixel, &m.drawOpts)
}

// statusText formats the position line.
func statusText(info Info) string {
	s := ui.FormatPosition(info.Position)
	if info.Length > 0 {
		s += " / " + ui.FormatPosition(info.Length)
	}
	switch {
	case info.Done:
		s += "  [done]"
	case info.Paused:
		s += "  [paused]"
	}
	return s + "    space: pause  esc: quit"
}
