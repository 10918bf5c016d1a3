package adapter

import (
	"image"
	"image/color"
	"strconv"

	"github.com/user-none/emopl/ui"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Framebuffer size
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

// meterScreen rasterizes the channel meters into an RGBA image for
// frontends that take a framebuffer rather than an Ebiten screen.
type meterScreen struct {
	img       *image.RGBA
	peaks     *ui.PeakHold
	fractions []float64
	text      font.Drawer
}

func newMeterScreen(n int) *meterScreen {
	img := image.NewRGBA(image.Rect(0, 0, ScreenWidth, ScreenHeight))
	return &meterScreen{
		img:       img,
		peaks:     ui.NewPeakHold(n),
		fractions: make([]float64, n),
		text: font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(ui.MeterMarker),
			Face: basicfont.Face7x13,
		},
	}
}

// draw renders one frame: title and status lines, then one bar per
// channel with its peak marker.
func (s *meterScreen) draw(levels []float32, title, status string) {
	s.fill(s.img.Rect, ui.MeterBackground)
	s.print(title, meterMargin, 8)
	s.print(status, meterMargin, 22)

	n := len(s.fractions)
	if n == 0 {
		s.print("no FM channels", meterMargin, meterTop)
		return
	}
	for i := range s.fractions {
		s.fractions[i] = 0
		if i < len(levels) {
			s.fractions[i] = ui.MeterFraction(levels[i])
		}
	}
	peaks := s.peaks.Update(s.fractions)

	step := (ScreenWidth - 2*meterMargin) / n
	barW := step - meterGap
	trackH := float64(meterBottom - meterTop)
	for i, f := range s.fractions {
		x := meterMargin + i*step
		s.fill(image.Rect(x, meterTop, x+barW, meterBottom), ui.MeterTrack)

		h := int(f * trackH)
		s.fill(image.Rect(x, meterBottom-h, x+barW, meterBottom), ui.BarColor(f))

		if p := peaks[i]; p > 0 {
			y := meterBottom - int(p*trackH)
			s.fill(image.Rect(x, y, x+barW, y+peakHeight), ui.MeterMarker)
		}
	}

	for i := 0; i < n; i += 9 {
		s.print(strconv.Itoa(i), meterMargin+i*step, meterBottom+6)
	}
}

// fill paints r, clipped to the image, with c.
func (s *meterScreen) fill(r image.Rectangle, c color.RGBA) {
	r = r.Intersect(s.img.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := s.img.Pix[s.img.PixOffset(r.Min.X, y):s.img.PixOffset(r.Max.X, y)]
		for i := 0; i < len(row); i += 4 {
			row[i] = c.R
			row[i+1] = c.G
			row[i+2] = c.B
			row[i+3] = c.A
		}
	}
}

// print draws str with its top-left corner at x, y.
func (s *meterScreen) print(str string, x, y int) {
	s.text.Dot = fixed.P(x, y+basicfont.Face7x13.Ascent)
	s.text.DrawString(str)
}
