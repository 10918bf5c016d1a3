package adapter

import (
	"log"

	emucore "github.com/user-none/eblitui/api"
	"github.com/user-none/emopl/emu"
	"github.com/user-none/emopl/ui"
)

// Compile-time interface check.
var _ emucore.Emulator = (*Player)(nil)

// Button bits. The d-pad bits 0-3 are unused.
const (
	buttonPause   = 4
	buttonRestart = 7
)

// Core option keys
const (
	optionFullPan = "full_pan"
	optionLoop    = "loop"
)

// Player drives an emu.Emulator for eblitui frontends. Audio comes from
// the emulator; the framebuffer shows the channel meters.
type Player struct {
	vgm    *emu.VGMFile
	opts   emu.Options
	e      *emu.Emulator
	region emucore.Region
	title  string

	screen  *meterScreen
	buttons uint32
	paused  bool
	silence []int16
}

// NewPlayer prepares v for playback. Streams loop forever until the loop
// option is turned off.
func NewPlayer(v *emu.VGMFile, region emucore.Region) (*Player, error) {
	p := &Player{
		vgm:     v,
		opts:    emu.Options{Loops: -1},
		region:  region,
		title:   chipTitle(v),
		silence: make([]int16, emu.SampleRate/emu.FPS*2),
	}
	if err := p.restart(); err != nil {
		return nil, err
	}
	return p, nil
}

// restart rebuilds the emulator from the current options.
func (p *Player) restart() error {
	e, err := emu.NewEmulator(p.vgm, p.opts)
	if err != nil {
		return err
	}
	p.e = e
	p.screen = newMeterScreen(len(e.ChannelLevels()))
	return nil
}

// RunFrame plays one frame unless paused, then redraws the meters.
func (p *Player) RunFrame() {
	if !p.paused {
		p.e.RunFrame()
	}
	p.screen.draw(p.e.ChannelLevels(), p.title, p.status())
}

func (p *Player) status() string {
	s := ui.FormatPosition(p.e.Position())
	if n := p.vgm.TotalSamples; n > 0 {
		s += " / " + ui.FormatPosition(n)
	}
	switch {
	case p.e.Done():
		s += "  [done]"
	case p.paused:
		s += "  [paused]"
	}
	return s
}

// SetInput acts on newly pressed buttons of player 1: pause toggles
// playback and restart rewinds the stream.
func (p *Player) SetInput(player int, buttons uint32) {
	if player != 0 {
		return
	}
	pressed := buttons &^ p.buttons
	p.buttons = buttons

	if pressed&(1<<buttonPause) != 0 {
		p.paused = !p.paused
	}
	if pressed&(1<<buttonRestart) != 0 {
		p.e.Reset()
		p.paused = false
	}
}

// GetAudioSamples returns the frame's stereo samples, or one frame of
// silence while paused.
func (p *Player) GetAudioSamples() []int16 {
	if p.paused {
		return p.silence
	}
	return p.e.GetAudioSamples()
}

// GetFramebuffer returns raw RGBA pixel data for the current frame.
func (p *Player) GetFramebuffer() []byte {
	return p.screen.img.Pix
}

// GetFramebufferStride returns the stride (bytes per row) of the framebuffer.
func (p *Player) GetFramebufferStride() int {
	return p.screen.img.Stride
}

// GetActiveHeight returns the framebuffer height.
func (p *Player) GetActiveHeight() int {
	return ScreenHeight
}

// GetRegion returns the region the frontend selected.
func (p *Player) GetRegion() emucore.Region {
	return p.region
}

// SetRegion records the region. Playback speed does not depend on it.
func (p *Player) SetRegion(region emucore.Region) {
	p.region = region
}

// GetTiming reports the fixed 60 Hz frame rate, one scanline per
// framebuffer row.
func (p *Player) GetTiming() emucore.Timing {
	return emucore.Timing{
		FPS:       emu.FPS,
		Scanlines: ScreenHeight,
	}
}

// Close releases any resources held by the player.
func (p *Player) Close() {}

// SetOption applies a core option change identified by key. Changing an
// option restarts the stream.
func (p *Player) SetOption(key string, value string) {
	switch key {
	case optionFullPan:
		p.opts.FullPan = value == "true"
	case optionLoop:
		p.opts.Loops = 0
		if value == "true" {
			p.opts.Loops = -1
		}
	default:
		return
	}
	if err := p.restart(); err != nil {
		log.Printf("Failed to apply option %s: %v", key, err)
	}
}

// chipTitle names the chips a stream drives.
func chipTitle(v *emu.VGMFile) string {
	var s string
	switch v.OPLType {
	case emu.OPLYM3812:
		s = "YM3812"
	case emu.OPLYMF262:
		s = "YMF262"
	}
	if s != "" && v.DualOPL {
		s = "2x " + s
	}
	if v.SNClock != 0 {
		if s != "" {
			s += " + "
		}
		s += "SN76489"
	}
	return s
}
