package emu

import "github.com/user-none/go-chip-sn76489"

// Core identity reported to frontends.
const (
	Name    = "emopl"
	Version = "0.1.0"
)

// Playback timing
const (
	FPS                = 60
	vgmSamplesPerFrame = VGMSampleRate / FPS
)

// Options configures playback.
type Options struct {
	// FullPan starts every channel centred and lets SetPanning place it,
	// instead of using the CHA/CHB register bits.
	FullPan bool
	// Loops is how many times to jump back to the loop point before the
	// stream is done. Negative loops forever.
	Loops int
	// MaxSamples ends playback after this many VGM samples when non-zero.
	MaxSamples uint64
}

// Emulator plays a VGM register stream through one or two OPL3 chips and
// an optional SN76489, producing 48 kHz stereo frames.
type Emulator struct {
	vgm  *VGMFile
	opts Options

	opl []*OPL3
	psg *sn76489.SN76489

	// Stream position
	next      int    // Next event to apply
	sample    uint64 // Current VGM sample
	played    uint64 // VGM samples played, across loops
	loopsLeft int
	done      bool

	// Bresenham accumulators: VGM -> native OPL3 rate, native -> output,
	// and VGM -> PSG clocks.
	nativeAccum int
	resampAccum int
	psgAccum    uint64

	// Native frame scratch, one L/R pair
	native []float32

	fmBuffer    []int16
	audioBuffer []int16
}

// NewEmulator prepares a stream for playback.
func NewEmulator(v *VGMFile, opts Options) (*Emulator, error) {
	if v == nil || (v.OPLType == OPLNone && v.SNClock == 0) {
		return nil, ErrVGMNoChip
	}

	e := &Emulator{
		vgm:         v,
		opts:        opts,
		loopsLeft:   opts.Loops,
		native:      make([]float32, 2),
		fmBuffer:    make([]int16, 0, 2048),
		audioBuffer: make([]int16, 0, 2048),
	}

	if v.OPLType != OPLNone {
		n := 1
		if v.DualOPL {
			n = 2
		}
		for i := 0; i < n; i++ {
			e.opl = append(e.opl, NewOPL3(opts.FullPan))
		}
	}

	if v.SNClock != 0 {
		cfg := sn76489.TI
		if v.SNShiftWidth == 16 {
			cfg = sn76489.Sega
		}
		e.psg = sn76489.New(int(v.SNClock), sampleRate, psgBufferSize, cfg)
		e.psg.SetGain(psgGain)
	}
	return e, nil
}

// RunFrame advances playback by one 1/60 s frame.
func (e *Emulator) RunFrame() {
	e.fmBuffer = e.fmBuffer[:0]
	e.audioBuffer = e.audioBuffer[:0]
	if e.psg != nil {
		e.psg.ResetBuffer()
	}

	for i := 0; i < vgmSamplesPerFrame; i++ {
		e.applyEvents()
		if e.done {
			e.stepSilence()
		} else {
			e.step()
		}
		e.sample++
		e.played++
		e.checkEnd()
	}

	e.mixAudio()
}

// applyEvents writes every event due at the current sample.
func (e *Emulator) applyEvents() {
	events := e.vgm.Events
	for e.next < len(events) && events[e.next].Sample <= e.sample {
		ev := events[e.next]
		e.next++
		switch ev.Chip {
		case ChipOPL, ChipOPL2:
			if int(ev.Chip) < len(e.opl) {
				e.opl[ev.Chip].Write(int(ev.Bank), ev.Reg, ev.Value)
			}
		case ChipPSG:
			if e.psg != nil {
				e.psg.Write(ev.Value)
			}
		}
	}
}

// step runs the chips for one VGM sample.
func (e *Emulator) step() {
	e.nativeAccum += NativeSampleRate
	for e.nativeAccum >= VGMSampleRate {
		e.nativeAccum -= VGMSampleRate
		e.stepNative()
	}

	if e.psg != nil {
		e.psgAccum += uint64(e.vgm.SNClock)
		clocks := e.psgAccum / VGMSampleRate
		e.psgAccum -= clocks * VGMSampleRate
		e.psg.Run(int(clocks))
	}
}

// stepNative renders one native OPL3 frame and emits output frames at the
// Bresenham-resampled rate.
func (e *Emulator) stepNative() {
	e.native[0], e.native[1] = 0, 0
	for _, c := range e.opl {
		c.GenerateSamples(e.native, 1)
	}

	e.resampAccum += sampleRate
	if e.resampAccum >= NativeSampleRate {
		e.resampAccum -= NativeSampleRate
		e.fmBuffer = append(e.fmBuffer, toInt16(e.native[0]*fmGain), toInt16(e.native[1]*fmGain))
	}
}

// stepSilence keeps the output frame count steady after the stream ends.
func (e *Emulator) stepSilence() {
	e.nativeAccum += NativeSampleRate
	for e.nativeAccum >= VGMSampleRate {
		e.nativeAccum -= VGMSampleRate
		e.resampAccum += sampleRate
		if e.resampAccum >= NativeSampleRate {
			e.resampAccum -= NativeSampleRate
			e.fmBuffer = append(e.fmBuffer, 0, 0)
		}
	}
}

// checkEnd handles the end of the stream: loop back or finish.
func (e *Emulator) checkEnd() {
	if !e.done && e.opts.MaxSamples > 0 && e.played >= e.opts.MaxSamples {
		e.done = true
		return
	}
	if e.done || e.sample < e.vgm.TotalSamples || e.next < len(e.vgm.Events) {
		return
	}
	if e.vgm.LoopIndex >= 0 && e.vgm.LoopSample < e.vgm.TotalSamples && e.loopsLeft != 0 {
		if e.loopsLeft > 0 {
			e.loopsLeft--
		}
		e.next = e.vgm.LoopIndex
		e.sample = e.vgm.LoopSample
		return
	}
	e.done = true
}

// LoopsForever reports whether playback never ends on its own.
func (e *Emulator) LoopsForever() bool {
	return e.opts.Loops < 0 && e.opts.MaxSamples == 0 && e.vgm.LoopIndex >= 0 && e.vgm.LoopSample < e.vgm.TotalSamples
}

// Done reports whether the stream and all its loops have played.
func (e *Emulator) Done() bool {
	return e.done
}

// Position returns the elapsed stream position in VGM samples.
func (e *Emulator) Position() uint64 {
	return e.sample
}

// Stream returns the stream being played.
func (e *Emulator) Stream() *VGMFile {
	return e.vgm
}

// Chips returns the OPL3 instances driven by the stream.
func (e *Emulator) Chips() []*OPL3 {
	return e.opl
}

// SetPanning places a channel in full-pan mode. ch counts across chips:
// 0-17 is the first chip and 18-35 the second.
func (e *Emulator) SetPanning(ch int, left, right float64) {
	if ch < 0 || ch/numChannels >= len(e.opl) {
		return
	}
	e.opl[ch/numChannels].SetPanning(ch%numChannels, left, right)
}

// ChannelLevels returns the meter levels of every chip, 18 per chip.
func (e *Emulator) ChannelLevels() []float32 {
	out := make([]float32, 0, numChannels*len(e.opl))
	for _, c := range e.opl {
		lv := c.ChannelLevels()
		out = append(out, lv[:]...)
	}
	return out
}

// Reset rewinds the stream and restores every chip to power-on state.
func (e *Emulator) Reset() {
	for _, c := range e.opl {
		c.Reset()
	}
	if e.psg != nil {
		e.psg.Reset()
	}
	e.next = 0
	e.sample = 0
	e.played = 0
	e.loopsLeft = e.opts.Loops
	e.done = false
	e.nativeAccum = 0
	e.resampAccum = 0
	e.psgAccum = 0
}
