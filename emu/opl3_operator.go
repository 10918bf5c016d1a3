package emu

import "math"

// Operator register groups, added to the operator's base address.
const (
	regAMVibEgtKsrMult = 0x20
	regKslTl           = 0x40
	regArDr            = 0x60
	regSlRr            = 0x80
	regWs              = 0xE0
)

// opl3Operator is one oscillator plus envelope.
type opl3Operator struct {
	base uint16 // bank<<8 | operator offset, for reading the register image

	pg  phaseGen
	env envelopeGen

	// phase is the phase used for the last output sample. The cymbal
	// family and the snare read it from their siblings.
	phase float64
	// envelope is the linear amplitude of the last output sample.
	envelope float64

	// Register fields
	am   bool  // Tremolo enable
	vib  bool  // Vibrato enable
	egt  bool  // Sustain hold
	ksr  uint8 // Key scale rate (1-bit)
	mult uint8 // Frequency multiplier index (4-bit)
	ksl  uint8 // Key scale level (2-bit)
	tl   uint8 // Total level (6-bit)
	ar   uint8 // Attack rate (4-bit)
	dr   uint8 // Decay rate (4-bit)
	sl   uint8 // Sustain level (4-bit)
	rr   uint8 // Release rate (4-bit)
	ws   uint8 // Waveform select (3-bit)

	// Pushed in from the owning channel
	ksn   int
	fnum  int
	block int
}

func newOperator(base uint16) opl3Operator {
	return opl3Operator{
		base: base,
		env:  newEnvelopeGen(),
	}
}

func (c *OPL3) updateAMVibEgtKsrMult(o *opl3Operator) {
	v := c.regs[o.base+regAMVibEgtKsrMult]
	o.am = v&0x80 != 0
	o.vib = v&0x40 != 0
	o.egt = v&0x20 != 0
	o.ksr = (v >> 4) & 1
	o.mult = v & 0x0F

	o.pg.setFrequency(o.fnum, o.block, o.mult)
	o.env.setAttackRate(o.ar, o.ksr, o.ksn)
	o.env.setDecayRate(o.dr, o.ksr, o.ksn)
	o.env.setReleaseRate(o.rr, o.ksr, o.ksn)
}

func (c *OPL3) updateKslTl(o *opl3Operator) {
	v := c.regs[o.base+regKslTl]
	o.ksl = v >> 6
	o.tl = v & 0x3F

	o.env.setAttenuation(o.fnum, o.block, o.ksl)
	o.env.setTotalLevel(o.tl)
}

func (c *OPL3) updateArDr(o *opl3Operator) {
	v := c.regs[o.base+regArDr]
	o.ar = v >> 4
	o.dr = v & 0x0F

	o.env.setAttackRate(o.ar, o.ksr, o.ksn)
	o.env.setDecayRate(o.dr, o.ksr, o.ksn)
}

func (c *OPL3) updateSlRr(o *opl3Operator) {
	v := c.regs[o.base+regSlRr]
	o.sl = v >> 4
	o.rr = v & 0x0F

	o.env.setSustainLevel(o.sl)
	o.env.setReleaseRate(o.rr, o.ksr, o.ksn)
}

func (c *OPL3) updateWs(o *opl3Operator) {
	o.ws = c.regs[o.base+regWs] & 0x07
}

// updateOperator takes new pitch data from the owning channel and reloads
// every register field that depends on it.
func (c *OPL3) updateOperator(o *opl3Operator, ksn, fnum, block int) {
	o.ksn = ksn
	o.fnum = fnum
	o.block = block
	c.updateAMVibEgtKsrMult(o)
	c.updateKslTl(o)
	c.updateArDr(o)
	c.updateSlRr(o)
	c.updateWs(o)
}

// waveform returns the operator's waveform, limited to the first four
// in OPL2 mode. The WS register field itself is left untouched.
func (c *OPL3) waveform(o *opl3Operator) *[waveLength]float64 {
	return &waveforms[o.ws&(c.newMode<<2|3)]
}

// stepEnvelope advances the envelope and latches the linear amplitude.
func (c *OPL3) stepEnvelope(o *opl3Operator) {
	o.envelope = envelopeFromDB(o.env.next(tremoloTable[c.dam][c.tremoloIndex], o.egt, o.am))
}

// stepPhase advances the phase generator and latches the output phase.
func (c *OPL3) stepPhase(o *opl3Operator) {
	vib := 1.0
	if o.vib {
		vib = vibratoTable[c.dvb][c.vibratoIndex]
	}
	o.phase = o.pg.advance(vib)
}

// operatorOutput computes one sample. mod is the phase modulation input in
// waveform cycles.
func (c *OPL3) operatorOutput(o *opl3Operator, mod float64) float64 {
	if o.env.stage == envOff {
		return 0
	}
	c.stepEnvelope(o)
	c.stepPhase(o)
	return o.sample(c.waveform(o), o.phase, mod)
}

// sample reads the waveform at phase+mod, scaled by the current envelope.
func (o *opl3Operator) sample(wave *[waveLength]float64, phase, mod float64) float64 {
	idx := int(math.Floor((phase+mod)*waveLength)) & (waveLength - 1)
	return wave[idx] * o.envelope
}

// keyOn starts the envelope. An attack rate of 0 silences the operator
// instead of attacking.
func (o *opl3Operator) keyOn() {
	if o.ar > 0 {
		o.env.keyOn()
		o.pg.keyOn()
		return
	}
	o.env.stage = envOff
}

func (o *opl3Operator) keyOff() {
	o.env.keyOff()
}
