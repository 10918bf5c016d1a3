package emu

import "math"

// Rhythm operators live after the 64 normal operator slots. They take
// over bank 0 offsets 0x11, 0x14, 0x12 and 0x15 while rhythm mode is on.
const (
	opHiHat  = 64
	opSnare  = 65
	opTomTom = 66
	opCymbal = 67

	numOperators = 68
)

// Register offsets the rhythm operators read from.
const (
	hiHatBase  = 0x11
	snareBase  = 0x14
	tomTomBase = 0x12
	cymbalBase = 0x15
)

// Bass drum uses the normal bank 0 operators of channel 6.
const (
	bassDrumOp1 = 0x10
	bassDrumOp2 = 0x13
)

// Register 0xBD bits
const (
	rhythmDAM  = 0x80
	rhythmDVB  = 0x40
	rhythmRYT  = 0x20
	rhythmBD   = 0x10
	rhythmSD   = 0x08
	rhythmTOM  = 0x04
	rhythmTC   = 0x02
	rhythmHH   = 0x01
	regRhythm  = 0xBD
	rhythmKeys = rhythmBD | rhythmSD | rhythmTOM | rhythmTC | rhythmHH
)

// updateRhythm decodes 0xBD: LFO depths, the rhythm enable and the five
// instrument key bits. A key bit keys its instrument on when set and off
// when cleared. With rhythm mode off the bits are only latched; entering
// rhythm mode keys on every instrument whose bit is already set.
func (c *OPL3) updateRhythm() {
	v := c.regs[regRhythm]
	c.dam = (v & rhythmDAM) >> 7
	c.dvb = (v & rhythmDVB) >> 6

	keys := v & rhythmKeys
	changed := keys ^ c.rhythmKeys
	c.rhythmKeys = keys

	ryt := (v & rhythmRYT) >> 5
	if ryt != c.ryt {
		c.ryt = ryt
		c.setRhythmMode()
		changed = keys
	}
	if c.ryt == 0 {
		return
	}

	if changed&rhythmBD != 0 {
		bd := &c.chans[chBassDrum]
		if keys&rhythmBD != 0 {
			c.bassDrumKeyOn(bd)
		} else {
			c.ops[bd.ops[0]].keyOff()
			c.ops[bd.ops[1]].keyOff()
		}
	}
	c.rhythmKey(changed, keys, rhythmSD, opSnare)
	c.rhythmKey(changed, keys, rhythmTOM, opTomTom)
	c.rhythmKey(changed, keys, rhythmTC, opCymbal)
	c.rhythmKey(changed, keys, rhythmHH, opHiHat)
}

func (c *OPL3) rhythmKey(changed, keys, bit uint8, op int) {
	if changed&bit == 0 {
		return
	}
	if keys&bit != 0 {
		c.ops[op].keyOn()
	} else {
		c.ops[op].keyOff()
	}
}

// bassDrumKeyOn keys the bass drum. With CNT=1 only the carrier sounds, so
// op1 is held off.
func (c *OPL3) bassDrumKeyOn(ch *opl3Channel) {
	op1 := &c.ops[ch.ops[0]]
	if ch.cnt == 1 {
		op1.env.stage = envOff
	} else {
		op1.keyOn()
	}
	c.ops[ch.ops[1]].keyOn()
	ch.feedback = [2]float64{}
}

// setRhythmMode swaps bank 0 channels 6-8 and their operator slots between
// the normal and rhythm objects, then replays their registers.
func (c *OPL3) setRhythmMode() {
	if c.ryt == 1 {
		c.slots[0][6] = chBassDrum
		c.slots[0][7] = chHiHatSnare
		c.slots[0][8] = chTomCymbal
		c.opSlot[0][hiHatBase] = opHiHat
		c.opSlot[0][snareBase] = opSnare
		c.opSlot[0][tomTomBase] = opTomTom
		c.opSlot[0][cymbalBase] = opCymbal
	} else {
		for i := 6; i <= 8; i++ {
			c.slots[0][i] = uint8(i)
		}
		c.opSlot[0][hiHatBase] = hiHatBase
		c.opSlot[0][snareBase] = snareBase
		c.opSlot[0][tomTomBase] = tomTomBase
		c.opSlot[0][cymbalBase] = cymbalBase
	}
	for i := 6; i <= 8; i++ {
		c.updateChannel(c.channel(0, i))
	}
}

// hiHatSnareOutput runs both operators every sample, whatever their
// envelope state, since the cymbal and snare read the hi-hat phase.
func (c *OPL3) hiHatSnareOutput(ch *opl3Channel) float64 {
	hh := c.hiHatOutput()
	sd := c.snareOutput()
	return (hh + sd) / 2
}

func (c *OPL3) tomCymbalOutput(ch *opl3Channel) float64 {
	tom := c.operatorOutput(&c.ops[opTomTom], noModulator)
	tc := c.topCymbalOutput()
	return (tom + tc) / 2
}

func (c *OPL3) topCymbalOutput() float64 {
	hh := &c.ops[opHiHat]
	return c.cymbalOutput(&c.ops[opCymbal], hh.phase*multTable[hh.mult])
}

// hiHatOutput is the cymbal formula driven from the other side, with
// silent samples replaced by noise at the envelope level.
func (c *OPL3) hiHatOutput() float64 {
	hh := &c.ops[opHiHat]
	tc := &c.ops[opCymbal]
	out := c.cymbalOutput(hh, tc.phase*multTable[tc.mult])
	noise := c.noiseSample()
	if out == 0 {
		out = noise * hh.envelope
	}
	return out
}

// cymbalOutput modulates 8x the operator's own phase with the waveform at
// extPhase, and gates the result to a narrow window of each quarter cycle.
func (c *OPL3) cymbalOutput(o *opl3Operator, extPhase float64) float64 {
	c.stepEnvelope(o)
	c.stepPhase(o)
	wave := c.waveform(o)

	carrierPhase := 8 * o.phase
	modOut := o.sample(wave, extPhase, noModulator)
	carOut := o.sample(wave, carrierPhase, modOut)

	const cycles = 4
	chopped := carrierPhase * cycles
	chopped -= math.Floor(chopped/cycles) * cycles
	if chopped > 0.1 {
		carOut = 0
	}
	return carOut * 2
}

// snareOutput runs at twice the hi-hat phase. Anything short of the
// waveform peaks becomes noise with the sign of the tone.
func (c *OPL3) snareOutput() float64 {
	sd := &c.ops[opSnare]
	if sd.env.stage == envOff {
		return 0
	}
	c.stepEnvelope(sd)
	sd.phase = c.ops[opHiHat].phase * 2
	out := sd.sample(c.waveform(sd), sd.phase, noModulator)

	noise := c.noiseSample() * sd.envelope
	if out != sd.envelope && out != -sd.envelope {
		switch {
		case out > 0:
			out = noise
		case out < 0:
			out = -noise
		}
	}
	return out * 2
}

// noiseSample returns a uniform value in [0, 1).
func (c *OPL3) noiseSample() float64 {
	return float64(c.noise.Uint64()>>11) / (1 << 53)
}
