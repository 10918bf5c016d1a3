package emu

import (
	"math"
	"math/rand/v2"

	clone "github.com/huandu/go-clone/generic"
)

// Global registers
const (
	regTimer1    = 0x02 // Bank 0
	regTimer2    = 0x03 // Bank 0
	regTimerCtrl = 0x04 // Bank 0
	regConnSel   = 0x04 // Bank 1: 4-op pairing mask
	regNew       = 0x05 // Bank 1: OPL3 enable
	regNoteSel   = 0x08 // Bank 0

	noteSelectBit = 0x40
	connSelMask   = 0x3F
	newEnableBit  = 0x01
	panEnableBits = 0xF0
)

const (
	registerLength = 0x100
	invalidSlot    = 0xFF
	numChannels    = 18

	// Per-sample decay of the meter peak follower
	levelDecay = 0.9995

	noiseSeed1 = 0x4F504C33
	noiseSeed2 = 0x594D4632
)

// Channel arena layout: 18 two-op channels (bank*9 + n), six four-op
// channels, the three rhythm channels and the shared disabled channel.
const (
	chFourOpBase = 18
	chBassDrum   = 24
	chHiHatSnare = 25
	chTomCymbal  = 26
	chDisabled   = 27
	numChanObjs  = 28
)

// OPL3 emulates the Yamaha YMF262 (OPL3) FM synthesizer in floating
// point at its native 49716 Hz rate.
type OPL3 struct {
	fullPan bool

	// Register image, bank 0 at 0x000 and bank 1 at 0x100.
	regs [2 * registerLength]uint8

	ops   [numOperators]opl3Operator
	chans [numChanObjs]opl3Channel

	// opSlot maps [bank][register offset] to an operator index, or
	// invalidSlot for offsets with no operator.
	opSlot [2][0x20]uint8
	// slots maps [bank][channel] to the channel object occupying it.
	slots [2][9]uint8

	// Global register fields
	nts           uint8 // Note select
	dam           uint8 // Tremolo depth
	dvb           uint8 // Vibrato depth
	ryt           uint8 // Rhythm mode
	rhythmKeys    uint8 // Last BD/SD/TOM/TC/HH bits
	newMode       uint8 // OPL3 mode enable
	connectionSel uint8 // 4-op pairing mask

	// LFO positions
	vibratoIndex int
	tremoloIndex int

	// Timers
	timer1   opl3Timer
	timer2   opl3Timer
	timerSub int

	noise rand.PCG

	// Peak level per logical channel, for meters
	levels [numChannels]float64
}

// NewOPL3 creates a chip in its power-on state. With fullPan set, channel
// panning comes from SetPanning instead of the CHA/CHB register bits.
func NewOPL3(fullPan bool) *OPL3 {
	c := &OPL3{fullPan: fullPan}
	c.Reset()
	return c
}

// Reset restores the power-on state. The pan mode chosen at construction
// is kept.
func (c *OPL3) Reset() {
	*c = OPL3{fullPan: c.fullPan}
	c.noise.Seed(noiseSeed1, noiseSeed2)

	startVol := 1.0
	if c.fullPan {
		startVol = centerPanningPower
	}

	for i := range c.ops {
		c.ops[i] = newOperator(0)
	}
	for bank := 0; bank < 2; bank++ {
		for i := range c.opSlot[bank] {
			c.opSlot[bank][i] = invalidSlot
		}
		for group := 0; group <= 0x10; group += 8 {
			for off := 0; off < 6; off++ {
				slot := group + off
				idx := bank<<5 | slot
				c.ops[idx] = newOperator(uint16(bank<<8 | slot))
				c.opSlot[bank][slot] = uint8(idx)
			}
		}
	}
	c.ops[opHiHat] = newOperator(hiHatBase)
	c.ops[opSnare] = newOperator(snareBase)
	c.ops[opTomTom] = newOperator(tomTomBase)
	c.ops[opCymbal] = newOperator(cymbalBase)

	for bank := 0; bank < 2; bank++ {
		opBase := uint8(bank << 5)
		for n := 0; n < 3; n++ {
			base := uint16(bank<<8 | n)
			idx := uint8(n)
			// Channels 0-2: operators n, n+3. 3-5: n+8, n+0xB. 6-8: n+0x10, n+0x13.
			c.chans[bank*9+n] = newChannel(chanTwoOp, base, startVol, opBase|idx, opBase|(idx+0x03))
			c.chans[bank*9+n+3] = newChannel(chanTwoOp, base+3, startVol, opBase|(idx+0x08), opBase|(idx+0x0B))
			c.chans[bank*9+n+6] = newChannel(chanTwoOp, base+6, startVol, opBase|(idx+0x10), opBase|(idx+0x13))
			c.chans[chFourOpBase+bank*3+n] = newChannel(chanFourOp, base, startVol,
				opBase|idx, opBase|(idx+0x03), opBase|(idx+0x08), opBase|(idx+0x0B))
		}
	}
	c.chans[chBassDrum] = newChannel(chanBassDrum, 6, startVol, bassDrumOp1, bassDrumOp2)
	c.chans[chHiHatSnare] = newChannel(chanHiHatSnare, 7, startVol, opHiHat, opSnare)
	c.chans[chTomCymbal] = newChannel(chanTomCymbal, 8, startVol, opTomTom, opCymbal)
	c.chans[chDisabled] = newChannel(chanDisabled, 0, 0)

	for bank := 0; bank < 2; bank++ {
		for i := 0; i < 9; i++ {
			c.slots[bank][i] = uint8(bank*9 + i)
		}
	}
}

// Clone returns an independent deep copy of the chip, including its
// envelope, phase and noise state.
func (c *OPL3) Clone() *OPL3 {
	return clone.Clone(c)
}

// channel returns the channel object occupying a logical slot.
func (c *OPL3) channel(bank, n int) *opl3Channel {
	return &c.chans[c.slots[bank][n]]
}

// WriteReg writes a register using a 9-bit address; bit 8 selects the bank.
func (c *OPL3) WriteReg(reg uint16, val uint8) {
	c.Write(int(reg>>8), uint8(reg), val)
}

// Write stores val in the register image and applies it. Writes outside
// the two banks or to unused addresses are ignored.
func (c *OPL3) Write(bank int, addr, val uint8) {
	if bank < 0 || bank > 1 {
		return
	}
	c.regs[bank<<8|int(addr)] = val

	switch addr & 0xE0 {
	case 0x00:
		c.writeGlobalRegister(bank, addr, val)

	case 0xA0:
		if addr == regRhythm {
			if bank == 0 {
				c.updateRhythm()
			}
			return
		}
		n := int(addr & 0x0F)
		if n > 8 {
			return
		}
		switch addr & 0xF0 {
		case regKonBlockFh:
			c.updateKonBlockFnumH(c.channel(bank, n))
		case regFnumL:
			c.updateFnumL(c.channel(bank, n))
		}

	case 0xC0:
		if addr <= 0xC8 {
			c.updatePanFbCnt(c.channel(bank, int(addr&0x0F)))
		}

	default:
		c.writeOperatorRegister(bank, addr)
	}
}

func (c *OPL3) writeGlobalRegister(bank int, addr, val uint8) {
	if bank == 1 {
		switch addr {
		case regConnSel:
			c.connectionSel = val & connSelMask
			c.set4opConnections()
		case regNew:
			c.updateNew()
		}
		return
	}

	switch addr {
	case regTimer1:
		c.timer1.preset = val
	case regTimer2:
		c.timer2.preset = val
	case regTimerCtrl:
		c.writeTimerControl(val)
	case regNoteSel:
		c.nts = (val & noteSelectBit) >> 6
	}
}

func (c *OPL3) writeOperatorRegister(bank int, addr uint8) {
	idx := c.opSlot[bank][addr&0x1F]
	if idx == invalidSlot {
		return
	}
	o := &c.ops[idx]
	switch addr & 0xE0 {
	case regAMVibEgtKsrMult:
		c.updateAMVibEgtKsrMult(o)
	case regKslTl:
		c.updateKslTl(o)
	case regArDr:
		c.updateArDr(o)
	case regSlRr:
		c.updateSlRr(o)
	case regWs:
		c.updateWs(o)
	}
}

// updateNew handles the OPL2/OPL3 mode bit. Entering OPL3 mode enables both
// outputs of every channel.
func (c *OPL3) updateNew() {
	c.newMode = c.regs[registerLength+regNew] & newEnableBit
	if c.newMode == 1 {
		c.setEnabledChannels()
	}
	c.set4opConnections()
	c.updateChannelPans()
}

func (c *OPL3) setEnabledChannels() {
	for bank := 0; bank < 2; bank++ {
		for i := 0; i < 9; i++ {
			ch := c.channel(bank, i)
			c.regs[ch.base+regPanFbCnt] |= panEnableBits
			c.updatePanFbCnt(ch)
		}
	}
}

func (c *OPL3) updateChannelPans() {
	for bank := 0; bank < 2; bank++ {
		for i := 0; i < 9; i++ {
			ch := c.channel(bank, i)
			c.regs[ch.base+regPanFbCnt] |= panEnableBits
			c.updatePan(ch)
		}
	}
}

// set4opConnections pairs channels n and n+3 (n = 0-2 in each bank) into a
// four-op channel for every set bit of the connection mask. Pairing only
// applies in OPL3 mode.
func (c *OPL3) set4opConnections() {
	for bank := 0; bank < 2; bank++ {
		for i := 0; i < 3; i++ {
			if c.newMode == 1 {
				shift := bank*3 + i
				if (c.connectionSel>>shift)&1 == 1 {
					c.slots[bank][i] = uint8(chFourOpBase + bank*3 + i)
					c.slots[bank][i+3] = chDisabled
					c.updateChannel(c.channel(bank, i))
					continue
				}
			}
			c.slots[bank][i] = uint8(bank*9 + i)
			c.slots[bank][i+3] = uint8(bank*9 + i + 3)
			c.updateChannel(c.channel(bank, i))
			c.updateChannel(c.channel(bank, i+3))
		}
	}
}

// SetPanning sets continuous left/right gains for logical channel ch
// (0-17). Only effective on a full-pan chip.
func (c *OPL3) SetPanning(ch int, left, right float64) {
	if !c.fullPan || ch < 0 || ch >= numChannels {
		return
	}
	channel := c.channel(ch/9, ch%9)
	channel.leftPan = left
	channel.rightPan = right
}

// GenerateSamples renders frames stereo frames at the native rate and adds
// them to buf as interleaved L/R pairs. buf must hold frames*2 values; the
// caller clears it.
func (c *OPL3) GenerateSamples(buf []float32, frames int) {
	for f := 0; f < frames; f++ {
		var left, right float64
		for bank := 0; bank < int(c.newMode)+1; bank++ {
			for n := 0; n < 9; n++ {
				ch := c.channel(bank, n)
				if ch.kind == chanDisabled {
					c.trackLevel(bank*9+n, 0)
					continue
				}
				out := c.channelOutput(ch)
				left += out * ch.leftPan
				right += out * ch.rightPan
				c.trackLevel(bank*9+n, out)
			}
		}
		buf[f*2] += float32(left)
		buf[f*2+1] += float32(right)

		c.vibratoIndex = (c.vibratoIndex + 1) & (vibratoTableLength - 1)
		c.tremoloIndex++
		if c.tremoloIndex >= tremoloTableLength {
			c.tremoloIndex = 0
		}
		c.stepTimers()
	}
}

func (c *OPL3) trackLevel(ch int, out float64) {
	lvl := math.Abs(out)
	if decayed := c.levels[ch] * levelDecay; decayed > lvl {
		lvl = decayed
	}
	c.levels[ch] = lvl
}

// ChannelLevels returns a decaying peak level per logical channel. The
// second slot of a four-op pair decays to zero; bank 1 holds its last
// levels while in OPL2 mode.
func (c *OPL3) ChannelLevels() [numChannels]float32 {
	var out [numChannels]float32
	for i, l := range c.levels {
		out[i] = float32(l)
	}
	return out
}
