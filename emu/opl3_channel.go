package emu

// Channel register groups, added to the channel's base address.
const (
	regFnumL      = 0xA0
	regKonBlockFh = 0xB0
	regPanFbCnt   = 0xC0
)

// Channel kinds. Exactly one channel object occupies each of the 18
// logical slots; the kind selects how its operators are combined.
const (
	chanTwoOp = iota
	chanFourOp
	chanDisabled
	chanBassDrum
	chanHiHatSnare
	chanTomCymbal
)

// Operator feeding the next operator in a chain: output * toPhase is the
// modulation in waveform cycles.
const toPhase = 4

const noModulator = 0

type opl3Channel struct {
	kind uint8
	base uint16   // bank<<8 | channel number
	ops  [4]uint8 // Indices into OPL3.ops

	// Last two op1 outputs, already scaled by FB and stripped.
	feedback [2]float64

	fnumL uint8 // F-number low 8 bits
	fnumH uint8 // F-number high 2 bits
	kon   uint8
	block uint8
	fb    uint8 // Feedback (3-bit)
	cnt   uint8 // Connection (1-bit)
	cha   uint8 // Left output enable
	chb   uint8 // Right output enable

	leftPan  float64
	rightPan float64
}

func newChannel(kind uint8, base uint16, startVol float64, ops ...uint8) opl3Channel {
	ch := opl3Channel{
		kind:     kind,
		base:     base,
		leftPan:  startVol,
		rightPan: startVol,
	}
	copy(ch.ops[:], ops)
	return ch
}

func (c *OPL3) updateKonBlockFnumH(ch *opl3Channel) {
	v := c.regs[ch.base+regKonBlockFh]
	ch.block = (v >> 2) & 0x07
	ch.fnumH = v & 0x03
	c.updateOperators(ch)

	newKon := (v >> 5) & 1
	if newKon != ch.kon {
		if newKon == 1 {
			c.channelKeyOn(ch)
		} else {
			c.channelKeyOff(ch)
		}
		ch.kon = newKon
	}
}

func (c *OPL3) updateFnumL(ch *opl3Channel) {
	ch.fnumL = c.regs[ch.base+regFnumL]
	c.updateOperators(ch)
}

func (c *OPL3) updatePanFbCnt(ch *opl3Channel) {
	v := c.regs[ch.base+regPanFbCnt]
	ch.chb = (v >> 5) & 1
	ch.cha = (v >> 4) & 1
	ch.fb = (v >> 1) & 0x07
	ch.cnt = v & 1
	c.updatePan(ch)
	c.updateOperators(ch)
}

// updatePan recomputes register-driven panning. In full-pan mode the pans
// belong to SetPanning and are left alone.
func (c *OPL3) updatePan(ch *opl3Channel) {
	if c.fullPan {
		return
	}
	if c.newMode == 0 {
		ch.leftPan = volumeMul
		ch.rightPan = volumeMul
		return
	}
	ch.leftPan = float64(ch.cha) * volumeMul
	ch.rightPan = float64(ch.chb) * volumeMul
}

// updateChannel replays the channel's latched registers into it, used
// whenever a slot changes which channel object it holds.
func (c *OPL3) updateChannel(ch *opl3Channel) {
	c.updateKonBlockFnumH(ch)
	c.updateFnumL(ch)
	c.updatePanFbCnt(ch)
}

// updateOperators pushes pitch data to every operator of the channel.
func (c *OPL3) updateOperators(ch *opl3Channel) {
	if ch.kind == chanDisabled {
		return
	}
	ksn := int(ch.block)*2 + int((ch.fnumH>>c.nts)&1)
	fnum := int(ch.fnumH)<<8 | int(ch.fnumL)
	for _, idx := range ch.ops[:ch.opCount()] {
		c.updateOperator(&c.ops[idx], ksn, fnum, int(ch.block))
	}
}

func (ch *opl3Channel) opCount() int {
	switch ch.kind {
	case chanFourOp:
		return 4
	case chanDisabled:
		return 0
	}
	return 2
}

// channelKeyOn handles the KON bit. Rhythm channels, the bass drum
// included, are keyed only through 0xBD.
func (c *OPL3) channelKeyOn(ch *opl3Channel) {
	switch ch.kind {
	case chanTwoOp, chanFourOp:
		for _, idx := range ch.ops[:ch.opCount()] {
			c.ops[idx].keyOn()
		}
		ch.feedback = [2]float64{}
	}
}

func (c *OPL3) channelKeyOff(ch *opl3Channel) {
	switch ch.kind {
	case chanTwoOp, chanFourOp:
		for _, idx := range ch.ops[:ch.opCount()] {
			c.ops[idx].keyOff()
		}
	}
}

// channelOutput computes one sample for the channel.
func (c *OPL3) channelOutput(ch *opl3Channel) float64 {
	switch ch.kind {
	case chanTwoOp, chanBassDrum:
		return c.twoOpOutput(ch)
	case chanFourOp:
		return c.fourOpOutput(ch)
	case chanHiHatSnare:
		return c.hiHatSnareOutput(ch)
	case chanTomCymbal:
		return c.tomCymbalOutput(ch)
	}
	return 0
}

// feedbackInput is the average of op1's last two outputs.
func (ch *opl3Channel) feedbackInput() float64 {
	return (ch.feedback[0] + ch.feedback[1]) / 2
}

func (ch *opl3Channel) pushFeedback(op1Out float64) {
	ch.feedback[0] = ch.feedback[1]
	ch.feedback[1] = stripIntPart(op1Out * feedbackTable[ch.fb])
}

// twoOpOutput: CNT=0 is op1 -> op2, CNT=1 is op1 + op2. op1 always takes
// the feedback.
func (c *OPL3) twoOpOutput(ch *opl3Channel) float64 {
	op1 := &c.ops[ch.ops[0]]
	op2 := &c.ops[ch.ops[1]]
	fbIn := ch.feedbackInput()

	var out, op1Out float64
	switch ch.cnt {
	case 0:
		if op2.env.stage == envOff {
			return 0
		}
		op1Out = c.operatorOutput(op1, fbIn)
		out = c.operatorOutput(op2, op1Out*toPhase)
	case 1:
		if op1.env.stage == envOff && op2.env.stage == envOff {
			return 0
		}
		op1Out = c.operatorOutput(op1, fbIn)
		op2Out := c.operatorOutput(op2, noModulator)
		out = (op1Out + op2Out) / 2
	}

	ch.pushFeedback(op1Out)
	return out
}

// fourOpOutput combines the CNT bits of the channel pair (this channel's
// CNT is the high bit, the paired channel's CNT the low bit):
//
//	0: op1 -> op2 -> op3 -> op4
//	1: (op1 -> op2) + (op3 -> op4)
//	2: op1 + (op2 -> op3 -> op4)
//	3: op1 + (op2 -> op3) + op4
func (c *OPL3) fourOpOutput(ch *opl3Channel) float64 {
	op1 := &c.ops[ch.ops[0]]
	op2 := &c.ops[ch.ops[1]]
	op3 := &c.ops[ch.ops[2]]
	op4 := &c.ops[ch.ops[3]]

	secondCnt := c.regs[ch.base+3+regPanFbCnt] & 1
	cnt4op := ch.cnt<<1 | secondCnt
	fbIn := ch.feedbackInput()

	var out, op1Out float64
	switch cnt4op {
	case 0:
		if op4.env.stage == envOff {
			return 0
		}
		op1Out = c.operatorOutput(op1, fbIn)
		op2Out := c.operatorOutput(op2, op1Out*toPhase)
		op3Out := c.operatorOutput(op3, op2Out*toPhase)
		out = c.operatorOutput(op4, op3Out*toPhase)
	case 1:
		if op2.env.stage == envOff && op4.env.stage == envOff {
			return 0
		}
		op1Out = c.operatorOutput(op1, fbIn)
		op2Out := c.operatorOutput(op2, op1Out*toPhase)
		op3Out := c.operatorOutput(op3, noModulator)
		op4Out := c.operatorOutput(op4, op3Out*toPhase)
		out = (op2Out + op4Out) / 2
	case 2:
		if op1.env.stage == envOff && op4.env.stage == envOff {
			return 0
		}
		op1Out = c.operatorOutput(op1, fbIn)
		op2Out := c.operatorOutput(op2, noModulator)
		op3Out := c.operatorOutput(op3, op2Out*toPhase)
		op4Out := c.operatorOutput(op4, op3Out*toPhase)
		out = (op1Out + op4Out) / 2
	case 3:
		if op1.env.stage == envOff && op3.env.stage == envOff && op4.env.stage == envOff {
			return 0
		}
		op1Out = c.operatorOutput(op1, fbIn)
		op2Out := c.operatorOutput(op2, noModulator)
		op3Out := c.operatorOutput(op3, op2Out*toPhase)
		op4Out := c.operatorOutput(op4, noModulator)
		out = (op1Out + op3Out + op4Out) / 3
	}

	ch.pushFeedback(op1Out)
	return out
}
