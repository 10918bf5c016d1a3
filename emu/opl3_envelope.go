package emu

import "math"

// Envelope stages
const (
	envAttack  = 0
	envDecay   = 1
	envSustain = 2
	envRelease = 3
	envOff     = 4
)

// envelopeGen tracks one operator's envelope in dB (0 = full volume,
// envelopeMin = silence). The attack is exponential and is driven through
// x, the log2 of the attenuation; decay and release are linear in dB.
type envelopeGen struct {
	stage uint8

	actualAttackRate  int
	actualDecayRate   int
	actualReleaseRate int

	xAttackIncrement   float64
	xMinimumInAttack   float64
	dBDecayIncrement   float64
	dBReleaseIncrement float64

	// Static attenuation terms (dB, datasheet scale)
	attenuation  float64 // Key scale level
	totalLevel   float64
	sustainLevel float64

	x        float64
	envelope float64
}

func newEnvelopeGen() envelopeGen {
	return envelopeGen{
		stage:    envOff,
		x:        dBToX(envelopeMin),
		envelope: envelopeMin,
	}
}

// setSustainLevel decodes the 4-bit SL field. All ones is -93 dB rather
// than the -45 dB the 3 dB step would give.
func (e *envelopeGen) setSustainLevel(sl uint8) {
	if sl == 0x0F {
		e.sustainLevel = -93
		return
	}
	e.sustainLevel = -3 * float64(sl)
}

// setTotalLevel decodes the 6-bit TL field in 0.75 dB steps.
func (e *envelopeGen) setTotalLevel(tl uint8) {
	e.totalLevel = float64(tl) * -0.75
}

// setAttenuation applies key scale level for the given pitch.
func (e *envelopeGen) setAttenuation(fnum, block int, ksl uint8) {
	hi4 := (fnum >> 6) & 0x0F
	switch ksl {
	case 0:
		e.attenuation = 0
	case 1:
		// ~3 dB/octave
		e.attenuation = ksl3dBTable[hi4][block]
	case 2:
		// ~1.5 dB/octave
		e.attenuation = ksl3dBTable[hi4][block] / 2
	case 3:
		// ~6 dB/octave
		e.attenuation = ksl3dBTable[hi4][block] * 2
	}
}

// setAttackRate derives the exponential attack from the manual's
// 0%-100% and 10%-90% attack times. x advances linearly; the increment
// is set by the 10%-90% time and the starting x is chosen so the whole
// curve takes the 0%-100% time. The curve stops at -0.1875 dB since x
// would have to reach -Inf for 0 dB.
func (e *envelopeGen) setAttackRate(ar, ksr uint8, ksn int) {
	e.actualAttackRate = calculateActualRate(ar, ksr, ksn)
	period0to100 := attackTimes[e.actualAttackRate][0] / 1000
	period10to90 := attackTimes[e.actualAttackRate][1] / 1000

	switch {
	case math.IsInf(period10to90, 1):
		// Rates 0-3 never progress.
		e.xAttackIncrement = 0
		e.xMinimumInAttack = math.Inf(1)
		return
	case period10to90 == 0:
		// Instant attack: the first envelope step jumps to 0 dB.
		e.xAttackIncrement = math.Inf(-1)
		e.xMinimumInAttack = percentageToX(0.1)
		return
	}

	samples0to100 := int(period0to100 * NativeSampleRate)
	samples10to90 := int(period10to90 * NativeSampleRate)
	e.xAttackIncrement = calculateIncrement(percentageToX(0.1), percentageToX(0.9), period10to90)

	// percentageToX(0.9) + samplesToTop*inc = dBToX(-0.1875)
	samples10to100 := int(float64(samples10to90) + (dBToX(-envelopeRes)-percentageToX(0.9))/e.xAttackIncrement)
	e.xMinimumInAttack = percentageToX(0.1) - float64(samples0to100-samples10to100)*e.xAttackIncrement
}

func (e *envelopeGen) setDecayRate(dr, ksr uint8, ksn int) {
	e.actualDecayRate = calculateActualRate(dr, ksr, ksn)
	period10to90 := decayReleaseTimes[e.actualDecayRate][1] / 1000
	e.dBDecayIncrement = calculateIncrement(percentageToDB(0.1), percentageToDB(0.9), period10to90)
}

func (e *envelopeGen) setReleaseRate(rr, ksr uint8, ksn int) {
	e.actualReleaseRate = calculateActualRate(rr, ksr, ksn)
	period10to90 := decayReleaseTimes[e.actualReleaseRate][1] / 1000
	e.dBReleaseIncrement = calculateIncrement(percentageToDB(0.1), percentageToDB(0.9), period10to90)
}

// calculateActualRate combines a 4-bit rate with the key scale offset.
func calculateActualRate(rate, ksr uint8, ksn int) int {
	actual := int(rate)*4 + rateOffset[ksr&1][ksn&0x0F]
	if actual > 63 {
		actual = 63
	}
	return actual
}

// next advances the envelope one sample and returns the output level in dB
// with tremolo, key scale level and total level applied. Datasheet
// attenuations are halved to match real chip output.
func (e *envelopeGen) next(tremolo float64, egt, am bool) float64 {
	sustainLevel := e.sustainLevel / 2

	// Stages fall through into the next one on the sample they complete.
	switch e.stage {
	case envAttack:
		if e.envelope < -envelopeRes && !math.IsInf(e.xAttackIncrement, -1) {
			e.envelope = attackLookup(e.x)
			e.x += e.xAttackIncrement
			break
		}
		e.envelope = 0
		e.stage = envDecay
		fallthrough
	case envDecay:
		if e.envelope > sustainLevel {
			e.envelope -= e.dBDecayIncrement
			break
		}
		e.stage = envSustain
		fallthrough
	case envSustain:
		// Sustain holds only while EGT is set; EGT can be toggled with
		// the key held.
		if egt {
			break
		}
		if e.envelope > envelopeMin {
			e.envelope -= e.dBReleaseIncrement
		} else {
			e.stage = envOff
		}
	case envRelease:
		if e.envelope > envelopeMin {
			e.envelope -= e.dBReleaseIncrement
		} else {
			e.stage = envOff
		}
	}

	out := e.envelope
	if am {
		out += tremolo / 2
	}
	out += e.attenuation / 2
	out += e.totalLevel / 2
	return out
}

// keyOn starts the attack from the current level so a retrigger does not
// click back to silence.
func (e *envelopeGen) keyOn() {
	xCurrent := dBToX(e.envelope)
	if xCurrent < e.xMinimumInAttack {
		e.x = xCurrent
	} else {
		e.x = e.xMinimumInAttack
	}
	e.stage = envAttack
}

func (e *envelopeGen) keyOff() {
	if e.stage != envOff {
		e.stage = envRelease
	}
}

// attackLookup returns -2^x from the attack table, clamped to its range.
func attackLookup(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, -1) {
		return attackTable[0]
	}
	if math.IsInf(x, 1) {
		return attackTable[attackLength-1]
	}
	idx := math.Floor((x - attackMin) / attackRes)
	if idx < 0 {
		return attackTable[0]
	}
	if idx >= float64(attackLength) {
		return attackTable[attackLength-1]
	}
	return attackTable[int(idx)]
}

func dBToX(dB float64) float64 {
	return math.Log2(-dB)
}

func percentageToDB(p float64) float64 {
	return math.Log10(p) * 10
}

func percentageToX(p float64) float64 {
	return dBToX(percentageToDB(p))
}
