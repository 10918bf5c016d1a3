package emu

import "math"

// phaseGen is the per-operator phase accumulator. One unit of phase is one
// full waveform cycle. The accumulator is never wrapped; waveform lookups
// wrap at read time, so modulation can be added to the raw value.
type phaseGen struct {
	phase    float64
	phaseInc float64
}

// setFrequency recomputes the per-sample increment from the channel's
// F-number and block and the operator's MULT field.
//
//	fnum = baseFreq * 2^19 / NativeSampleRate / 2^(block-1)
func (p *phaseGen) setFrequency(fnum, block int, mult uint8) {
	baseFreq := float64(fnum) * math.Pow(2, float64(block-1)) * NativeSampleRate / math.Pow(2, 19)
	opFreq := baseFreq * multTable[mult]
	p.phaseInc = opFreq / NativeSampleRate
}

// advance steps the accumulator by one sample. vibrato is the frequency
// multiplier for this sample (1 when VIB is off).
func (p *phaseGen) advance(vibrato float64) float64 {
	p.phase += p.phaseInc * vibrato
	return p.phase
}

func (p *phaseGen) keyOn() {
	p.phase = 0
}
