package emu

const (
	sampleRate    = 48000
	psgBufferSize = 1024
	psgGain       = 1898.0

	// fmGain maps the chip's float output to int16. A single full-scale
	// two-op voice through register panning peaks near 0.33.
	fmGain = 32767.0
)

// SampleRate is the output rate of GetAudioSamples.
const SampleRate = sampleRate

// mixAudio sums the FM stereo frames and the mono PSG samples into the
// emulator's stereo audio buffer.
func (e *Emulator) mixAudio() {
	var psgBuf []float32
	var psgCount int
	if e.psg != nil {
		psgBuf, psgCount = e.psg.GetBuffer()
	}
	e.audioBuffer = mixBuffers(e.audioBuffer, e.fmBuffer, psgBuf, psgCount)
}

// mixBuffers appends the mix of FM L/R pairs and mono PSG samples to out.
// The shorter source is padded with silence.
func mixBuffers(out, fm []int16, psgBuf []float32, psgCount int) []int16 {
	fmPairs := len(fm) / 2
	mixCount := fmPairs
	if psgCount < mixCount {
		mixCount = psgCount
	}

	for i := 0; i < mixCount; i++ {
		fmL := int32(fm[i*2])
		fmR := int32(fm[i*2+1])
		psgVal := int32(psgBuf[i])
		mixL := clampInt32(fmL+psgVal, -32768, 32767)
		mixR := clampInt32(fmR+psgVal, -32768, 32767)
		out = append(out, int16(mixL), int16(mixR))
	}

	// Remaining FM stereo samples
	if fmPairs > mixCount {
		out = append(out, fm[mixCount*2:]...)
	}

	// Remaining PSG samples as stereo (mono duplicated to L/R)
	for i := mixCount; i < psgCount; i++ {
		s := int16(clampInt32(int32(psgBuf[i]), -32768, 32767))
		out = append(out, s, s)
	}
	return out
}

// GetAudioSamples returns the last frame's audio as 16-bit stereo PCM at
// SampleRate. The slice is reused by the next RunFrame.
func (e *Emulator) GetAudioSamples() []int16 {
	return e.audioBuffer
}

// toInt16 converts a scaled float sample, clamping to the int16 range.
func toInt16(v float32) int16 {
	switch {
	case v >= 32767:
		return 32767
	case v <= -32768:
		return -32768
	}
	return int16(v)
}

// clampInt32 clamps v to [min, max].
func clampInt32(v, min, max int32) int32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
