package cli

import (
	"fmt"
	"os"

	"github.com/user-none/emopl/emu"
	"github.com/user-none/emopl/wav"
)

// RenderWAV plays e to a WAVE file as fast as possible. maxSeconds > 0
// stops the render early; a stream that loops forever needs it. Returns
// the number of stereo frames written.
func RenderWAV(e *emu.Emulator, path string, maxSeconds float64) (int64, error) {
	if maxSeconds <= 0 && e.LoopsForever() {
		return 0, fmt.Errorf("render %s: endless loop needs a length limit", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("render %s: %w", path, err)
	}
	defer f.Close()

	w, err := wav.NewWriter(f, emu.SampleRate)
	if err != nil {
		return 0, fmt.Errorf("render %s: %w", path, err)
	}

	limit := int64(maxSeconds * emu.SampleRate)
	for !e.Done() && (limit <= 0 || w.Frames() < limit) {
		e.RunFrame()
		samples := e.GetAudioSamples()
		if limit > 0 {
			if left := 2 * (limit - w.Frames()); int64(len(samples)) > left {
				samples = samples[:left]
			}
		}
		if err := w.WriteSamples(samples); err != nil {
			return w.Frames(), fmt.Errorf("render %s: %w", path, err)
		}
	}

	if _, err := w.Finish(); err != nil {
		return w.Frames(), fmt.Errorf("render %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return w.Frames(), fmt.Errorf("render %s: %w", path, err)
	}
	return w.Frames(), nil
}
