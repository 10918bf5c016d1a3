// Package cli runs VGM playback from the command line, either in a window
// showing channel meters or headless in the terminal.
package cli

import (
	"log"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	emubridge "github.com/user-none/emopl/bridge/ebiten"
	"github.com/user-none/emopl/emu"
	"github.com/user-none/emopl/ui"
)

// Runner plays a stream in an Ebiten window.
// The emulator runs on a dedicated goroutine with audio-driven timing.
// The Ebiten thread handles keys and draws the shared meter levels.
type Runner struct {
	emulator    *emu.Emulator
	audioPlayer *ui.AudioPlayer
	meters      *emubridge.Meters
	title       string
	length      uint64

	// ADT goroutine control
	emuControl   *ui.EmuControl
	sharedLevels *ui.SharedLevels
	emuDone      chan struct{}

	doneAt time.Time
}

// NewRunner starts playback of e.
// Audio initialization failure is non-fatal; the meters still run.
func NewRunner(e *emu.Emulator, title string, volume float64) *Runner {
	player, err := ui.NewAudioPlayer(volume)
	if err != nil {
		log.Printf("Warning: audio initialization failed: %v", err)
	}

	n := len(e.ChannelLevels())
	r := &Runner{
		emulator:     e,
		audioPlayer:  player,
		meters:       emubridge.NewMeters(n),
		title:        title,
		length:       e.Stream().TotalSamples,
		emuControl:   ui.NewEmuControl(),
		sharedLevels: ui.NewSharedLevels(n),
		emuDone:      make(chan struct{}),
	}

	go r.emulationLoop()

	return r
}

// Close cleans up the runner's resources.
func (r *Runner) Close() {
	if r.emuControl != nil {
		r.emuControl.Stop()
		<-r.emuDone
	}

	if r.audioPlayer != nil {
		r.audioPlayer.Close()
		r.audioPlayer = nil
	}
}

func (r *Runner) bufferLevel() int {
	if r.audioPlayer == nil {
		return -1
	}
	return r.audioPlayer.GetBufferLevel()
}

// emulationLoop runs on a dedicated goroutine with ADT. Once the stream is
// done it idles, still answering pause requests, until stopped.
func (r *Runner) emulationLoop() {
	defer close(r.emuDone)

	clock := newFrameClock()
	for r.emuControl.CheckPause() {
		if r.emulator.Done() {
			time.Sleep(frameTime)
			continue
		}

		r.emulator.RunFrame()

		if r.audioPlayer != nil {
			r.audioPlayer.QueueSamples(r.emulator.GetAudioSamples())
		}

		r.sharedLevels.Update(r.emulator.ChannelLevels(), ui.PlayState{
			Position: r.emulator.Position(),
			Done:     r.emulator.Done(),
		})

		clock.wait(r.bufferLevel())
	}
}

// Update implements ebiten.Game.
func (r *Runner) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) || inpututil.IsKeyJustPressed(ebiten.KeyQ) {
		return ebiten.Termination
	}

	_, state := r.sharedLevels.Read()
	if state.Done {
		if r.doneAt.IsZero() {
			r.doneAt = time.Now()
		}
		if r.audioPlayer == nil || r.audioPlayer.Drained() || time.Since(r.doneAt) > drainTimeout {
			return ebiten.Termination
		}
		return nil
	}

	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		paused := r.emuControl.TogglePause()
		if r.audioPlayer != nil {
			if paused {
				r.audioPlayer.Pause()
			} else {
				r.audioPlayer.Resume()
			}
		}
	}
	return nil
}

// Draw implements ebiten.Game.
func (r *Runner) Draw(screen *ebiten.Image) {
	levels, state := r.sharedLevels.Read()
	r.meters.Draw(screen, levels, emubridge.Info{
		Title:    r.title,
		Position: state.Position,
		Length:   r.length,
		Paused:   r.emuControl.IsPaused(),
		Done:     state.Done,
	})
}

// Layout implements ebiten.Game.
func (r *Runner) Layout(outsideWidth, outsideHeight int) (int, int) {
	return r.meters.Layout(outsideWidth, outsideHeight)
}
