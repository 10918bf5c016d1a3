package cli

import (
	"fmt"
	"io"
	"log"
	"time"

	"atomicgo.dev/keyboard"
	"atomicgo.dev/keyboard/keys"
	"github.com/fatih/color"
	"github.com/user-none/emopl/emu"
	"github.com/user-none/emopl/ui"
)

var (
	cyan   = color.New(color.FgCyan).SprintfFunc()
	yellow = color.New(color.FgYellow).SprintfFunc()
	green  = color.New(color.FgGreen).SprintfFunc()
)

const (
	escape     = "\x1b["
	hideCursor = escape + "?25l"
	showCursor = escape + "?25h"
	clearLine  = "\r" + escape + "2K"
)

// statusEvery is how often the status line is redrawn, in frames.
const statusEvery = emu.FPS / 4

type keyCommand int

const (
	cmdPause keyCommand = iota
	cmdQuit
)

// keyToCommand maps a terminal key press to a playback command.
func keyToCommand(key keys.Key) (keyCommand, bool) {
	switch key.Code {
	case keys.CtrlC, keys.Escape:
		return cmdQuit, true
	case keys.Space:
		return cmdPause, true
	case keys.RuneKey:
		if len(key.Runes) == 0 {
			return 0, false
		}
		switch key.Runes[0] {
		case 'q':
			return cmdQuit, true
		case ' ', 'p':
			return cmdPause, true
		}
	}
	return 0, false
}

// statusLine formats the terminal status for the current position.
func statusLine(title string, position, length uint64, paused bool) string {
	pos := ui.FormatPosition(position)
	if length > 0 {
		pos += " / " + ui.FormatPosition(length)
	}
	state := green("playing")
	if paused {
		state = yellow("paused")
	}
	return fmt.Sprintf("%s%s  %s  [%s]", clearLine, cyan("%s", title), pos, state)
}

// RunHeadless plays e through the audio device with a terminal status line
// written to out. Space pauses, q or Esc quits. Returns when the stream
// ends and its audio has drained, or on quit.
func RunHeadless(e *emu.Emulator, title string, volume float64, out io.Writer) error {
	player, err := ui.NewAudioPlayer(volume)
	if err != nil {
		return err
	}
	defer player.Close()

	cmds := make(chan keyCommand, 4)
	listenDone := make(chan struct{})
	go func() {
		defer close(listenDone)
		err := keyboard.Listen(func(key keys.Key) (stop bool, err error) {
			cmd, ok := keyToCommand(key)
			if !ok {
				return false, nil
			}
			select {
			case cmds <- cmd:
			default:
			}
			return cmd == cmdQuit, nil
		})
		if err != nil {
			log.Printf("Warning: keyboard controls unavailable: %v", err)
		}
	}()
	defer stopListener(listenDone)

	fmt.Fprint(out, hideCursor)
	defer fmt.Fprint(out, showCursor+"\n")

	length := e.Stream().TotalSamples
	paused := false
	clock := newFrameClock()
	var doneAt time.Time

	for frame := 0; ; frame++ {
		select {
		case cmd := <-cmds:
			if cmd == cmdQuit {
				return nil
			}
			paused = !paused
			if paused {
				player.Pause()
			} else {
				player.Resume()
			}
			fmt.Fprint(out, statusLine(title, e.Position(), length, paused))
		default:
		}

		if paused {
			time.Sleep(frameTime)
			continue
		}

		if e.Done() {
			if doneAt.IsZero() {
				doneAt = time.Now()
			}
			if player.Drained() || time.Since(doneAt) > drainTimeout {
				return nil
			}
			time.Sleep(frameTime)
			continue
		}

		e.RunFrame()
		player.QueueSamples(e.GetAudioSamples())

		if frame%statusEvery == 0 {
			fmt.Fprint(out, statusLine(title, e.Position(), length, false))
		}
		clock.wait(player.GetBufferLevel())
	}
}

// stopListener ends a keyboard listener that is still running so the
// terminal leaves raw mode.
func stopListener(listenDone chan struct{}) {
	select {
	case <-listenDone:
		return
	default:
	}
	go keyboard.SimulateKeyPress(keys.Escape)
	select {
	case <-listenDone:
	case <-time.After(time.Second):
	}
}
