package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/hajimehoshi/ebiten/v2"
	emubridge "github.com/user-none/emopl/bridge/ebiten"
	"github.com/user-none/emopl/cli"
	"github.com/user-none/emopl/emu"
)

func main() {
	vgmPath := flag.String("vgm", "", "path to VGM or VGZ file (required)")
	wavPath := flag.String("wav", "", "render to this WAV file instead of playing")
	seconds := flag.Float64("seconds", 0, "stop after this many seconds (0 = end of stream)")
	loops := flag.Int("loops", 1, "times to repeat the loop section (-1 = forever)")
	fullPan := flag.Bool("fullpan", false, "centre every channel instead of hard left/right panning")
	headless := flag.Bool("headless", false, "play in the terminal without a window")
	volume := flag.Float64("volume", 1.0, "playback volume, 0.0 to 1.0")
	flag.Parse()

	if *vgmPath == "" {
		log.Fatal("VGM path is required. Usage: emopl -vgm <path>")
	}
	if *seconds < 0 {
		log.Fatalf("Invalid length: %v seconds", *seconds)
	}
	if *volume < 0 || *volume > 1 {
		log.Fatalf("Invalid volume: %v (use 0.0 to 1.0)", *volume)
	}

	v, err := emu.ParseVGMFile(*vgmPath)
	if err != nil {
		log.Fatalf("Failed to load VGM: %v", err)
	}

	opts := emu.Options{
		FullPan:    *fullPan,
		Loops:      *loops,
		MaxSamples: uint64(*seconds * emu.VGMSampleRate),
	}
	e, err := emu.NewEmulator(v, opts)
	if err != nil {
		log.Fatalf("Failed to initialize emulator: %v", err)
	}

	title := filepath.Base(*vgmPath)

	if *wavPath != "" {
		n, err := cli.RenderWAV(e, *wavPath, *seconds)
		if err != nil {
			log.Fatalf("Failed to render: %v", err)
		}
		log.Printf("Wrote %s (%.1fs)", *wavPath, float64(n)/emu.SampleRate)
		return
	}

	if *headless {
		if err := cli.RunHeadless(e, title, *volume, os.Stdout); err != nil {
			log.Fatalf("Playback failed: %v", err)
		}
		return
	}

	ebiten.SetWindowSize(emubridge.ScreenWidth*2, emubridge.ScreenHeight*2)
	ebiten.SetWindowTitle("emopl - " + title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(emu.FPS)

	runner := cli.NewRunner(e, title, *volume)
	defer runner.Close()

	if err := ebiten.RunGame(runner); err != nil {
		log.Fatal(err)
	}
}
