//go:build !libretro && !ios

package main

import (
	"flag"
	"log"
	"strconv"

	"github.com/user-none/eblitui/standalone"
	"github.com/user-none/emopl/adapter"
)

func main() {
	vgmPath := flag.String("vgm", "", "path to VGM or VGZ file (opens UI if not provided)")
	fullPan := flag.Bool("fullpan", false, "centre every channel instead of hard left/right panning")
	loop := flag.Bool("loop", true, "repeat the loop section until stopped")
	flag.Parse()

	factory := &adapter.Factory{}

	if *vgmPath != "" {
		options := map[string]string{
			"full_pan": strconv.FormatBool(*fullPan),
			"loop":     strconv.FormatBool(*loop),
		}
		if err := standalone.RunDirect(factory, *vgmPath, "auto", options); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := standalone.Run(factory); err != nil {
		log.Fatal(err)
	}
}
