package main

import (
	libretro "github.com/user-none/eblitui/libretro"
	"github.com/user-none/emopl/adapter"
)

func init() {
	libretro.RegisterFactory(&adapter.Factory{}, []libretro.RetropadMapping{
		{RetroID: libretro.JoypadA, BitID: 4},     // Pause
		{RetroID: libretro.JoypadStart, BitID: 7}, // Restart
	})
}

func main() {}
