package adapter

import (
	emucore "github.com/user-none/eblitui/api"
	"github.com/user-none/emopl/emu"
)

// Compile-time interface check.
var _ emucore.CoreFactory = (*Factory)(nil)

// Factory implements emucore.CoreFactory for the VGM player. The "ROM" is
// the VGM or VGZ file.
type Factory struct{}

// SystemInfo returns system metadata for UI configuration.
func (f *Factory) SystemInfo() emucore.SystemInfo {
	return emucore.SystemInfo{
		Name:            emu.Name,
		ConsoleName:     "Yamaha OPL3",
		Extensions:      []string{".vgm", ".vgz"},
		ScreenWidth:     ScreenWidth,
		MaxScreenHeight: ScreenHeight,
		AspectRatio:     float64(ScreenWidth) / float64(ScreenHeight),
		SampleRate:      emu.SampleRate,
		Buttons: []emucore.Button{
			{Name: "Restart", ID: buttonRestart, DefaultKey: "Enter", DefaultPad: "Start"},
			{Name: "Pause", ID: buttonPause, DefaultKey: "Space", DefaultPad: "A"},
		},
		Players: 1,
		CoreOptions: []emucore.CoreOption{
			{
				Key:         optionFullPan,
				Label:       "Centre Channels",
				Description: "Play every channel centred instead of hard left/right panning",
				Type:        emucore.CoreOptionBool,
				Default:     "false",
			},
			{
				Key:         optionLoop,
				Label:       "Loop Forever",
				Description: "Repeat the loop section until stopped",
				Type:        emucore.CoreOptionBool,
				Default:     "true",
			},
		},
		DataDirName: emu.Name,
		CoreName:    emu.Name,
		CoreVersion: emu.Version,
	}
}

// CreateEmulator parses the VGM data and prepares it for playback. The
// region is kept for the frontend only; VGM timing is sample based.
func (f *Factory) CreateEmulator(rom []byte, region emucore.Region) (emucore.Emulator, error) {
	v, err := emu.ParseVGMData(rom)
	if err != nil {
		return nil, err
	}
	return NewPlayer(v, region)
}

// DetectRegion always reports NTSC. The bool return is false since no
// database lookup is involved.
func (f *Factory) DetectRegion(rom []byte) (emucore.Region, bool) {
	return emucore.RegionNTSC, false
}
