package emu

import "testing"

func psgStream(t *testing.T, hdr map[int]uint32, cmds []byte) *Emulator {
	t.Helper()
	v, err := ParseVGMData(buildVGM(0x151, hdr, append(cmds, 0x62, 0x66)))
	if err != nil {
		t.Fatalf("ParseVGMData: %v", err)
	}
	return newTestEmulator(t, v, Options{})
}

func TestPSG_StreamWrite(t *testing.T) {
	// Latch channel 0, volume = 5: 1 00 1 0101 = 0x95
	e := psgStream(t, map[int]uint32{vgmOffSNClock: 3579545}, []byte{0x50, 0x95})
	if e.psg.GetVolume(0) != 15 {
		t.Fatalf("volume[0] = %d before any frame, want 15", e.psg.GetVolume(0))
	}
	e.RunFrame()
	if e.psg.GetVolume(0) != 5 {
		t.Errorf("expected PSG volume[0]=5 after stream write, got %d", e.psg.GetVolume(0))
	}
}

// PSG and OPL3 writes in one stream reach their own chips.
func TestPSG_AlongsideOPL3(t *testing.T) {
	hdr := map[int]uint32{
		vgmOffSNClock:     3579545,
		vgmOffYMF262Clock: testOPL3Clock,
	}
	// Latch channel 1, volume = 3: 1 01 1 0011 = 0xB3
	cmds := append([]byte{0x50, 0xB3}, voiceCommands(0x5E)...)
	e := psgStream(t, hdr, cmds)
	e.RunFrame()

	if e.psg.GetVolume(1) != 3 {
		t.Errorf("expected PSG volume[1]=3, got %d", e.psg.GetVolume(1))
	}
	if e.Chips()[0].ChannelLevels()[0] <= 0 {
		t.Error("OPL3 channel 0 idle")
	}
}

// The PSG is reset with the rest of the emulator.
func TestPSG_Reset(t *testing.T) {
	e := psgStream(t, map[int]uint32{vgmOffSNClock: 3579545}, []byte{0x50, 0x95})
	e.RunFrame()
	e.Reset()
	if e.psg.GetVolume(0) != 15 {
		t.Errorf("volume[0] = %d after reset, want 15", e.psg.GetVolume(0))
	}
}
