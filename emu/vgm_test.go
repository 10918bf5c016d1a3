package emu

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"strings"
	"testing"
)

// buildVGM assembles a VGM file with the given header fields and command
// bytes. Version 1.50+ files get a 0x100-byte header addressed through the
// data offset; older versions start commands at 0x40.
func buildVGM(version uint32, hdr map[int]uint32, cmds []byte) []byte {
	headerLen := 0x40
	if version >= 0x150 {
		headerLen = 0x100
	}
	data := make([]byte, headerLen)
	copy(data, "Vgm ")
	binary.LittleEndian.PutUint32(data[0x08:], version)
	if version >= 0x150 {
		binary.LittleEndian.PutUint32(data[0x34:], uint32(headerLen-0x34))
	}
	for off, v := range hdr {
		binary.LittleEndian.PutUint32(data[off:], v)
	}
	data = append(data, cmds...)
	binary.LittleEndian.PutUint32(data[0x04:], uint32(len(data)-4))
	return data
}

// loopAt returns the loop offset field value for a loop point at command
// byte pos of a 0x100-byte header file.
func loopAt(pos int) uint32 {
	return uint32(0x100 + pos - vgmOffLoopOffset)
}

const testOPL3Clock = 14318180

func TestParseVGMData_Errors(t *testing.T) {
	ymf := map[int]uint32{vgmOffYMF262Clock: testOPL3Clock}

	badOffset := buildVGM(0x151, ymf, []byte{0x66})
	binary.LittleEndian.PutUint32(badOffset[0x34:], 0x1000)

	badMagic := buildVGM(0x151, ymf, []byte{0x66})
	copy(badMagic, "Xgm ")

	tests := []struct {
		name string
		data []byte
		want error
		text string
	}{
		{"empty", nil, ErrVGMTooShort, ""},
		{"short header", []byte("Vgm \x00\x00"), ErrVGMTooShort, ""},
		{"bad magic", badMagic, ErrVGMBadMagic, ""},
		{"no chip", buildVGM(0x151, nil, []byte{0x66}), ErrVGMNoChip, ""},
		{"data offset", badOffset, ErrVGMDataOffset, ""},
		{"truncated write", buildVGM(0x151, ymf, []byte{0x5E, 0xA0}), nil, "truncated YMF262 write"},
		{"truncated wait", buildVGM(0x151, ymf, []byte{0x61, 0x10}), nil, "truncated wait"},
		{"bad data block", buildVGM(0x151, ymf, []byte{0x67, 0x00, 0x00, 0, 0, 0, 0}), nil, "invalid data block"},
	}
	for _, tt := range tests {
		_, err := ParseVGMData(tt.data)
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if tt.want != nil && !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
		if tt.text != "" && !strings.Contains(err.Error(), tt.text) {
			t.Errorf("%s: err = %q, want it to mention %q", tt.name, err, tt.text)
		}
	}
}

func TestParseVGMData_YMF262(t *testing.T) {
	cmds := []byte{
		0x5F, 0x05, 0x01, // Bank 1 NEW=1
		0x61, 0x10, 0x00, // Wait 16
		0x5E, 0xA0, 0x41,
		0x62,             // Wait 735
		0x5E, 0xB0, 0x32, // Key on
		0x5A, 0x20, 0x01, // YM3812 write, not in this stream
		0x70, // Wait 1
		0x66,
		0x5E, 0x40, 0x3F, // After end of data
	}
	v, err := ParseVGMData(buildVGM(0x151, map[int]uint32{vgmOffYMF262Clock: testOPL3Clock}, cmds))
	if err != nil {
		t.Fatalf("ParseVGMData: %v", err)
	}

	if v.OPLType != OPLYMF262 || v.OPLClock != testOPL3Clock || v.DualOPL {
		t.Errorf("chip = %d clock %d dual %v", v.OPLType, v.OPLClock, v.DualOPL)
	}
	want := []VGMEvent{
		{Sample: 0, Chip: ChipOPL, Bank: 1, Reg: 0x05, Value: 0x01},
		{Sample: 16, Chip: ChipOPL, Bank: 0, Reg: 0xA0, Value: 0x41},
		{Sample: 751, Chip: ChipOPL, Bank: 0, Reg: 0xB0, Value: 0x32},
	}
	if len(v.Events) != len(want) {
		t.Fatalf("got %d events, want %d: %+v", len(v.Events), len(want), v.Events)
	}
	for i := range want {
		if v.Events[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, v.Events[i], want[i])
		}
	}
	if v.TotalSamples != 752 {
		t.Errorf("TotalSamples = %d, want 752", v.TotalSamples)
	}
	if v.LoopIndex != -1 {
		t.Errorf("LoopIndex = %d, want -1", v.LoopIndex)
	}
}

func TestParseVGMData_DualYMF262(t *testing.T) {
	cmds := []byte{0xAE, 0x20, 0x01, 0xAF, 0x05, 0x01, 0x5E, 0x20, 0x02, 0x66}
	v, err := ParseVGMData(buildVGM(0x151, map[int]uint32{vgmOffYMF262Clock: testOPL3Clock | vgmDualChipBit}, cmds))
	if err != nil {
		t.Fatalf("ParseVGMData: %v", err)
	}
	if !v.DualOPL || v.OPLClock != testOPL3Clock {
		t.Errorf("dual = %v clock = %d", v.DualOPL, v.OPLClock)
	}
	want := []VGMEvent{
		{Chip: ChipOPL2, Bank: 0, Reg: 0x20, Value: 0x01},
		{Chip: ChipOPL2, Bank: 1, Reg: 0x05, Value: 0x01},
		{Chip: ChipOPL, Bank: 0, Reg: 0x20, Value: 0x02},
	}
	for i := range want {
		if v.Events[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, v.Events[i], want[i])
		}
	}
}

func TestParseVGMData_YM3812(t *testing.T) {
	cmds := []byte{0x5A, 0x20, 0x01, 0xAA, 0x40, 0x10, 0x5E, 0x60, 0xF0, 0x66}
	v, err := ParseVGMData(buildVGM(0x151, map[int]uint32{vgmOffYM3812Clock: 3579545 | vgmDualChipBit}, cmds))
	if err != nil {
		t.Fatalf("ParseVGMData: %v", err)
	}
	if v.OPLType != OPLYM3812 || !v.DualOPL {
		t.Errorf("chip = %d dual = %v", v.OPLType, v.DualOPL)
	}
	want := []VGMEvent{
		{Chip: ChipOPL, Reg: 0x20, Value: 0x01},
		{Chip: ChipOPL2, Reg: 0x40, Value: 0x10},
	}
	if len(v.Events) != len(want) {
		t.Fatalf("got %d events, want %d", len(v.Events), len(want))
	}
	for i := range want {
		if v.Events[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, v.Events[i], want[i])
		}
	}
}

func TestParseVGMData_SN76489(t *testing.T) {
	hdr := map[int]uint32{vgmOffSNClock: 3579545}
	data := buildVGM(0x110, hdr, []byte{0x50, 0x9F, 0x63, 0x50, 0x80, 0x66})
	data[vgmOffSNShiftWidth] = 15

	v, err := ParseVGMData(data)
	if err != nil {
		t.Fatalf("ParseVGMData: %v", err)
	}
	if v.SNClock != 3579545 || v.SNShiftWidth != 15 {
		t.Errorf("SN clock = %d shift = %d", v.SNClock, v.SNShiftWidth)
	}
	if v.OPLType != OPLNone {
		t.Errorf("OPL type = %d, want none", v.OPLType)
	}
	want := []VGMEvent{
		{Sample: 0, Chip: ChipPSG, Value: 0x9F},
		{Sample: 882, Chip: ChipPSG, Value: 0x80},
	}
	for i := range want {
		if v.Events[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, v.Events[i], want[i])
		}
	}

	// Pre-1.10 streams have no shift width field.
	data = buildVGM(0x101, hdr, []byte{0x66})
	data[vgmOffSNShiftWidth] = 15
	v, err = ParseVGMData(data)
	if err != nil {
		t.Fatalf("v1.01: %v", err)
	}
	if v.SNShiftWidth != 16 {
		t.Errorf("v1.01: shift = %d, want 16", v.SNShiftWidth)
	}
}

func TestParseVGMData_OldVersionIgnoresOPLClock(t *testing.T) {
	// 1.50 has no OPL clocks and only an SN clock makes it playable.
	hdr := map[int]uint32{vgmOffYMF262Clock: testOPL3Clock}
	if _, err := ParseVGMData(buildVGM(0x150, hdr, []byte{0x66})); !errors.Is(err, ErrVGMNoChip) {
		t.Errorf("err = %v, want ErrVGMNoChip", err)
	}
}

func TestParseVGMData_SkipsOtherChips(t *testing.T) {
	cmds := []byte{
		0x52, 0x28, 0xF0, // YM2612
		0x4F, 0xFF, // GG stereo
		0x67, 0x66, 0x00, 0x03, 0x00, 0x00, 0x00, 0xAA, 0xBB, 0xCC, // Data block
		0xE0, 0x00, 0x00, 0x00, 0x00, // PCM seek
		0xC0, 0x00, 0x00, 0x00, // Sega PCM
		0x93, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, // DAC stream start
		0x85,             // YM2612 DAC + wait 5
		0x5E, 0x20, 0x01, // The only event
		0x66,
	}
	v, err := ParseVGMData(buildVGM(0x151, map[int]uint32{vgmOffYMF262Clock: testOPL3Clock}, cmds))
	if err != nil {
		t.Fatalf("ParseVGMData: %v", err)
	}
	if len(v.Events) != 1 {
		t.Fatalf("got %d events, want 1: %+v", len(v.Events), v.Events)
	}
	if ev := v.Events[0]; ev.Sample != 5 || ev.Reg != 0x20 {
		t.Errorf("event = %+v, want reg 0x20 at sample 5", ev)
	}
}

func TestParseVGMData_Loop(t *testing.T) {
	cmds := []byte{
		0x5E, 0x20, 0x01,
		0x62,
		0x5E, 0x20, 0x02, // Loop point, offset 4
		0x62,
		0x66,
	}
	hdr := map[int]uint32{
		vgmOffYMF262Clock:  testOPL3Clock,
		vgmOffTotalSamples: 1470,
		vgmOffLoopOffset:   loopAt(4),
		vgmOffLoopSamples:  735,
	}
	v, err := ParseVGMData(buildVGM(0x151, hdr, cmds))
	if err != nil {
		t.Fatalf("ParseVGMData: %v", err)
	}
	if v.LoopIndex != 1 || v.LoopSample != 735 {
		t.Errorf("loop = index %d sample %d, want 1/735", v.LoopIndex, v.LoopSample)
	}
	if v.TotalSamples != 1470 {
		t.Errorf("TotalSamples = %d, want 1470", v.TotalSamples)
	}
	if d := v.Duration(); d != 1470.0/44100 {
		t.Errorf("Duration = %v", d)
	}
}

func TestParseVGMData_Gzip(t *testing.T) {
	raw := buildVGM(0x151, map[int]uint32{vgmOffYMF262Clock: testOPL3Clock}, []byte{0x5E, 0x20, 0x01, 0x66})

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write(raw)
	zw.Close()

	v, err := ParseVGMData(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseVGMData(vgz): %v", err)
	}
	if len(v.Events) != 1 || v.Events[0].Reg != 0x20 {
		t.Errorf("events = %+v", v.Events)
	}

	// A gzip magic with a broken body is an error, not a raw parse.
	if _, err := ParseVGMData([]byte{0x1F, 0x8B, 0x00}); err == nil {
		t.Error("expected error for broken gzip data")
	}
}
