package emu

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// VGMSampleRate is the fixed timeline rate of VGM wait commands.
const VGMSampleRate = 44100

// Chips addressed by VGMEvent.Chip
const (
	ChipOPL  = 0 // First OPL2/OPL3
	ChipOPL2 = 1 // Second OPL2/OPL3 of a dual-chip stream
	ChipPSG  = 2 // SN76489
)

// OPL variants a stream can target
const (
	OPLNone = iota
	OPLYM3812
	OPLYMF262
)

// VGM header offsets
const (
	vgmOffSNClock      = 0x0C
	vgmOffTotalSamples = 0x18
	vgmOffLoopOffset   = 0x1C
	vgmOffLoopSamples  = 0x20
	vgmOffSNShiftWidth = 0x2A
	vgmOffDataOffset   = 0x34
	vgmOffYM3812Clock  = 0x50
	vgmOffYMF262Clock  = 0x5C

	vgmMinHeader   = 0x40
	vgmDualChipBit = 1 << 30
	vgmClockMask   = 0x3FFFFFFF
)

var (
	ErrVGMTooShort   = errors.New("vgm too short")
	ErrVGMBadMagic   = errors.New("invalid vgm header")
	ErrVGMNoChip     = errors.New("vgm has no OPL2, OPL3 or SN76489 clock")
	ErrVGMDataOffset = errors.New("vgm data offset out of range")
)

// VGMEvent is one register write on the 44100 Hz VGM timeline.
type VGMEvent struct {
	Sample uint64
	Chip   uint8
	Bank   uint8 // OPL3 register bank (port)
	Reg    uint8
	Value  uint8
}

// VGMFile is a parsed VGM stream reduced to the chips this player drives.
type VGMFile struct {
	Version      uint32
	Events       []VGMEvent
	TotalSamples uint64

	// LoopSample is the timeline position of the loop point and LoopIndex
	// the first event at or after it. LoopIndex is -1 for streams that do
	// not loop.
	LoopSample  uint64
	LoopSamples uint64
	LoopIndex   int

	OPLType  int
	OPLClock uint32
	DualOPL  bool

	SNClock      uint32
	SNShiftWidth uint8
}

// ParseVGMFile reads and parses a .vgm or .vgz file.
func ParseVGMFile(path string) (*VGMFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	v, err := ParseVGMData(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// ParseVGMData parses raw or gzip-compressed VGM data.
func ParseVGMData(data []byte) (*VGMFile, error) {
	if len(data) < 2 {
		return nil, ErrVGMTooShort
	}
	if data[0] == 0x1F && data[1] == 0x8B {
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("vgz: %w", err)
		}
		defer gz.Close()
		data, err = io.ReadAll(gz)
		if err != nil {
			return nil, fmt.Errorf("vgz: %w", err)
		}
	}
	if len(data) < vgmMinHeader {
		return nil, ErrVGMTooShort
	}
	if !bytes.Equal(data[0:4], []byte("Vgm ")) {
		return nil, ErrVGMBadMagic
	}

	v := &VGMFile{
		Version:      binary.LittleEndian.Uint32(data[0x08:0x0C]),
		TotalSamples: uint64(binary.LittleEndian.Uint32(data[vgmOffTotalSamples:])),
		LoopSamples:  uint64(binary.LittleEndian.Uint32(data[vgmOffLoopSamples:])),
		LoopIndex:    -1,
		SNShiftWidth: 16,
	}

	dataStart := 0x40
	if v.Version >= 0x150 {
		if off := binary.LittleEndian.Uint32(data[vgmOffDataOffset:]); off != 0 {
			dataStart = vgmOffDataOffset + int(off)
		}
	}
	if dataStart >= len(data) {
		return nil, ErrVGMDataOffset
	}

	// Header fields past the start of the command data do not exist.
	field := func(off int) uint32 {
		if off+4 > dataStart || off+4 > len(data) {
			return 0
		}
		return binary.LittleEndian.Uint32(data[off:])
	}

	snClock := field(vgmOffSNClock)
	v.SNClock = snClock & vgmClockMask
	if v.Version >= 0x110 && vgmOffSNShiftWidth < dataStart {
		if w := data[vgmOffSNShiftWidth]; w != 0 {
			v.SNShiftWidth = w
		}
	}

	if v.Version >= 0x151 {
		if clk := field(vgmOffYMF262Clock); clk&vgmClockMask != 0 {
			v.OPLType = OPLYMF262
			v.OPLClock = clk & vgmClockMask
			v.DualOPL = clk&vgmDualChipBit != 0
		} else if clk := field(vgmOffYM3812Clock); clk&vgmClockMask != 0 {
			v.OPLType = OPLYM3812
			v.OPLClock = clk & vgmClockMask
			v.DualOPL = clk&vgmDualChipBit != 0
		}
	}
	if v.OPLType == OPLNone && v.SNClock == 0 {
		return nil, ErrVGMNoChip
	}

	loopStart := 0
	if off := binary.LittleEndian.Uint32(data[vgmOffLoopOffset:]); off != 0 {
		loopStart = vgmOffLoopOffset + int(off)
	}

	if err := v.parseCommands(data, dataStart, loopStart); err != nil {
		return nil, err
	}
	return v, nil
}

// parseCommands walks the command stream from dataStart, collecting the
// writes for the chips in the header and skipping everything else.
func (v *VGMFile) parseCommands(data []byte, dataStart, loopStart int) error {
	events := make([]VGMEvent, 0, 1024)
	var samplePos uint64
	loopSeen := false

	need := func(i, n int, what string) error {
		if i+n > len(data) {
			return fmt.Errorf("vgm truncated %s at offset 0x%X", what, i)
		}
		return nil
	}
	add := func(chip, bank, reg, val uint8) {
		events = append(events, VGMEvent{Sample: samplePos, Chip: chip, Bank: bank, Reg: reg, Value: val})
	}
	ymf262 := v.OPLType == OPLYMF262
	ym3812 := v.OPLType == OPLYM3812

	for i := dataStart; i < len(data); {
		if loopStart != 0 && !loopSeen && i >= loopStart {
			loopSeen = true
			v.LoopSample = samplePos
			v.LoopIndex = len(events)
		}

		cmd := data[i]
		switch {
		case cmd == 0x66:
			i = len(data)

		case cmd == 0x50:
			if err := need(i, 2, "psg write"); err != nil {
				return err
			}
			if v.SNClock != 0 {
				add(ChipPSG, 0, 0, data[i+1])
			}
			i += 2

		case cmd == 0x5A || cmd == 0xAA:
			if err := need(i, 3, "YM3812 write"); err != nil {
				return err
			}
			if ym3812 {
				chip := uint8(ChipOPL)
				if cmd == 0xAA {
					chip = ChipOPL2
				}
				add(chip, 0, data[i+1], data[i+2])
			}
			i += 3

		case cmd == 0x5E || cmd == 0x5F || cmd == 0xAE || cmd == 0xAF:
			if err := need(i, 3, "YMF262 write"); err != nil {
				return err
			}
			if ymf262 {
				chip := uint8(ChipOPL)
				if cmd >= 0xAE {
					chip = ChipOPL2
				}
				add(chip, cmd&1, data[i+1], data[i+2])
			}
			i += 3

		case cmd == 0x61:
			if err := need(i, 3, "wait"); err != nil {
				return err
			}
			samplePos += uint64(binary.LittleEndian.Uint16(data[i+1:]))
			i += 3
		case cmd == 0x62:
			samplePos += 735
			i++
		case cmd == 0x63:
			samplePos += 882
			i++
		case cmd >= 0x70 && cmd <= 0x7F:
			samplePos += uint64(cmd&0x0F) + 1
			i++

		case cmd == 0x67:
			// Data block: 0x67 0x66 tt ss ss ss ss
			if err := need(i, 7, "data block"); err != nil {
				return err
			}
			if data[i+1] != 0x66 {
				return fmt.Errorf("vgm invalid data block at offset 0x%X", i)
			}
			i += 7 + int(binary.LittleEndian.Uint32(data[i+3:]))
		case cmd == 0x68:
			if err := need(i, 12, "PCM RAM write"); err != nil {
				return err
			}
			i += 12
		case cmd >= 0x80 && cmd <= 0x8F:
			// YM2612 DAC write + wait
			samplePos += uint64(cmd & 0x0F)
			i++
		case cmd == 0x90 || cmd == 0x91 || cmd == 0x95:
			if err := need(i, 5, "DAC stream command"); err != nil {
				return err
			}
			i += 5
		case cmd == 0x92:
			if err := need(i, 6, "DAC stream frequency"); err != nil {
				return err
			}
			i += 6
		case cmd == 0x93:
			if err := need(i, 11, "DAC stream start"); err != nil {
				return err
			}
			i += 11
		case cmd == 0x94:
			if err := need(i, 2, "DAC stream stop"); err != nil {
				return err
			}
			i += 2

		case cmd >= 0x30 && cmd <= 0x3F, cmd == 0x4F:
			if err := need(i, 2, fmt.Sprintf("command 0x%02X", cmd)); err != nil {
				return err
			}
			i += 2
		case cmd >= 0x40 && cmd <= 0x4E, cmd >= 0x51 && cmd <= 0x5F, cmd >= 0xA0 && cmd <= 0xBF:
			if err := need(i, 3, fmt.Sprintf("command 0x%02X", cmd)); err != nil {
				return err
			}
			i += 3
		case cmd >= 0xC0 && cmd <= 0xDF:
			if err := need(i, 4, fmt.Sprintf("command 0x%02X", cmd)); err != nil {
				return err
			}
			i += 4
		case cmd >= 0xE0:
			if err := need(i, 5, fmt.Sprintf("command 0x%02X", cmd)); err != nil {
				return err
			}
			i += 5

		default:
			// Unassigned single-byte commands
			i++
		}
	}

	if n := len(events); n > 0 && events[n-1].Sample >= v.TotalSamples {
		v.TotalSamples = events[n-1].Sample + 1
	}
	if samplePos > v.TotalSamples {
		v.TotalSamples = samplePos
	}
	if v.LoopIndex < 0 && v.LoopSamples > 0 && v.TotalSamples >= v.LoopSamples {
		v.LoopSample = v.TotalSamples - v.LoopSamples
		v.LoopIndex = len(events)
		for j, ev := range events {
			if ev.Sample >= v.LoopSample {
				v.LoopIndex = j
				break
			}
		}
	}

	v.Events = events
	return nil
}

// Duration returns the stream length in seconds.
func (v *VGMFile) Duration() float64 {
	return float64(v.TotalSamples) / VGMSampleRate
}
