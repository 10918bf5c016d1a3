package emu

import "math"

// NativeSampleRate is the OPL3 output rate: 14.31818 MHz master clock / 288.
// Envelope times, tremolo period and timer ticks are all derived from it.
const NativeSampleRate = 49716

const (
	waveLength = 1024

	// Per-channel gain applied to register-driven panning.
	volumeMul = 0.3333
	// Equal-power centre gain used as the starting pan in full-pan mode.
	centerPanningPower = 0.70710678118

	// dB-to-linear lookup: 0.25 dB steps down to the -96 dB silence floor.
	minDB        = -96.0
	dbTableRes   = 4.0
	dbTableSize  = int(-minDB * dbTableRes)
	envelopeMin  = -96.0
	envelopeRes  = 0.1875
	attackMin    = -5.0
	attackMax    = 8.0
	attackRes    = 0.03125
	attackLength = int((attackMax - attackMin) / attackRes)

	vibratoTableLength = 8192
	tremoloFrequency   = 3.7
	// NativeSampleRate / tremoloFrequency, truncated.
	tremoloTableLength = 13436
)

// multTable maps the 4-bit MULT field to a frequency multiplier.
// Values 11, 13 and 15 repeat their neighbours as on the real chip.
var multTable = [16]float64{0.5, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 10, 12, 12, 15, 15}

// feedbackTable maps the 3-bit FB field to a modulation depth in fractions
// of a full waveform cycle: 0, pi/16, pi/8, pi/4, pi/2, pi, 2pi, 4pi.
var feedbackTable = [8]float64{0, 1.0 / 32, 1.0 / 16, 1.0 / 8, 1.0 / 4, 1.0 / 2, 1, 2}

// ksl3dBTable is the 3 dB/octave key scale attenuation indexed by
// [top 4 bits of F-number][block].
var ksl3dBTable = [16][8]float64{
	{0, 0, 0, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 0, -3, -6, -9},
	{0, 0, 0, 0, -3, -6, -9, -12},
	{0, 0, 0, -1.875, -4.875, -7.875, -10.875, -13.875},

	{0, 0, 0, -3, -6, -9, -12, -15},
	{0, 0, -1.125, -4.125, -7.125, -10.125, -13.125, -16.125},
	{0, 0, -1.875, -4.875, -7.875, -10.875, -13.875, -16.875},
	{0, 0, -2.625, -5.625, -8.625, -11.625, -14.625, -17.625},

	{0, 0, -3, -6, -9, -12, -15, -18},
	{0, -0.750, -3.750, -6.750, -9.750, -12.750, -15.750, -18.750},
	{0, -1.125, -4.125, -7.125, -10.125, -13.125, -16.125, -19.125},
	{0, -1.500, -4.500, -7.500, -10.500, -13.500, -16.500, -19.500},

	{0, -1.875, -4.875, -7.875, -10.875, -13.875, -16.875, -19.875},
	{0, -2.250, -5.250, -8.250, -11.250, -14.250, -17.250, -20.250},
	{0, -2.625, -5.625, -8.625, -11.625, -14.625, -17.625, -20.625},
	{0, -3, -6, -9, -12, -15, -18, -21},
}

// rateOffset is indexed by [KSR][key scale number].
var rateOffset = [2][16]int{
	{0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3},
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
}

// mugen marks an envelope rate that never progresses.
var mugen = math.Inf(1)

// attackTimes holds the attack period in milliseconds for each actual rate,
// as {0%-100%, 10%-90%}. From the YMF278B application manual.
var attackTimes = [64][2]float64{
	{mugen, mugen}, {mugen, mugen}, {mugen, mugen}, {mugen, mugen},
	{2826.24, 1482.75}, {2252.80, 1155.07}, {1884.16, 991.23}, {1597.44, 868.35},
	{1413.12, 741.38}, {1126.40, 577.54}, {942.08, 495.62}, {798.72, 434.18},
	{706.56, 370.69}, {563.20, 288.77}, {471.04, 247.81}, {399.36, 217.09},

	{353.28, 185.34}, {281.60, 144.38}, {235.52, 123.90}, {199.68, 108.54},
	{176.76, 92.67}, {140.80, 72.19}, {117.76, 61.95}, {99.84, 54.27},
	{88.32, 46.34}, {70.40, 36.10}, {58.88, 30.98}, {49.92, 27.14},
	{44.16, 23.17}, {35.20, 18.05}, {29.44, 15.49}, {24.96, 13.57},

	{22.08, 11.58}, {17.60, 9.02}, {14.72, 7.74}, {12.48, 6.78},
	{11.04, 5.79}, {8.80, 4.51}, {7.36, 3.87}, {6.24, 3.39},
	{5.52, 2.90}, {4.40, 2.26}, {3.68, 1.94}, {3.12, 1.70},
	{2.76, 1.45}, {2.20, 1.13}, {1.84, 0.97}, {1.56, 0.85},

	{1.40, 0.73}, {1.12, 0.61}, {0.92, 0.49}, {0.80, 0.43},
	{0.70, 0.37}, {0.56, 0.31}, {0.46, 0.26}, {0.42, 0.22},
	{0.38, 0.19}, {0.30, 0.14}, {0.24, 0.11}, {0.20, 0.11},
	{0.00, 0.00}, {0.00, 0.00}, {0.00, 0.00}, {0.00, 0.00},
}

// decayReleaseTimes holds the decay/release period in milliseconds for each
// actual rate, as {0%-100%, 10%-90%}. From the YMF278B application manual.
var decayReleaseTimes = [64][2]float64{
	{mugen, mugen}, {mugen, mugen}, {mugen, mugen}, {mugen, mugen},
	{39280.64, 8212.48}, {31416.32, 6574.08}, {26173.44, 5509.12}, {22446.08, 4730.88},
	{19640.32, 4106.24}, {15708.16, 3287.04}, {13086.72, 2754.56}, {11223.04, 2365.44},
	{9820.16, 2053.12}, {7854.08, 1643.52}, {6543.36, 1377.28}, {5611.52, 1182.72},

	{4910.08, 1026.56}, {3927.04, 821.76}, {3271.68, 688.64}, {2805.76, 591.36},
	{2455.04, 513.28}, {1936.52, 410.88}, {1635.84, 344.34}, {1402.88, 295.68},
	{1227.52, 256.64}, {981.76, 205.44}, {817.92, 172.16}, {701.44, 147.84},
	{613.76, 128.32}, {490.88, 102.72}, {488.96, 86.08}, {350.72, 73.92},

	{306.88, 64.16}, {245.44, 51.36}, {204.48, 43.04}, {175.36, 36.96},
	{153.44, 32.08}, {122.72, 25.68}, {102.24, 21.52}, {87.68, 18.48},
	{76.72, 16.04}, {61.36, 12.84}, {51.12, 10.76}, {43.84, 9.24},
	{38.36, 8.02}, {30.68, 6.42}, {25.56, 5.38}, {21.92, 4.62},

	{19.20, 4.02}, {15.36, 3.22}, {12.80, 2.68}, {10.96, 2.32},
	{9.60, 2.02}, {7.68, 1.62}, {6.40, 1.35}, {5.48, 1.15},
	{4.80, 1.01}, {3.84, 0.81}, {3.20, 0.69}, {2.74, 0.58},
	{2.40, 0.51}, {2.40, 0.51}, {2.40, 0.51}, {2.40, 0.51},
}

// waveforms holds the eight OPL3 waveforms, one full cycle each.
// OPL2 compatibility mode only exposes the first four.
var waveforms [8][waveLength]float64

// dbPowTable converts attenuation in 0.25 dB steps to linear amplitude.
var dbPowTable [dbTableSize]float64

// attackTable is -2^x sampled over [attackMin, attackMax).
var attackTable [attackLength]float64

// vibratoTable holds frequency multipliers for DVB=0 (7 cent) and DVB=1
// (14 cent) depth. Eight 1024-sample steps give ~6.07 Hz.
var vibratoTable [2][vibratoTableLength]float64

// tremoloTable holds the tremolo attenuation in dB for DAM=0 (-1 dB) and
// DAM=1 (-4.8 dB). A single triangle starting at full depth.
var tremoloTable [2][tremoloTableLength]float64

func init() {
	loadWaveforms()
	loadDBPowTable()
	loadAttackTable()
	loadVibratoTable()
	loadTremoloTable()
}

func loadWaveforms() {
	theta, thetaInc := 0.0, 2*math.Pi/waveLength
	for i := 0; i < waveLength; i++ {
		waveforms[0][i] = math.Sin(theta)
		theta += thetaInc
	}
	sine := &waveforms[0]

	// Half sine
	for i := 0; i < 512; i++ {
		waveforms[1][i] = sine[i]
		waveforms[1][512+i] = 0
	}
	// Absolute sine
	for i := 0; i < 512; i++ {
		waveforms[2][i] = sine[i]
		waveforms[2][512+i] = sine[i]
	}
	// Pulse sine: first and third quarters
	for i := 0; i < 256; i++ {
		waveforms[3][i] = sine[i]
		waveforms[3][512+i] = sine[i]
		waveforms[3][256+i] = 0
		waveforms[3][768+i] = 0
	}
	// Double-frequency sine, first half only
	for i := 0; i < 512; i++ {
		waveforms[4][i] = sine[i*2]
		waveforms[4][512+i] = 0
	}
	// Double-frequency absolute sine, first half only
	for i := 0; i < 256; i++ {
		waveforms[5][i] = sine[i*2]
		waveforms[5][256+i] = sine[i*2]
		waveforms[5][512+i] = 0
		waveforms[5][768+i] = 0
	}
	// Square
	for i := 0; i < 512; i++ {
		waveforms[6][i] = 1
		waveforms[6][512+i] = -1
	}
	// Derived square (exponential)
	x, xInc := 0.0, 16.0/256.0
	for i := 0; i < 512; i++ {
		waveforms[7][i] = math.Pow(2, -x)
		waveforms[7][1023-i] = -math.Pow(2, -(x + 1.0/16.0))
		x += xInc
	}
}

func loadDBPowTable() {
	for i := range dbPowTable {
		dbPowTable[i] = math.Pow(10, -(float64(i)/dbTableRes)/10)
	}
}

func loadAttackTable() {
	for i := range attackTable {
		attackTable[i] = -math.Pow(2, attackMin+float64(i)*attackRes)
	}
}

func loadVibratoTable() {
	semitone := math.Pow(2, 1.0/12.0)
	cent := math.Pow(semitone, 1.0/100.0)
	depth := [2]float64{math.Pow(cent, 7), math.Pow(cent, 14)}

	for d := 0; d < 2; d++ {
		steps := [8]float64{
			1,
			math.Sqrt(depth[d]),
			depth[d],
			math.Sqrt(depth[d]),
			1,
			1 / math.Sqrt(depth[d]),
			1 / depth[d],
			1 / math.Sqrt(depth[d]),
		}
		for i := 0; i < vibratoTableLength; i++ {
			vibratoTable[d][i] = steps[i>>10]
		}
	}
}

func loadTremoloTable() {
	tremoloDepth := [2]float64{-1, -4.8}
	// Triangle: depth -> 0 dB -> depth over one period, so each half
	// runs at twice the tremolo frequency.
	inc := [2]float64{
		calculateIncrement(tremoloDepth[0], 0, 1/(2*tremoloFrequency)),
		calculateIncrement(tremoloDepth[1], 0, 1/(2*tremoloFrequency)),
	}

	// Starts at maximum attenuation rather than 0 dB.
	tremoloTable[0][0] = tremoloDepth[0]
	tremoloTable[1][0] = tremoloDepth[1]
	n := 0
	for tremoloTable[0][n] < 0 {
		n++
		tremoloTable[0][n] = tremoloTable[0][n-1] + inc[0]
		tremoloTable[1][n] = tremoloTable[1][n-1] + inc[1]
	}
	for tremoloTable[0][n] > tremoloDepth[0] && n < tremoloTableLength-1 {
		n++
		tremoloTable[0][n] = tremoloTable[0][n-1] - inc[0]
		tremoloTable[1][n] = tremoloTable[1][n-1] - inc[1]
	}
}

// calculateIncrement returns the per-sample step that moves from begin to
// end in period seconds at the native rate.
func calculateIncrement(begin, end, period float64) float64 {
	return (end - begin) / NativeSampleRate * (1 / period)
}

// envelopeFromDB converts an attenuation in dB (<= 0) to linear amplitude.
func envelopeFromDB(db float64) float64 {
	if db <= minDB {
		return 0
	}
	idx := int(math.Floor(-db * dbTableRes))
	if idx < 0 {
		idx = 0
	}
	return dbPowTable[idx]
}

// stripIntPart removes the nearest integer from num, keeping the
// fractional phase offset in [-0.5, 0.5].
func stripIntPart(num float64) float64 {
	return num - math.RoundToEven(num)
}
