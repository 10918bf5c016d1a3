package emu

import (
	"math"
	"testing"
)

func TestCalculateActualRate(t *testing.T) {
	tests := []struct {
		rate, ksr uint8
		ksn       int
		want      int
	}{
		{0, 0, 0, 0},
		{4, 0, 0, 16},
		{4, 0, 15, 19},
		{4, 1, 15, 31},
		{15, 0, 8, 62},
		{15, 1, 15, 63}, // 75 clamps
		{14, 1, 15, 63}, // 71 clamps
	}
	for _, tt := range tests {
		if got := calculateActualRate(tt.rate, tt.ksr, tt.ksn); got != tt.want {
			t.Errorf("calculateActualRate(%d, %d, %d) = %d, want %d", tt.rate, tt.ksr, tt.ksn, got, tt.want)
		}
	}
}

func TestSustainLevel(t *testing.T) {
	tests := []struct {
		sl   uint8
		want float64
	}{
		{0, 0},
		{1, -3},
		{8, -24},
		{14, -42},
		{15, -93},
	}
	for _, tt := range tests {
		var e envelopeGen
		e.setSustainLevel(tt.sl)
		if e.sustainLevel != tt.want {
			t.Errorf("sl=%d: sustainLevel = %v, want %v", tt.sl, e.sustainLevel, tt.want)
		}
	}
}

func TestTotalLevel(t *testing.T) {
	var e envelopeGen
	e.setTotalLevel(63)
	if e.totalLevel != -47.25 {
		t.Errorf("tl=63: totalLevel = %v, want -47.25", e.totalLevel)
	}
	e.setTotalLevel(1)
	if e.totalLevel != -0.75 {
		t.Errorf("tl=1: totalLevel = %v, want -0.75", e.totalLevel)
	}
}

func TestKeyScaleAttenuation(t *testing.T) {
	tests := []struct {
		ksl  uint8
		want float64
	}{
		{0, 0},
		{1, -21},
		{2, -10.5},
		{3, -42},
	}
	for _, tt := range tests {
		var e envelopeGen
		e.setAttenuation(0x3FF, 7, tt.ksl)
		if e.attenuation != tt.want {
			t.Errorf("ksl=%d: attenuation = %v, want %v", tt.ksl, e.attenuation, tt.want)
		}
	}

	var e envelopeGen
	e.setAttenuation(0x03F, 7, 1) // top 4 bits of fnum are zero
	if e.attenuation != 0 {
		t.Errorf("low fnum: attenuation = %v, want 0", e.attenuation)
	}
}

// newTestEnvelope returns an envelope with the given 4-bit rates, KSR=0
// and KSN=0.
func newTestEnvelope(ar, dr, sl, rr uint8) envelopeGen {
	e := newEnvelopeGen()
	e.setAttackRate(ar, 0, 0)
	e.setDecayRate(dr, 0, 0)
	e.setSustainLevel(sl)
	e.setReleaseRate(rr, 0, 0)
	return e
}

func TestEnvelope_InstantAttack(t *testing.T) {
	e := newTestEnvelope(15, 0, 0, 0)
	e.keyOn()
	if e.stage != envAttack {
		t.Fatalf("stage after keyOn = %d, want attack", e.stage)
	}

	out := e.next(0, false, false)
	if out != 0 {
		t.Errorf("first sample = %v dB, want 0", out)
	}
	if e.stage != envSustain {
		t.Errorf("stage = %d, want sustain (attack and decay complete in one step)", e.stage)
	}
	for _, v := range []float64{e.xAttackIncrement, e.xMinimumInAttack, e.x} {
		if math.IsNaN(v) {
			t.Fatal("instant attack produced NaN")
		}
	}
}

func TestEnvelope_AttackMonotonic(t *testing.T) {
	e := newTestEnvelope(10, 0, 0, 0) // actual rate 40: 5.52 ms
	e.keyOn()

	prev := math.Inf(-1)
	n := 0
	for e.stage == envAttack {
		out := e.next(0, false, false)
		if out < prev {
			t.Fatalf("sample %d: attack fell from %v to %v dB", n, prev, out)
		}
		prev = out
		n++
		if n > 2000 {
			t.Fatal("attack did not complete")
		}
	}
	want := int(attackTimes[40][0] / 1000 * NativeSampleRate)
	if n < want/2 || n > want*2 {
		t.Errorf("attack took %d samples, want about %d", n, want)
	}
	if e.envelope != 0 {
		t.Errorf("envelope after attack = %v, want 0", e.envelope)
	}
}

func TestEnvelope_SlowRatesNeverProgress(t *testing.T) {
	e := newTestEnvelope(0, 0, 0, 0) // actual rate 0
	e.keyOn()
	first := e.next(0, false, false)
	for i := 0; i < 1000; i++ {
		if out := e.next(0, false, false); out != first {
			t.Fatalf("sample %d: envelope moved from %v to %v at rate 0", i, first, out)
		}
	}
	if math.IsNaN(first) {
		t.Fatal("rate 0 attack produced NaN")
	}
}

func TestEnvelope_DecayToSustainAndHold(t *testing.T) {
	e := newTestEnvelope(15, 8, 4, 8) // SL=4: -12 dB, halved to -6
	e.keyOn()

	prev := 0.0
	for i := 0; e.stage != envSustain; i++ {
		out := e.next(0, true, false)
		if out > prev {
			t.Fatalf("sample %d: decay rose from %v to %v", i, prev, out)
		}
		prev = out
		if i > 100000 {
			t.Fatal("decay did not reach sustain")
		}
	}
	if e.envelope > -6+e.dBDecayIncrement || e.envelope < -6-e.dBDecayIncrement {
		t.Errorf("sustain envelope = %v, want ~-6", e.envelope)
	}

	held := e.envelope
	for i := 0; i < 1000; i++ {
		e.next(0, true, false)
	}
	if e.envelope != held {
		t.Errorf("EGT=1 sustain moved from %v to %v", held, e.envelope)
	}

	// Clearing EGT with the key held starts the release ramp.
	e.next(0, false, false)
	if e.envelope >= held {
		t.Errorf("EGT=0 sustain should decay: %v -> %v", held, e.envelope)
	}
	if e.stage != envSustain {
		t.Errorf("stage = %d, want sustain while key held", e.stage)
	}
}

func TestEnvelope_ReleaseToOff(t *testing.T) {
	e := newTestEnvelope(15, 0, 0, 15)
	e.keyOn()
	e.next(0, true, false)
	e.keyOff()
	if e.stage != envRelease {
		t.Fatalf("stage after keyOff = %d, want release", e.stage)
	}

	prev := e.envelope
	for i := 0; e.stage != envOff; i++ {
		e.next(0, true, false)
		if e.envelope > prev {
			t.Fatalf("sample %d: release rose from %v to %v", i, prev, e.envelope)
		}
		prev = e.envelope
		if i > 5000 {
			t.Fatal("release did not reach off")
		}
	}
	if e.envelope > envelopeMin {
		t.Errorf("off envelope = %v, want <= %v", e.envelope, envelopeMin)
	}
}

func TestEnvelope_KeyOffFromOff(t *testing.T) {
	e := newEnvelopeGen()
	e.keyOff()
	if e.stage != envOff {
		t.Errorf("keyOff from off: stage = %d, want off", e.stage)
	}
}

func TestEnvelope_RetriggerStartsFromCurrentLevel(t *testing.T) {
	e := newTestEnvelope(10, 0, 0, 0)
	e.keyOn()
	for i := 0; i < 100; i++ {
		e.next(0, false, false)
	}
	level := e.envelope
	if level >= 0 || level <= envelopeMin {
		t.Fatalf("mid-attack level = %v", level)
	}

	e.keyOn()
	out := e.next(0, false, false)
	if out < level-1 {
		t.Errorf("retrigger dropped from %v to %v dB", level, out)
	}
}

func TestEnvelope_Modifiers(t *testing.T) {
	e := newTestEnvelope(15, 0, 0, 0)
	// TL=8 is -6 dB and KSL 3 dB/oct at the top of block 7 is -21 dB,
	// both halved.
	e.setTotalLevel(8)
	e.setAttenuation(0x3FF, 7, 1)
	e.keyOn()

	if out := e.next(-4.8, false, false); math.Abs(out-(-13.5)) > 1e-9 {
		t.Errorf("AM off: %v, want -13.5", out)
	}
	if out := e.next(-4.8, false, true); math.Abs(out-(-15.9)) > 1e-9 {
		t.Errorf("AM on: %v, want -15.9", out)
	}
}

func TestAttackLookup_Clamps(t *testing.T) {
	tests := []struct {
		x    float64
		want float64
	}{
		{math.Inf(-1), attackTable[0]},
		{math.NaN(), attackTable[0]},
		{-100, attackTable[0]},
		{math.Inf(1), attackTable[attackLength-1]},
		{100, attackTable[attackLength-1]},
		{attackMin, attackTable[0]},
	}
	for _, tt := range tests {
		if got := attackLookup(tt.x); got != tt.want {
			t.Errorf("attackLookup(%v) = %v, want %v", tt.x, got, tt.want)
		}
	}
}
