package emu

import "testing"

func TestMixBuffers(t *testing.T) {
	tests := []struct {
		name string
		fm   []int16
		psg  []float32
		want []int16
	}{
		{
			name: "fm only",
			fm:   []int16{100, -100, 200, -200},
			want: []int16{100, -100, 200, -200},
		},
		{
			name: "psg only",
			psg:  []float32{50, -25},
			want: []int16{50, 50, -25, -25},
		},
		{
			name: "psg added to both sides",
			fm:   []int16{100, -100},
			psg:  []float32{10},
			want: []int16{110, -90},
		},
		{
			name: "fm longer",
			fm:   []int16{1, 2, 3, 4},
			psg:  []float32{10},
			want: []int16{11, 12, 3, 4},
		},
		{
			name: "psg longer",
			fm:   []int16{1, 2},
			psg:  []float32{10, 20},
			want: []int16{11, 12, 20, 20},
		},
		{
			name: "clamped",
			fm:   []int16{32000, -32000},
			psg:  []float32{1898},
			want: []int16{32767, -30102},
		},
		{
			name: "clamped negative",
			fm:   []int16{-32000, 0},
			psg:  []float32{-1898},
			want: []int16{-32768, -1898},
		},
	}
	for _, tt := range tests {
		got := mixBuffers(nil, tt.fm, tt.psg, len(tt.psg))
		if len(got) != len(tt.want) {
			t.Errorf("%s: len = %d, want %d", tt.name, len(got), len(tt.want))
			continue
		}
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Errorf("%s: [%d] = %d, want %d", tt.name, i, got[i], tt.want[i])
			}
		}
	}
}

func TestMixBuffers_Appends(t *testing.T) {
	out := []int16{7, 7}
	out = mixBuffers(out, []int16{1, 2}, nil, 0)
	if len(out) != 4 || out[0] != 7 || out[2] != 1 {
		t.Errorf("out = %v, want [7 7 1 2]", out)
	}
}

func TestToInt16(t *testing.T) {
	tests := []struct {
		in   float32
		want int16
	}{
		{0, 0},
		{1234.9, 1234},
		{-1234.9, -1234},
		{40000, 32767},
		{-40000, -32768},
		{32767, 32767},
	}
	for _, tt := range tests {
		if got := toInt16(tt.in); got != tt.want {
			t.Errorf("toInt16(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestClampInt32(t *testing.T) {
	if clampInt32(5, 0, 10) != 5 || clampInt32(-1, 0, 10) != 0 || clampInt32(11, 0, 10) != 10 {
		t.Error("clampInt32 out of range")
	}
}
