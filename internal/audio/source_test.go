package audio

import (
	"math"
	"testing"
)

// constSource returns the same value for every sample.
type constSource struct {
	channels int
	value    float32
}

func (c constSource) ChannelCount() int { return c.channels }

func (c constSource) Read(buf []float32, offset, count int) int {
	for i := offset; i < offset+count; i++ {
		buf[i] = c.value
	}
	return count
}

func TestGainSource_Scales(t *testing.T) {
	src := NewGainSource(constSource{channels: 2, value: 0.5}, 2)

	buf := make([]float32, 8)
	n := src.Read(buf, 2, 4)
	if n != 4 {
		t.Fatalf("Read() = %d, want 4", n)
	}

	for i, v := range buf {
		want := float32(0)
		if i >= 2 && i < 6 {
			want = 1
		}
		if v != want {
			t.Errorf("buf[%d] = %v, want %v", i, v, want)
		}
	}

	if src.ChannelCount() != 2 {
		t.Errorf("ChannelCount() = %d, want 2", src.ChannelCount())
	}
}

func TestGainSource_UnityCopies(t *testing.T) {
	src := NewGainSource(constSource{channels: 1, value: 0.3}, 1.00001)

	buf := make([]float32, 4)
	src.Read(buf, 0, 4)
	for i, v := range buf {
		if v != 0.3 {
			t.Errorf("buf[%d] = %v, want exact copy 0.3", i, v)
		}
	}
}

func TestGainSource_SetGain(t *testing.T) {
	src := NewGainSource(constSource{channels: 1, value: 1}, 1)
	src.SetGain(0.25)

	if math.Abs(src.Gain()-0.25) > 1e-12 {
		t.Errorf("Gain() = %v, want 0.25", src.Gain())
	}

	buf := make([]float32, 2)
	src.Read(buf, 0, 2)
	if buf[0] != 0.25 {
		t.Errorf("buf[0] = %v, want 0.25", buf[0])
	}
}

// countSource reports a fixed sample count without writing anything.
type countSource int

func (c countSource) ChannelCount() int { return 1 }

func (c countSource) Read([]float32, int, int) int { return int(c) }

func TestGainSource_ClampsBadCounts(t *testing.T) {
	tests := []struct {
		name     string
		reported int
		want     int
	}{
		{"negative", -3, 0},
		{"overlong", 9, 4},
		{"short", 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewGainSource(countSource(tt.reported), 0.5)
			buf := []float32{1, 1, 1, 1, 1, 1}
			if n := src.Read(buf, 1, 4); n != tt.want {
				t.Errorf("Read() = %d, want %d", n, tt.want)
			}
			for i := 1; i < 1+tt.want; i++ {
				if buf[i] != 0.5 {
					t.Errorf("buf[%d] = %v, want 0.5", i, buf[i])
				}
			}
			if buf[0] != 1 || buf[5] != 1 {
				t.Error("samples outside the window were touched")
			}
		})
	}
}

func TestIsUnity(t *testing.T) {
	tests := []struct {
		gain float64
		want bool
	}{
		{1, true},
		{1.00009, true},
		{0.99991, true},
		{1.0002, false},
		{0.5, false},
	}
	for _, tt := range tests {
		if got := IsUnity(tt.gain); got != tt.want {
			t.Errorf("IsUnity(%v) = %v, want %v", tt.gain, got, tt.want)
		}
	}
}
