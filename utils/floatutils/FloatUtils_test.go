package floatutils

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r1"
)

func TestClip(t *testing.T) {
	tests := []struct {
		value, min, max, expected float64
	}{
		{0.5, 0, 1, 0.5},
		{-2, 0, 1, 0},
		{3, 0, 1, 1},
		{1, 1, 1, 1},
	}

	for _, test := range tests {
		if c := Clip(test.value, test.min, test.max); c != test.expected {
			t.Errorf("clip(%v, %v, %v) \n\twant(%v) \n\thave(%v)",
				test.value, test.min, test.max, test.expected, c)
		}
	}
}

func TestClipInterval(t *testing.T) {
	interval := r1.Interval{Min: -1, Max: 1}
	if c := ClipInterval(5, interval); c != 1 {
		t.Errorf("clip to interval \n\twant(%v) \n\thave(%v)", 1.0, c)
	}
}

func TestClipSliceLeavesInputUnmodified(t *testing.T) {
	values := []float64{-2, 0.5, 3}
	clipped := ClipSlice(values, 0, 1)

	expected := []float64{0, 0.5, 1}
	for i := range expected {
		if clipped[i] != expected[i] {
			t.Errorf("element %v \n\twant(%v) \n\thave(%v)", i,
				expected[i], clipped[i])
		}
	}
	if values[0] != -2 || values[2] != 3 {
		t.Error("input slice was modified")
	}
}

func TestLinspace(t *testing.T) {
	points := Linspace(0, 1, 5)
	expected := []float64{0, 0.25, 0.5, 0.75, 1}
	for i := range expected {
		if math.Abs(points[i]-expected[i]) > 1e-12 {
			t.Errorf("point %v \n\twant(%v) \n\thave(%v)", i, expected[i],
				points[i])
		}
	}

	if single := Linspace(2, 10, 1); len(single) != 1 || single[0] != 2 {
		t.Errorf("single point \n\twant([2]) \n\thave(%v)", single)
	}
}
