package monitor

import "testing"

func TestLatencyBands(t *testing.T) {
	cases := []struct {
		ms   float64
		want LatencyQuality
	}{
		{0, QualityExcellent},
		{49.9, QualityExcellent},
		{50, QualityGood},
		{99, QualityGood},
		{100, QualityFair},
		{199, QualityFair},
		{200, QualityPoor},
		{499, QualityPoor},
		{500, QualityBad},
		{2500, QualityBad},
	}
	for _, c := range cases {
		if got := LatencyBand(c.ms); got != c.want {
			t.Errorf("LatencyBand(%v) = %s, want %s", c.ms, got, c.want)
		}
	}
}
