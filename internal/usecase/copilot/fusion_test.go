package copilot

import (
	"math"
	"testing"
)

func TestFuseConfidence(t *testing.T) {
	tests := []struct {
		name         string
		scope        float64
		similarities []float64
		want         float64
	}{
		{"no sources", 0.8, nil, 0.4},
		{"single source", 0.8, []float64{0.5}, 0.7},
		{"max similarity wins", 0.8, []float64{0.2, 0.9, 0.5}, 0.86},
		{"perfect everything clamps to one", 1.0, []float64{1.0, 1.0}, 1.0},
		{"zero scope zero sources", 0, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FuseConfidence(tt.scope, tt.similarities)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("FuseConfidence(%g, %v) = %g, want %g", tt.scope, tt.similarities, got, tt.want)
			}
		})
	}
}

func TestFuseConfidence_Bounds(t *testing.T) {
	if got := FuseConfidence(1.5, []float64{1.0}); got != 1.0 {
		t.Errorf("expected clamp to 1.0, got %g", got)
	}
	if got := FuseConfidence(-0.5, nil); got != 0 {
		t.Errorf("expected clamp to 0, got %g", got)
	}
}
