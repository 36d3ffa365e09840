package density

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		value float64
		want  Level
	}{
		{0, LevelNormal},
		{42, LevelNormal},
		{60, LevelNormal},
		{61, LevelWarning},
		{75, LevelWarning},
		{80, LevelWarning},
		{81, LevelDanger},
		{100, LevelDanger},
	}

	for _, tt := range tests {
		if got := Classify(tt.value); got != tt.want {
			t.Errorf("Classify(%.0f) = %s, want %s", tt.value, got, tt.want)
		}
	}
}

func TestSimulatedSampler_Bounds(t *testing.T) {
	s := NewSimulatedSampler(42)

	for i := 0; i < 500; i++ {
		v, err := s.Sample()
		if err != nil {
			t.Fatalf("Sample failed: %v", err)
		}
		if v < 10 || v > 95 {
			t.Fatalf("Sample %d out of bounds: %f", i, v)
		}
	}
}

func TestSimulatedSampler_StepSize(t *testing.T) {
	s := NewSimulatedSampler(50)

	prev := s.current
	for i := 0; i < 100; i++ {
		v, _ := s.Sample()
		diff := v - prev
		if diff < -3 || diff > 3 {
			t.Fatalf("Step too large: %f", diff)
		}
		prev = v
	}
}

func TestNewSimulatedSampler_ClampsStart(t *testing.T) {
	if s := NewSimulatedSampler(200); s.current != 95 {
		t.Errorf("Expected start clamped to 95, got %f", s.current)
	}
	if s := NewSimulatedSampler(0); s.current != 10 {
		t.Errorf("Expected start clamped to 10, got %f", s.current)
	}
}
