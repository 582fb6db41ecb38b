package logging

import "testing"

func TestNewProgressSamplerDefaults(t *testing.T) {
	for _, size := range []float64{0, -3} {
		if s := NewProgressSampler(size); s.bucketSize != 5 || s.lastBucket != -1 {
			t.Fatalf("NewProgressSampler(%v) = %+v", size, s)
		}
	}
	if s := NewProgressSampler(10); s.bucketSize != 10 {
		t.Fatalf("custom bucket size not kept: %v", s.bucketSize)
	}
}

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(25)
	steps := []struct {
		done int
		want bool
	}{
		{0, true},
		{40, false},
		{50, true},
		{99, false},
		{100, true},
		{200, true},
		{250, false},
	}
	for _, step := range steps {
		if _, got := s.Observe(step.done, 200); got != step.want {
			t.Errorf("Observe(%d/200) = %v, want %v", step.done, got, step.want)
		}
	}
}

func TestProgressSamplerUnknownTotal(t *testing.T) {
	s := NewProgressSampler(5)
	if percent, ok := s.Observe(3, 0); percent != -1 || ok {
		t.Fatalf("Observe with zero total = %v, %v", percent, ok)
	}
}

func TestProgressSamplerNil(t *testing.T) {
	var s *ProgressSampler
	if percent, ok := s.Observe(1, 4); percent != 25 || !ok {
		t.Fatalf("nil sampler Observe = %v, %v", percent, ok)
	}
}
