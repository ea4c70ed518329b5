package logging

import "testing"

func TestNewProgressSampler(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 5},
		{"default bucket size for negative", -1, 5},
		{"custom bucket size", 10, 10},
		{"small bucket size", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
			if s.lastBucket != -1 {
				t.Errorf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSamplerNilSampler(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "transcode") {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Reset() // should not panic
}

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(5)

	if !s.ShouldLog(0, "transcode") {
		t.Error("first observation should log")
	}
	if s.ShouldLog(3, "transcode") {
		t.Error("same bucket should not log again")
	}
	if !s.ShouldLog(5, "transcode") {
		t.Error("crossing a bucket boundary should log")
	}
	if s.ShouldLog(9.9, "transcode") {
		t.Error("still inside the bucket, should not log")
	}
	if !s.ShouldLog(100, "transcode") {
		t.Error("completion should log")
	}
}

func TestProgressSamplerStageChangeResetsBuckets(t *testing.T) {
	s := NewProgressSampler(5)

	if !s.ShouldLog(50, "fetch_input") {
		t.Error("first stage should log")
	}
	if !s.ShouldLog(0, "transcode") {
		t.Error("stage change should log even at a lower percent")
	}
	if s.lastStage != "transcode" {
		t.Errorf("lastStage = %q, want transcode", s.lastStage)
	}
	if !s.ShouldLog(5, "transcode") {
		t.Error("buckets should restart after a stage change")
	}
}

func TestProgressSamplerReset(t *testing.T) {
	s := NewProgressSampler(5)
	s.ShouldLog(50, "transcode")
	s.Reset()
	if !s.ShouldLog(50, "transcode") {
		t.Error("observation after Reset should log")
	}
}
