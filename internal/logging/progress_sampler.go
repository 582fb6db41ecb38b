package logging

// ProgressSampler thins per-frame progress into one log line per percentage
// bucket.
type ProgressSampler struct {
	bucketSize float64
	lastBucket int
}

// NewProgressSampler constructs a sampler with the given bucket width in
// percent. Non-positive widths default to 5.
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 5
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// Observe converts done/total into a percentage and reports whether it
// entered a new bucket. A non-positive total reports -1 and never logs.
// A nil sampler logs everything.
func (s *ProgressSampler) Observe(done, total int) (float64, bool) {
	if total <= 0 {
		return -1, false
	}
	percent := float64(done) * 100 / float64(total)
	if percent > 100 {
		percent = 100
	}
	if s == nil {
		return percent, true
	}
	bucket := int(percent / s.bucketSize)
	if bucket <= s.lastBucket {
		return percent, false
	}
	s.lastBucket = bucket
	return percent, true
}
