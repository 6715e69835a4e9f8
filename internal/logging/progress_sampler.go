package logging

// ProgressSampler throttles progress log lines to one per percentage bucket so
// that non-interactive runs still report steady progress without flooding.
type ProgressSampler struct {
	bucketSize float64
	lastBucket int
}

// NewProgressSampler constructs a sampler that emits when the completed share
// crosses a bucket boundary (default 10%).
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether progress at done/total should be logged. An
// unknown total (<= 0) never emits.
func (s *ProgressSampler) ShouldLog(done, total int64) bool {
	if s == nil {
		return true
	}
	if total <= 0 || done < 0 {
		return false
	}
	percent := float64(done) / float64(total) * 100
	if percent > 100 {
		percent = 100
	}
	bucket := int(percent / s.bucketSize)
	if bucket > s.lastBucket {
		s.lastBucket = bucket
		return true
	}
	return false
}
