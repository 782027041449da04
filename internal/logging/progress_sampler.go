package logging

import "strings"

// ProgressSampler suppresses repetitive progress logs while preserving signal
// when the sequence being processed changes or the completed share crosses a
// bucket boundary.
type ProgressSampler struct {
	bucketSize float64
	lastScope  string
	lastBucket int
}

// NewProgressSampler constructs a sampler that emits every bucketSize percent
// (default 10).
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether progress of done out of total within scope
// deserves a log line. A non-positive total only reacts to scope changes.
func (s *ProgressSampler) ShouldLog(done, total int, scope string) bool {
	if s == nil {
		return true
	}
	emit := false
	scope = strings.TrimSpace(scope)
	if scope != "" && scope != s.lastScope {
		s.lastScope = scope
		emit = true
	}
	if total > 0 {
		percent := float64(done) / float64(total) * 100
		if percent > 100 {
			percent = 100
		}
		bucket := int(percent / s.bucketSize)
		if bucket > s.lastBucket {
			s.lastBucket = bucket
			emit = true
		}
	}
	return emit
}

// Reset clears the sampler state before a new run.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastScope = ""
	s.lastBucket = -1
}
