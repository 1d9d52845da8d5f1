// Package confirm decides when sustained predictions are enough to credit the
// learner with the target letter.
package confirm

import (
	"fmt"
	"time"
)

// Policy names accepted by NewStrategy.
const (
	PolicyStreak = "streak"
	PolicyHold   = "hold"
)

// Strategy accumulates evidence for the current target letter.
type Strategy interface {
	// Observe records one prediction and reports whether the evidence is
	// now sufficient.
	Observe(match bool, at time.Time) bool
	// Readout describes progress toward confirmation at now.
	Readout(now time.Time) Readout
	// Reset discards all evidence.
	Reset()
}

// Readout is what the UI shows while the learner holds a sign. Streak
// strategies fill Count and Threshold, hold strategies fill Elapsed,
// Remaining and Duration. Fraction is in [0,1] for both.
type Readout struct {
	Policy    string        `json:"policy"`
	Count     int           `json:"count,omitempty"`
	Threshold int           `json:"threshold,omitempty"`
	Elapsed   time.Duration `json:"elapsed,omitempty"`
	Remaining time.Duration `json:"remaining,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Fraction  float64       `json:"fraction"`
}

// NewStrategy builds a strategy from its policy name.
func NewStrategy(policy string, threshold int, hold time.Duration) (Strategy, error) {
	switch policy {
	case PolicyStreak:
		if threshold <= 0 {
			return nil, fmt.Errorf("streak threshold must be positive, got %d", threshold)
		}
		return &Streak{Threshold: threshold}, nil
	case PolicyHold:
		if hold <= 0 {
			return nil, fmt.Errorf("hold duration must be positive, got %s", hold)
		}
		return &Hold{Duration: hold}, nil
	default:
		return nil, fmt.Errorf("unknown confirmation policy %q", policy)
	}
}

// Streak confirms after Threshold consecutive matching predictions. Any
// mismatch resets the count.
type Streak struct {
	Threshold int

	count int
}

func (s *Streak) Observe(match bool, _ time.Time) bool {
	if !match {
		s.count = 0
		return false
	}
	s.count++
	return s.count >= s.Threshold
}

func (s *Streak) Readout(time.Time) Readout {
	count := min(s.count, s.Threshold)
	return Readout{
		Policy:    PolicyStreak,
		Count:     count,
		Threshold: s.Threshold,
		Fraction:  float64(count) / float64(s.Threshold),
	}
}

func (s *Streak) Reset() {
	s.count = 0
}

// Hold confirms once matching predictions have covered Duration without a
// single mismatch in between.
type Hold struct {
	Duration time.Duration

	start time.Time
}

func (h *Hold) Observe(match bool, at time.Time) bool {
	if !match {
		h.start = time.Time{}
		return false
	}
	if h.start.IsZero() {
		h.start = at
	}
	return at.Sub(h.start) >= h.Duration
}

// Readout recomputes elapsed time against now, so it advances between
// predictions.
func (h *Hold) Readout(now time.Time) Readout {
	r := Readout{Policy: PolicyHold, Duration: h.Duration, Remaining: h.Duration}
	if h.start.IsZero() {
		return r
	}

	elapsed := min(max(now.Sub(h.start), 0), h.Duration)
	r.Elapsed = elapsed
	r.Remaining = h.Duration - elapsed
	r.Fraction = float64(elapsed) / float64(h.Duration)
	return r
}

func (h *Hold) Reset() {
	h.start = time.Time{}
}

// Holding reports whether a contiguous run of matches is in progress.
func (h *Hold) Holding() bool {
	return !h.start.IsZero()
}
