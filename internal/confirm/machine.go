package confirm

import (
	"time"

	"github.com/ayusman/signlingo/internal/dispatch"
)

// DefaultTransitionDelay is the pause between a confirmation and the next
// target letter.
const DefaultTransitionDelay = 2 * time.Second

// State is the confirmation state for the current target.
type State int

const (
	StateIdle State = iota
	StateHolding
	StateConfirmed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateHolding:
		return "holding"
	case StateConfirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

// Outcome is what a single prediction did to the machine.
type Outcome int

const (
	// OutcomeIgnored: the machine is transitioning, the exercise is
	// finished, or the prediction named an already completed letter.
	OutcomeIgnored Outcome = iota
	// OutcomeMissed: the prediction did not match and cleared the evidence.
	OutcomeMissed
	// OutcomeProgress: the prediction matched but is not yet sufficient.
	OutcomeProgress
	// OutcomeConfirmed: the target letter is confirmed.
	OutcomeConfirmed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeMissed:
		return "missed"
	case OutcomeProgress:
		return "progress"
	case OutcomeConfirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

// Target is the exercise position the machine checks predictions against.
type Target interface {
	CurrentLetter() (string, bool)
	IsCompletedLetter(letter string) bool
	IsLast() bool
}

// Decision is the result of Observe. On OutcomeConfirmed, Delay is how long
// to wait before calling FinishTransition; it is zero for the final letter.
type Decision struct {
	Outcome    Outcome
	Letter     string
	Confidence float64
	Delay      time.Duration
}

// Machine runs Idle -> Holding -> Confirmed -> Idle for each target letter.
// It is not safe for concurrent use; the session serializes all calls.
type Machine struct {
	strategy Strategy
	target   Target
	delay    time.Duration

	state         State
	transitioning bool
	last          *dispatch.Prediction
}

// NewMachine creates a Machine. A negative delay is treated as zero.
func NewMachine(strategy Strategy, target Target, delay time.Duration) *Machine {
	return &Machine{
		strategy: strategy,
		target:   target,
		delay:    max(delay, 0),
	}
}

// Observe evaluates one normalized prediction against the current target.
func (m *Machine) Observe(p dispatch.Prediction) Decision {
	if m.transitioning {
		return Decision{Outcome: OutcomeIgnored, Letter: p.Letter}
	}

	target, ok := m.target.CurrentLetter()
	if !ok {
		return Decision{Outcome: OutcomeIgnored, Letter: p.Letter}
	}

	// Predictions for letters already done are left over from the previous
	// target. A repeated letter that is also the current target still counts.
	if p.Letter != target && m.target.IsCompletedLetter(p.Letter) {
		return Decision{Outcome: OutcomeIgnored, Letter: p.Letter}
	}

	last := p
	m.last = &last

	match := p.Letter == target
	confirmed := m.strategy.Observe(match, p.At)

	switch {
	case !match:
		m.state = StateIdle
		return Decision{Outcome: OutcomeMissed, Letter: p.Letter, Confidence: p.Confidence}
	case !confirmed:
		m.state = StateHolding
		return Decision{Outcome: OutcomeProgress, Letter: p.Letter, Confidence: p.Confidence}
	}

	m.state = StateConfirmed
	m.transitioning = true

	d := Decision{Outcome: OutcomeConfirmed, Letter: target, Confidence: p.Confidence}
	if !m.target.IsLast() {
		d.Delay = m.delay
	}
	return d
}

// Tick returns the current readout. Called on the display refresh cadence so
// hold countdowns move between predictions.
func (m *Machine) Tick(now time.Time) Readout {
	return m.strategy.Readout(now)
}

// FinishTransition ends the post-confirmation pause and returns to Idle for
// the next target. The caller advances the sequencer first.
func (m *Machine) FinishTransition() {
	m.strategy.Reset()
	m.transitioning = false
	m.state = StateIdle
	m.last = nil
}

// Reset clears all evidence, used when the learner starts over.
func (m *Machine) Reset() {
	m.FinishTransition()
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Transitioning reports whether predictions are frozen after a confirmation.
func (m *Machine) Transitioning() bool {
	return m.transitioning
}

// LastPrediction returns the most recent prediction that was evaluated
// against the current target, or nil.
func (m *Machine) LastPrediction() *dispatch.Prediction {
	if m.last == nil {
		return nil
	}
	p := *m.last
	return &p
}
