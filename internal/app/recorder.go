package app

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ayusman/signlingo/internal/lesson"
	"github.com/ayusman/signlingo/internal/session"
	"github.com/ayusman/signlingo/internal/store"
)

// RecorderConfig holds the recorder configuration.
type RecorderConfig struct {
	Store    *store.Store
	Exercise lesson.Exercise
	Policy   string
	Now      func() time.Time
	Logger   *slog.Logger
}

// Recorder writes a session's attempts to the store. An attempt begins when
// the session starts or is reset and ends when the exercise is completed, the
// learner starts over, or the recorder is closed.
type Recorder struct {
	config RecorderConfig
	log    *slog.Logger
	now    func() time.Time

	mu        sync.Mutex
	attemptID string
	startedAt time.Time
	confirmed int
	lastPos   int
	lastDone  int
	detach    []func()
}

// NewRecorder creates a recorder for one exercise.
func NewRecorder(cfg RecorderConfig) *Recorder {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Recorder{
		config:    cfg,
		log:       logger.With("component", "recorder", "kind", cfg.Exercise.Kind, "exercise_id", cfg.Exercise.ID),
		now:       cfg.Now,
		startedAt: cfg.Now(),
		lastPos:   -1,
	}
}

// Attach subscribes the recorder to the session's confirmations, completion
// and snapshots.
func (r *Recorder) Attach(sess *session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.detach = append(r.detach,
		sess.OnConfirm(r.confirm),
		sess.OnComplete(r.complete),
		sess.Watch(r.observe),
	)
}

// AttemptID returns the attempt being recorded, if one has started.
func (r *Recorder) AttemptID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attemptID
}

// confirm stores a confirmed letter, creating the attempt on the first one.
func (r *Recorder) confirm(c session.Confirmation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// A position at or before the last one means the learner started over
	// before any snapshot showed it.
	if r.attemptID != "" && c.Position <= r.lastPos {
		r.finishLocked(false)
	}

	if r.attemptID == "" {
		ex := r.config.Exercise
		attempt := &store.Attempt{
			Kind:       string(ex.Kind),
			ExerciseID: ex.ID,
			Title:      ex.Title,
			Letters:    ex.Letters,
			Policy:     r.config.Policy,
			StartedAt:  r.startedAt,
		}
		if err := r.config.Store.Attempts().Create(attempt); err != nil {
			r.log.Error("create attempt", "error", err)
			return
		}
		r.attemptID = attempt.ID
		r.log.Debug("attempt started", "attempt_id", attempt.ID)
	}

	err := r.config.Store.Confirmations().Add(&store.Confirmation{
		AttemptID:   r.attemptID,
		Position:    c.Position,
		Letter:      c.Letter,
		Confidence:  c.Confidence,
		ConfirmedAt: c.At,
	})
	if err != nil {
		r.log.Error("add confirmation", "error", err, "letter", c.Letter)
		return
	}
	r.confirmed++
	r.lastPos = c.Position
}

// complete finishes the current attempt as completed.
func (r *Recorder) complete(session.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishLocked(true)
}

// observe notices the learner starting over: completed letters going
// backwards abandons the current attempt and starts the clock for the next.
func (r *Recorder) observe(snap session.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	done := len(snap.Progress.Completed)
	if done < r.lastDone {
		r.finishLocked(false)
	}
	r.lastDone = done
}

// finishLocked closes the current attempt. Callers hold r.mu.
func (r *Recorder) finishLocked(completed bool) {
	if r.attemptID != "" {
		if err := r.config.Store.Attempts().Finish(r.attemptID, r.now(), completed); err != nil {
			r.log.Error("finish attempt", "error", err, "attempt_id", r.attemptID)
		} else {
			r.log.Info("attempt finished", "attempt_id", r.attemptID, "completed", completed, "letters", r.confirmed)
		}
	}
	r.attemptID = ""
	r.confirmed = 0
	r.lastPos = -1
	r.startedAt = r.now()
}

// Close detaches from the session and records an unfinished attempt as
// incomplete.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, fn := range r.detach {
		fn()
	}
	r.detach = nil
	r.finishLocked(false)
	return nil
}
