package lesson

import (
	"errors"
	"slices"
)

// ErrSessionComplete is returned by Advance once every letter is confirmed.
var ErrSessionComplete = errors.New("exercise already complete")

// Outcome is the result of Advance.
type Outcome int

const (
	// Advanced moved on to the next letter.
	Advanced Outcome = iota
	// Finished confirmed the last letter.
	Finished
)

// Progress is a snapshot of a learner's position in an exercise.
type Progress struct {
	CurrentIndex int     `json:"current_index"`
	Completed    []int   `json:"completed"`
	Percent      float64 `json:"percent"`
	Total        int     `json:"total"`
	Done         bool    `json:"done"`
}

// Sequencer tracks the current letter and completed letters of one exercise.
// The current index is always the lowest index not yet completed.
//
// A Sequencer is not safe for concurrent use.
type Sequencer struct {
	exercise  Exercise
	index     int
	completed map[int]bool
	done      bool

	nextID int
	onDone map[int]func(Progress)
}

// NewSequencer starts at the first letter of e.
func NewSequencer(e Exercise) *Sequencer {
	return &Sequencer{
		exercise:  e,
		completed: make(map[int]bool),
		onDone:    make(map[int]func(Progress)),
	}
}

// Exercise returns the exercise being sequenced.
func (s *Sequencer) Exercise() Exercise {
	return s.exercise
}

// Advance marks the current letter completed. On the last letter the
// exercise is finished and completion handlers run.
func (s *Sequencer) Advance() (Outcome, error) {
	if s.done || s.index >= len(s.exercise.Letters) {
		return Finished, ErrSessionComplete
	}

	s.completed[s.index] = true
	s.index++

	if s.index < len(s.exercise.Letters) {
		return Advanced, nil
	}

	s.done = true
	p := s.Progress()
	for _, fn := range s.handlers() {
		fn(p)
	}
	return Finished, nil
}

// Reset returns to the first letter and clears all progress.
func (s *Sequencer) Reset() {
	s.index = 0
	s.done = false
	clear(s.completed)
}

// Progress returns a copy of the current progress.
func (s *Sequencer) Progress() Progress {
	completed := make([]int, 0, len(s.completed))
	for i := range s.completed {
		completed = append(completed, i)
	}
	slices.Sort(completed)

	total := len(s.exercise.Letters)
	p := Progress{
		CurrentIndex: s.index,
		Completed:    completed,
		Total:        total,
		Done:         s.done,
	}
	if total > 0 {
		p.Percent = 100 * float64(len(completed)) / float64(total)
	}
	if s.done {
		p.Percent = 100
	}
	return p
}

// CurrentLetter returns the letter to sign next, or false when finished.
func (s *Sequencer) CurrentLetter() (string, bool) {
	if s.index >= len(s.exercise.Letters) {
		return "", false
	}
	return s.exercise.Letters[s.index], true
}

// IsCompletedLetter reports whether letter appears at an index already
// confirmed in this exercise.
func (s *Sequencer) IsCompletedLetter(letter string) bool {
	for i := range s.completed {
		if s.exercise.Letters[i] == letter {
			return true
		}
	}
	return false
}

// IsLast reports whether the current letter is the final one.
func (s *Sequencer) IsLast() bool {
	return s.index == len(s.exercise.Letters)-1
}

// Completed reports whether every letter has been confirmed.
func (s *Sequencer) Completed() bool {
	return s.done
}

// OnComplete registers fn to run when the last letter is confirmed. It
// returns a function that removes the handler.
func (s *Sequencer) OnComplete(fn func(Progress)) func() {
	id := s.nextID
	s.nextID++
	s.onDone[id] = fn
	return func() { delete(s.onDone, id) }
}

func (s *Sequencer) handlers() []func(Progress) {
	ids := make([]int, 0, len(s.onDone))
	for id := range s.onDone {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	fns := make([]func(Progress), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.onDone[id])
	}
	return fns
}
