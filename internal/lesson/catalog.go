// Package lesson holds the exercise catalog and the sequencer that walks a
// learner through an exercise's letters.
package lesson

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when an exercise id is not in the catalog.
var ErrNotFound = errors.New("exercise not found")

// Kind distinguishes lessons from quizzes.
type Kind string

const (
	KindLesson Kind = "lesson"
	KindQuiz   Kind = "quiz"
)

// ParseKind accepts "lesson", "quiz" and their plurals.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lesson", "lessons":
		return KindLesson, nil
	case "quiz", "quizzes":
		return KindQuiz, nil
	default:
		return "", fmt.Errorf("unknown exercise kind %q", s)
	}
}

// Exercise is one lesson or quiz: an ordered list of target letters.
type Exercise struct {
	ID          int      `json:"id" yaml:"id"`
	Kind        Kind     `json:"kind" yaml:"-"`
	Title       string   `json:"title" yaml:"title"`
	Letters     []string `json:"letters" yaml:"letters"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// Catalog is the static set of exercises.
type Catalog struct {
	Lessons []Exercise `json:"lessons" yaml:"lessons"`
	Quizzes []Exercise `json:"quizzes" yaml:"quizzes"`
}

var alphabet = [][]string{
	{"A", "B", "C", "D"},
	{"E", "F", "G", "H"},
	{"I", "J", "K", "L"},
	{"M", "N", "O", "P"},
	{"Q", "R", "S", "T"},
	{"U", "V", "W", "X"},
	{"Y", "Z"},
}

// DefaultCatalog returns the built-in seven lessons and seven quizzes that
// cover the alphabet.
func DefaultCatalog() *Catalog {
	c := &Catalog{}
	for i, letters := range alphabet {
		id := i + 1
		c.Lessons = append(c.Lessons, Exercise{
			ID:          id,
			Kind:        KindLesson,
			Title:       fmt.Sprintf("Lesson %d", id),
			Letters:     slices.Clone(letters),
			Description: lessonDescription(i, letters),
		})
		c.Quizzes = append(c.Quizzes, Exercise{
			ID:      id,
			Kind:    KindQuiz,
			Title:   fmt.Sprintf("Quiz %d", id),
			Letters: slices.Clone(letters),
		})
	}
	return c
}

func lessonDescription(i int, letters []string) string {
	list := strings.Join(letters[:len(letters)-1], ", ")
	if len(letters) > 2 {
		list += ","
	}
	list += " and " + letters[len(letters)-1]

	switch {
	case i == 0:
		return "Learn the first set of ASL alphabet letters: " + list
	case i == len(alphabet)-1:
		return "Learn the final ASL alphabet letters: " + list
	default:
		return "Learn ASL alphabet letters: " + list
	}
}

// LoadCatalog reads a YAML catalog file. Letters are trimmed and uppercased.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	for i := range c.Lessons {
		c.Lessons[i].normalize(KindLesson)
	}
	for i := range c.Quizzes {
		c.Quizzes[i].normalize(KindQuiz)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return &c, nil
}

func (e *Exercise) normalize(kind Kind) {
	e.Kind = kind
	for i, l := range e.Letters {
		e.Letters[i] = strings.ToUpper(strings.TrimSpace(l))
	}
}

// Validate rejects exercises without letters, blank letters, and duplicate ids.
func (c *Catalog) Validate() error {
	for _, list := range [][]Exercise{c.Lessons, c.Quizzes} {
		seen := make(map[int]bool)
		for _, e := range list {
			if seen[e.ID] {
				return fmt.Errorf("duplicate %s id %d", e.Kind, e.ID)
			}
			seen[e.ID] = true

			if len(e.Letters) == 0 {
				return fmt.Errorf("%s %d has no letters", e.Kind, e.ID)
			}
			if slices.Contains(e.Letters, "") {
				return fmt.Errorf("%s %d has a blank letter", e.Kind, e.ID)
			}
		}
	}
	return nil
}

// List returns the exercises of one kind.
func (c *Catalog) List(kind Kind) []Exercise {
	switch kind {
	case KindLesson:
		return c.Lessons
	case KindQuiz:
		return c.Quizzes
	default:
		return nil
	}
}

// Find looks up an exercise by kind and id.
func (c *Catalog) Find(kind Kind, id int) (Exercise, error) {
	for _, e := range c.List(kind) {
		if e.ID == id {
			e.Letters = slices.Clone(e.Letters)
			return e, nil
		}
	}
	return Exercise{}, fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
}
