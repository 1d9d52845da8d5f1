package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/signlingo/internal/lesson"
)

func plural(kind lesson.Kind) string {
	if kind == lesson.KindQuiz {
		return "quizzes"
	}
	return "lessons"
}

// handleListExercises handles GET /api/lessons and GET /api/quizzes.
func (s *Server) handleListExercises(kind lesson.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		exercises := s.config.Catalog.List(kind)
		if exercises == nil {
			exercises = []lesson.Exercise{}
		}
		writeJSON(w, http.StatusOK, map[string]any{plural(kind): exercises})
	}
}

// handleGetExercise handles GET /api/lessons/{id} and GET /api/quizzes/{id}.
func (s *Server) handleGetExercise(kind lesson.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid "+string(kind)+" id")
			return
		}

		exercise, err := s.config.Catalog.Find(kind, id)
		if err != nil {
			if errors.Is(err, lesson.ErrNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to load "+string(kind))
			return
		}

		writeJSON(w, http.StatusOK, exercise)
	}
}
