package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ayusman/signlingo/internal/lesson"
)

func TestServer_ListExercises(t *testing.T) {
	s := New(Config{})

	tests := []struct {
		path string
		key  string
		kind lesson.Kind
	}{
		{path: "/api/lessons", key: "lessons", kind: lesson.KindLesson},
		{path: "/api/quizzes", key: "quizzes", kind: lesson.KindQuiz},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
			}

			var response map[string][]lesson.Exercise
			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}

			exercises := response[tt.key]
			if len(exercises) != 7 {
				t.Fatalf("expected 7 %s, got %d", tt.key, len(exercises))
			}
			if exercises[0].Kind != tt.kind {
				t.Errorf("kind = %q, want %q", exercises[0].Kind, tt.kind)
			}
		})
	}
}

func TestServer_GetExercise(t *testing.T) {
	s := New(Config{})

	tests := []struct {
		name        string
		path        string
		wantStatus  int
		wantLetters []string
	}{
		{name: "first lesson", path: "/api/lessons/1", wantStatus: http.StatusOK, wantLetters: []string{"A", "B", "C", "D"}},
		{name: "last quiz", path: "/api/quizzes/7", wantStatus: http.StatusOK, wantLetters: []string{"Y", "Z"}},
		{name: "unknown lesson", path: "/api/lessons/99", wantStatus: http.StatusNotFound},
		{name: "unknown quiz", path: "/api/quizzes/0", wantStatus: http.StatusNotFound},
		{name: "non numeric id", path: "/api/lessons/abc", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}

			if tt.wantStatus != http.StatusOK {
				var resp errorResponse
				if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
					t.Fatalf("failed to decode error response: %v", err)
				}
				if resp.Error == "" {
					t.Error("expected error message")
				}
				return
			}

			var exercise lesson.Exercise
			if err := json.NewDecoder(rec.Body).Decode(&exercise); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if len(exercise.Letters) != len(tt.wantLetters) {
				t.Fatalf("letters = %v, want %v", exercise.Letters, tt.wantLetters)
			}
			for i := range tt.wantLetters {
				if exercise.Letters[i] != tt.wantLetters[i] {
					t.Errorf("letters = %v, want %v", exercise.Letters, tt.wantLetters)
					break
				}
			}
		})
	}
}

func TestServer_CustomCatalog(t *testing.T) {
	catalog := &lesson.Catalog{
		Lessons: []lesson.Exercise{{ID: 42, Kind: lesson.KindLesson, Title: "Custom", Letters: []string{"Q"}}},
	}
	s := New(Config{Catalog: catalog})

	req := httptest.NewRequest(http.MethodGet, "/api/lessons/42", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/quizzes", nil)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var response map[string][]lesson.Exercise
	json.NewDecoder(rec.Body).Decode(&response)
	if quizzes, ok := response["quizzes"]; !ok || len(quizzes) != 0 {
		t.Errorf("expected empty quizzes array, got %v", response)
	}
}
