package http

import (
	"net/http"
	"strings"

	"classroom-quiz-service/internal/domain"
	"github.com/go-chi/chi/v5"
)

// joinClass resolves a join code. Input is uppercased here; the directory
// itself matches codes exactly.
func (s *Server) joinClass(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	class, err := s.directory.JoinByCode(r.Context(), strings.ToUpper(strings.TrimSpace(req.Code)))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, joinedClass{ID: class.ID, Name: class.Name})
}

func (s *Server) studentTests(w http.ResponseWriter, r *http.Request) {
	class, err := s.directory.GetClass(r.Context(), chi.URLParam(r, "classID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	quizzes, err := s.authoring.ListTests(r.Context(), class.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summarize(quizzes))
}

func (s *Server) startAttempt(w http.ResponseWriter, r *http.Request) {
	var req studentRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	attempt, err := s.attempts.Start(r.Context(), testKey(r), req.StudentName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

func (s *Server) recordProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	session, err := s.attempts.Progress(r.Context(), testKey(r), domain.LiveSessionUpdate{
		StudentName:          req.StudentName,
		CurrentQuestionIndex: req.CurrentQuestionIndex,
		Answers:              req.Answers,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) submitAttempt(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sub, err := s.attempts.Submit(r.Context(), testKey(r), req.StudentName, req.Answers)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) attemptHistory(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("studentName"))
	if name == "" {
		s.writeError(w, r, domain.ErrInvalidInput)
		return
	}
	subs, err := s.attempts.History(r.Context(), testKey(r), name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}
