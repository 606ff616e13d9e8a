package http

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"classroom-quiz-service/internal/auth"
	"classroom-quiz-service/internal/domain"
	"github.com/go-chi/chi/v5"
)

type ctxClassKey struct{}

// requireOwner loads {classID} and rejects teachers who do not own it.
func (s *Server) requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		teacherID, _ := auth.TeacherID(r.Context())
		class, err := s.directory.GetClass(r.Context(), chi.URLParam(r, "classID"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if class.TeacherID != teacherID {
			s.writeError(w, r, domain.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxClassKey{}, class)))
	})
}

func classFrom(r *http.Request) domain.Class {
	class, _ := r.Context().Value(ctxClassKey{}).(domain.Class)
	return class
}

func testKey(r *http.Request) domain.TestKey {
	return domain.TestKey{ClassID: chi.URLParam(r, "classID"), TestID: chi.URLParam(r, "testID")}
}

func (s *Server) listClasses(w http.ResponseWriter, r *http.Request) {
	teacherID, _ := auth.TeacherID(r.Context())
	classes, err := s.directory.ListTeacherClasses(r.Context(), teacherID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, classes)
}

func (s *Server) createClass(w http.ResponseWriter, r *http.Request) {
	var req createClassRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	teacherID, _ := auth.TeacherID(r.Context())
	class, err := s.directory.CreateClass(r.Context(), teacherID, req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, class)
}

func (s *Server) getClass(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, classFrom(r))
}

func (s *Server) deleteClass(w http.ResponseWriter, r *http.Request) {
	if err := s.directory.DeleteClass(r.Context(), classFrom(r).ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// generateTest accepts multipart uploads: zero or more "images" files and an
// optional "text" field. The generated draft is returned unsaved.
func (s *Server) generateTest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxUploadBody); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["images"]
	if len(files) > maxImageCount {
		s.writeError(w, r, fmt.Errorf("%w: at most %d images", domain.ErrInvalidInput, maxImageCount))
		return
	}
	material := domain.SourceMaterial{Text: r.FormValue("text")}
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
			return
		}
		material.Images = append(material.Images, domain.Image{Data: data, MIMEType: fh.Header.Get("Content-Type")})
	}

	draft, err := s.authoring.Generate(r.Context(), classFrom(r).ID, material)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, draft.Quiz())
}

// editDraft applies editor changes to an unsaved draft and returns the result.
func (s *Server) editDraft(w http.ResponseWriter, r *http.Request) {
	var req editDraftRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	draft, violations, err := s.authoring.EditDraft(req.Quiz.draft(), req.Edits)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	quiz := draft.Quiz()
	quiz.ClassID = classFrom(r).ID
	writeJSON(w, http.StatusOK, editedDraft{Quiz: quiz, Violations: violations})
}

func (s *Server) listTests(w http.ResponseWriter, r *http.Request) {
	quizzes, err := s.authoring.ListTests(r.Context(), classFrom(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (s *Server) createTest(w http.ResponseWriter, r *http.Request) {
	s.saveTest(w, r, "", http.StatusCreated)
}

func (s *Server) replaceTest(w http.ResponseWriter, r *http.Request) {
	key := testKey(r)
	if _, err := s.authoring.GetTest(r.Context(), key.ClassID, key.TestID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.saveTest(w, r, key.TestID, http.StatusOK)
}

func (s *Server) saveTest(w http.ResponseWriter, r *http.Request, testID string, status int) {
	var doc quizDocument
	if err := s.decode(r, &doc); err != nil {
		s.writeError(w, r, err)
		return
	}
	quiz, err := s.authoring.SaveTest(r.Context(), classFrom(r).ID, testID, doc.draft())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, status, quiz)
}

func (s *Server) getTest(w http.ResponseWriter, r *http.Request) {
	key := testKey(r)
	quiz, err := s.authoring.GetTest(r.Context(), key.ClassID, key.TestID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (s *Server) deleteTest(w http.ResponseWriter, r *http.Request) {
	key := testKey(r)
	if err := s.authoring.DeleteTest(r.Context(), key.ClassID, key.TestID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.submissions.ListAll(r.Context(), testKey(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (s *Server) listLiveSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.live.Sessions(r.Context(), testKey(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) monitorSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.monitor.Snapshot(r.Context(), testKey(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
