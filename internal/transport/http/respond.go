package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"classroom-quiz-service/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

type errorBody struct {
	Error      string             `json:"error"`
	Violations []domain.Violation `json:"violations,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		validation *domain.ValidationError
		external   *domain.ExternalServiceError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusUnprocessableEntity
	case errors.As(err, &external):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrEmptyQuiz):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrNoSourceMaterial):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrJoinCodeTaken):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}
	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		body.Violations = validation.Violations
	}

	entry := s.log.WithError(err).WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path, "status": status})
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
		if status == http.StatusInternalServerError {
			body.Error = "internal error"
		}
	} else {
		entry.Debug("request rejected")
	}
	writeJSON(w, status, body)
}

// decode reads a JSON body into dst and runs its validate tags.
func (s *Server) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed body: %v", domain.ErrInvalidInput, err)
	}
	return s.check(dst)
}

func (s *Server) check(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(msgs, ", "))
}
