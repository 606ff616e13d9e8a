package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is the generic lookup failure; the specific errors below wrap it.
	ErrNotFound = errors.New("not found")
	// ErrClassNotFound is returned for unknown class ids and join codes.
	ErrClassNotFound = fmt.Errorf("class %w", ErrNotFound)
	// ErrTestNotFound indicates the quiz could not be loaded.
	ErrTestNotFound = fmt.Errorf("quiz %w", ErrNotFound)
	// ErrQuestionNotFound indicates a question id does not exist in the quiz.
	ErrQuestionNotFound = fmt.Errorf("question %w", ErrNotFound)
	// ErrInvalidQuiz is wrapped by every ValidationError.
	ErrInvalidQuiz = errors.New("invalid quiz document")
	// ErrEmptyQuiz is returned when scoring or starting a quiz without questions.
	ErrEmptyQuiz = errors.New("quiz has no questions")
	// ErrJoinCodeTaken is returned by stores when a join code already exists.
	ErrJoinCodeTaken = errors.New("join code already in use")
	// ErrNoSourceMaterial is returned when generation is asked for without images or text.
	ErrNoSourceMaterial = errors.New("provide at least one image or some text")
	// ErrInvalidInput covers malformed caller input outside quiz documents.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthenticated is returned when a teacher token is missing or invalid.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrForbidden is returned when a teacher acts on another teacher's class.
	ErrForbidden = errors.New("forbidden")
)

// Reason classifies a quiz validation failure.
type Reason string

const (
	ReasonMalformed            Reason = "malformed_document"
	ReasonMissingTitle         Reason = "missing_title"
	ReasonNoQuestions          Reason = "no_questions"
	ReasonMissingQuestionText  Reason = "missing_question_text"
	ReasonMissingOptions       Reason = "missing_options"
	ReasonInvalidLabel         Reason = "invalid_label"
	ReasonDuplicateLabel       Reason = "duplicate_label"
	ReasonInvalidCorrectAnswer Reason = "invalid_correct_answer"
	ReasonDuplicateQuestionID  Reason = "duplicate_question_id"
	ReasonAmbiguousPassageMode Reason = "ambiguous_passage_mode"
)

// Violation is one problem found in a quiz document. QuestionIndex is zero-based, -1 for quiz-level problems.
type Violation struct {
	Reason        Reason `json:"reason"`
	QuestionIndex int    `json:"questionIndex"`
	Detail        string `json:"detail"`
}

func (v Violation) String() string {
	if v.QuestionIndex < 0 {
		return fmt.Sprintf("%s: %s", v.Reason, v.Detail)
	}
	return fmt.Sprintf("question %d: %s: %s", v.QuestionIndex+1, v.Reason, v.Detail)
}

// ValidationError lists every violation found in a rejected quiz document.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("%s (%s); regenerate the quiz or edit it manually", ErrInvalidQuiz, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidQuiz }

// Has reports whether any violation carries the reason.
func (e *ValidationError) Has(reason Reason) bool {
	for _, v := range e.Violations {
		if v.Reason == reason {
			return true
		}
	}
	return false
}

// ExternalServiceError wraps failures of the quiz generation collaborator.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v; please try again or use different material", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// CascadeError aggregates child deletions that failed while removing a class or quiz.
type CascadeError struct {
	Parent   string
	Failures []error
}

func (e *CascadeError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, err := range e.Failures {
		parts = append(parts, err.Error())
	}
	return fmt.Sprintf("cascade delete of %s left %d orphaned collections: %s", e.Parent, len(e.Failures), strings.Join(parts, "; "))
}

func (e *CascadeError) Unwrap() []error { return e.Failures }
