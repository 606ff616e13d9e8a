package http

import (
	"time"

	"classroom-quiz-service/internal/domain"
)

type createClassRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

type joinRequest struct {
	Code string `json:"code" validate:"required,len=6,alphanum"`
}

// quizDocument is the editable part of a quiz; ids and timestamps are server-owned.
// PassageText is raw editor text, used when Passage is empty.
type quizDocument struct {
	Title       string            `json:"title"`
	Passage     []string          `json:"passage"`
	PassageText string            `json:"passageText,omitempty"`
	Questions   []domain.Question `json:"questions"`
}

func (d quizDocument) draft() domain.Draft {
	passage := d.Passage
	if len(passage) == 0 && d.PassageText != "" {
		passage = domain.SplitParagraphs(d.PassageText)
	}
	return domain.NewDraft(domain.Quiz{Title: d.Title, Passage: passage, Questions: d.Questions})
}

type editDraftRequest struct {
	Quiz  quizDocument  `json:"quiz"`
	Edits []domain.Edit `json:"edits" validate:"required,min=1,max=200"`
}

// editedDraft is an unsaved draft plus whatever would block saving it.
type editedDraft struct {
	Quiz       domain.Quiz        `json:"quiz"`
	Violations []domain.Violation `json:"violations"`
}

type studentRequest struct {
	StudentName string `json:"studentName" validate:"required,max=80"`
}

type progressRequest struct {
	StudentName          string         `json:"studentName" validate:"required,max=80"`
	CurrentQuestionIndex *int           `json:"currentQuestionIndex" validate:"omitempty,min=0"`
	Answers              domain.Answers `json:"answers"`
}

type submitRequest struct {
	StudentName string         `json:"studentName" validate:"required,max=80"`
	Answers     domain.Answers `json:"answers"`
}

// joinedClass is what a student learns about a class from its code.
type joinedClass struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type testSummary struct {
	ID            string             `json:"id"`
	Title         string             `json:"title"`
	QuestionCount int                `json:"questionCount"`
	PassageMode   domain.PassageMode `json:"passageMode"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

func summarize(quizzes []domain.Quiz) []testSummary {
	out := make([]testSummary, 0, len(quizzes))
	for _, q := range quizzes {
		out = append(out, testSummary{
			ID:            q.ID,
			Title:         q.Title,
			QuestionCount: len(q.Questions),
			PassageMode:   q.Mode(),
			UpdatedAt:     q.UpdatedAt,
		})
	}
	return out
}
