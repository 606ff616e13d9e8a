package domain

import "fmt"

// Draft is an unsaved quiz being edited by a teacher. Every edit returns a new
// Draft and leaves the receiver untouched; nothing is persisted until the
// draft is validated and saved as a whole.
type Draft struct {
	quiz Quiz
}

// NewDraft starts a draft from a quiz (generated or previously saved).
func NewDraft(q Quiz) Draft {
	return Draft{quiz: cloneQuiz(q)}
}

// Quiz returns a copy of the draft's current document.
func (d Draft) Quiz() Quiz {
	return cloneQuiz(d.quiz)
}

// Validate normalizes the draft into a quiz ready for persistence.
func (d Draft) Validate() (Quiz, error) {
	return NormalizeQuiz(d.quiz)
}

func (d Draft) WithTitle(title string) Draft {
	next := d.Quiz()
	next.Title = title
	return Draft{quiz: next}
}

// WithPassage replaces the shared passage.
func (d Draft) WithPassage(paragraphs []string) Draft {
	next := d.Quiz()
	next.Passage = append([]string(nil), paragraphs...)
	return Draft{quiz: next}
}

func (d Draft) WithQuestionText(id int, text string) (Draft, error) {
	return d.editQuestion(id, func(q *Question) error {
		q.Text = text
		return nil
	})
}

func (d Draft) WithQuestionPassage(id int, paragraphs []string) (Draft, error) {
	return d.editQuestion(id, func(q *Question) error {
		q.Passage = append([]string(nil), paragraphs...)
		return nil
	})
}

func (d Draft) WithExplanation(id int, text string) (Draft, error) {
	return d.editQuestion(id, func(q *Question) error {
		q.Explanation = text
		return nil
	})
}

func (d Draft) WithCorrectAnswer(id int, label string) (Draft, error) {
	return d.editQuestion(id, func(q *Question) error {
		q.CorrectAnswer = label
		return nil
	})
}

// WithOption sets the text of the option with label, appending it when absent.
func (d Draft) WithOption(id int, label, text string) (Draft, error) {
	return d.editQuestion(id, func(q *Question) error {
		for i := range q.Options {
			if normalizeLabel(q.Options[i].Label) == normalizeLabel(label) {
				q.Options[i].Text = text
				return nil
			}
		}
		q.Options = append(q.Options, Option{Label: label, Text: text})
		return nil
	})
}

func (d Draft) WithoutOption(id int, label string) (Draft, error) {
	return d.editQuestion(id, func(q *Question) error {
		kept := q.Options[:0]
		for _, opt := range q.Options {
			if normalizeLabel(opt.Label) != normalizeLabel(label) {
				kept = append(kept, opt)
			}
		}
		q.Options = kept
		return nil
	})
}

// AddQuestion appends a question and gives it the next free id.
func (d Draft) AddQuestion(q Question) (Draft, int) {
	next := d.Quiz()
	maxID := 0
	for _, existing := range next.Questions {
		if existing.ID > maxID {
			maxID = existing.ID
		}
	}
	added := cloneQuestion(q)
	added.ID = maxID + 1
	next.Questions = append(next.Questions, added)
	return Draft{quiz: next}, added.ID
}

func (d Draft) RemoveQuestion(id int) (Draft, error) {
	next := d.Quiz()
	for i := range next.Questions {
		if next.Questions[i].ID == id {
			next.Questions = append(next.Questions[:i], next.Questions[i+1:]...)
			return Draft{quiz: next}, nil
		}
	}
	return d, ErrQuestionNotFound
}

// EditOp names a single draft edit.
type EditOp string

const (
	EditSetTitle           EditOp = "set_title"
	EditSetPassage         EditOp = "set_passage"
	EditSetQuestionText    EditOp = "set_question_text"
	EditSetQuestionPassage EditOp = "set_question_passage"
	EditSetExplanation     EditOp = "set_explanation"
	EditSetCorrectAnswer   EditOp = "set_correct_answer"
	EditSetOption          EditOp = "set_option"
	EditRemoveOption       EditOp = "remove_option"
	EditAddQuestion        EditOp = "add_question"
	EditRemoveQuestion     EditOp = "remove_question"
)

// Edit is one change made in the editor. Which fields are read depends on Op;
// passage edits carry editor text that is split on blank lines.
type Edit struct {
	Op         EditOp    `json:"op"`
	QuestionID int       `json:"questionId,omitempty"`
	Label      string    `json:"label,omitempty"`
	Text       string    `json:"text,omitempty"`
	Question   *Question `json:"question,omitempty"`
}

// Apply returns the draft with e applied. On error the receiver is returned.
func (d Draft) Apply(e Edit) (Draft, error) {
	switch e.Op {
	case EditSetTitle:
		return d.WithTitle(e.Text), nil
	case EditSetPassage:
		return d.WithPassage(SplitParagraphs(e.Text)), nil
	case EditSetQuestionText:
		return d.WithQuestionText(e.QuestionID, e.Text)
	case EditSetQuestionPassage:
		return d.WithQuestionPassage(e.QuestionID, SplitParagraphs(e.Text))
	case EditSetExplanation:
		return d.WithExplanation(e.QuestionID, e.Text)
	case EditSetCorrectAnswer:
		return d.WithCorrectAnswer(e.QuestionID, e.Label)
	case EditSetOption:
		return d.WithOption(e.QuestionID, e.Label, e.Text)
	case EditRemoveOption:
		return d.WithoutOption(e.QuestionID, e.Label)
	case EditAddQuestion:
		if e.Question == nil {
			return d, fmt.Errorf("%w: add_question needs a question", ErrInvalidInput)
		}
		next, _ := d.AddQuestion(*e.Question)
		return next, nil
	case EditRemoveQuestion:
		return d.RemoveQuestion(e.QuestionID)
	default:
		return d, fmt.Errorf("%w: unknown edit %q", ErrInvalidInput, e.Op)
	}
}

func (d Draft) editQuestion(id int, edit func(*Question) error) (Draft, error) {
	next := d.Quiz()
	for i := range next.Questions {
		if next.Questions[i].ID != id {
			continue
		}
		if err := edit(&next.Questions[i]); err != nil {
			return d, err
		}
		return Draft{quiz: next}, nil
	}
	return d, ErrQuestionNotFound
}

func cloneQuiz(q Quiz) Quiz {
	out := q
	out.Passage = append([]string(nil), q.Passage...)
	out.Questions = make([]Question, 0, len(q.Questions))
	for _, question := range q.Questions {
		out.Questions = append(out.Questions, cloneQuestion(question))
	}
	return out
}

func cloneQuestion(q Question) Question {
	out := q
	out.Passage = append([]string(nil), q.Passage...)
	out.Options = append([]Option(nil), q.Options...)
	return out
}

// Clone returns a deep copy of the quiz.
func (q Quiz) Clone() Quiz {
	return cloneQuiz(q)
}
