package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// candidateQuiz mirrors the generation payload loosely; nothing in it is trusted.
type candidateQuiz struct {
	Title     string              `json:"title"`
	Passage   []string            `json:"passage"`
	Questions []candidateQuestion `json:"questions"`
}

type candidateQuestion struct {
	ID            json.RawMessage `json:"id"`
	Text          string          `json:"text"`
	Passage       []string        `json:"passage"`
	Options       []Option        `json:"options"`
	CorrectAnswer string          `json:"correctAnswer"`
	Explanation   string          `json:"explanation"`
}

// DecodeQuiz turns an untrusted JSON document into a validated Quiz.
// Question ids carried by the document are discarded and reassigned 1..n.
func DecodeQuiz(data []byte) (Quiz, error) {
	var candidate candidateQuiz
	if err := json.Unmarshal(data, &candidate); err != nil {
		return Quiz{}, &ValidationError{Violations: []Violation{{
			Reason:        ReasonMalformed,
			QuestionIndex: -1,
			Detail:        err.Error(),
		}}}
	}

	quiz := Quiz{
		Title:     candidate.Title,
		Passage:   candidate.Passage,
		Questions: make([]Question, 0, len(candidate.Questions)),
	}
	for _, q := range candidate.Questions {
		quiz.Questions = append(quiz.Questions, Question{
			Text:          q.Text,
			Passage:       q.Passage,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
		})
	}
	return NormalizeQuiz(quiz)
}

// NormalizeQuiz validates a quiz document and returns its normalized form.
// Labels and correct answers are trimmed and uppercased, blank paragraphs are
// dropped, and questions without a positive id receive the next free id.
// The input is never modified.
func NormalizeQuiz(in Quiz) (Quiz, error) {
	var violations []Violation
	add := func(reason Reason, index int, format string, args ...any) {
		violations = append(violations, Violation{Reason: reason, QuestionIndex: index, Detail: fmt.Sprintf(format, args...)})
	}

	out := Quiz{
		ID:        in.ID,
		ClassID:   in.ClassID,
		Title:     strings.TrimSpace(in.Title),
		Passage:   cleanParagraphs(in.Passage),
		UpdatedAt: in.UpdatedAt,
	}
	if out.Title == "" {
		add(ReasonMissingTitle, -1, "title is required")
	}
	if len(in.Questions) == 0 {
		add(ReasonNoQuestions, -1, "at least one question is required")
	}

	maxID := 0
	seenIDs := make(map[int]int, len(in.Questions))
	withOwnPassage := 0
	var lacking []string

	out.Questions = make([]Question, 0, len(in.Questions))
	for i, q := range in.Questions {
		nq := Question{
			ID:          q.ID,
			Text:        strings.TrimSpace(q.Text),
			Passage:     cleanParagraphs(q.Passage),
			Explanation: strings.TrimSpace(q.Explanation),
		}
		if nq.ID < 0 {
			nq.ID = 0
		}
		if nq.ID > 0 {
			if prev, ok := seenIDs[nq.ID]; ok {
				add(ReasonDuplicateQuestionID, i, "id %d already used by question %d", nq.ID, prev+1)
			}
			seenIDs[nq.ID] = i
			if nq.ID > maxID {
				maxID = nq.ID
			}
		}
		if nq.Text == "" {
			add(ReasonMissingQuestionText, i, "question text is required")
		}
		if len(nq.Passage) > 0 {
			withOwnPassage++
		} else {
			lacking = append(lacking, fmt.Sprint(i+1))
		}

		if len(q.Options) == 0 {
			add(ReasonMissingOptions, i, "question has no options")
		}
		labels := make(map[string]int, len(q.Options))
		nq.Options = make([]Option, 0, len(q.Options))
		for j, opt := range q.Options {
			label := normalizeLabel(opt.Label)
			switch {
			case label == "":
				add(ReasonInvalidLabel, i, "option %d has no label", j+1)
			case labels[label] > 0:
				add(ReasonDuplicateLabel, i, "label %q appears more than once", label)
			}
			if label != "" {
				labels[label]++
			}
			nq.Options = append(nq.Options, Option{Label: label, Text: strings.TrimSpace(opt.Text)})
		}

		nq.CorrectAnswer = normalizeLabel(q.CorrectAnswer)
		if len(q.Options) > 0 && labels[nq.CorrectAnswer] != 1 {
			add(ReasonInvalidCorrectAnswer, i, "correct answer %q does not match exactly one option label", nq.CorrectAnswer)
		}
		out.Questions = append(out.Questions, nq)
	}

	if len(in.Questions) > 0 {
		shared := len(out.Passage) > 0
		switch {
		case shared && withOwnPassage > 0:
			add(ReasonAmbiguousPassageMode, -1, "both a shared passage and per-question passages are populated")
		case !shared && withOwnPassage == 0:
			add(ReasonAmbiguousPassageMode, -1, "neither a shared passage nor per-question passages are populated")
		case !shared && len(lacking) > 0:
			add(ReasonAmbiguousPassageMode, -1, "questions %s have no passage of their own", strings.Join(lacking, ", "))
		}
	}

	if len(violations) > 0 {
		return Quiz{}, &ValidationError{Violations: violations}
	}

	next := maxID
	for i := range out.Questions {
		if out.Questions[i].ID == 0 {
			next++
			out.Questions[i].ID = next
		}
	}
	if len(out.Passage) == 0 {
		out.Passage = []string{}
	}
	return out, nil
}

// SplitParagraphs breaks editor text on blank lines into passage paragraphs.
func SplitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return cleanParagraphs(strings.Split(text, "\n\n"))
}

func cleanParagraphs(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeLabel(label string) string {
	return strings.ToUpper(strings.TrimSpace(label))
}
