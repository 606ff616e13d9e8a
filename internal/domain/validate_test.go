package domain

import (
	"errors"
	"testing"
)

const generatedShared = `{
  "title": "  The Roman Empire - Reading Check ",
  "passage": ["(1) The Roman Empire was large.", "", "   ", "(2) It built roads."],
  "questions": [
    {"id": 7, "passage": [], "text": "What did the roads facilitate?",
     "options": [{"label": "a", "text": "Emperors"}, {"label": "b", "text": "Trade"}],
     "correctAnswer": "b", "explanation": "Sentence 2."},
    {"id": 7, "passage": [""], "text": "How large was it?",
     "options": [{"label": "A", "text": "Small"}, {"label": "B", "text": "Large"}],
     "correctAnswer": "B", "explanation": "Sentence 1."}
  ]
}`

func TestDecodeQuizNormalizesGeneratedDocument(t *testing.T) {
	quiz, err := DecodeQuiz([]byte(generatedShared))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if quiz.Title != "The Roman Empire - Reading Check" {
		t.Fatalf("title not trimmed: %q", quiz.Title)
	}
	if len(quiz.Passage) != 2 {
		t.Fatalf("expected blank paragraphs stripped, got %q", quiz.Passage)
	}
	if quiz.Mode() != PassageShared {
		t.Fatalf("expected shared mode, got %s", quiz.Mode())
	}
	for i, q := range quiz.Questions {
		if q.ID != i+1 {
			t.Fatalf("expected sequential id %d, got %d", i+1, q.ID)
		}
		if len(q.Passage) != 0 {
			t.Fatalf("expected empty question passage, got %q", q.Passage)
		}
	}
	if quiz.Questions[0].Options[0].Label != "A" || quiz.Questions[0].CorrectAnswer != "B" {
		t.Fatalf("expected uppercased labels, got %+v", quiz.Questions[0])
	}
}

func TestDecodeQuizPerQuestionMode(t *testing.T) {
	doc := `{"title": "Words in Context", "passage": [],
	  "questions": [
	    {"passage": ["Mini paragraph one."], "text": "Q1", "options": [{"label": "A", "text": "x"}], "correctAnswer": "A"},
	    {"passage": ["Mini paragraph two."], "text": "Q2", "options": [{"label": "A", "text": "y"}], "correctAnswer": "A"}
	  ]}`
	quiz, err := DecodeQuiz([]byte(doc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if quiz.Mode() != PassagePerQuestion {
		t.Fatalf("expected per-question mode, got %s", quiz.Mode())
	}
}

func TestDecodeQuizMalformed(t *testing.T) {
	_, err := DecodeQuiz([]byte(`{"title": 12}`))
	var verr *ValidationError
	if !errors.As(err, &verr) || !verr.Has(ReasonMalformed) {
		t.Fatalf("expected malformed violation, got %v", err)
	}
	if !errors.Is(err, ErrInvalidQuiz) {
		t.Fatalf("expected ErrInvalidQuiz in chain")
	}
}

func TestNormalizeQuizRejections(t *testing.T) {
	base := func() Quiz {
		return Quiz{
			Title:   "Quiz",
			Passage: []string{"Shared text."},
			Questions: []Question{{
				ID:   1,
				Text: "Q1",
				Options: []Option{
					{Label: "A", Text: "one"},
					{Label: "B", Text: "two"},
				},
				CorrectAnswer: "B",
			}},
		}
	}

	cases := []struct {
		name   string
		mutate func(*Quiz)
		reason Reason
	}{
		{"missing title", func(q *Quiz) { q.Title = "  " }, ReasonMissingTitle},
		{"no questions", func(q *Quiz) { q.Questions = nil }, ReasonNoQuestions},
		{"missing options", func(q *Quiz) { q.Questions[0].Options = nil }, ReasonMissingOptions},
		{"hallucinated answer", func(q *Quiz) { q.Questions[0].CorrectAnswer = "E" }, ReasonInvalidCorrectAnswer},
		{"duplicate labels", func(q *Quiz) { q.Questions[0].Options[0].Label = "b" }, ReasonDuplicateLabel},
		{"empty label", func(q *Quiz) { q.Questions[0].Options[0].Label = "" }, ReasonInvalidLabel},
		{"both passage modes", func(q *Quiz) { q.Questions[0].Passage = []string{"own"} }, ReasonAmbiguousPassageMode},
		{"neither passage mode", func(q *Quiz) { q.Passage = []string{"", " "} }, ReasonAmbiguousPassageMode},
		{"missing text", func(q *Quiz) { q.Questions[0].Text = "" }, ReasonMissingQuestionText},
		{"duplicate ids", func(q *Quiz) { q.Questions = append(q.Questions, q.Questions[0]) }, ReasonDuplicateQuestionID},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := base()
			tc.mutate(&q)
			_, err := NormalizeQuiz(q)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !verr.Has(tc.reason) {
				t.Fatalf("expected reason %s, got %+v", tc.reason, verr.Violations)
			}
		})
	}
}

func TestNormalizeQuizMixedPerQuestionPassages(t *testing.T) {
	q := Quiz{
		Title: "Mixed",
		Questions: []Question{
			{Text: "Q1", Passage: []string{"own"}, Options: []Option{{Label: "A"}}, CorrectAnswer: "A"},
			{Text: "Q2", Options: []Option{{Label: "A"}}, CorrectAnswer: "A"},
		},
	}
	_, err := NormalizeQuiz(q)
	var verr *ValidationError
	if !errors.As(err, &verr) || !verr.Has(ReasonAmbiguousPassageMode) {
		t.Fatalf("expected passage mode violation, got %v", err)
	}
}

func TestNormalizeQuizKeepsExistingIDs(t *testing.T) {
	q := Quiz{
		Title:   "Edited",
		Passage: []string{"text"},
		Questions: []Question{
			{ID: 3, Text: "kept", Options: []Option{{Label: "A"}}, CorrectAnswer: "A"},
			{Text: "new", Options: []Option{{Label: "A"}}, CorrectAnswer: "A"},
		},
	}
	out, err := NormalizeQuiz(q)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if out.Questions[0].ID != 3 || out.Questions[1].ID != 4 {
		t.Fatalf("expected ids 3 and 4, got %d and %d", out.Questions[0].ID, out.Questions[1].ID)
	}
	if q.Questions[1].ID != 0 {
		t.Fatalf("input was mutated")
	}
}

func TestSplitParagraphs(t *testing.T) {
	got := SplitParagraphs("First para.\r\n\r\nSecond para.\n\n\n\n  ")
	if len(got) != 2 || got[0] != "First para." || got[1] != "Second para." {
		t.Fatalf("unexpected paragraphs %q", got)
	}
}
