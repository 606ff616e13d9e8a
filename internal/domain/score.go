package domain

import "math"

// Score returns round(100 * correct / total). Unanswered questions count as wrong.
func Score(quiz Quiz, answers Answers) (int, error) {
	if len(quiz.Questions) == 0 {
		return 0, ErrEmptyQuiz
	}
	correct := 0
	for _, q := range quiz.Questions {
		if label, ok := answers[q.ID]; ok && label == q.CorrectAnswer {
			correct++
		}
	}
	return int(math.Round(100 * float64(correct) / float64(len(quiz.Questions)))), nil
}

// CanStart reports whether a student may begin an attempt on the quiz.
func CanStart(quiz Quiz) error {
	if len(quiz.Questions) == 0 {
		return ErrEmptyQuiz
	}
	return nil
}
