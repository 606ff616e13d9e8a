package domain

import "time"

// Class groups students under one teacher and is resolved by its join code.
type Class struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	JoinCode  string    `json:"joinCode"`
	TeacherID string    `json:"teacherId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Option is one labelled answer choice.
type Option struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Question models a multiple-choice question with exactly one correct label.
type Question struct {
	ID            int      `json:"id"`
	Text          string   `json:"text"`
	Passage       []string `json:"passage"`
	Options       []Option `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

// Quiz is a titled set of questions assigned to a class.
type Quiz struct {
	ID        string     `json:"id"`
	ClassID   string     `json:"classId"`
	Title     string     `json:"title"`
	Passage   []string   `json:"passage"`
	Questions []Question `json:"questions"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Question returns the question with the given id.
func (q Quiz) Question(id int) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == id {
			return question, true
		}
	}
	return Question{}, false
}

// PassageMode reports whether reading material is shared or carried per question.
type PassageMode string

const (
	PassageShared      PassageMode = "shared"
	PassagePerQuestion PassageMode = "per_question"
)

// Mode derives the passage mode of an already validated quiz.
func (q Quiz) Mode() PassageMode {
	if len(q.Passage) > 0 {
		return PassageShared
	}
	return PassagePerQuestion
}

// Answers maps question ids to the chosen option label.
type Answers map[int]string

// Clone returns an independent copy; nil stays nil.
func (a Answers) Clone() Answers {
	if a == nil {
		return nil
	}
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Submission is one immutable completed attempt.
type Submission struct {
	ID          string    `json:"id"`
	ClassID     string    `json:"classId"`
	TestID      string    `json:"testId"`
	StudentName string    `json:"studentName"`
	Score       int       `json:"score"`
	Answers     Answers   `json:"answers"`
	Timestamp   time.Time `json:"timestamp"`
}

// LiveSession is where a student currently is inside an attempt.
type LiveSession struct {
	ClassID              string    `json:"classId"`
	TestID               string    `json:"testId"`
	StudentName          string    `json:"studentName"`
	CurrentQuestionIndex int       `json:"currentQuestionIndex"`
	Answers              Answers   `json:"answers"`
	LastUpdated          time.Time `json:"lastUpdated"`
}

// LiveSessionUpdate carries a merge-write. Nil fields keep the stored value.
type LiveSessionUpdate struct {
	StudentName          string
	CurrentQuestionIndex *int
	Answers              Answers
}

// Apply merges the update into an existing session (or a zero value for a new one).
func (u LiveSessionUpdate) Apply(existing LiveSession, now time.Time) LiveSession {
	out := existing
	out.StudentName = u.StudentName
	if u.CurrentQuestionIndex != nil {
		out.CurrentQuestionIndex = *u.CurrentQuestionIndex
	}
	if u.Answers != nil {
		out.Answers = u.Answers.Clone()
	}
	if out.Answers == nil {
		out.Answers = Answers{}
	}
	out.LastUpdated = now
	return out
}

// TestKey addresses one quiz inside one class.
type TestKey struct {
	ClassID string `json:"classId"`
	TestID  string `json:"testId"`
}

// ChangeKind says which child collection of a quiz changed.
type ChangeKind string

const (
	ChangeLiveSessions ChangeKind = "live_sessions"
	ChangeSubmissions  ChangeKind = "submissions"
)

// ChangeEvent signals that a quiz's live sessions or submissions were written.
type ChangeEvent struct {
	Key  TestKey    `json:"key"`
	Kind ChangeKind `json:"kind"`
}

// Image is one uploaded page of reading material.
type Image struct {
	Data     []byte
	MIMEType string
}

// SourceMaterial is what a teacher hands to quiz generation.
type SourceMaterial struct {
	Images []Image
	Text   string
}
