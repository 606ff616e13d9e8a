package app

import (
	"context"
	"math"
	"time"

	"classroom-quiz-service/internal/domain"
	"github.com/sirupsen/logrus"
)

// QuestionStats summarizes how the class is doing on one question.
type QuestionStats struct {
	QuestionID       int `json:"questionId"`
	Answered         int `json:"answered"`
	Correct          int `json:"correct"`
	Incorrect        int `json:"incorrect"`
	CorrectPercent   int `json:"correctPercent"`
	IncorrectPercent int `json:"incorrectPercent"`
}

// MonitorSnapshot is the teacher's live view of one quiz.
type MonitorSnapshot struct {
	ClassID           string               `json:"classId"`
	TestID            string               `json:"testId"`
	Active            []domain.LiveSession `json:"active"`
	Submissions       []domain.Submission  `json:"submissions"`
	CompletedStudents int                  `json:"completedStudents"`
	TotalParticipants int                  `json:"totalParticipants"`
	Questions         []QuestionStats      `json:"questions"`
	UpdatedAt         time.Time            `json:"updatedAt"`
}

// Monitor joins live sessions and submissions into a single teacher view.
type Monitor struct {
	tests       TestRepository
	live        *LiveTracker
	submissions *Submissions
	feed        *feed[MonitorSnapshot]
	now         func() time.Time
}

func NewMonitor(tests TestRepository, live *LiveTracker, submissions *Submissions, log logrus.FieldLogger) *Monitor {
	m := &Monitor{tests: tests, live: live, submissions: submissions, now: time.Now}
	m.feed = newFeed[MonitorSnapshot]("monitor", m.Snapshot, log)
	return m
}

// Snapshot reads the quiz, its live sessions and its submissions and reconciles them.
func (m *Monitor) Snapshot(ctx context.Context, key domain.TestKey) (MonitorSnapshot, error) {
	quiz, err := m.tests.GetTest(ctx, key.ClassID, key.TestID)
	if err != nil {
		return MonitorSnapshot{}, err
	}
	sessions, err := m.live.Sessions(ctx, key)
	if err != nil {
		return MonitorSnapshot{}, err
	}
	submissions, err := m.submissions.ListAll(ctx, key)
	if err != nil {
		return MonitorSnapshot{}, err
	}
	return BuildSnapshot(quiz, sessions, submissions, m.now().UTC()), nil
}

// Subscribe streams a fresh snapshot whenever a live session or submission of the quiz changes.
func (m *Monitor) Subscribe(ctx context.Context, key domain.TestKey) (*Subscription[MonitorSnapshot], error) {
	return m.feed.subscribe(ctx, key)
}

func (m *Monitor) HandleChange(ctx context.Context, event domain.ChangeEvent) {
	m.feed.notify(ctx, event.Key)
}

// ActiveSessions drops every live session whose student already has a submission.
func ActiveSessions(sessions []domain.LiveSession, submissions []domain.Submission) []domain.LiveSession {
	completed := make(map[string]struct{}, len(submissions))
	for _, s := range submissions {
		completed[s.StudentName] = struct{}{}
	}
	active := make([]domain.LiveSession, 0, len(sessions))
	for _, s := range sessions {
		if _, done := completed[s.StudentName]; !done {
			active = append(active, s)
		}
	}
	return active
}

// BuildSnapshot computes the monitor view. submissions must be newest first;
// per-question stats count each completed student's latest attempt plus the
// current answers of active students.
func BuildSnapshot(quiz domain.Quiz, sessions []domain.LiveSession, submissions []domain.Submission, now time.Time) MonitorSnapshot {
	active := ActiveSessions(sessions, submissions)

	latest := make(map[string]domain.Submission, len(submissions))
	for _, s := range submissions {
		if _, seen := latest[s.StudentName]; !seen {
			latest[s.StudentName] = s
		}
	}

	sources := make([]domain.Answers, 0, len(latest)+len(active))
	for _, s := range submissions {
		if latest[s.StudentName].ID == s.ID {
			sources = append(sources, s.Answers)
		}
	}
	for _, s := range active {
		sources = append(sources, s.Answers)
	}

	stats := make([]QuestionStats, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		st := QuestionStats{QuestionID: q.ID}
		for _, answers := range sources {
			label, ok := answers[q.ID]
			if !ok || label == "" {
				continue
			}
			st.Answered++
			if label == q.CorrectAnswer {
				st.Correct++
			} else {
				st.Incorrect++
			}
		}
		st.CorrectPercent = percent(st.Correct, st.Answered)
		st.IncorrectPercent = percent(st.Incorrect, st.Answered)
		stats = append(stats, st)
	}

	if submissions == nil {
		submissions = []domain.Submission{}
	}
	return MonitorSnapshot{
		ClassID:           quiz.ClassID,
		TestID:            quiz.ID,
		Active:            active,
		Submissions:       submissions,
		CompletedStudents: len(latest),
		TotalParticipants: len(latest) + len(active),
		Questions:         stats,
		UpdatedAt:         now,
	}
}

func percent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(whole)))
}
