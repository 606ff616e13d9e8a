package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/domain"
	"classroom-quiz-service/internal/infra/postgres"
	pgmigrations "classroom-quiz-service/internal/infra/postgres/migrations"
	infraredis "classroom-quiz-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

// instance is one service process: shared Postgres and Redis, its own feeds.
type instance struct {
	directory *app.Directory
	authoring *app.Authoring
	monitor   *app.Monitor
	attempts  *app.Attempts
}

func newInstance(t *testing.T, ctx context.Context, pool *pgxpool.Pool, client *goredis.Client, log logrus.FieldLogger) *instance {
	t.Helper()
	classes := postgres.NewClassStore(pool)
	tests := infraredis.NewTestCache(client, postgres.NewTestStore(pool), time.Minute)
	submissions := postgres.NewSubmissionStore(pool)
	live := postgres.NewLiveSessionStore(pool)
	bus := infraredis.NewChangeBus(client, log)

	results := app.NewSubmissions(submissions, bus, log)
	tracker := app.NewLiveTracker(live, bus, log)
	monitor := app.NewMonitor(tests, tracker, results, log)
	stop, err := bus.Subscribe(ctx, app.Fanout(ctx, results, tracker, monitor))
	if err != nil {
		t.Fatalf("subscribe bus: %v", err)
	}
	t.Cleanup(stop)

	return &instance{
		directory: app.NewDirectory(classes, tests, submissions, live, log),
		authoring: app.NewAuthoring(classes, tests, submissions, live, nil, log),
		monitor:   monitor,
		attempts:  app.NewAttempts(tests, tracker, results),
	}
}

func TestQuizLifecycleAcrossInstances(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	client, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer client.Close()

	log := logrus.New()
	log.SetOutput(io.Discard)
	teacherSide := newInstance(t, ctx, pool, client, log)
	studentSide := newInstance(t, ctx, pool, client, log)

	class, err := teacherSide.directory.CreateClass(ctx, "teacher-1", "World History 101")
	if err != nil {
		t.Fatalf("create class: %v", err)
	}
	if joined, err := studentSide.directory.JoinByCode(ctx, class.JoinCode); err != nil || joined.ID != class.ID {
		t.Fatalf("join: %v %+v", err, joined)
	}

	quiz, err := teacherSide.authoring.SaveTest(ctx, class.ID, "", domain.NewDraft(romanQuiz()))
	if err != nil {
		t.Fatalf("save quiz: %v", err)
	}
	key := domain.TestKey{ClassID: class.ID, TestID: quiz.ID}

	sub, err := teacherSide.monitor.Subscribe(ctx, key)
	if err != nil {
		t.Fatalf("subscribe monitor: %v", err)
	}
	defer sub.Dispose()
	<-sub.C

	if _, err := studentSide.attempts.Start(ctx, key, "Alice"); err != nil {
		t.Fatalf("start: %v", err)
	}
	snap := awaitSnapshot(t, sub, func(s app.MonitorSnapshot) bool { return len(s.Active) == 1 })
	if snap.Active[0].StudentName != "Alice" {
		t.Fatalf("expected Alice active, got %+v", snap.Active)
	}

	result, err := studentSide.attempts.Submit(ctx, key, "Alice", domain.Answers{1: "B", 2: "C"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 50 {
		t.Fatalf("expected 50, got %d", result.Score)
	}
	snap = awaitSnapshot(t, sub, func(s app.MonitorSnapshot) bool { return s.CompletedStudents == 1 })
	if len(snap.Active) != 0 || snap.Questions[0].CorrectPercent != 100 || snap.Questions[1].CorrectPercent != 0 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	if err := teacherSide.directory.DeleteClass(ctx, class.ID); err != nil {
		t.Fatalf("delete class: %v", err)
	}
	var remaining int
	if err := pool.QueryRow(ctx, `SELECT (SELECT count(*) FROM tests) + (SELECT count(*) FROM submissions) + (SELECT count(*) FROM live_sessions)`).Scan(&remaining); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected cascade to remove all children, %d rows left", remaining)
	}
	if _, err := studentSide.attempts.Start(ctx, key, "Alice"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected deleted quiz to be gone from cache too, got %v", err)
	}
}

func TestPostgresStores(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	classes := postgres.NewClassStore(pool)
	now := time.Now().UTC()
	if err := classes.CreateClass(ctx, domain.Class{ID: "c1", Name: "A", JoinCode: "ABC123", TeacherID: "t1", CreatedAt: now}); err != nil {
		t.Fatalf("create: %v", err)
	}
	err = classes.CreateClass(ctx, domain.Class{ID: "c2", Name: "B", JoinCode: "ABC123", TeacherID: "t1", CreatedAt: now})
	if !errors.Is(err, domain.ErrJoinCodeTaken) {
		t.Fatalf("expected join code collision, got %v", err)
	}
	if _, err := classes.FindByJoinCode(ctx, "abc123"); !errors.Is(err, domain.ErrClassNotFound) {
		t.Fatalf("expected exact-match lookup, got %v", err)
	}

	tests := postgres.NewTestStore(pool)
	quiz := romanQuiz()
	quiz.ID, quiz.ClassID, quiz.UpdatedAt = "q1", "c1", now
	quiz.Questions[0].ID, quiz.Questions[1].ID = 1, 2
	if err := tests.SaveTest(ctx, quiz); err != nil {
		t.Fatalf("save test: %v", err)
	}

	live := postgres.NewLiveSessionStore(pool)
	key := domain.TestKey{ClassID: "c1", TestID: "q1"}
	three := 3
	if _, err := live.UpsertLiveSession(ctx, key, domain.LiveSessionUpdate{StudentName: "Alice", CurrentQuestionIndex: &three, Answers: domain.Answers{1: "A"}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	merged, err := live.UpsertLiveSession(ctx, key, domain.LiveSessionUpdate{StudentName: "Alice", Answers: domain.Answers{1: "B"}})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged.CurrentQuestionIndex != 3 || merged.Answers[1] != "B" {
		t.Fatalf("expected index kept and answers replaced, got %+v", merged)
	}

	submissions := postgres.NewSubmissionStore(pool)
	for i, score := range []int{10, 20, 30} {
		err := submissions.AppendSubmission(ctx, domain.Submission{
			ID: fmt.Sprintf("s%d", i), ClassID: "c1", TestID: "q1", StudentName: "Alice",
			Score: score, Answers: domain.Answers{1: "B"}, Timestamp: now,
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	subs, err := submissions.ListSubmissions(ctx, "c1", "q1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 3 || subs[0].Score != 10 || subs[2].Score != 30 {
		t.Fatalf("expected insertion order on equal timestamps, got %+v", subs)
	}
}

func awaitSnapshot(t *testing.T, sub *app.Subscription[app.MonitorSnapshot], ok func(app.MonitorSnapshot) bool) app.MonitorSnapshot {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case snap := <-sub.C:
			if ok(snap) {
				return snap
			}
		case <-deadline:
			t.Fatalf("snapshot condition not reached")
		}
	}
}

func romanQuiz() domain.Quiz {
	return domain.Quiz{
		Title:   "The Roman Empire - Reading Check",
		Passage: []string{"(1) The Roman Empire spanned from Britannia to Egypt."},
		Questions: []domain.Question{
			{
				Text:          "What did the Roman roads facilitate?",
				Options:       []domain.Option{{Label: "A", Text: "A new emperor."}, {Label: "B", Text: "Trade."}},
				CorrectAnswer: "B",
			},
			{
				Text:          "How far did the empire reach?",
				Options:       []domain.Option{{Label: "A", Text: "Only Italy."}, {Label: "B", Text: "Britannia to Egypt."}},
				CorrectAnswer: "B",
			},
		},
	}
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
