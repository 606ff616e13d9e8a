package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"classroom-quiz-service/internal/ai"
	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/auth"
	"classroom-quiz-service/internal/config"
	"classroom-quiz-service/internal/infra/memory"
	"classroom-quiz-service/internal/infra/postgres"
	redisinfra "classroom-quiz-service/internal/infra/redis"
	transport "classroom-quiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// repositories is the storage selected from config: Postgres when configured,
// Redis for live sessions, the cache and the change bus when configured, memory otherwise.
type repositories struct {
	classes     app.ClassRepository
	tests       app.TestRepository
	submissions app.SubmissionRepository
	live        app.LiveSessionRepository
	bus         app.ChangeBus
	close       func()
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, err := openRepositories(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer repos.close()

	var generator app.QuizGenerator
	if cfg.AI.APIKey != "" {
		generator = ai.NewClient(ai.Options{
			APIKey:      cfg.AI.APIKey,
			BaseURL:     cfg.AI.BaseURL,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			MaxImagePx:  cfg.AI.MaxImagePx,
			Timeout:     config.TTLDuration(cfg.AI.Timeout, 120*time.Second),
		}, log)
	} else {
		log.Warn("ai.api_key not set, quiz generation disabled")
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = randomSecret()
		log.Warn("auth.jwt_secret not set, using an ephemeral secret; teacher tokens will not survive a restart")
	}

	results := app.NewSubmissions(repos.submissions, repos.bus, log)
	tracker := app.NewLiveTracker(repos.live, repos.bus, log)
	monitor := app.NewMonitor(repos.tests, tracker, results, log)
	unsubscribe, err := repos.bus.Subscribe(ctx, app.Fanout(ctx, results, tracker, monitor))
	if err != nil {
		return err
	}
	defer unsubscribe()

	srv := transport.NewServer(transport.Deps{
		Directory:   app.NewDirectory(repos.classes, repos.tests, repos.submissions, repos.live, log),
		Authoring:   app.NewAuthoring(repos.classes, repos.tests, repos.submissions, repos.live, generator, log),
		Submissions: results,
		Live:        tracker,
		Monitor:     monitor,
		Attempts:    app.NewAttempts(repos.tests, tracker, results),
		Verifier:    auth.NewVerifier(secret, cfg.Auth.Issuer),
		CORSOrigins: cfg.Server.CORSOrigins,
		Log:         log,
	})

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("port", finalPort).Info("starting quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openRepositories(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*repositories, error) {
	closers := make([]func(), 0, 2)
	repos := &repositories{close: func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}}

	var (
		durableTests app.TestRepository
		pool         *pgxpool.Pool
		client       *redis.Client
	)
	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, log); err != nil {
			return nil, err
		}
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		closers = append(closers, pool.Close)
		repos.classes = postgres.NewClassStore(pool)
		durableTests = postgres.NewTestStore(pool)
		repos.submissions = postgres.NewSubmissionStore(pool)
		repos.live = postgres.NewLiveSessionStore(pool)
		log.Info("using postgres storage")
	} else {
		repos.classes = memory.NewClassStore()
		durableTests = memory.NewTestStore()
		repos.submissions = memory.NewSubmissionStore()
		repos.live = memory.NewLiveSessionStore()
		log.Warn("postgres.url not set, data is kept in memory only")
	}

	cacheTTL := config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute)
	if cfg.Redis.Addr != "" {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			repos.close()
			return nil, err
		}
		closers = append(closers, func() { _ = client.Close() })
		repos.tests = redisinfra.NewTestCache(client, durableTests, cacheTTL)
		repos.bus = redisinfra.NewChangeBus(client, log)
		if pool == nil {
			repos.live = redisinfra.NewLiveSessionStore(client)
		}
		log.WithField("addr", cfg.Redis.Addr).Info("using redis cache and change bus")
	} else {
		repos.tests = memory.NewTestCache(durableTests, cacheTTL)
		repos.bus = memory.NewChangeBus()
	}
	return repos, nil
}

func randomSecret() string {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
