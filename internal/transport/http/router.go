package http

import (
	"net/http"
	"time"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	maxJSONBody   = 1 << 20
	maxUploadBody = 32 << 20
	maxImageCount = 10
)

// Deps are the use cases served over HTTP.
type Deps struct {
	Directory   *app.Directory
	Authoring   *app.Authoring
	Submissions *app.Submissions
	Live        *app.LiveTracker
	Monitor     *app.Monitor
	Attempts    *app.Attempts
	Verifier    *auth.Verifier
	CORSOrigins []string
	Log         logrus.FieldLogger
}

// Server holds the handlers; build it with NewServer and mount Router().
type Server struct {
	directory   *app.Directory
	authoring   *app.Authoring
	submissions *app.Submissions
	live        *app.LiveTracker
	monitor     *app.Monitor
	attempts    *app.Attempts
	verifier    *auth.Verifier
	origins     []string
	validate    *validator.Validate
	upgrader    websocket.Upgrader
	log         logrus.FieldLogger
}

func NewServer(deps Deps) *Server {
	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		directory:   deps.Directory,
		authoring:   deps.Authoring,
		submissions: deps.Submissions,
		live:        deps.Live,
		monitor:     deps.Monitor,
		attempts:    deps.Attempts,
		verifier:    deps.Verifier,
		origins:     origins,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: deps.Log,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/teacher", func(tr chi.Router) {
		tr.Use(middleware.Timeout(3 * time.Minute))
		tr.Use(auth.Middleware(s.verifier, s.writeError))
		tr.Get("/classes", s.listClasses)
		tr.Post("/classes", s.createClass)
		tr.Route("/classes/{classID}", func(cr chi.Router) {
			cr.Use(s.requireOwner)
			cr.Get("/", s.getClass)
			cr.Delete("/", s.deleteClass)
			cr.Post("/generate", s.generateTest)
			cr.Post("/drafts/edit", s.editDraft)
			cr.Get("/tests", s.listTests)
			cr.Post("/tests", s.createTest)
			cr.Route("/tests/{testID}", func(qr chi.Router) {
				qr.Get("/", s.getTest)
				qr.Put("/", s.replaceTest)
				qr.Delete("/", s.deleteTest)
				qr.Get("/submissions", s.listSubmissions)
				qr.Get("/live", s.listLiveSessions)
				qr.Get("/monitor", s.monitorSnapshot)
			})
		})
	})

	r.Route("/api/student", func(sr chi.Router) {
		sr.Use(middleware.Timeout(30 * time.Second))
		sr.Post("/join", s.joinClass)
		sr.Get("/classes/{classID}/tests", s.studentTests)
		sr.Route("/classes/{classID}/tests/{testID}", func(qr chi.Router) {
			qr.Post("/start", s.startAttempt)
			qr.Post("/progress", s.recordProgress)
			qr.Post("/submit", s.submitAttempt)
			qr.Get("/attempts", s.attemptHistory)
		})
	})

	r.With(auth.Middleware(s.verifier, s.writeError)).Get("/ws/monitor", s.serveMonitorWS)
	r.Get("/ws/attempt", s.serveAttemptWS)
	return r
}
