package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/claude/liftlog/internal/ingest"
	liftmcp "github.com/claude/liftlog/internal/mcp"
	"github.com/claude/liftlog/internal/metrics"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/storage"
	"github.com/go-chi/chi/v5"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Store is the read side of the database plus user resolution.
// *storage.DB satisfies it.
type Store interface {
	UserStore
	GetRoutine(ctx context.Context, userID int, routineID int64) (*models.Routine, error)
	ListRoutines(ctx context.Context, userID int) ([]models.Routine, error)
	LastPerformance(ctx context.Context, q models.HistoryQuery) (models.PerformanceHistory, error)
	QueryWorkoutLogs(ctx context.Context, start, end time.Time, userID int) ([]models.WorkoutLog, error)
	GetWorkoutLog(ctx context.Context, logID int64, userID int) (*models.WorkoutLog, error)
	QueryImportLogs(ctx context.Context, userID, limit int) ([]storage.ImportLog, error)
	GetLogStats(ctx context.Context, userID int) (*storage.LogStats, error)
	GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]storage.TrainingSummaryPeriod, error)
}

var _ Store = (*storage.DB)(nil)

// Importer writes an exported training history as committed logs.
type Importer interface {
	Ingest(ctx context.Context, r io.Reader, userID int) (*ingest.Result, error)
}

// Deps are the collaborators of a Server. Importer, Gatherer and MCP are
// optional; their routes are not mounted when nil.
type Deps struct {
	Sessions *session.Manager
	Intents  *Intents
	Store    Store
	Importer Importer
	Metrics  *metrics.Manager
	Gatherer prometheus.Gatherer
	MCP      *mcpserver.MCPServer
	APIKey   string
	Log      *slog.Logger
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	sessions *session.Manager
	intents  *Intents
	store    Store
	importer Importer
	metrics  *metrics.Manager
	log      *slog.Logger
	apiKey   string
	whois    WhoIsClient
	router   chi.Router
}

// New creates a new Server with all routes configured.
func New(d Deps) *Server {
	if d.Log == nil {
		d.Log = slog.New(slog.DiscardHandler)
	}
	if d.Intents == nil {
		d.Intents = NewIntents(d.Log)
	}
	s := &Server{
		sessions: d.Sessions,
		intents:  d.Intents,
		store:    d.Store,
		importer: d.Importer,
		metrics:  d.Metrics,
		log:      d.Log,
		apiKey:   d.APIKey,
		router:   chi.NewRouter(),
	}
	s.routes(d)
	return s
}

// SetTailscale switches identity from the dev user to tailnet WhoIs lookups.
// Call before serving.
func (s *Server) SetTailscale(wc WhoIsClient) {
	s.whois = wc
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes(d Deps) {
	s.router.Use(RequestLogging(s.log, s.metrics))
	s.router.Use(CORS)

	if d.Gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	s.router.Group(func(r chi.Router) {
		r.Use(s.identity)

		r.Get("/api/v1/me", s.handleMe)

		r.Route("/api/v1/sessions", func(r chi.Router) {
			r.Post("/", s.handleOpenSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleCloseSession)
				r.Post("/recovery", s.handleRecovery)
				r.Post("/refresh", s.handleRefresh)
				r.Post("/edits", s.handleEdit)
				r.Post("/sets", s.handleAppendSet)
				r.Post("/picker", s.handlePicker)
				r.Post("/exercises", s.handleAddExercises)
				r.Post("/finish", s.handleFinish)
				r.Post("/exit", s.handleExit)
				r.Post("/exit/confirm", s.handleExitConfirm)
				r.Post("/exit/cancel", s.handleExitCancel)
				r.Post("/transitions/complete", s.handleCompleteTransition)
			})
		})

		r.Get("/api/v1/routines", s.handleListRoutines)
		r.Get("/api/v1/routines/{id}", s.handleGetRoutine)
		r.Get("/api/v1/history", s.handleHistory)
		r.Get("/api/v1/logs", s.handleQueryLogs)
		r.Get("/api/v1/logs/{id}", s.handleGetLog)
		r.Get("/api/v1/imports", s.handleImportLogs)
		r.Get("/api/v1/stats", s.handleStats)
		r.Get("/api/v1/summary", s.handleTrainingSummary)

		if s.importer != nil {
			r.Group(func(r chi.Router) {
				if s.apiKey != "" {
					r.Use(APIKeyAuth(s.apiKey))
				}
				r.Post("/api/v1/imports/alpha", s.handleAlphaImport)
			})
		}

		if d.MCP != nil {
			r.Handle("/mcp", mcpserver.NewStreamableHTTPServer(d.MCP,
				mcpserver.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
					return liftmcp.WithUserID(ctx, userIDFromContext(r))
				}),
			))
		}
	})
}

// identity picks tailnet identity once SetTailscale was called, the dev
// user otherwise.
func (s *Server) identity(next http.Handler) http.Handler {
	dev := DevIdentity(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.whois == nil {
			dev.ServeHTTP(w, r)
			return
		}
		TailscaleIdentity(s.whois, s.store, s.log)(next).ServeHTTP(w, r)
	})
}
