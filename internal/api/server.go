// Package api exposes the management service's REST surface: repository CRUD,
// scan history, and the collector's active-repository report.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/trace"

	"github.com/scanhound/scanhound/internal/domain/scanning"
	"github.com/scanhound/scanhound/pkg/common/logger"
	"github.com/scanhound/scanhound/pkg/common/otel"
)

// Server routes management API requests to the scanning stores.
type Server struct {
	logger   *logger.Logger
	router   *chi.Mux
	tracer   trace.Tracer
	validate *validator.Validate

	repoStore    scanning.RepositoryStore
	scanStore    scanning.ScanStore
	branchStore  scanning.BranchStore
	findingStore scanning.FindingStore
}

// NewServer builds the API server and its route table.
func NewServer(
	log *logger.Logger,
	tracer trace.Tracer,
	repoStore scanning.RepositoryStore,
	scanStore scanning.ScanStore,
	branchStore scanning.BranchStore,
	findingStore scanning.FindingStore,
) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(otel.Middleware(tracer))
	r.Use(loggerMiddleware(log))
	r.Use(middleware.Recoverer)

	s := &Server{
		logger:       log,
		router:       r,
		tracer:       tracer,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		repoStore:    repoStore,
		scanStore:    scanStore,
		branchStore:  branchStore,
		findingStore: findingStore,
	}

	s.routes()
	return s
}

func loggerMiddleware(log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				ctx := r.Context()
				log.Info(ctx, "Request completed",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"duration", time.Since(start),
					"trace_id", otel.GetTraceID(ctx),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

func (s *Server) routes() {
	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/readiness", s.handleReadiness)
	})

	s.router.Route("/resc/v1", func(r chi.Router) {
		r.Route("/repositories", func(r chi.Router) {
			r.Get("/", s.handleListRepositories)
			r.Post("/", s.handleCreateRepository)
			r.Post("/active", s.handleReportActiveRepositories)
			r.Get("/distinct-projects", s.handleDistinctProjects)
			r.Get("/distinct-repositories", s.handleDistinctRepositories)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetRepository)
				r.Put("/", s.handleUpdateRepository)
				r.Delete("/", s.handleDeleteRepository)
				r.Get("/branches", s.handleListRepositoryBranches)
				r.Get("/scans", s.handleListRepositoryScans)
				r.Get("/last-scan", s.handleGetLastScan)
			})
		})

		r.Route("/branches", func(r chi.Router) {
			r.Post("/", s.handleCreateBranch)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetBranch)
				r.Delete("/", s.handleDeleteBranch)
			})
		})

		r.Route("/scans", func(r chi.Router) {
			r.Post("/", s.handleCreateScan)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetScan)
				r.Get("/findings", s.handleListScanFindings)
			})
		})

		r.Route("/findings", func(r chi.Router) {
			r.Post("/", s.handleCreateFinding)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetFinding)
				r.Patch("/", s.handleUpdateFindingStatus)
				r.Delete("/", s.handleDeleteFinding)
			})
		})
	})
}

// Handler returns the underlying HTTP handler for mounting on a server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respond(r.Context(), s.logger, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	respond(r.Context(), s.logger, w, http.StatusOK, map[string]string{"status": "ready"})
}
