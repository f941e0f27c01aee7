// Package webui is the view glue around the client engine: it serves the
// five pages, asserts workflow state on page entry, and forwards user
// actions to the backend client. All non-trivial control flow lives in the
// flow package; handlers here only consume its contract.
package webui

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/arendahub/miniapp-client/internal/backend"
	"github.com/arendahub/miniapp-client/internal/config"
	"github.com/arendahub/miniapp-client/internal/flow"
	"github.com/arendahub/miniapp-client/internal/host"
	"github.com/arendahub/miniapp-client/internal/httputil"
	"github.com/arendahub/miniapp-client/internal/metrics"
	"github.com/arendahub/miniapp-client/internal/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

// ServerConfig wires the shell's dependencies.
type ServerConfig struct {
	Host     host.Context
	Backend  *backend.Client
	Recorder *backend.Recorder
	Session  *flow.Session
	Pages    config.Pages
	Logger   zerolog.Logger
	Metrics  *metrics.Metrics
}

// Server renders the pages and owns the one-time boot resolution.
type Server struct {
	host     host.Context
	backend  *backend.Client
	recorder *backend.Recorder
	session  *flow.Session
	pages    config.Pages
	log      zerolog.Logger
	metrics  *metrics.Metrics
	tmpl     *template.Template

	bootOnce  sync.Once
	bootRoute string
}

// New parses the page templates and builds the server.
func New(cfg ServerConfig) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Server{
		host:     cfg.Host,
		backend:  cfg.Backend,
		recorder: cfg.Recorder,
		session:  cfg.Session,
		pages:    cfg.Pages,
		log:      cfg.Logger,
		metrics:  cfg.Metrics,
		tmpl:     tmpl,
	}, nil
}

// Router wires the page routes, the PDF proxy, and the operational
// endpoints. Unknown paths fall through to the entry page.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Logging(s.log))
	r.Use(middleware.Metrics(s.metrics))

	r.Handle("/healthz", http.HandlerFunc(s.handleHealth)).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/contract/pdf", s.handleContractPDF).Methods(http.MethodGet)

	pages := r.NewRoute().Subrouter()
	pages.Use(s.bootResolve)
	pages.HandleFunc(flow.RouteHome, s.handleHome).Methods(http.MethodGet)
	pages.HandleFunc("/go/application", s.handleGoApplication).Methods(http.MethodPost)
	pages.HandleFunc(flow.RouteApplication, s.handleApplicationForm).Methods(http.MethodGet)
	pages.HandleFunc(flow.RouteApplication, s.handleApplicationSubmit).Methods(http.MethodPost)
	pages.HandleFunc(flow.RouteWaiting, s.handleWaiting).Methods(http.MethodGet)
	pages.HandleFunc(flow.RouteContract, s.handleContract).Methods(http.MethodGet)
	pages.HandleFunc("/contract/confirm", s.handleContractConfirm).Methods(http.MethodPost)
	pages.HandleFunc(flow.RouteRejected, s.handleRejected).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, flow.RouteHome, http.StatusFound)
	})

	return r
}

// bootResolve performs the one-time boot placement: the first page request
// of the session resolves the server-side state and redirects when the
// requested route disagrees. A redirect (not a rendered page) keeps the
// loading transition out of the browser history.
func (s *Server) bootResolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var firstVisit bool
		s.bootOnce.Do(func() {
			s.bootRoute = s.session.Boot(r.Context())
			firstVisit = true
		})

		if firstVisit && r.Method == http.MethodGet && r.URL.Path != s.bootRoute {
			http.Redirect(w, r, s.bootRoute, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		s.log.Error().Err(err).Str("template", name).Msg("webui: render failed")
	}
}
