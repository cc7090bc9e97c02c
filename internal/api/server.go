// Package api serves the settings page, the board preview and the JSON
// endpoints.
package api

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/realmlist/metarboard/internal/board"
	"github.com/realmlist/metarboard/internal/display"
	"github.com/realmlist/metarboard/internal/logger"
	"github.com/realmlist/metarboard/internal/store"
)

const shutdownTimeout = 5 * time.Second

// Controller restarts the update loop after the settings changed.
type Controller interface {
	Reconfigure()
}

type Options struct {
	Addr     string
	Location *time.Location
	Clock    clockwork.Clock
	// Hub serves /ws when set.
	Hub *display.Hub
}

type Server struct {
	store    *store.Store
	ctl      Controller
	hub      *display.Hub
	previews *board.PreviewCache
	addr     string
	loc      *time.Location
	clock    clockwork.Clock
	log      *logger.Logger
	tmpl     *template.Template
}

func NewServer(st *store.Store, ctl Controller, log *logger.Logger, opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Server{
		store:    st,
		ctl:      ctl,
		hub:      opts.Hub,
		previews: board.NewPreviewCache(),
		addr:     opts.Addr,
		loc:      opts.Location,
		clock:    opts.Clock,
		log:      log.Named("api"),
		tmpl:     newTemplates(opts.Location),
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Post("/update", s.handleUpdate)
	r.Get("/health", s.handleHealth)
	r.Get("/board.png", s.handleBoardImage)
	r.Route("/api", func(r chi.Router) {
		r.Get("/current", s.handleAPICurrent)
		r.Get("/settings", s.handleAPISettings)
		r.Get("/history", s.handleAPIHistory)
	})
	if s.hub != nil {
		r.Handle("/ws", s.hub)
	}
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("shutdown", logger.Error(err))
		}
	}()

	s.log.Info("listening", logger.String("addr", s.addr))
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.clock.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", ww.Status()),
			logger.Int("bytes", ww.BytesWritten()),
			logger.Duration("duration", s.clock.Since(start)),
			logger.String("request_id", middleware.GetReqID(r.Context())))
	})
}
