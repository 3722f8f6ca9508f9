// Package server exposes the dashboard over HTTP with gin: the HTML page,
// a JSON API, chart images and the workbook export.
package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/cambra/puertos-china/internal/analysis"
	"github.com/cambra/puertos-china/internal/config"
)

const defaultShutdownTimeout = 10 * time.Second

//go:embed templates/*.html
var templateFS embed.FS

type Server struct {
	engine   *gin.Engine
	dash     *analysis.Dashboard
	logger   *zap.Logger
	metrics  *Metrics
	registry *prometheus.Registry
	cfg      *config.Config
}

func New(dash *analysis.Dashboard, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	s := &Server{
		engine:   gin.New(),
		dash:     dash,
		logger:   logger,
		metrics:  NewMetrics(registry),
		registry: registry,
		cfg:      cfg,
	}
	for table, n := range dash.TableRows() {
		s.metrics.DatasetRows.WithLabelValues(table).Set(float64(n))
	}

	s.engine.Use(gin.Recovery(), requestID(), s.observe())
	if cfg.Tracing.Enabled {
		s.engine.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	s.engine.SetHTMLTemplate(tmpl)
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.engine
	r.GET("/", s.handleIndex)
	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	r.GET("/export.xlsx", s.handleExport)
	r.GET("/charts/:file", s.handleChart)

	if dir := s.cfg.AssetsPath(); dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			r.Static("/assets", dir)
		} else {
			s.logger.Warn("assets directory not available", zap.String("dir", dir))
		}
	}

	api := r.Group("/api")
	{
		api.GET("/options", s.handleOptions)
		api.GET("/dashboard", s.handleDashboard)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	sc := s.cfg.Server
	srv := &http.Server{
		Addr:         sc.Addr,
		Handler:      s.engine,
		ReadTimeout:  sc.ReadTimeout,
		WriteTimeout: sc.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", zap.String("addr", sc.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := sc.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	s.logger.Info("shutting down", zap.Duration("timeout", timeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
