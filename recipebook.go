package recipebook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	cfg "github.com/loykin/recipebook/internal/config"
	"github.com/loykin/recipebook/internal/history"
	"github.com/loykin/recipebook/internal/history/factory"
	"github.com/loykin/recipebook/internal/history/retention"
	"github.com/loykin/recipebook/internal/logger"
	"github.com/loykin/recipebook/internal/metrics"
	"github.com/loykin/recipebook/internal/recipe"
	iapi "github.com/loykin/recipebook/internal/server"
	"github.com/loykin/recipebook/internal/timing"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Config = cfg.Config

type Recipe = recipe.Recipe

type Step = timing.Step

type Entry = timing.Entry

type HistorySink = history.Sink

type HistoryEvent = history.Event

// ShutdownTimeout bounds the graceful shutdown in Run.
const ShutdownTimeout = 5 * time.Second

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config { return cfg.Default() }

// LoadConfig reads and validates a config file. An empty path yields the
// defaults with environment overrides applied.
func LoadConfig(path string) (*Config, error) {
	c, err := cfg.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

// App is an assembled recipe book: stores, history sink, HTTP router.
type App struct {
	cfg       Config
	log       *slog.Logger
	logCloser io.Closer
	recipes   *recipe.Store
	timings   *timing.Calculator
	history   history.Sink
	router    *iapi.Router
	process   *metrics.ProcessCollector
	retention *retention.Job

	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
}

// Option customizes NewApp.
type Option func(*App)

// WithLogger uses l instead of building a logger from the [log] section.
func WithLogger(l *slog.Logger) Option { return func(a *App) { a.log = l } }

// WithHistorySink uses s instead of opening history.dsn.
func WithHistorySink(s HistorySink) Option { return func(a *App) { a.history = s } }

// WithRegistry registers metrics with reg and serves them from it.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(a *App) {
		a.registerer = reg
		a.gatherer = reg
	}
}

// NewApp validates c, opens the recipe and timing files and wires the HTTP
// router. A missing or malformed data file is an error.
func NewApp(c *Config, opts ...Option) (*App, error) {
	if c == nil {
		d := cfg.Default()
		c = &d
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	a := &App{cfg: *c, registerer: prometheus.DefaultRegisterer, gatherer: prometheus.DefaultGatherer}
	for _, o := range opts {
		o(a)
	}

	if a.log == nil {
		l, closer, err := logger.New(c.Log.Logger())
		if err != nil {
			return nil, err
		}
		a.log, a.logCloser = l, closer
	}

	var err error
	if a.recipes, err = recipe.Open(c.Data.Recipes); err != nil {
		_ = a.closeLog()
		return nil, err
	}
	if a.timings, err = timing.Load(c.Data.Timings); err != nil {
		_ = a.closeLog()
		return nil, err
	}
	a.log.Info("data loaded", "recipes", a.recipes.Len(), "recipes_file", c.Data.Recipes,
		"steps", len(a.timings.Steps()), "end", a.timings.CurrentEnd())

	if a.history == nil && c.History.Enabled {
		if a.history, err = factory.NewSinkFromDSN(c.History.DSN); err != nil {
			_ = a.closeLog()
			return nil, fmt.Errorf("open history sink: %w", err)
		}
	}

	if r := c.History.Retention; r > 0 && a.history != nil {
		if p, ok := a.history.(history.Pruner); ok {
			if a.retention, err = retention.New(p, retention.Config{MaxAge: r, Schedule: c.History.PruneSchedule}, a.log); err != nil {
				_ = a.Close()
				return nil, err
			}
		} else {
			a.log.Warn("history sink does not support retention, keeping all events", "sink", fmt.Sprintf("%T", a.history))
		}
	}

	deps := iapi.Deps{
		Recipes:  a.recipes,
		Timings:  a.timings,
		History:  a.history,
		Logger:   a.log,
		BasePath: c.Server.BasePath,
	}
	if c.Metrics.Enabled {
		if err := metrics.Register(a.registerer); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		deps.MetricsPath = c.Metrics.Path
		deps.MetricsHandler = metrics.HandlerFor(a.gatherer)
		if c.Metrics.ProcessInterval > 0 {
			a.process = metrics.NewProcessCollector(c.Metrics.ProcessInterval)
			if err := a.process.Register(a.registerer); err != nil {
				_ = a.Close()
				return nil, fmt.Errorf("register process metrics: %w", err)
			}
		}
	}
	if a.router, err = iapi.NewRouter(deps); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) Config() Config              { return a.cfg }
func (a *App) Logger() *slog.Logger        { return a.log }
func (a *App) Recipes() *recipe.Store      { return a.recipes }
func (a *App) Timings() *timing.Calculator { return a.timings }
func (a *App) Handler() http.Handler       { return a.router.Handler() }

// Register adds the page and API routes to an existing gin group. The
// group should be mounted at server.base_path.
func (a *App) Register(g gin.IRoutes) { a.router.Register(g) }

func (a *App) NewHTTPServer() (*http.Server, error) {
	return iapi.NewServer(a.cfg.Server, a.Handler())
}

// Run serves HTTP until ctx is canceled, then shuts down gracefully within
// ShutdownTimeout.
func (a *App) Run(ctx context.Context) error {
	srv, err := a.NewHTTPServer()
	if err != nil {
		return err
	}
	if a.process != nil {
		a.process.Start(ctx)
		defer a.process.Stop()
	}
	if a.retention != nil {
		if err := a.retention.Start(); err != nil {
			return err
		}
		defer a.retention.Stop()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- iapi.ListenAndServe(srv) }()
	a.log.Info("recipebook listening", "addr", srv.Addr, "tls", srv.TLSConfig != nil, "base_path", a.router.BasePath())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// Close releases the history sink and the log file.
func (a *App) Close() error {
	var errs []error
	if a.history != nil {
		errs = append(errs, a.history.Close())
	}
	errs = append(errs, a.closeLog())
	return errors.Join(errs...)
}

func (a *App) closeLog() error {
	if a.logCloser == nil {
		return nil
	}
	err := a.logCloser.Close()
	a.logCloser = nil
	return err
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }
