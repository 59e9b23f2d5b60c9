// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/option"

	"query-orchestrator/internal/agents"
	"query-orchestrator/internal/agents/analytics"
	"query-orchestrator/internal/agents/seo"
	"query-orchestrator/internal/api"
	"query-orchestrator/internal/audit"
	"query-orchestrator/internal/common/config"
	"query-orchestrator/internal/common/database"
	apperrors "query-orchestrator/internal/common/errors"
	commonhttp "query-orchestrator/internal/common/http"
	"query-orchestrator/internal/common/logger"
	"query-orchestrator/internal/common/observability"
	"query-orchestrator/internal/datasource/ga4"
	"query-orchestrator/internal/datasource/sheets"
	"query-orchestrator/internal/llm"
	"query-orchestrator/internal/models"
	"query-orchestrator/internal/orchestrator"
)

// App holds every long-lived component of the service.
type App struct {
	Config        *config.Config
	Logger        logger.Logger
	Observability *observability.Observability
	Orchestrator  *orchestrator.Orchestrator
	Audit         *audit.Recorder
	Server        *api.Server

	checks  map[string]api.ReadinessCheck
	closers []func() error
}

type options struct {
	completer     agents.Completer
	analytics     analytics.DataSource
	seo           seo.DataSource
	obs           *observability.Observability
	googleOptions []option.ClientOption
}

type Option func(*options)

// WithCompleter replaces the LLM client.
func WithCompleter(c agents.Completer) Option {
	return func(o *options) { o.completer = c }
}

func WithAnalyticsSource(s analytics.DataSource) Option {
	return func(o *options) { o.analytics = s }
}

func WithSEOSource(s seo.DataSource) Option {
	return func(o *options) { o.seo = s }
}

func WithObservability(obs *observability.Observability) Option {
	return func(o *options) { o.obs = obs }
}

// WithGoogleOptions adds client options to the GA4 and Sheets clients.
func WithGoogleOptions(opts ...option.ClientOption) Option {
	return func(o *options) { o.googleOptions = append(o.googleOptions, opts...) }
}

// New builds the service. Optional stores (Redis, Postgres) that fail to
// connect are logged and skipped.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, opts ...Option) (*App, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	checks := make(map[string]api.ReadinessCheck)
	a := &App{Config: cfg, Logger: log, checks: checks}

	a.Observability = o.obs
	if a.Observability == nil {
		obsOpts := []observability.Option{observability.WithLogger(log)}
		if cfg.Observability.JaegerEndpoint != "" {
			obsOpts = append(obsOpts, observability.WithJaeger(cfg.Observability.JaegerEndpoint))
		}
		a.Observability = observability.New(cfg.Observability.ServiceName, obsOpts...)
		a.closers = append(a.closers, func() error { a.Observability.Shutdown(); return nil })
	}

	completer := o.completer
	if completer == nil {
		httpClient := commonhttp.NewClient(0, commonhttp.WithUserAgent(cfg.App.Name+"/"+cfg.App.Version))
		provider := llm.NewOpenAIProvider(llm.LoadProviderConfig(cfg), httpClient.Standard())
		completer = llm.NewClient(llm.LoadConfig(cfg), provider, log)
	}

	analyticsSource := o.analytics
	if analyticsSource == nil {
		client, err := ga4.NewClient(ctx, ga4.LoadConfig(cfg), log, o.googleOptions...)
		if err != nil {
			log.Warn("GA4 client unavailable, analytics queries will fail", map[string]interface{}{"error": err.Error()})
			analyticsSource = unavailableAnalytics{err: apperrors.NewGA4AuthError(err)}
		} else {
			analyticsSource = client
		}
	}

	seoSource := o.seo
	if seoSource == nil {
		seoSource = a.buildSEOSource(ctx, cfg, log, o.googleOptions, checks)
	}

	if cfg.Database.Postgres.Enabled() {
		a.setupAudit(ctx, cfg, log, checks)
	}

	registry := map[models.AgentLabel]agents.Agent{
		models.LabelAnalytics: analytics.NewHandler(analytics.LoadConfig(cfg), completer, analyticsSource, log),
		models.LabelSEO:       seo.NewHandler(seo.LoadConfig(cfg), completer, seoSource, log),
	}
	orch, err := orchestrator.New(orchestrator.LoadConfig(cfg), completer, registry, a.Observability, log)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("build orchestrator: %w", err)
	}
	a.Orchestrator = orch

	var auditLog api.AuditLog
	if a.Audit != nil {
		auditLog = a.Audit
	}
	serverCfg := api.Config{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Version:        cfg.App.Version,
	}
	if cache, ok := seoSource.(api.CacheInvalidator); ok {
		serverCfg.SEOCache = cache
	}
	a.Server = api.NewServer(serverCfg, orch, auditLog, checks, log)

	return a, nil
}

func (a *App) buildSEOSource(ctx context.Context, cfg *config.Config, log logger.Logger, googleOptions []option.ClientOption, checks map[string]api.ReadinessCheck) seo.DataSource {
	sheetsCfg := sheets.LoadConfig(cfg)
	client, err := sheets.NewClient(ctx, sheetsCfg, log, googleOptions...)
	if err != nil {
		log.Warn("Sheets client unavailable, SEO queries will fail", map[string]interface{}{"error": err.Error()})
		return unavailableSEO{err: apperrors.NewSEODataUnavailableError(err)}
	}

	if !cfg.Database.Redis.Enabled() {
		return client
	}
	rdb, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		log.Warn("Redis unavailable, SEO table cache disabled", map[string]interface{}{"error": err.Error()})
		return client
	}
	a.closers = append(a.closers, rdb.Close)
	checks["redis"] = rdb.Ping

	readRange := sheetsCfg.Range
	if readRange == "" {
		readRange = sheets.DefaultRange
	}
	return sheets.NewCachedSource(client, rdb.Client, sheets.CacheKey(sheetsCfg.SpreadsheetID, readRange), sheetsCfg.CacheTTL, log)
}

func (a *App) setupAudit(ctx context.Context, cfg *config.Config, log logger.Logger, checks map[string]api.ReadinessCheck) {
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		log.Warn("Postgres unavailable, query audit disabled", map[string]interface{}{"error": err.Error()})
		return
	}
	recorder := audit.NewRecorder(pg.DB, log)
	if err := recorder.EnsureSchema(ctx); err != nil {
		log.Warn("audit schema setup failed, query audit disabled", map[string]interface{}{"error": err.Error()})
		_ = pg.Close()
		return
	}
	a.closers = append(a.closers, pg.Close, func() error {
		recorder.Wait()
		return nil
	})
	checks["postgres"] = pg.Ping
	a.Audit = recorder
}

func (a *App) Handler() http.Handler {
	return a.Server.Handler()
}

// Ping runs every readiness check and returns the first failure.
func (a *App) Ping(ctx context.Context) error {
	for name, check := range a.checks {
		if err := check(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Close releases stores in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	_ = a.Logger.Sync()
	return errors.Join(errs...)
}

type unavailableAnalytics struct{ err error }

func (u unavailableAnalytics) RunReport(ctx context.Context, propertyID string, req analytics.ReportRequest) (*analytics.Report, error) {
	return nil, u.err
}

type unavailableSEO struct{ err error }

func (u unavailableSEO) Load(ctx context.Context) (*seo.Table, error) {
	return nil, u.err
}
