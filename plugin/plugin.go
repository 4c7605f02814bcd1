// Package plugin adapts mdtl to a static site generator's lifecycle.
//
// The host calls OnStartup once with the command it is running and
// OnPreBuild before each language pass. Translation runs once per build, in
// the default language pass, and never while serving.
package plugin

import (
	"context"
	"errors"
	"time"

	"github.com/ZaguanLabs/mdtl"
	"github.com/ZaguanLabs/mdtl/cache"
	"github.com/ZaguanLabs/mdtl/config"
	"github.com/ZaguanLabs/mdtl/logging"
	"github.com/ZaguanLabs/mdtl/manifest"
	"github.com/ZaguanLabs/mdtl/notice"
	"github.com/ZaguanLabs/mdtl/provider"
)

// CommandServe is the host command that disables translation.
const CommandServe = "serve"

// Plugin holds the state shared across lifecycle hooks.
type Plugin struct {
	cfg     *config.Config
	logs    logging.Provider
	logger  logging.Logger
	backend mdtl.Backend

	workers      int
	dryRun       bool
	refreshStale bool

	isServe bool
}

// Option configures a Plugin.
type Option func(*Plugin)

// WithLoggerProvider sets the source of module loggers.
func WithLoggerProvider(p logging.Provider) Option {
	return func(pl *Plugin) {
		pl.logs = p
	}
}

// WithBackend overrides the backend built from configuration.
func WithBackend(b mdtl.Backend) Option {
	return func(pl *Plugin) {
		pl.backend = b
	}
}

// WithWorkers overrides translate.workers.
func WithWorkers(n int) Option {
	return func(pl *Plugin) {
		if n > 0 {
			pl.workers = n
		}
	}
}

// WithDryRun reports planned jobs without translating.
func WithDryRun(dryRun bool) Option {
	return func(pl *Plugin) {
		pl.dryRun = dryRun
	}
}

// WithRefreshStale overrides translate.refresh_stale.
func WithRefreshStale(refresh bool) Option {
	return func(pl *Plugin) {
		pl.refreshStale = refresh
	}
}

// New creates a Plugin for a loaded configuration.
func New(cfg *config.Config, opts ...Option) *Plugin {
	p := &Plugin{
		cfg:          cfg,
		workers:      cfg.Translate.Workers,
		refreshStale: cfg.Translate.RefreshStale,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.PluginLogger(p.logs)
	return p
}

// OnStartup records the host command.
func (p *Plugin) OnStartup(command string) {
	p.isServe = command == CommandServe
	p.logger.Debug("plugin.startup", "command", command, "serve", p.isServe)
}

// IsServe reports whether the host is serving.
func (p *Plugin) IsServe() bool {
	return p.isServe
}

// OnPreBuild runs translation when the host is building and the current
// language pass is the default language. It returns a nil report when the
// hook is a no-op.
func (p *Plugin) OnPreBuild(ctx context.Context, currentLanguage string) (*mdtl.Report, error) {
	if p.isServe {
		p.logger.Info("translation.skipped", "reason", "serve")
		return nil, nil
	}
	primary := p.cfg.DefaultLanguage()
	if currentLanguage != "" && !mdtl.SameLocale(currentLanguage, primary) {
		p.logger.Debug("translation.skipped", "reason", "language pass", "language", currentLanguage)
		return nil, nil
	}
	return p.Translate(ctx)
}

// Translate runs the dispatcher once with every configured component.
func (p *Plugin) Translate(ctx context.Context) (*mdtl.Report, error) {
	backend := p.backend
	if backend == nil && !p.dryRun {
		b, err := provider.New(provider.Config{
			Service: p.cfg.Translate.Service,
			APIKey:  p.cfg.Translate.APIKey,
			BaseURL: p.cfg.Translate.BaseURL,
			Model:   p.cfg.Translate.Model,
			Timeout: p.cfg.Translate.Timeout.Std(),
			Logger:  logging.ProviderLogger(p.logs),
		})
		if err != nil {
			return nil, err
		}
		backend = b
	}

	tc, err := OpenCache(p.cfg)
	if err != nil {
		return nil, err
	}
	if closer, ok := tc.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	snapshot := p.cfg.CacheFile()
	if tc != nil && snapshot != "" {
		res, err := cache.LoadSnapshot(tc, snapshot)
		if err != nil {
			p.logger.Warn("cache.snapshot_load_failed", "file", snapshot, "error", err)
		} else if res.Imported > 0 {
			p.logger.Debug("cache.snapshot_loaded", "file", snapshot, "entries", res.Imported)
		}
	}

	m, err := manifest.Load(p.cfg.Root())
	if err != nil {
		return nil, &mdtl.ConfigError{Field: "manifest", Message: "loading " + manifest.FileName, Cause: err}
	}
	if pruned := m.Prune(p.cfg.ContentRoot()); len(pruned) > 0 {
		p.logger.Debug("manifest.pruned", "targets", len(pruned))
	}

	opts := []mdtl.DispatcherOption{
		mdtl.WithWorkers(p.workers),
		mdtl.WithManifest(m),
		mdtl.WithLogger(logging.DispatcherLogger(p.logs)),
		mdtl.WithDryRun(p.dryRun),
		mdtl.WithRefreshStale(p.refreshStale),
	}
	if tc != nil {
		opts = append(opts, mdtl.WithCache(tc))
	}
	if p.cfg.NoticeEnabled() {
		n, err := notice.New(p.cfg.Theme)
		if err != nil {
			return nil, err
		}
		opts = append(opts, mdtl.WithNotice(n.Apply))
	}
	if retries := p.cfg.Translate.Retries; retries > 0 {
		retry := mdtl.DefaultRetryConfig()
		retry.MaxRetries = retries
		opts = append(opts, mdtl.WithRetryPolicy(retry))
	}
	if rpm := p.cfg.Translate.RequestsPerMinute; rpm > 0 {
		opts = append(opts, mdtl.WithRateLimit(mdtl.RateLimitConfig{RequestsPerMinute: rpm}))
	}

	d := mdtl.NewDispatcher(p.cfg.ContentRoot(), p.cfg.DefaultLanguage(), p.cfg.Locales(), backend, opts...)

	started := time.Now()
	report, runErr := d.Run(ctx)

	if report != nil && tc != nil && snapshot != "" && report.Written > 0 {
		meta := map[string]string{"backend": p.cfg.Translate.Service, "saved_at": time.Now().UTC().Format(time.RFC3339)}
		if err := cache.SaveSnapshot(tc, snapshot, meta); err != nil {
			p.logger.Warn("cache.snapshot_save_failed", "file", snapshot, "error", err)
		}
	}

	if report != nil {
		p.logger.Info("translation.finished",
			"summary", report.Summary(),
			"duration", time.Since(started).Round(time.Millisecond).String(),
		)
	}
	return report, runErr
}

// Status lists missing and stale pairs without touching the network.
func (p *Plugin) Status() (*mdtl.ScanResult, []string, error) {
	m, err := manifest.Load(p.cfg.Root())
	if err != nil {
		return nil, nil, &mdtl.ConfigError{Field: "manifest", Message: "loading " + manifest.FileName, Cause: err}
	}
	d := mdtl.NewDispatcher(p.cfg.ContentRoot(), p.cfg.DefaultLanguage(), p.cfg.Locales(), nil,
		mdtl.WithManifest(m),
		mdtl.WithLogger(logging.DispatcherLogger(p.logs)),
	)
	return d.Scan()
}

// OpenCache builds the cache configured in cfg. It returns nil when caching
// is disabled.
func OpenCache(cfg *config.Config) (cache.TranslationCache, error) {
	tc, err := cache.New(cache.Config{
		Type: cfg.Cache.Type,
		URL:  cfg.Cache.URL,
		TTL:  cfg.Cache.TTL.Std(),
	})
	if err != nil {
		return nil, &mdtl.CacheError{Message: "opening cache", Cause: err}
	}
	return tc, nil
}

// ErrCacheDisabled is returned by cache commands when cache.type is none.
var ErrCacheDisabled = errors.New("cache disabled (cache.type is none)")
