package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/shleen/threadline/internal/backend"
	"github.com/shleen/threadline/internal/config"
	"github.com/shleen/threadline/internal/feed"
	"github.com/shleen/threadline/internal/location"
	"github.com/shleen/threadline/internal/logging"
	"github.com/shleen/threadline/internal/prefs"
	"github.com/shleen/threadline/internal/recommend"
	"github.com/shleen/threadline/internal/state"
	"github.com/shleen/threadline/internal/ui"
)

// Options configure the threadline application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/threadline/prefs.toml
	Username   string // overrides config and prefs when set
	LogLevel   string // overrides config when set
}

// Env holds the loaded configuration and the shared backend client.
type Env struct {
	Config   config.Config
	Prefs    prefs.Prefs
	Username string
	Logger   *slog.Logger
	Client   *backend.Client

	logCloser io.Closer
}

// Setup loads config and prefs, opens the log file and builds the backend
// client. Callers must Close the returned Env.
func Setup(opts Options) (*Env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if lvl := strings.TrimSpace(opts.LogLevel); lvl != "" {
		cfg.LogLevel = lvl
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		return nil, fmt.Errorf("load prefs: %w", err)
	}

	logger, closer, err := logging.Open(cfg.LogPath(), cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}

	retries := cfg.MaxRetries
	if retries == 0 {
		retries = -1
	}
	client, err := backend.NewClient(backend.Options{
		ServerURL:  cfg.ServerURL,
		Timeout:    cfg.Timeout,
		MaxRetries: retries,
		Logger:     logger,
	})
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("init backend client: %w", err)
	}

	return &Env{
		Config:    cfg,
		Prefs:     userPrefs,
		Username:  resolveUsername(opts.Username, cfg.Username, userPrefs.Username),
		Logger:    logger,
		Client:    client,
		logCloser: closer,
	}, nil
}

// Close flushes and closes the log file.
func (e *Env) Close() error {
	if e == nil || e.logCloser == nil {
		return nil
	}
	return e.logCloser.Close()
}

func resolveUsername(candidates ...string) string {
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	return ""
}

// Run boots the threadline TUI until the context is cancelled or the user
// quits.
func Run(ctx context.Context, opts Options) error {
	env, err := Setup(opts)
	if err != nil {
		return err
	}
	defer env.Close()

	cfg := env.Config
	logger := env.Logger
	logger.Info("threadline starting",
		"server", env.Client.BaseURL(),
		"user", env.Username,
		"location_configured", cfg.HasLocation(),
	)

	coord := location.NewCoordinator(
		location.NewStatic(cfg.Lat, cfg.Lon),
		location.WithTimeout(cfg.LocationTimeout),
		location.WithLogger(logger),
	)
	session := recommend.NewSession(env.Client, coord, env.Username, logger)
	pager := feed.NewPager(env.Client, cfg.FeedPageSize, logger)

	store := &state.Store{}
	refresher := NewRefresher(store, env.Client, env.Username, cfg.PollInterval, logger)
	refresher.Start(ctx)

	err = ui.Run(ui.Options{
		Context:   ctx,
		Backend:   env.Client,
		Session:   session,
		Pager:     pager,
		Store:     store,
		Refresher: refresher,
		Location:  coord,
		Username:  env.Username,
		MediaURL:  cfg.MediaURL,
		LogPath:   cfg.LogPath(),
		ThemeName: env.Prefs.Theme,
		PrefsPath: opts.PrefsPath,
		Logger:    logger,
	})
	session.Cancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("ui exited with error", "error", err)
		return err
	}
	logger.Info("threadline stopped")
	return nil
}
