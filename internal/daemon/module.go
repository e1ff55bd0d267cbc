package daemon

import (
	"context"
	"sync/atomic"

	"github.com/matheus3301/tabroom/internal/api"
	"github.com/matheus3301/tabroom/internal/bus"
	"github.com/matheus3301/tabroom/internal/chatlog"
	"github.com/matheus3301/tabroom/internal/config"
	"github.com/matheus3301/tabroom/internal/identity"
	"github.com/matheus3301/tabroom/internal/lock"
	"github.com/matheus3301/tabroom/internal/logging"
	"github.com/matheus3301/tabroom/internal/metrics"
	"github.com/matheus3301/tabroom/internal/presence"
	"github.com/matheus3301/tabroom/internal/preview"
	"github.com/matheus3301/tabroom/internal/profile"
	"github.com/matheus3301/tabroom/internal/room"
	"github.com/matheus3301/tabroom/internal/status"
	"github.com/matheus3301/tabroom/internal/store"
	"github.com/matheus3301/tabroom/internal/store/kv"
	"github.com/matheus3301/tabroom/internal/transport"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Params holds the resolved tab configuration passed to the fx module.
type Params struct {
	Profile    string
	Session    string
	Config     *config.Config
	SocketPath string // optional override for testing; empty = use default
}

// Module returns the fx module for one tab daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	if p.Config == nil {
		p.Config = config.Default()
	}
	return fx.Options(
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
		fx.Module("daemon",
			fx.Supply(p, p.Config),
			fx.Provide(
				provideLogger,
				provideEnd,
				provideBus,
				provideStateMachine,
				provideLock,
				provideStorage,
				provideLog,
				provideIdentity,
				provideDirectory,
				provideTransport,
				providePreview,
				provideRoom,
				provideTabService,
				provideMetricsServer,
				NewServer,
			),
			fx.Invoke(registerLifecycle),
		),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.Profile, p.Session), p.Profile, p.Session)
}

// sessionEnd is set when the tab is closed for good rather than stopped for
// a reload; the session directory is then removed on stop.
type sessionEnd struct{ atomic.Bool }

func provideEnd() *sessionEnd {
	return &sessionEnd{}
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDirs(p.Profile, p.Session); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock")
	l, err := lock.Acquire(profile.SessionDir(p.Profile, p.Session))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

// provideStorage opens the profile's durable message log. An unusable store
// degrades the tab to an in-memory log instead of failing the boot. The lock
// dependency orders it after the profile tree is created.
func provideStorage(lc fx.Lifecycle, p Params, cfg *config.Config, _ *lock.Lock, logger *zap.Logger) chatlog.Storage {
	switch cfg.LogBackend {
	case "pebble":
		path := profile.PebblePath(p.Profile)
		s, err := kv.Open(path)
		if err != nil {
			logger.Error("message log unavailable, keeping messages in memory", zap.Error(err), zap.String("path", path))
			return chatlog.NewMemoryStorage()
		}
		lc.Append(fx.StopHook(s.Close))
		logger.Info("message log opened", zap.String("backend", "pebble"), zap.String("path", path))
		return s
	default:
		path := profile.SQLitePath(p.Profile)
		db, result, err := store.OpenMigrated(path)
		if err != nil {
			logger.Error("message log unavailable, keeping messages in memory", zap.Error(err), zap.String("path", path))
			return chatlog.NewMemoryStorage()
		}
		lc.Append(fx.StopHook(db.Close))
		if result.Changed {
			logger.Info("migrations applied", zap.Uint("version", result.Version))
		} else {
			logger.Info("migrations up to date", zap.Uint("version", result.Version))
		}
		logger.Info("message log opened", zap.String("backend", "sqlite"), zap.String("path", path))
		return db
	}
}

func provideLog(s chatlog.Storage, logger *zap.Logger) *chatlog.Log {
	return chatlog.New(s, logger)
}

// provideIdentity depends on the lock so the identity record is only touched
// by the process owning the session.
func provideIdentity(p Params, cfg *config.Config, _ *lock.Lock, logger *zap.Logger) *identity.Store {
	return identity.New(profile.IdentityPath(p.Profile, p.Session), cfg.Avatars, logger)
}

func provideDirectory() *presence.Directory {
	return presence.New()
}

// provideTransport opens the configured transport. A redis that cannot be
// reached falls back to the profile's event table, and only a tab that has
// neither is left isolated.
func provideTransport(lc fx.Lifecycle, p Params, cfg *config.Config, b *bus.Bus, _ *lock.Lock, logger *zap.Logger) transport.Transport {
	opts := transport.Options{
		Kind:         cfg.Transport,
		Room:         p.Profile,
		RedisURL:     cfg.RedisURL,
		DBPath:       profile.SQLitePath(p.Profile),
		PollInterval: cfg.PollInterval.Duration,
	}
	tr, err := transport.Open(context.Background(), opts, b, logger)
	if err != nil && opts.Kind == transport.KindRedis {
		logger.Error("redis transport unavailable, falling back to sqlite", zap.Error(err))
		opts.Kind = transport.KindSQLite
		tr, err = transport.Open(context.Background(), opts, b, logger)
	}
	if err != nil {
		logger.Error("transport unavailable, tab is isolated", zap.Error(err), zap.String("transport", opts.Kind))
		tr = transport.NewLocal(b, p.Profile)
	} else {
		logger.Info("transport opened", zap.String("transport", opts.Kind))
	}
	lc.Append(fx.StopHook(tr.Close))
	return tr
}

func providePreview(cfg *config.Config, logger *zap.Logger) *preview.Client {
	return preview.NewClient(cfg.PreviewEndpoint, cfg.PreviewTimeout.Duration, logger)
}

func provideRoom(
	cfg *config.Config,
	id *identity.Store,
	log *chatlog.Log,
	dir *presence.Directory,
	tr transport.Transport,
	pv *preview.Client,
	m *status.Machine,
	b *bus.Bus,
	logger *zap.Logger,
) (*room.Room, error) {
	deps := room.Deps{
		Identity:  id,
		Log:       log,
		Directory: dir,
		Transport: tr,
		Machine:   m,
		Bus:       b,
		Logger:    logger,
		Options: room.Options{
			PreviewTimeout:    cfg.PreviewTimeout.Duration,
			ReconcileInterval: cfg.ReconcileInterval.Duration,
		},
	}
	if pv.Enabled() {
		deps.Preview = pv
	}
	return room.New(deps)
}

func provideTabService(p Params, r *room.Room, b *bus.Bus, id *identity.Store, end *sessionEnd, sd fx.Shutdowner, logger *zap.Logger) *api.TabService {
	closeTab := func(context.Context) error {
		if err := id.Clear(); err != nil {
			return err
		}
		end.Store(true)
		return sd.Shutdown()
	}
	return api.NewTabService(p.Profile, p.Session, r, b, closeTab, logger)
}

// provideMetricsServer returns nil when metrics_addr is empty.
func provideMetricsServer(cfg *config.Config, r *room.Room, logger *zap.Logger) (*metrics.Server, error) {
	if cfg.MetricsAddr == "" {
		return nil, nil
	}
	health := func() any {
		return map[string]any{
			"state":    r.State(),
			"user":     r.CurrentUser().ID,
			"users":    r.UserCount(),
			"messages": r.MessageCount(),
		}
	}
	return metrics.Listen(cfg.MetricsAddr, metrics.NewRouter(health, logger), logger)
}

func registerLifecycle(
	lc fx.Lifecycle,
	cfg *config.Config,
	srv *Server,
	lk *lock.Lock,
	end *sessionEnd,
	r *room.Room,
	svc *api.TabService,
	ms *metrics.Server,
	logger *zap.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			for _, w := range cfg.Warnings() {
				logger.Warn(w)
			}
			if err := r.Start(ctx); err != nil {
				return err
			}

			// Start gRPC server in background.
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			if ms != nil {
				go func() {
					if err := ms.Serve(); err != nil {
						logger.Error("metrics server error", zap.Error(err))
					}
				}()
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			svc.Shutdown()
			if err := r.Close(ctx); err != nil {
				logger.Warn("error closing room", zap.Error(err))
			}
			srv.Stop(ctx)
			if ms != nil {
				if err := ms.Shutdown(ctx); err != nil {
					logger.Warn("error stopping metrics server", zap.Error(err))
				}
			}
			logger.Info("daemon stopped")
			release := lk.Release
			if end.Load() {
				release = lk.ReleaseDir
			}
			if err := release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			return nil
		},
	})
}
