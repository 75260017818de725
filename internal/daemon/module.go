package daemon

import (
	"context"
	"fmt"
	"os"

	"github.com/matheus3301/wprelay/internal/api"
	"github.com/matheus3301/wprelay/internal/bus"
	"github.com/matheus3301/wprelay/internal/config"
	"github.com/matheus3301/wprelay/internal/forward"
	"github.com/matheus3301/wprelay/internal/layout"
	"github.com/matheus3301/wprelay/internal/lock"
	"github.com/matheus3301/wprelay/internal/logging"
	"github.com/matheus3301/wprelay/internal/orchestrator"
	"github.com/matheus3301/wprelay/internal/protocol"
	"github.com/matheus3301/wprelay/internal/status"
	"github.com/matheus3301/wprelay/internal/store"
	"github.com/matheus3301/wprelay/internal/wa"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved daemon configuration passed to the fx module.
type Params struct {
	Config *config.Config
	// Endpoint overrides the WhatsApp endpoint; nil uses whatsmeow.
	Endpoint protocol.Endpoint
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLayout,
			provideLogger,
			provideBus,
			provideTracker,
			providePublisher,
			provideLock,
			provideStore,
			provideEndpoint,
			provideDispatcher,
			provideOrchestrator,
			provideRelayService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLayout(p Params) (layout.Layout, error) {
	l := p.Config.Layout()
	if err := l.Ensure(); err != nil {
		return layout.Layout{}, fmt.Errorf("prepare data dir: %w", err)
	}
	return l, nil
}

func provideLogger(p Params, l layout.Layout) (*zap.Logger, error) {
	level, err := p.Config.Level()
	if err != nil {
		return nil, err
	}
	return logging.New(l.LogPath(), level)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideTracker(b *bus.Bus) *status.Tracker {
	return status.NewTracker(b)
}

func providePublisher(b *bus.Bus) *status.Publisher {
	return status.NewPublisher(b)
}

func provideLock(l layout.Layout, logger *zap.Logger) (*lock.Lock, error) {
	logger.Info("acquiring data dir lock", zap.String("dir", l.Root))
	lk, err := lock.Acquire(l.Root)
	if err != nil {
		return nil, err
	}
	logger.Info("data dir lock acquired", zap.String("path", lk.Path()))
	return lk, nil
}

// provideStore takes the lock so the record store is never opened by a
// second daemon.
func provideStore(l layout.Layout, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := l.RecordDBPath()
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("from", result.From), zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideEndpoint(p Params, logger *zap.Logger) protocol.Endpoint {
	if p.Endpoint != nil {
		return p.Endpoint
	}
	return wa.NewEndpoint(p.Config.DeviceName, logger)
}

func provideDispatcher(db *store.DB, l layout.Layout, b *bus.Bus, logger *zap.Logger) *forward.Dispatcher {
	return forward.NewDispatcher(db, l.StagingDir(), b, logger)
}

func provideOrchestrator(p Params, l layout.Layout, endpoint protocol.Endpoint, db *store.DB, d *forward.Dispatcher,
	b *bus.Bus, tracker *status.Tracker, publisher *status.Publisher, logger *zap.Logger) (*orchestrator.Orchestrator, error) {
	dur, err := p.Config.Durations()
	if err != nil {
		return nil, err
	}
	cfg := orchestrator.Config{
		Layout:        l,
		ResetInterval: dur.ResetInterval,
		StartupGrace:  dur.StartupGrace,
		CreateTimeout: dur.CreateTimeout,
		PfpMinDelay:   dur.PfpMinDelay,
		PfpMaxDelay:   dur.PfpMaxDelay,
		Placeholder:   p.Config.PlaceholderImage,
	}
	return orchestrator.New(cfg, endpoint, db, d, b, tracker, publisher, logger), nil
}

func provideRelayService(o *orchestrator.Orchestrator, db *store.DB, logger *zap.Logger) *api.RelayService {
	return api.NewRelayService(o, db, os.Getpid(), logger)
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, lk *lock.Lock, db *store.DB, orch *orchestrator.Orchestrator, logger *zap.Logger) {
	restoreCtx, cancelRestore := context.WithCancel(context.Background())
	restored := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Start gRPC server in background.
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			go func() {
				defer close(restored)
				if err := orch.Restore(restoreCtx); err != nil && restoreCtx.Err() == nil {
					logger.Error("session restore failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancelRestore()
			select {
			case <-restored:
			case <-ctx.Done():
			}
			orch.Shutdown(ctx)
			srv.Stop(ctx)
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
