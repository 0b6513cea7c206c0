package daemon

import (
	"context"
	"fmt"

	"github.com/matheus3301/meshchat/internal/api"
	"github.com/matheus3301/meshchat/internal/bus"
	"github.com/matheus3301/meshchat/internal/config"
	"github.com/matheus3301/meshchat/internal/journal"
	"github.com/matheus3301/meshchat/internal/lock"
	"github.com/matheus3301/meshchat/internal/logging"
	"github.com/matheus3301/meshchat/internal/mesh"
	"github.com/matheus3301/meshchat/internal/profile"
	"github.com/matheus3301/meshchat/internal/store"
	"github.com/matheus3301/meshchat/internal/transport"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	ProfileName string
	SocketPath  string // optional override for testing; empty = use default
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Options(
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
		fx.Module("daemon",
			fx.Supply(p),
			fx.Provide(
				provideNodeConfig,
				provideLogger,
				provideBus,
				provideLock,
				provideStore,
				provideTransport,
				provideJournal,
				provideNode,
				provideService,
				NewServer,
			),
			fx.Invoke(registerLifecycle),
		),
	)
}

// provideNodeConfig loads node.toml, allocating and saving a peer id on
// first start.
func provideNodeConfig(p Params) (config.Node, error) {
	if err := profile.EnsureDir(p.ProfileName); err != nil {
		return config.Node{}, err
	}
	path := profile.NodeConfigPath(p.ProfileName)
	cfg, created, err := config.LoadNode(path, profile.EnvPath(p.ProfileName))
	if err != nil {
		return config.Node{}, err
	}
	if created {
		if err := config.SaveNode(path, cfg); err != nil {
			return config.Node{}, fmt.Errorf("save node config: %w", err)
		}
	}
	return cfg, nil
}

func provideLogger(p Params, cfg config.Node) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.ProfileName), p.ProfileName, cfg.PeerID, cfg.LogLevel)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, cfg config.Node, logger *zap.Logger) (*lock.Lock, error) {
	logger.Info("acquiring profile lock", zap.String("profile", p.ProfileName))
	l, err := lock.Acquire(profile.Dir(p.ProfileName), cfg.PeerID)
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

// provideStore takes the lock so the database is only opened by its owner.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := profile.DBPath(p.ProfileName)
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
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideTransport(cfg config.Node, logger *zap.Logger) (transport.Transport, error) {
	book := transport.NewAddressBook(cfg.Addresses)
	opts := transport.Options{
		ListenAddr:       cfg.Listen,
		DialTimeout:      cfg.DialTimeout,
		HandshakeTimeout: cfg.HandshakeTimeout,
		QueueSize:        cfg.QueueSize,
	}
	switch cfg.Transport {
	case "quic":
		return transport.NewQUIC(cfg.PeerID, opts, book, logger)
	case "tcp":
		return transport.NewTCP(cfg.PeerID, opts, book, logger), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

func provideJournal(db *store.DB, b *bus.Bus, logger *zap.Logger) *journal.Journal {
	return journal.New(db, b, logger.Named("journal"))
}

func provideNode(cfg config.Node, tr transport.Transport, j *journal.Journal, db *store.DB, b *bus.Bus, logger *zap.Logger) (*mesh.Node, error) {
	group, err := db.LoadGroup()
	if err != nil {
		return nil, fmt.Errorf("load group: %w", err)
	}
	return mesh.NewNode(mesh.Options{
		Transport: tr,
		Sink:      j,
		Store:     db,
		Bus:       b,
		Logger:    logger.Named("node"),
		Dedup:     cfg.Relay.Dedup,
		SeenTTL:   cfg.Relay.SeenTTL,
		SeenMax:   cfg.Relay.SeenMax,
		GroupName: group.Name,
		Members:   group.Members,
	}), nil
}

func provideService(p Params, node *mesh.Node, db *store.DB, b *bus.Bus, logger *zap.Logger) *api.Service {
	return api.NewService(p.ProfileName, node, db, b, logger.Named("api"))
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, lk *lock.Lock, node *mesh.Node, db *store.DB, logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() { done <- node.Run(ctx) }()

			// Start gRPC server in background.
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()
			logger.Info("node started", zap.String("peer_id", node.Self()))
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			srv.Stop(stopCtx)
			cancel()
			select {
			case err := <-done:
				if err != nil {
					logger.Error("node exited with error", zap.Error(err))
				}
			case <-stopCtx.Done():
				logger.Warn("node did not stop in time")
			}
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
