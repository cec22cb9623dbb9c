package agenda

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jonboulle/clockwork"

	notifobs "github.com/Apurer/agenda-client/internal/domains/notifications/adapters/observability"
	notifapp "github.com/Apurer/agenda-client/internal/domains/notifications/application"
	notifports "github.com/Apurer/agenda-client/internal/domains/notifications/ports"
	"github.com/Apurer/agenda-client/internal/domains/session/adapters/jwt"
	sessionobs "github.com/Apurer/agenda-client/internal/domains/session/adapters/observability"
	"github.com/Apurer/agenda-client/internal/domains/session/adapters/remote"
	filestorage "github.com/Apurer/agenda-client/internal/domains/session/adapters/storage/file"
	memorystorage "github.com/Apurer/agenda-client/internal/domains/session/adapters/storage/memory"
	pgstorage "github.com/Apurer/agenda-client/internal/domains/session/adapters/storage/postgres"
	redisstorage "github.com/Apurer/agenda-client/internal/domains/session/adapters/storage/redis"
	sessionapp "github.com/Apurer/agenda-client/internal/domains/session/application"
	sessionports "github.com/Apurer/agenda-client/internal/domains/session/ports"
	"github.com/Apurer/agenda-client/internal/platform/migrations"
	platformobservability "github.com/Apurer/agenda-client/internal/platform/observability"
	platformpostgres "github.com/Apurer/agenda-client/internal/platform/postgres"
	platformredis "github.com/Apurer/agenda-client/internal/platform/redis"
)

// Runtime owns the session store and the notification queue of one process
// and the flows composed on top of them.
type Runtime struct {
	Config  Config
	Logger  *slog.Logger
	Session sessionports.Service
	Toasts  notifports.Service
	Client  *remote.Client
	SignIn  *SignInFlow
	Profile *ProfileFlow

	cleanup func()
}

type runtimeOptions struct {
	clock   clockwork.Clock
	storage sessionports.Storage
}

type RuntimeOption func(*runtimeOptions)

// WithClock drives toast expiry from clock.
func WithClock(clock clockwork.Clock) RuntimeOption {
	return func(o *runtimeOptions) { o.clock = clock }
}

// WithStorage bypasses Config.Storage.
func WithStorage(storage sessionports.Storage) RuntimeOption {
	return func(o *runtimeOptions) { o.storage = storage }
}

// NewRuntime wires adapters according to cfg. instruments may be nil.
func NewRuntime(ctx context.Context, cfg Config, instruments *platformobservability.Instruments, opts ...RuntimeOption) (*Runtime, error) {
	var o runtimeOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if instruments != nil && instruments.Logger != nil {
		logger = instruments.Logger
	}

	client, err := remote.NewClient(cfg.APIURL, remote.WithTimeout(cfg.HTTPTimeout), remote.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	storage, cleanup := o.storage, func() {}
	if storage == nil {
		storage, cleanup, err = buildStorage(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
	}

	store := sessionapp.NewStore(storage, client, jwt.NewDecoder(),
		sessionapp.WithHeaderSink(client),
		sessionapp.WithLogger(logger),
	)
	session := sessionobs.New(store,
		sessionobs.WithLogger(logger),
		sessionobs.WithTracer(instruments.Tracer("internal.session.application")),
		sessionobs.WithMeter(instruments.Meter("internal.session.application")),
	)

	queueOpts := []notifapp.Option{notifapp.WithTTL(cfg.ToastTTL), notifapp.WithLogger(logger)}
	if o.clock != nil {
		queueOpts = append(queueOpts, notifapp.WithClock(o.clock))
	}
	toasts := notifobs.New(notifapp.NewQueue(queueOpts...),
		notifobs.WithLogger(logger),
		notifobs.WithTracer(instruments.Tracer("internal.notifications.application")),
		notifobs.WithMeter(instruments.Meter("internal.notifications.application")),
	)

	signIn, err := NewSignInFlow(session, toasts)
	if err != nil {
		cleanup()
		return nil, err
	}
	profile, err := NewProfileFlow(session, toasts, client)
	if err != nil {
		cleanup()
		return nil, err
	}

	return &Runtime{
		Config:  cfg,
		Logger:  logger,
		Session: session,
		Toasts:  toasts,
		Client:  client,
		SignIn:  signIn,
		Profile: profile,
		cleanup: cleanup,
	}, nil
}

// Start hydrates the session from storage.
func (r *Runtime) Start(ctx context.Context) error {
	if err := r.Session.Init(ctx); err != nil {
		return fmt.Errorf("start session store: %w", err)
	}
	return nil
}

// Stop unbinds the session store, drops pending toasts and releases storage.
func (r *Runtime) Stop() {
	r.Session.Teardown()
	r.Toasts.Close()
	if r.cleanup != nil {
		r.cleanup()
		r.cleanup = nil
	}
}

func buildStorage(ctx context.Context, cfg Config, logger *slog.Logger) (sessionports.Storage, func(), error) {
	switch cfg.Storage {
	case StorageMemory:
		logger.Warn("session storage is in-memory, sign-ins will not survive a restart")
		return memorystorage.NewStorage(), func() {}, nil
	case StoragePostgres:
		db, closeDB, err := platformpostgres.Open(ctx, cfg.PostgresDSN, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := migrations.Run(db); err != nil {
			closeDB()
			return nil, nil, fmt.Errorf("migrate session schema: %w", err)
		}
		logger.Info("session storage configured with postgres")
		return pgstorage.NewStorage(db), closeDB, nil
	case StorageRedis:
		rdb, closeRedis, err := platformredis.Open(ctx, cfg.RedisURL, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("session storage configured with redis")
		return redisstorage.NewStorage(rdb), closeRedis, nil
	default:
		storage, err := filestorage.NewStorage(cfg.StateFile)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("session storage configured with state file", slog.String("path", storage.Path()))
		return storage, func() {}, nil
	}
}
