package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/goredisstore"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/exaring/otelpgx"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/saurabh97858/myshow-sub000/api"
	"github.com/saurabh97858/myshow-sub000/internal/booking"
	"github.com/saurabh97858/myshow-sub000/internal/cache"
	"github.com/saurabh97858/myshow-sub000/internal/domain"
	"github.com/saurabh97858/myshow-sub000/internal/lock"
	"github.com/saurabh97858/myshow-sub000/internal/mailer"
	"github.com/saurabh97858/myshow-sub000/internal/metrics"
	"github.com/saurabh97858/myshow-sub000/internal/notify"
	"github.com/saurabh97858/myshow-sub000/internal/repository"
	"github.com/saurabh97858/myshow-sub000/internal/reservation"
	appvalidator "github.com/saurabh97858/myshow-sub000/internal/validator"
	"github.com/saurabh97858/myshow-sub000/internal/vcs"
	"github.com/saurabh97858/myshow-sub000/internal/worker"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	version = vcs.Version()
)

// SeatEngine is what the HTTP layer needs from the reservation engine.
type SeatEngine interface {
	SeatAvailability(ctx context.Context, showtimeID string) (int, []string, error)
	HoldWindow() time.Duration
}

type BookingService interface {
	Create(ctx context.Context, in booking.CreateInput) (*domain.Booking, error)
	Get(ctx context.Context, userID, bookingID string) (*domain.Booking, error)
	List(ctx context.Context, userID string, pagination domain.Pagination) ([]*domain.Booking, *domain.Metadata, error)
	ConfirmPayment(ctx context.Context, userID, bookingID, paymentRef string) (*domain.Booking, error)
	Cancel(ctx context.Context, userID, bookingID string) (*domain.Booking, error)
	SweepExpired(ctx context.Context) (booking.SweepResult, error)
	HoldWindow() time.Duration
}

type Application struct {
	config         Config
	logger         *slog.Logger
	validator      *validator.Validate
	sessionManager *scs.SessionManager
	registry       *prometheus.Registry
	metrics        *metrics.Metrics
	openapi        *openapi3.T
	now            func() time.Time

	showtimeRepo domain.ShowtimeRepository
	engine       SeatEngine
	bookings     BookingService
	seatCache    *cache.SeatMapCache
	sweeper      *worker.ExpirySweeper
}

// Deps are the connections NewApp wires into the application. Only the ones
// the configuration asks for need to be set.
type Deps struct {
	DB             *pgxpool.Pool
	Mongo          *mongo.Database
	Redis          redis.UniversalClient
	SessionManager *scs.SessionManager
	Notifier       domain.Notifier
	Registry       *prometheus.Registry
}

func Run() error {
	cfg, showVersion, err := LoadConfig(os.Args[1:])
	if err != nil {
		return err
	}

	if showVersion {
		fmt.Printf("Version:\t%s\n", version)
		return nil
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	shutdownTelemetry, logger, err := InitTelemetry(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	deps := Deps{
		Registry: prometheus.NewRegistry(),
	}

	switch cfg.Store {
	case StorePostgres:
		db, err := NewDatabasePool(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		deps.DB = db
	case StoreMongo:
		client, err := NewMongoClient(cfg)
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())

		deps.Mongo = client.Database(cfg.Mongo.Database)

		err = repository.EnsureMongoIndexes(context.Background(), deps.Mongo)
		if err != nil {
			return err
		}
	}

	var redisClient *redis.Client

	if cfg.Redis.URL != "" {
		redisClient, err = NewRedisClient(cfg)
		if err != nil {
			return err
		}
		defer redisClient.Close()

		deps.Redis = redisClient
	}

	deps.SessionManager = NewSessionManager(redisClient)

	notifier, closeNotifier := NewNotifier(cfg, logger)
	defer closeNotifier()

	deps.Notifier = notifier

	app, err := NewApp(cfg, logger, deps)
	if err != nil {
		return err
	}

	return app.run()
}

func NewApp(cfg Config, logger *slog.Logger, deps Deps) (*Application, error) {
	var (
		showtimes domain.ShowtimeRepository
		bookings  domain.BookingRepository
	)

	switch cfg.Store {
	case StorePostgres:
		if deps.DB == nil {
			return nil, errors.New("postgres store selected without a database pool")
		}

		showtimes = repository.NewPostgresShowtimeRepository(deps.DB)
		bookings = repository.NewPostgresBookingRepository(deps.DB)
	case StoreMongo:
		if deps.Mongo == nil {
			return nil, errors.New("mongo store selected without a database")
		}

		showtimes = repository.NewMongoShowtimeRepository(deps.Mongo)
		bookings = repository.NewMongoBookingRepository(deps.Mongo)
	case StoreMemory:
		showtimes = repository.NewMemoryShowtimeRepository()
		bookings = repository.NewMemoryBookingRepository()
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := metrics.New(registry)

	locker, err := NewLocker(cfg, deps.Redis, logger)
	if err != nil {
		return nil, err
	}

	var seatCache *cache.SeatMapCache
	if deps.Redis != nil {
		seatCache = cache.NewSeatMapCache(deps.Redis, cfg.Redis.SeatMapTTL)
	}

	engine := reservation.NewEngine(showtimes,
		reservation.WithLocker(locker),
		reservation.WithHoldWindow(cfg.Reservation.HoldWindow),
		reservation.WithTimeout(cfg.Reservation.Timeout),
		reservation.WithMaxAttempts(cfg.Reservation.MaxAttempts),
		reservation.WithMetrics(m),
		reservation.WithLogger(logger),
		reservation.WithCommitHook(func(ctx context.Context, showtimeID string) {
			err := seatCache.Invalidate(ctx, showtimeID)
			if err != nil {
				logger.Warn("failed to invalidate seat map cache", "showtime_id", showtimeID, "error", err)
			}
		}),
	)

	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}

	service := booking.NewService(engine, showtimes, bookings, notifier,
		booking.WithLogger(logger),
		booking.WithMetrics(m),
	)

	sessionManager := deps.SessionManager
	if sessionManager == nil {
		sessionManager = NewSessionManager(nil)
	}

	spec, err := api.LoadSpec()
	if err != nil {
		return nil, fmt.Errorf("load openapi description: %w", err)
	}

	app := &Application{
		config:         cfg,
		logger:         logger,
		validator:      appvalidator.NewValidator(),
		sessionManager: sessionManager,
		registry:       registry,
		metrics:        m,
		openapi:        spec,
		now:            time.Now,
		showtimeRepo:   showtimes,
		engine:         engine,
		bookings:       service,
		seatCache:      seatCache,
		sweeper:        worker.NewExpirySweeper(service, cfg.Sweeper.Interval, logger),
	}

	return app, nil
}

// NewLocker returns the per-showtime exclusivity scope. The redis lock lets
// several processes share one store; the compare-and-swap commit stays the
// final guard in both modes.
func NewLocker(cfg Config, client redis.UniversalClient, logger *slog.Logger) (reservation.Locker, error) {
	switch cfg.Reservation.LockMode {
	case LockModeLocal, "":
		return lock.NewKeyedMutex(), nil
	case LockModeRedis:
		if client == nil {
			return nil, errors.New("redis lock mode requires -redis-url")
		}

		return lock.NewRedisLocker(client, cfg.Reservation.LockTTL, logger), nil
	default:
		return nil, fmt.Errorf("unknown lock mode %q", cfg.Reservation.LockMode)
	}
}

// NewNotifier fans booking events out to the log and to every configured
// transport. The returned func flushes and closes them.
func NewNotifier(cfg Config, logger *slog.Logger) (domain.Notifier, func()) {
	sinks := notify.Fanout{notify.NewLogNotifier(logger)}
	closers := []func(){}

	if cfg.SMTP.Username != "" {
		m := mailer.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Sender)
		mail := notify.NewMailNotifier(m, cfg.Reservation.HoldWindow, logger)

		sinks = append(sinks, mail)
		closers = append(closers, mail.Wait)
	}

	if cfg.AMQP.URL != "" {
		publisher := notify.NewAMQPNotifier(cfg.AMQP.URL, cfg.AMQP.Queue)

		sinks = append(sinks, publisher)
		closers = append(closers, func() {
			if err := publisher.Close(); err != nil {
				logger.Error("failed to close amqp connection", "error", err)
			}
		})
	}

	return sinks, func() {
		for _, c := range closers {
			c()
		}
	}
}

func NewSessionManager(client *redis.Client) *scs.SessionManager {
	sessionManager := scs.New()

	if client != nil {
		sessionManager.Store = goredisstore.New(client)
	} else {
		sessionManager.Store = memstore.New()
	}

	sessionManager.IdleTimeout = 20 * time.Minute
	sessionManager.Cookie.Name = "session_id"

	return sessionManager
}

func NewRedisClient(cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Redis.URL,
		MaxIdleConns:    cfg.Redis.MaxIdleConns,
		MaxActiveConns:  cfg.Redis.MaxOpenConns,
		ConnMaxIdleTime: cfg.Redis.MaxIdleTime,
	})

	err := redisotel.InstrumentTracing(rdb)
	if err != nil {
		rdb.Close()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = rdb.Ping(ctx).Err()
	if err != nil {
		rdb.Close()
		return nil, err
	}

	return rdb, nil
}

func NewDatabasePool(cfg Config) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.DB.DSN)
	if err != nil {
		return nil, err
	}

	config.MaxConnIdleTime = cfg.DB.MaxIdleTime
	config.MaxConns = int32(cfg.DB.MaxOpenConns)
	config.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = db.Ping(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func NewMongoClient(cfg Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return nil, err
	}

	err = client.Ping(ctx, readpref.Primary())
	if err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	return client, nil
}

func (app *Application) run() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.Port),
		Handler:      app.Routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := srv.Shutdown(ctx)

		app.sweeper.Stop()

		shutdownError <- err
	}()

	go app.sweeper.Start(context.Background())

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env, "store", app.config.Store)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}
