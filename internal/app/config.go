package app

import (
	"errors"
	"flag"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/saurabh97858/myshow-sub000/internal/cache"
	"github.com/saurabh97858/myshow-sub000/internal/notify"
	"github.com/saurabh97858/myshow-sub000/internal/reservation"
)

const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"

	LockModeLocal = "local"
	LockModeRedis = "redis"
)

type Config struct {
	Port             int
	Env              string
	Store            string
	DB               DBConfig
	Mongo            MongoConfig
	Redis            RedisConfig
	SMTP             SMTPConfig
	AMQP             AMQPConfig
	Reservation      ReservationConfig
	Sweeper          SweeperConfig
	Admin            AdminConfig
	OtelCollectorUrl string
}

type DBConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleTime  time.Duration
}

type MongoConfig struct {
	URI      string
	Database string
}

type RedisConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration
	SeatMapTTL   time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

type AMQPConfig struct {
	URL   string
	Queue string
}

type ReservationConfig struct {
	HoldWindow  time.Duration
	Timeout     time.Duration
	MaxAttempts uint
	LockMode    string
	LockTTL     time.Duration
}

type SweeperConfig struct {
	Interval time.Duration
}

type AdminConfig struct {
	Username     string
	PasswordHash string
}

// LoadConfig parses args into a Config. Every flag falls back to an
// environment variable, and a .env file in the working directory is loaded
// first when present.
func LoadConfig(args []string) (Config, bool, error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, false, err
	}

	var cfg Config

	flags := flag.NewFlagSet("myshow", flag.ContinueOnError)

	flags.IntVar(&cfg.Port, "port", envInt("PORT", 3000), "server port")
	flags.StringVar(&cfg.Env, "env", envString("ENV", "dev"), "Environment (dev|staging|prod)")
	flags.StringVar(&cfg.Store, "store", envString("STORE", StorePostgres), "Showtime and booking store (postgres|mongo|memory)")

	flags.StringVar(&cfg.DB.DSN, "db-dsn", envString("DB_DSN", ""), "PostgreSQL DSN")
	flags.IntVar(&cfg.DB.MaxOpenConns, "db-max-open-conns", envInt("DB_MAX_OPEN_CONNS", 25), "PostgreSQL max open connections")
	flags.DurationVar(&cfg.DB.MaxIdleTime, "db-max-idle-time", envDuration("DB_MAX_IDLE_TIME", 15*time.Minute), "PostgreSQL max idle time for connections")

	flags.StringVar(&cfg.Mongo.URI, "mongo-uri", envString("MONGO_URI", "mongodb://localhost:27017"), "MongoDB connection URI")
	flags.StringVar(&cfg.Mongo.Database, "mongo-database", envString("MONGO_DATABASE", "myshow"), "MongoDB database name")

	flags.StringVar(&cfg.Redis.URL, "redis-url", envString("REDIS_URL", ""), "Redis URL")
	flags.IntVar(&cfg.Redis.MaxOpenConns, "redis-max-open-conns", envInt("REDIS_MAX_OPEN_CONNS", 25), "Redis max open connections")
	flags.IntVar(&cfg.Redis.MaxIdleConns, "redis-max-idle-conns", envInt("REDIS_MAX_IDLE_CONNS", 10), "Redis max idle connections")
	flags.DurationVar(&cfg.Redis.MaxIdleTime, "redis-max-idle-time", envDuration("REDIS_MAX_IDLE_TIME", 2*time.Minute), "Redis max idle time for connections")
	flags.DurationVar(&cfg.Redis.SeatMapTTL, "seat-map-cache-ttl", envDuration("SEAT_MAP_CACHE_TTL", cache.DefaultSeatMapTTL), "How long seat map reads are cached in Redis")

	flags.StringVar(&cfg.SMTP.Host, "smtp-host", envString("SMTP_HOST", "sandbox.smtp.mailtrap.io"), "SMTP host")
	flags.IntVar(&cfg.SMTP.Port, "smtp-port", envInt("SMTP_PORT", 2525), "SMTP port")
	flags.StringVar(&cfg.SMTP.Username, "smtp-username", envString("SMTP_USERNAME", ""), "SMTP username")
	flags.StringVar(&cfg.SMTP.Password, "smtp-password", envString("SMTP_PASSWORD", ""), "SMTP password")
	flags.StringVar(&cfg.SMTP.Sender, "smtp-sender", envString("SMTP_SENDER", "MyShow <no-reply@myshow.example.com>"), "SMTP sender")

	flags.StringVar(&cfg.AMQP.URL, "amqp-url", envString("AMQP_URL", ""), "RabbitMQ URL for booking events")
	flags.StringVar(&cfg.AMQP.Queue, "amqp-queue", envString("AMQP_QUEUE", notify.DefaultQueue), "RabbitMQ queue for booking events")

	flags.DurationVar(&cfg.Reservation.HoldWindow, "hold-window", envDuration("HOLD_WINDOW", reservation.DefaultHoldWindow), "How long unpaid seats stay held")
	flags.DurationVar(&cfg.Reservation.Timeout, "reservation-timeout", envDuration("RESERVATION_TIMEOUT", reservation.DefaultTimeout), "Upper bound for one seat map operation")
	flags.UintVar(&cfg.Reservation.MaxAttempts, "reservation-max-attempts", envUint("RESERVATION_MAX_ATTEMPTS", reservation.DefaultMaxAttempts), "Commit attempts before a seat map write fails")
	flags.StringVar(&cfg.Reservation.LockMode, "lock-mode", envString("LOCK_MODE", LockModeLocal), "Showtime lock (local|redis)")
	flags.DurationVar(&cfg.Reservation.LockTTL, "lock-ttl", envDuration("LOCK_TTL", 10*time.Second), "Expiry of a redis showtime lock")

	flags.DurationVar(&cfg.Sweeper.Interval, "sweep-interval", envDuration("SWEEP_INTERVAL", 30*time.Second), "How often lapsed holds are released")

	flags.StringVar(&cfg.Admin.Username, "admin-username", envString("ADMIN_USERNAME", "admin"), "Admin basic auth username")
	flags.StringVar(&cfg.Admin.PasswordHash, "admin-password-hash", envString("ADMIN_PASSWORD_HASH", ""), "bcrypt hash of the admin password")

	flags.StringVar(&cfg.OtelCollectorUrl, "otel-collector-url", envString("OTEL_COLLECTOR_URL", ""), "OpenTelemetry collector gRPC endpoint")

	displayVersion := flags.Bool("version", false, "Display version and exit")

	err = flags.Parse(args)
	if err != nil {
		return Config{}, false, err
	}

	if cfg.Sweeper.Interval <= 0 {
		return Config{}, false, errors.New("sweep-interval must be positive")
	}

	if cfg.Reservation.MaxAttempts == 0 {
		return Config{}, false, errors.New("reservation-max-attempts must be at least 1")
	}

	return cfg, *displayVersion, nil
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}

	return fallback
}

func envInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}

	return fallback
}

func envUint(key string, fallback uint) uint {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			return uint(n)
		}
	}

	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}

	return fallback
}
