package integration_test

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/saurabh97858/myshow-sub000/internal/app"
	"github.com/saurabh97858/myshow-sub000/internal/domain"
	"github.com/saurabh97858/myshow-sub000/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type TestApp struct {
	App       *app.Application
	Handler   http.Handler
	DB        *pgxpool.Pool
	Mongo     *mongo.Database
	Redis     *redis.Client
	Showtimes domain.ShowtimeRepository
	Bookings  domain.BookingRepository
	Events    *eventRecorder
}

func newTestApp(cfg app.Config) (*TestApp, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	events := &eventRecorder{}

	testApp := &TestApp{Events: events}
	deps := app.Deps{Notifier: events}

	switch cfg.Store {
	case app.StorePostgres:
		db, err := app.NewDatabasePool(cfg)
		if err != nil {
			return nil, err
		}

		deps.DB = db
		testApp.DB = db
		testApp.Showtimes = repository.NewPostgresShowtimeRepository(db)
		testApp.Bookings = repository.NewPostgresBookingRepository(db)
	case app.StoreMongo:
		client, err := app.NewMongoClient(cfg)
		if err != nil {
			return nil, err
		}

		database := client.Database(cfg.Mongo.Database)

		err = repository.EnsureMongoIndexes(context.Background(), database)
		if err != nil {
			client.Disconnect(context.Background())
			return nil, err
		}

		deps.Mongo = database
		testApp.Mongo = database
		testApp.Showtimes = repository.NewMongoShowtimeRepository(database)
		testApp.Bookings = repository.NewMongoBookingRepository(database)
	}

	redisClient, err := app.NewRedisClient(cfg)
	if err != nil {
		testApp.Close()
		return nil, err
	}

	deps.Redis = redisClient
	deps.SessionManager = app.NewSessionManager(redisClient)
	testApp.Redis = redisClient

	application, err := app.NewApp(cfg, logger, deps)
	if err != nil {
		testApp.Close()
		return nil, err
	}

	testApp.App = application
	testApp.Handler = application.Routes()

	return testApp, nil
}

func (a *TestApp) Close() {
	if a.DB != nil {
		a.DB.Close()
	}

	if a.Mongo != nil {
		a.Mongo.Client().Disconnect(context.Background())
	}

	if a.Redis != nil {
		a.Redis.Close()
	}
}

// eventRecorder keeps every booking event the application publishes.
type eventRecorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *eventRecorder) Notify(_ context.Context, _ string, event domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)

	return nil
}

func (r *eventRecorder) Types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()

	types := make([]domain.EventType, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}

	return types
}

func (r *eventRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = nil
}

// backdateBooking moves a booking's creation time into the past so the next
// sweep treats its hold as lapsed.
func (a *TestApp) backdateBooking(ctx context.Context, bookingID string, age time.Duration) error {
	createdAt := time.Now().Add(-age).UTC()

	if a.DB != nil {
		_, err := a.DB.Exec(ctx, "UPDATE bookings SET created_at = $1 WHERE id = $2", createdAt, bookingID)
		return err
	}

	_, err := a.Mongo.Collection("bookings").UpdateByID(ctx, bookingID,
		bson.M{"$set": bson.M{"created_at": createdAt}})
	return err
}
