package integration_test

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/saurabh97858/myshow-sub000/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"
)

// BaseSuite runs the application against real containers. Store picks the
// showtime and booking backend. Redis always runs alongside it.
type BaseSuite struct {
	suite.Suite
	Store      string
	app        *TestApp
	containers []testcontainers.Container
	server     *httptest.Server
}

func (s *BaseSuite) SetupSuite() {
	ctx := context.Background()

	if s.Store == "" {
		s.Store = app.StorePostgres
	}

	cfg := app.Config{
		Port:  3000,
		Env:   "test",
		Store: s.Store,
		Reservation: app.ReservationConfig{
			HoldWindow:  10 * time.Minute,
			Timeout:     5 * time.Second,
			MaxAttempts: 5,
			LockMode:    app.LockModeRedis,
			LockTTL:     5 * time.Second,
		},
		Sweeper: app.SweeperConfig{Interval: time.Hour},
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(TestAdminPassword), bcrypt.MinCost)
	s.Require().NoError(err)
	cfg.Admin = app.AdminConfig{Username: TestAdminUsername, PasswordHash: string(hash)}

	switch s.Store {
	case app.StorePostgres:
		postgresContainer, err := getDbContainer(ctx)
		s.Require().NoError(err, "failed to start postgres container")

		s.containers = append(s.containers, postgresContainer.Container)
		cfg.DB = app.DBConfig{
			DSN:          postgresContainer.ConnectionString,
			MaxOpenConns: 25,
			MaxIdleTime:  2 * time.Minute,
		}
	case app.StoreMongo:
		mongoContainer, err := getMongoContainer(ctx)
		s.Require().NoError(err, "failed to start mongo container")

		s.containers = append(s.containers, mongoContainer.Container)
		cfg.Mongo = app.MongoConfig{URI: mongoContainer.ConnectionString, Database: mongoDatabase}
	}

	redisContainer, err := getCacheContainer(ctx)
	s.Require().NoError(err, "failed to start redis container")

	s.containers = append(s.containers, redisContainer.Container)
	cfg.Redis = app.RedisConfig{
		URL:          redisContainer.ConnectionString,
		MaxOpenConns: 25,
		MaxIdleConns: 10,
		MaxIdleTime:  2 * time.Minute,
		SeatMapTTL:   time.Minute,
	}

	testApp, err := newTestApp(cfg)
	s.Require().NoError(err, "cannot initialize app")

	s.app = testApp
	s.server = httptest.NewServer(testApp.Handler)
}

func (s *BaseSuite) SetupTest() {
	ctx := context.Background()

	if s.app.DB != nil {
		_, err := s.app.DB.Exec(ctx, "TRUNCATE showtimes, bookings CASCADE")
		s.Require().NoError(err)
	}

	if s.app.Mongo != nil {
		for _, name := range []string{"showtimes", "bookings"} {
			_, err := s.app.Mongo.Collection(name).DeleteMany(ctx, bson.M{})
			s.Require().NoError(err)
		}
	}

	s.Require().NoError(s.app.Redis.FlushDB(ctx).Err())
	s.app.Events.Reset()
}

func (s *BaseSuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}

	if s.app != nil {
		s.app.Close()
	}

	for _, c := range s.containers {
		if err := testcontainers.TerminateContainer(c); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}
}

type Scenario struct {
	Name             string
	Method           string
	URL              string
	Body             io.Reader
	Headers          map[string]string
	Cookies          []*http.Cookie
	ExpectedStatus   int
	ExpectedResponse string
	BeforeTestFunc   func(t testing.TB, app *TestApp)
	AfterTestFunc    func(t testing.TB, app *TestApp, res *http.Response)
}

func (s Scenario) Run(t *testing.T, testApp *TestApp) {
	t.Run(s.Name, func(t *testing.T) {
		req, err := prepareRequest(s.Method, s.URL, s.Body, s.Headers, s.Cookies)
		require.NoError(t, err)

		if s.BeforeTestFunc != nil {
			s.BeforeTestFunc(t, testApp)
		}

		rec := httptest.NewRecorder()
		testApp.Handler.ServeHTTP(rec, req)

		res := rec.Result()
		defer res.Body.Close()

		assert.Equal(t, s.ExpectedStatus, res.StatusCode)

		if s.ExpectedResponse != "" {
			compareResponse(t, res.Body, s.ExpectedResponse)
		}

		if s.AfterTestFunc != nil {
			s.AfterTestFunc(t, testApp, res)
		}
	})
}
