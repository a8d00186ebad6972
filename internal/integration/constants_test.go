package integration_test

const (
	dbName         = "myshow"
	dbUser         = "test_user"
	dbPassword     = "test_password"
	dbImageName    = "postgres:17-alpine"
	cacheImageName = "redis:7"
	mongoImageName = "mongo:7"
	mongoDatabase  = "myshow_test"

	TestAdminUsername = "ops"
	TestAdminPassword = "Test123!@#"

	TestMovieId = "tt0133093"
	TestVenueId = "hall-7"
)
