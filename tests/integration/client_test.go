package integration

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cinedeck/tmdb-client/internal/testutil"
	"github.com/cinedeck/tmdb-client/pkg/cache"
	"github.com/cinedeck/tmdb-client/pkg/client"
	"github.com/cinedeck/tmdb-client/pkg/history"
	"github.com/cinedeck/tmdb-client/pkg/movies"
	"github.com/cinedeck/tmdb-client/pkg/store"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

// setupService wires the full stack: mock API behind the resilient
// client, Redis-backed store behind the cache.
func setupService(t *testing.T, redisClient *redis.Client) (*movies.Service, *testutil.MockTMDB, store.Store) {
	t.Helper()

	mock := testutil.NewMockTMDB()
	t.Cleanup(mock.Close)

	cfg := client.DefaultConfig("integration-token")
	cfg.BaseURL = mock.URL()
	cfg.BackoffUnit = 5 * time.Millisecond
	apiClient, err := client.New(cfg)
	if err != nil {
		t.Fatalf("client.New failed: %v", err)
	}

	kv := store.NewRedisStore(redisClient)
	return movies.New(apiClient, cache.New(kv)), mock, kv
}

func TestCacheSuppressesNetworkCalls(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	svc, mock, _ := setupService(t, redisClient)
	ctx := context.Background()

	mock.SetResponse("/genre/movie/list", testutil.NewJSONResponse(
		`{"genres":[{"id":28,"name":"Action"}]}`))

	for i := 0; i < 3; i++ {
		genres, err := svc.Genres(ctx)
		if err != nil {
			t.Fatalf("Genres call %d failed: %v", i+1, err)
		}
		if len(genres) != 1 || genres[0].Name != "Action" {
			t.Errorf("Genres = %+v", genres)
		}
	}

	if got := mock.GetPathCount("/genre/movie/list"); got != 1 {
		t.Errorf("network calls = %d, want 1 (Redis-backed cache hit)", got)
	}
}

func TestRetryAgainstFlakyUpstream(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	svc, mock, _ := setupService(t, redisClient)
	ctx := context.Background()

	mock.SetFailuresThenSuccess("/movie/155", 2, 503, `{"id":155,"title":"The Dark Knight"}`)

	raw, err := svc.Details(ctx, 155)
	if err != nil {
		t.Fatalf("Details failed: %v", err)
	}
	if len(raw) == 0 {
		t.Fatal("empty payload")
	}
	if got := mock.GetPathCount("/movie/155"); got != 3 {
		t.Errorf("network calls = %d, want 3", got)
	}

	// The recovered payload is now cached in Redis.
	if _, err := svc.Details(ctx, 155); err != nil {
		t.Fatalf("cached Details failed: %v", err)
	}
	if got := mock.GetPathCount("/movie/155"); got != 3 {
		t.Errorf("network calls = %d, want still 3", got)
	}
}

func TestHistorySharesStoreWithCache(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	svc, mock, kv := setupService(t, redisClient)
	searches := history.New(kv)
	ctx := context.Background()

	mock.SetResponse("/search/movie", testutil.NewJSONResponse(
		`{"page":1,"results":[],"total_pages":1}`))

	if _, err := svc.Search(ctx, "Dune", 1); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	searches.Add(ctx, "Dune")

	// Clearing the cache leaves the history blob untouched.
	svc.ClearCache(ctx)

	if got := searches.Recent(ctx, 10); len(got) != 1 || got[0] != "Dune" {
		t.Errorf("history after cache clear = %v, want [Dune]", got)
	}

	// And the next search goes back to the network.
	if _, err := svc.Search(ctx, "Dune", 1); err != nil {
		t.Fatalf("Search after clear failed: %v", err)
	}
	if got := mock.GetPathCount("/search/movie"); got != 2 {
		t.Errorf("network calls = %d, want 2", got)
	}
}
