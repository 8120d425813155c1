package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/iyhunko/catalog-service/internal/auth"
	httpAPI "github.com/iyhunko/catalog-service/internal/http"
	"github.com/iyhunko/catalog-service/internal/http/controller"
	"github.com/iyhunko/catalog-service/internal/http/middleware"
	"github.com/iyhunko/catalog-service/internal/model"
	mongostore "github.com/iyhunko/catalog-service/internal/repository/mongo"
	reposql "github.com/iyhunko/catalog-service/internal/repository/sql"
	"github.com/iyhunko/catalog-service/internal/service"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const testJWTSecret = "integration-secret"

// TestDB holds the test database connection and cleanup function
type TestDB struct {
	DB       *sql.DB
	Pool     *dockertest.Pool
	Resource *dockertest.Resource
}

// SetupTestDB sets up a PostgreSQL container using dockertest and runs migrations.
// The test is skipped when no Docker daemon is reachable.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("Could not connect to docker: %s", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("Docker is not available: %s", err)
	}

	// Set max wait time for Docker operations
	pool.MaxWait = 120 * time.Second

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16",
		Env: []string{
			"POSTGRES_PASSWORD=secret",
			"POSTGRES_USER=testuser",
			"POSTGRES_DB=catalog",
			"listen_addresses='*'",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("Could not start resource: %s", err)
	}

	// Set container to expire after 2 minutes to avoid orphaned containers
	if err := resource.Expire(120); err != nil {
		t.Fatalf("Could not set expiration: %s", err)
	}

	hostAndPort := resource.GetHostPort("5432/tcp")
	databaseURL := fmt.Sprintf("postgres://testuser:secret@%s/catalog?sslmode=disable", hostAndPort)

	log.Println("Connecting to database on url: ", databaseURL)

	var db *sql.DB
	if err = pool.Retry(func() error {
		var err error
		// Same driver as the service so that constraint errors map identically
		db, err = sql.Open("pgx", databaseURL)
		if err != nil {
			return err
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("Could not connect to docker: %s", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		t.Fatalf("Could not create migration driver: %s", err)
	}

	// Get the migrations path - go up from integration folder to root
	migrationsPath := "../migrations"
	if _, err := os.Stat(migrationsPath); os.IsNotExist(err) {
		t.Fatalf("Migrations directory not found: %s", migrationsPath)
	}

	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationsPath), "postgres", driver)
	if err != nil {
		t.Fatalf("Could not create migrate instance: %s", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("Could not run migrations: %s", err)
	}

	return &TestDB{
		DB:       db,
		Pool:     pool,
		Resource: resource,
	}
}

// Cleanup closes the database connection and purges the Docker container
func (tdb *TestDB) Cleanup(t *testing.T) {
	t.Helper()

	if tdb.DB != nil {
		if err := tdb.DB.Close(); err != nil {
			t.Errorf("Could not close database: %s", err)
		}
	}

	if tdb.Pool != nil && tdb.Resource != nil {
		if err := tdb.Pool.Purge(tdb.Resource); err != nil {
			t.Errorf("Could not purge resource: %s", err)
		}
	}
}

// TruncateTables truncates all tables in the test database
func (tdb *TestDB) TruncateTables(t *testing.T) {
	t.Helper()

	for _, table := range []string{"events", "products"} {
		_, err := tdb.DB.ExecContext(context.Background(), fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		if err != nil {
			t.Fatalf("Could not truncate table %s: %s", table, err)
		}
	}
}

// TestMongo holds the test MongoDB database and its container
type TestMongo struct {
	Client   *mongo.Client
	DB       *mongo.Database
	Pool     *dockertest.Pool
	Resource *dockertest.Resource
}

// SetupTestMongo starts a MongoDB container and creates the product indexes.
// The test is skipped when no Docker daemon is reachable.
func SetupTestMongo(t *testing.T) *TestMongo {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("Could not connect to docker: %s", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("Docker is not available: %s", err)
	}
	pool.MaxWait = 120 * time.Second

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mongo",
		Tag:        "7",
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("Could not start resource: %s", err)
	}
	if err := resource.Expire(120); err != nil {
		t.Fatalf("Could not set expiration: %s", err)
	}

	uri := fmt.Sprintf("mongodb://%s", resource.GetHostPort("27017/tcp"))
	log.Println("Connecting to mongo on url: ", uri)

	var client *mongo.Client
	if err = pool.Retry(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var err error
		client, err = mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if err != nil {
			return err
		}
		return client.Ping(ctx, nil)
	}); err != nil {
		t.Fatalf("Could not connect to mongo: %s", err)
	}

	db := client.Database("catalog")
	if err := mongostore.EnsureIndexes(context.Background(), db); err != nil {
		t.Fatalf("Could not create indexes: %s", err)
	}

	return &TestMongo{
		Client:   client,
		DB:       db,
		Pool:     pool,
		Resource: resource,
	}
}

// Cleanup disconnects the client and purges the Docker container
func (tm *TestMongo) Cleanup(t *testing.T) {
	t.Helper()

	if tm.Client != nil {
		if err := tm.Client.Disconnect(context.Background()); err != nil {
			t.Errorf("Could not disconnect from mongo: %s", err)
		}
	}

	if tm.Pool != nil && tm.Resource != nil {
		if err := tm.Pool.Purge(tm.Resource); err != nil {
			t.Errorf("Could not purge resource: %s", err)
		}
	}
}

// ClearProducts removes every product document and keeps the indexes
func (tm *TestMongo) ClearProducts(t *testing.T) {
	t.Helper()

	if _, err := tm.DB.Collection("products").DeleteMany(context.Background(), bson.D{}); err != nil {
		t.Fatalf("Could not clear products: %s", err)
	}
}

// TestAPI is the catalog HTTP API wired to the test database with the outbox publisher.
type TestAPI struct {
	Router   *gin.Engine
	Products *reposql.ProductRepository
	Events   *reposql.EventRepository
	verifier *auth.Verifier
}

// NewTestAPI builds the full router the catalog service runs.
func NewTestAPI(tdb *TestDB) *TestAPI {
	gin.SetMode(gin.TestMode)

	products := reposql.NewProductRepository(tdb.DB)
	events := reposql.NewEventRepository(tdb.DB)
	catalog := service.NewTransactionalCatalogService(products, reposql.NewTransactionalRepository(tdb.DB), nil)
	verifier := auth.NewVerifier(testJWTSecret)

	router := httpAPI.InitRouter(
		gin.New(),
		middleware.New(verifier),
		controller.New(map[string]controller.HealthCheck{"postgres": tdb.DB.PingContext}),
		controller.NewProductController(catalog, nil),
	)

	return &TestAPI{Router: router, Products: products, Events: events, verifier: verifier}
}

// Token issues a bearer token for principal.
func (api *TestAPI) Token(t *testing.T, principal auth.Principal) string {
	t.Helper()
	token, err := api.verifier.Issue(principal, time.Hour)
	require.NoError(t, err)
	return token
}

// Do sends a JSON request through the router. A nil body sends no body.
func (api *TestAPI) Do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	api.Router.ServeHTTP(w, req)
	return w
}

// SeedProduct stores a product directly through the repository.
func (api *TestAPI) SeedProduct(t *testing.T, name, category string, price float64) *model.Product {
	t.Helper()
	p := &model.Product{MainCategory: category, SubCategory: "standard", Price: price, InStock: 5}
	p.SetName(name)
	require.NoError(t, api.Products.Create(context.Background(), p))
	return p
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}
