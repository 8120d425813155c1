package config_test

import (
	"testing"
	"time"

	"github.com/iyhunko/catalog-service/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv(config.HTTPServerPortEnv, "8080")
	t.Setenv(config.MetricsServerPortEnv, "9090")
	t.Setenv(config.JWTSecretEnv, "secret")
}

func TestLoadFromEnv(t *testing.T) {
	setBaseEnv(t)
	t.Setenv(config.DebugModeEnv, "true")
	t.Setenv(config.DBHostEnv, "localhost")
	t.Setenv(config.DBUserEnv, "user")
	t.Setenv(config.DBPassEnv, "pass")
	t.Setenv(config.DBNameEnv, "testdb")
	t.Setenv(config.DBPortEnv, "5432")
	t.Setenv(config.RedisAddrEnv, "localhost:6379")
	t.Setenv(config.CategoryCacheTTLEnv, "30s")

	conf, err := config.LoadFromEnv()
	require.NoError(t, err, "loading config should not return error")

	assert.True(t, conf.DebugMode, "DebugMode should be true")
	assert.Equal(t, config.StoreDriverPostgres, conf.StoreDriver, "postgres should be the default store")
	assert.Equal(t, "localhost", conf.Database.Host)
	assert.Equal(t, "user", conf.Database.User)
	assert.Equal(t, "pass", conf.Database.Password)
	assert.Equal(t, "testdb", conf.Database.Name)
	assert.Equal(t, "5432", conf.Database.Port)
	assert.Equal(t, "file://migrations", conf.Database.MigrationsURL)
	assert.Equal(t, "8080", conf.HTTPServer.Port)
	assert.Equal(t, "9090", conf.MetricsServer.Port)
	assert.Equal(t, "secret", conf.Auth.JWTSecret)
	assert.Equal(t, "localhost:6379", conf.Redis.Addr)
	assert.Equal(t, 30*time.Second, conf.Redis.TTL)
	assert.Equal(t, time.Hour, conf.AWS.S3PresignTTL)
	assert.Equal(t, 2*time.Second, conf.OutboxInterval)
}

func TestLoadFromEnv_Mongo(t *testing.T) {
	setBaseEnv(t)
	t.Setenv(config.StoreDriverEnv, config.StoreDriverMongo)
	t.Setenv(config.MongoURIEnv, "mongodb://localhost:27017")

	conf, err := config.LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, config.StoreDriverMongo, conf.StoreDriver)
	assert.Equal(t, "mongodb://localhost:27017", conf.Mongo.URI)
	assert.Equal(t, "catalog", conf.Mongo.Database)
}

func TestLoadFromEnv_Errors(t *testing.T) {
	t.Run("unknown store driver", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv(config.StoreDriverEnv, "cassandra")

		_, err := config.LoadFromEnv()
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrUnknownStoreDriver)
	})

	t.Run("missing mongo uri", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv(config.StoreDriverEnv, config.StoreDriverMongo)
		t.Setenv(config.MongoURIEnv, "")

		_, err := config.LoadFromEnv()
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrMissingConfig)
	})

	t.Run("missing jwt secret", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv(config.StoreDriverEnv, config.StoreDriverMongo)
		t.Setenv(config.MongoURIEnv, "mongodb://localhost:27017")
		t.Setenv(config.JWTSecretEnv, "")

		_, err := config.LoadFromEnv()
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrMissingConfig)
	})

	t.Run("invalid duration", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv(config.OutboxIntervalEnv, "soon")

		_, err := config.LoadFromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), config.OutboxIntervalEnv)
	})
}

func TestLoadConsumerFromEnv(t *testing.T) {
	t.Run("complete", func(t *testing.T) {
		t.Setenv(config.AWSRegionEnv, "us-east-1")
		t.Setenv(config.SQSQueueURLEnv, "http://localhost:4566/000000000000/catalog-events")

		conf, err := config.LoadConsumerFromEnv()
		require.NoError(t, err)
		assert.Equal(t, "us-east-1", conf.AWS.Region)
	})

	t.Run("missing queue", func(t *testing.T) {
		t.Setenv(config.AWSRegionEnv, "us-east-1")
		t.Setenv(config.SQSQueueURLEnv, "")

		_, err := config.LoadConsumerFromEnv()
		assert.ErrorIs(t, err, config.ErrMissingConfig)
	})
}

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		want         bool
	}{
		{"GetEnvAsBool_True", "true", false, true},
		{"GetEnvAsBool_False", "false", true, false},
		{"GetEnvAsBool_Invalid", "invalid", true, true},
		{"GetEnvAsBool_Empty", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_ENV", tt.envValue)
			got := config.GetEnvAsBool("TEST_ENV", tt.defaultValue)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "")
	got, err := config.GetEnvAsDuration("TEST_DURATION", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, got)

	t.Setenv("TEST_DURATION", "250ms")
	got, err = config.GetEnvAsDuration("TEST_DURATION", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, got)
}

func TestAllNumbers(t *testing.T) {
	tests := []struct {
		name    string
		input   map[string]string
		wantErr bool
	}{
		{"AllNumbers_Valid", map[string]string{"key1": "123", "key2": "456", "key3": "789"}, false},
		{"AllNumbers_Invalid", map[string]string{"key1": "123", "key2": "abc", "key3": "789"}, true},
		{"AllNumbers_EmptyString", map[string]string{"key1": "123", "key2": "", "key3": "789"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := config.AllNumbers(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAllNonEmpty(t *testing.T) {
	tests := []struct {
		name    string
		input   map[string]string
		wantErr bool
	}{
		{"AllNonEmpty_Valid", map[string]string{"key1": "host", "key2": "user", "key3": "pass"}, false},
		{"AllNonEmpty_EmptyString", map[string]string{"key1": "host", "key2": "", "key3": "pass"}, true},
		{"AllNonEmpty_AllEmpty", map[string]string{"key1": "", "key2": "", "key3": ""}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := config.AllNonEmpty(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
