package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAuthKey = "test-auth-key"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("KMA_AUTH_KEY", testAuthKey)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "47102", cfg.Station)
	assert.Equal(t, SourceHTTP, cfg.Source)
	assert.Equal(t, "https://apihub.kma.go.kr/api/typ01/url", cfg.KMABaseURL)
	assert.Equal(t, 10*time.Minute, cfg.FetchInterval)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 24, cfg.FetchCacheSize)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.KafkaEnabled())
	assert.Equal(t, "sounding-analyses", cfg.KafkaSinkTopic)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("STATION", "47158")
	t.Setenv("KMA_AUTH_KEY", testAuthKey)
	t.Setenv("FETCH_INTERVAL", "30m")
	t.Setenv("FETCH_TIMEOUT", "5s")
	t.Setenv("FETCH_CACHE_SIZE", "48")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "47158", cfg.Station)
	assert.Equal(t, 30*time.Minute, cfg.FetchInterval)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 48, cfg.FetchCacheSize)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_Validation(t *testing.T) {
	t.Run("http source requires auth key", func(t *testing.T) {
		t.Setenv("KMA_AUTH_KEY", "")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "KMA_AUTH_KEY")
	})

	t.Run("file source requires path", func(t *testing.T) {
		t.Setenv("SOURCE", SourceFile)
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SOURCE_FILE")
	})

	t.Run("file source skips auth key check", func(t *testing.T) {
		t.Setenv("SOURCE", SourceFile)
		t.Setenv("SOURCE_FILE", "/tmp/feed.txt")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/feed.txt", cfg.SourceFile)
	})

	t.Run("unknown source", func(t *testing.T) {
		t.Setenv("SOURCE", "ftp")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("invalid interval", func(t *testing.T) {
		t.Setenv("KMA_AUTH_KEY", testAuthKey)
		t.Setenv("FETCH_INTERVAL", "soon")
		_, err := Load()
		require.Error(t, err)
	})
}

func TestLoadCatalog(t *testing.T) {
	t.Run("valid catalog", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "stations.yaml")
		data := `stations:
  - id: "47102"
    name: Baengnyeongdo
    lat: 37.97
    lon: 124.63
  - id: "47158"
    name: Gwangju
    lat: 35.11
    lon: 126.81
`
		require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

		catalog, err := LoadCatalog(path)
		require.NoError(t, err)
		require.Len(t, catalog, 2)
		assert.Equal(t, "Baengnyeongdo", catalog["47102"].Name)
		assert.InDelta(t, 35.11, catalog["47158"].Lat, 1e-9)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})

	t.Run("entry without id", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "stations.yaml")
		require.NoError(t, os.WriteFile(path, []byte("stations:\n  - name: Nowhere\n"), 0o600))
		_, err := LoadCatalog(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no id")
	})
}
