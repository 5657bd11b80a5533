package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func load(t *testing.T, opts Options) (Config, error) {
	t.Helper()
	if opts.EnvFile == "" {
		opts.EnvFile = os.DevNull
	}
	if opts.LookupEnv == nil {
		opts.LookupEnv = envMap(nil)
	}
	return Load(opts)
}

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 1, cfg.Host.APIVersion)
	assert.Equal(t, 3, cfg.Host.ReadyRetries)
	assert.Equal(t, 2*time.Second, cfg.RetryBackoff())
	assert.Equal(t, 15*time.Second, cfg.HostTimeout())
	assert.Equal(t, int64(4<<20), cfg.Host.MaxMessageBytes)
	assert.Equal(t, "stations", cfg.Host.PayloadField)
	assert.True(t, cfg.Host.FixtureFallback)
	assert.Equal(t, "CU", cfg.Store.LineIDPrefix)
	assert.Equal(t, 3, cfg.Store.LineIDWidth)
	assert.Equal(t, 50, cfg.Catalog.SearchLimit)
	assert.Equal(t, time.Hour, cfg.SessionIdleTimeout())
	assert.Equal(t, 12*time.Hour, cfg.SessionMaxAge())
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout())
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, []string{"aid", "appt_number", "customer_number", "astatus", "resource_id"}, cfg.Render.ActivityFields)
}

func TestLoad_EnvOverrides(t *testing.T) {
	cfg, err := load(t, Options{LookupEnv: envMap(map[string]string{
		"PORT":             "9090",
		"LOG_LEVEL":        "debug",
		"HOST_TIMEOUT":     "750ms",
		"READY_RETRIES":    "0",
		"FIXTURE_FALLBACK": "false",
		"CATALOG_DB":       "/tmp/catalog.db",
		"DEFAULT_ACTOR_ID": "E81049",
	})})
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 750*time.Millisecond, cfg.HostTimeout())
	assert.False(t, cfg.Host.FixtureFallback)
	assert.Equal(t, "/tmp/catalog.db", cfg.Catalog.DBPath)
	assert.Equal(t, "E81049", cfg.Store.DefaultActor.ID)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"port out of range":            {"PORT": "70000"},
		"port not a number":            {"PORT": "http"},
		"bad level":                    {"LOG_LEVEL": "chatty"},
		"bad duration":                 {"HOST_TIMEOUT": "soon"},
		"bad bool":                     {"FIXTURE_FALLBACK": "maybe"},
		"zero capacity":                {"JOURNAL_CAPACITY": "0"},
		"retries outlast host timeout": {"HOST_TIMEOUT": "5s"},
		"tiny frame limit":             {"HOST_MAX_MESSAGE_BYTES": "1024"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := load(t, Options{LookupEnv: envMap(env)})
			assert.Error(t, err)
		})
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stationcu.cue")
	require.NoError(t, os.WriteFile(path, []byte(`
server: port: 7000
store: line_id_prefix: "MAT"
render: activity_fields: ["aid"]
`), 0o644))

	cfg, err := load(t, Options{LookupEnv: envMap(map[string]string{"CONFIG_FILE": path, "PORT": "7001"})})
	require.NoError(t, err)
	assert.Equal(t, 7001, cfg.Server.Port, "env wins over the file")
	assert.Equal(t, "MAT", cfg.Store.LineIDPrefix)
	assert.Equal(t, []string{"aid"}, cfg.Render.ActivityFields)
}

func TestLoad_ConfigFileUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.cue")
	require.NoError(t, os.WriteFile(path, []byte(`server: prot: 7000`), 0o644))
	_, err := load(t, Options{ConfigFile: path})
	assert.Error(t, err)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := load(t, Options{ConfigFile: filepath.Join(t.TempDir(), "nope.cue")})
	assert.Error(t, err)
}

func TestLoad_EnvFile(t *testing.T) {
	// register restoration of the real environment before godotenv sets it
	t.Setenv("JOURNAL_CAPACITY", "")
	require.NoError(t, os.Unsetenv("JOURNAL_CAPACITY"))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("JOURNAL_CAPACITY=42\n"), 0o644))

	cfg, err := Load(Options{EnvFile: path, LookupEnv: os.LookupEnv})
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Journal.Capacity)
}

func TestLoad_MissingExplicitEnvFile(t *testing.T) {
	_, err := Load(Options{EnvFile: filepath.Join(t.TempDir(), "missing.env"), LookupEnv: envMap(nil)})
	assert.Error(t, err)
}
