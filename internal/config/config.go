// Package config loads service configuration. The CUE schema in schema.cue
// carries every default and constraint; an optional user CUE file is
// unified with it, then environment variables (optionally read from a
// .env file) override individual fields.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/joho/godotenv"

	"github.com/matthewbaird/stationcu/internal/hostproto"
)

//go:embed schema.cue
var schemaSource []byte

// Config is the decoded configuration.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Log      LogConfig      `json:"log"`
	Host     HostConfig     `json:"host"`
	Store    StoreConfig    `json:"store"`
	Catalog  CatalogConfig  `json:"catalog"`
	Session  SessionConfig  `json:"session"`
	Journal  JournalConfig  `json:"journal"`
	EventBus EventBusConfig `json:"eventbus"`
	Render   RenderConfig   `json:"render"`
}

type ServerConfig struct {
	Port            int      `json:"port"`
	ShutdownTimeout string   `json:"shutdown_timeout"`
	AllowedOrigins  []string `json:"allowed_origins"`
}

type LogConfig struct {
	Level       string `json:"level"`
	Format      string `json:"format"`
	Development bool   `json:"development"`
	OutputPath  string `json:"output_path"`
}

type HostConfig struct {
	APIVersion      int    `json:"api_version"`
	ReadyRetries    int    `json:"ready_retries"`
	RetryBackoff    string `json:"retry_backoff"`
	HostTimeout     string `json:"host_timeout"`
	PayloadField    string `json:"payload_field"`
	FixtureFallback bool   `json:"fixture_fallback"`
	MaxMessageBytes int64  `json:"max_message_bytes"`
}

type StoreConfig struct {
	LineIDPrefix string      `json:"line_id_prefix"`
	LineIDWidth  int         `json:"line_id_width"`
	DefaultActor ActorConfig `json:"default_actor"`
}

type ActorConfig struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type CatalogConfig struct {
	DBPath      string `json:"db_path"`
	SearchLimit int    `json:"search_limit"`
}

type SessionConfig struct {
	MaxAge          string `json:"max_age"`
	IdleTimeout     string `json:"idle_timeout"`
	CleanupSchedule string `json:"cleanup_schedule"`
}

type JournalConfig struct {
	Capacity int `json:"capacity"`
}

type EventBusConfig struct {
	Buffer int `json:"buffer"`
}

type RenderConfig struct {
	ActivityFields []string `json:"activity_fields"`
}

// Options controls where configuration is read from.
type Options struct {
	ConfigFile string // CUE file unified with the schema; empty reads $CONFIG_FILE
	EnvFile    string // .env file; empty reads ".env" when present

	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// envOverride maps an environment variable onto a config path.
type envOverride struct {
	name string
	path string
	kind string // "string", "int", "bool"
}

var envOverrides = []envOverride{
	{"PORT", "server.port", "int"},
	{"SHUTDOWN_TIMEOUT", "server.shutdown_timeout", "string"},
	{"LOG_LEVEL", "log.level", "string"},
	{"LOG_FORMAT", "log.format", "string"},
	{"LOG_DEVELOPMENT", "log.development", "bool"},
	{"HOST_API_VERSION", "host.api_version", "int"},
	{"READY_RETRIES", "host.ready_retries", "int"},
	{"RETRY_BACKOFF", "host.retry_backoff", "string"},
	{"HOST_TIMEOUT", "host.host_timeout", "string"},
	{"PAYLOAD_FIELD", "host.payload_field", "string"},
	{"FIXTURE_FALLBACK", "host.fixture_fallback", "bool"},
	{"HOST_MAX_MESSAGE_BYTES", "host.max_message_bytes", "int"},
	{"LINE_ID_PREFIX", "store.line_id_prefix", "string"},
	{"DEFAULT_ACTOR_ID", "store.default_actor.id", "string"},
	{"DEFAULT_ACTOR_NAME", "store.default_actor.name", "string"},
	{"CATALOG_DB", "catalog.db_path", "string"},
	{"CATALOG_SEARCH_LIMIT", "catalog.search_limit", "int"},
	{"SESSION_MAX_AGE", "session.max_age", "string"},
	{"SESSION_IDLE_TIMEOUT", "session.idle_timeout", "string"},
	{"SESSION_CLEANUP", "session.cleanup_schedule", "string"},
	{"JOURNAL_CAPACITY", "journal.capacity", "int"},
}

// Load reads, validates and decodes the configuration.
func Load(opts Options) (Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return Config{}, err
	}
	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compiling config schema: %w", err)
	}
	v := schema.LookupPath(cue.ParsePath("#Config"))

	file := opts.ConfigFile
	if file == "" {
		file, _ = lookup("CONFIG_FILE")
	}
	if file != "" {
		src, err := os.ReadFile(file)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		user := ctx.CompileBytes(src, cue.Filename(file))
		if err := user.Err(); err != nil {
			return Config{}, fmt.Errorf("compiling %s: %w", file, err)
		}
		v = v.Unify(user)
	}

	for _, o := range envOverrides {
		raw, ok := lookup(o.name)
		if !ok || raw == "" {
			continue
		}
		val, err := parseEnv(o, raw)
		if err != nil {
			return Config{}, err
		}
		v = v.FillPath(cue.ParsePath(o.path), val)
	}

	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.handshake().Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: host: %w", err)
	}
	return cfg, nil
}

// Default returns the schema defaults.
func Default() (Config, error) {
	return Load(Options{
		EnvFile:   os.DevNull,
		LookupEnv: func(string) (string, bool) { return "", false },
	})
}

func loadEnvFile(path string) error {
	if path == os.DevNull {
		return nil
	}
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func parseEnv(o envOverride, raw string) (any, error) {
	switch o.kind {
	case "int":
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not an integer", o.name, raw)
		}
		return n, nil
	case "bool":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a boolean", o.name, raw)
		}
		return b, nil
	}
	return raw, nil
}

// ── Typed accessors ─────────────────────────────────────────────────────────

// Addr returns the listen address.
func (c Config) Addr() string { return ":" + strconv.Itoa(c.Server.Port) }

// ShutdownTimeout parses server.shutdown_timeout.
func (c Config) ShutdownTimeout() time.Duration { return mustDuration(c.Server.ShutdownTimeout) }

// RetryBackoff parses host.retry_backoff.
func (c Config) RetryBackoff() time.Duration { return mustDuration(c.Host.RetryBackoff) }

// HostTimeout parses host.host_timeout.
func (c Config) HostTimeout() time.Duration { return mustDuration(c.Host.HostTimeout) }

// SessionMaxAge parses session.max_age.
func (c Config) SessionMaxAge() time.Duration { return mustDuration(c.Session.MaxAge) }

// SessionIdleTimeout parses session.idle_timeout.
func (c Config) SessionIdleTimeout() time.Duration { return mustDuration(c.Session.IdleTimeout) }

func (c Config) handshake() hostproto.Config {
	return hostproto.Config{
		APIVersion:   c.Host.APIVersion,
		ReadyRetries: c.Host.ReadyRetries,
		RetryBackoff: c.RetryBackoff(),
		HostTimeout:  c.HostTimeout(),
	}
}

// mustDuration parses a value already matched by the schema's #Duration.
func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
