// Package config loads server and client settings with Viper.
//
// Precedence, highest first: bound command-line flags, BAGFACTORY_*
// environment variables, the YAML config file, defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config keys.
const (
	KeyAddr          = "addr"
	KeyLog           = "log"
	KeyBackend       = "backend"
	KeySQLitePath    = "sqlite.path"
	KeyPostgresDSN   = "postgres.dsn"
	KeyMongoURI      = "mongo.uri"
	KeyMongoDatabase = "mongo.database"
	KeyPasswordHash  = "auth.password_hash"
	KeySecret        = "auth.secret"
	KeyServerURL     = "server.url"
	KeyToken         = "token"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "BAGFACTORY"

// Storage backends.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Config is the resolved configuration.
type Config struct {
	Addr     string
	LogPath  string
	Backend  string
	SQLite   SQLiteConfig
	Postgres PostgresConfig
	Mongo    MongoConfig
	Auth     AuthConfig
	Client   ClientConfig
	Server   ServerConfig
}

type SQLiteConfig struct {
	Path string
}

type PostgresConfig struct {
	DSN string
}

type MongoConfig struct {
	URI      string
	Database string
}

// AuthConfig enables bearer-token protection of mutations when PasswordHash
// is set.
type AuthConfig struct {
	PasswordHash string
	Secret       string
}

// Enabled reports whether mutations require a token.
func (a AuthConfig) Enabled() bool {
	return a.PasswordHash != ""
}

// ClientConfig is used by the CLI commands that talk to a running server.
type ClientConfig struct {
	ServerURL string
	Token     string
}

type ServerConfig struct {
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyAddr, ":8080")
	v.SetDefault(KeyLog, "")
	v.SetDefault(KeyBackend, BackendSQLite)
	v.SetDefault(KeySQLitePath, "bagfactory.sqlite3")
	v.SetDefault(KeyPostgresDSN, "")
	v.SetDefault(KeyMongoURI, "mongodb://localhost:27017")
	v.SetDefault(KeyMongoDatabase, "bagfactory")
	v.SetDefault(KeyPasswordHash, "")
	v.SetDefault(KeySecret, "")
	v.SetDefault(KeyServerURL, "http://localhost:8080")
	v.SetDefault(KeyToken, "")
	v.SetDefault("server.read_header_timeout", 10*time.Second)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
}

// Load resolves the configuration. path may be empty, in which case only
// flags, environment and defaults apply. flags may be nil; flags are bound
// by name, so a flag named "sqlite.path" overrides that key.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("binding flags: %w", err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Addr:    v.GetString(KeyAddr),
		LogPath: v.GetString(KeyLog),
		Backend: strings.ToLower(strings.TrimSpace(v.GetString(KeyBackend))),
		SQLite:  SQLiteConfig{Path: v.GetString(KeySQLitePath)},
		Postgres: PostgresConfig{
			DSN: v.GetString(KeyPostgresDSN),
		},
		Mongo: MongoConfig{
			URI:      v.GetString(KeyMongoURI),
			Database: v.GetString(KeyMongoDatabase),
		},
		Auth: AuthConfig{
			PasswordHash: v.GetString(KeyPasswordHash),
			Secret:       v.GetString(KeySecret),
		},
		Client: ClientConfig{
			ServerURL: strings.TrimRight(v.GetString(KeyServerURL), "/"),
			Token:     v.GetString(KeyToken),
		},
		Server: ServerConfig{
			ReadHeaderTimeout: v.GetDuration("server.read_header_timeout"),
			ReadTimeout:       v.GetDuration("server.read_timeout"),
			WriteTimeout:      v.GetDuration("server.write_timeout"),
			IdleTimeout:       v.GetDuration("server.idle_timeout"),
			ShutdownTimeout:   v.GetDuration("server.shutdown_timeout"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected backend is fully configured.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("config: %s is required for the sqlite backend", KeySQLitePath)
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("config: %s is required for the postgres backend", KeyPostgresDSN)
		}
	case BackendMongo:
		if c.Mongo.URI == "" || c.Mongo.Database == "" {
			return fmt.Errorf("config: %s and %s are required for the mongo backend", KeyMongoURI, KeyMongoDatabase)
		}
	default:
		return fmt.Errorf("config: unknown backend %q (want sqlite, postgres or mongo)", c.Backend)
	}
	return nil
}
