// Package config reads server settings from flags, the environment, and an
// optional .env file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

type Config struct {
	// Host is the listen interface, loopback by default.
	Host        string
	Port        int
	DBPath      string
	LogLevel    string
	LogFormat   string
	CatalogFile string
	// AllowedOrigins are extra Origin host patterns accepted by the websocket
	// feed and by state-changing API requests.
	AllowedOrigins []string
}

const (
	defaultHost   = "127.0.0.1"
	defaultPort   = 8080
	defaultDBPath = "purrfect.db"
)

// Load parses args (without the program name). A .env file in envFile is
// loaded first if it exists; variables already set in the environment win.
func Load(args []string, envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg Config
	fs := pflag.NewFlagSet("purrfect", pflag.ContinueOnError)
	fs.StringVar(&cfg.Host, "host", "", "listen interface (env PURRFECT_HOST)")
	fs.IntVarP(&cfg.Port, "port", "p", 0, "HTTP port (env PURRFECT_PORT)")
	fs.StringVar(&cfg.DBPath, "db", "", "SQLite database path (env PURRFECT_DB_PATH)")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "debug, info, warn or error (env PURRFECT_LOG_LEVEL)")
	fs.StringVar(&cfg.LogFormat, "log-format", "", "text or json (env PURRFECT_LOG_FORMAT)")
	fs.StringVar(&cfg.CatalogFile, "catalog", "", "YAML seed catalog (env PURRFECT_CATALOG_FILE)")
	fs.StringSliceVar(&cfg.AllowedOrigins, "allowed-origin", nil, "extra allowed origin host pattern, repeatable (env PURRFECT_ALLOWED_ORIGINS, comma separated)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.Port == 0 {
		if s := os.Getenv("PURRFECT_PORT"); s != "" {
			port, err := strconv.Atoi(s)
			if err != nil {
				return Config{}, fmt.Errorf("invalid PURRFECT_PORT %q", s)
			}
			cfg.Port = port
		} else {
			cfg.Port = defaultPort
		}
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("port %d out of range", cfg.Port)
	}

	cfg.Host = firstNonEmpty(cfg.Host, os.Getenv("PURRFECT_HOST"), defaultHost)
	cfg.DBPath = firstNonEmpty(cfg.DBPath, os.Getenv("PURRFECT_DB_PATH"), defaultDBPath)
	cfg.LogLevel = firstNonEmpty(cfg.LogLevel, os.Getenv("PURRFECT_LOG_LEVEL"), "info")
	cfg.LogFormat = firstNonEmpty(cfg.LogFormat, os.Getenv("PURRFECT_LOG_FORMAT"), "text")
	cfg.CatalogFile = firstNonEmpty(cfg.CatalogFile, os.Getenv("PURRFECT_CATALOG_FILE"))

	if len(cfg.AllowedOrigins) == 0 {
		for _, o := range strings.Split(os.Getenv("PURRFECT_ALLOWED_ORIGINS"), ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	return cfg, nil
}

// Addr is the listen address for the configured host and port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
