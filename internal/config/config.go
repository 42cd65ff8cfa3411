// Package config reads server settings from the environment, after loading
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server reads at startup.
type Config struct {
	Host string
	Port int

	// SupabaseURL and SupabaseKey enable the REST score sink when both are set.
	SupabaseURL string
	SupabaseKey string
	// ScoreArchiveDir enables the parquet score archive when set.
	ScoreArchiveDir string
	ScoreQueueSize  int

	HeartbeatInterval time.Duration
	ClientTimeout     time.Duration
	ShutdownTimeout   time.Duration
}

// Default returns the settings used when no variable is set.
func Default() Config {
	return Config{
		Port:              8080,
		ScoreQueueSize:    64,
		HeartbeatInterval: 5 * time.Second,
		ClientTimeout:     10 * time.Second,
		ShutdownTimeout:   10 * time.Second,
	}
}

// Addr is the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ScoresEnabled reports whether the REST sink is configured.
func (c Config) ScoresEnabled() bool {
	return c.SupabaseURL != "" && c.SupabaseKey != ""
}

// Load reads .env from the working directory, if present, and then the
// process environment.
func Load() (Config, error) {
	switch err := godotenv.Load(); {
	case err == nil:
		log.Printf("config loaded file=.env")
	case !errors.Is(err, fs.ErrNotExist):
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from a lookup function such as os.LookupEnv.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	cfg.Host = get("HOST")
	cfg.SupabaseURL = strings.TrimRight(get("SUPABASE_URL"), "/")
	cfg.SupabaseKey = get("SUPABASE_KEY")
	cfg.ScoreArchiveDir = get("SCORE_ARCHIVE_DIR")

	var errs []error
	if v := get("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port < 1 || port > 65535 {
			errs = append(errs, fmt.Errorf("PORT %q: invalid port", v))
		} else {
			cfg.Port = port
		}
	}
	if v := get("SCORE_QUEUE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs = append(errs, fmt.Errorf("SCORE_QUEUE_SIZE %q: must be a positive integer", v))
		} else {
			cfg.ScoreQueueSize = n
		}
	}
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"HEARTBEAT_INTERVAL", &cfg.HeartbeatInterval},
		{"CLIENT_TIMEOUT", &cfg.ClientTimeout},
		{"SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout},
	}
	for _, d := range durations {
		v := get(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed <= 0 {
			errs = append(errs, fmt.Errorf("%s %q: must be a positive duration", d.key, v))
			continue
		}
		*d.dst = parsed
	}
	if cfg.ClientTimeout <= cfg.HeartbeatInterval {
		errs = append(errs, fmt.Errorf("CLIENT_TIMEOUT %s must exceed HEARTBEAT_INTERVAL %s", cfg.ClientTimeout, cfg.HeartbeatInterval))
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
