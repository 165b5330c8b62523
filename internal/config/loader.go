package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "hookrelay.yaml"

// minJWTSecretLen is the shortest HMAC secret accepted.
const minJWTSecretLen = 32

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	path := DefaultConfigFile
	if v := os.Getenv("HOOKRELAY_CONFIG"); v != "" {
		path = v
	}
	return LoadFrom(path)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is operator-supplied config
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.IngestPort, "HOOKRELAY_INGEST_PORT")
	setString(&cfg.Server.RelayPort, "HOOKRELAY_RELAY_PORT")
	setString(&cfg.Server.BaseDomain, "HOOKRELAY_BASE_DOMAIN")
	setString(&cfg.Server.CORSOrigin, "HOOKRELAY_CORS_ORIGIN")
	setDuration(&cfg.Server.ShutdownTimeout, "HOOKRELAY_SHUTDOWN_TIMEOUT")
	setBool(&cfg.Server.TrustProxy, "HOOKRELAY_TRUST_PROXY")

	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "HOOKRELAY_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "HOOKRELAY_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "HOOKRELAY_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "HOOKRELAY_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "HOOKRELAY_PG_HEALTH_CHECK")

	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.Stream, "HOOKRELAY_NATS_STREAM")
	setDuration(&cfg.NATS.StreamMaxAge, "HOOKRELAY_NATS_STREAM_MAX_AGE")
	setString(&cfg.NATS.KVBucket, "HOOKRELAY_NATS_KV_BUCKET")

	setString(&cfg.Logging.Level, "HOOKRELAY_LOG_LEVEL")
	setString(&cfg.Logging.Service, "HOOKRELAY_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "HOOKRELAY_LOG_ASYNC")

	// Auth
	setString(&cfg.Auth.JWTSecret, "HOOKRELAY_JWT_SECRET")
	setString(&cfg.Auth.Issuer, "HOOKRELAY_JWT_ISSUER")
	setDuration(&cfg.Auth.AccessTokenExpiry, "HOOKRELAY_ACCESS_TOKEN_EXPIRY")
	setString(&cfg.Auth.CookieName, "HOOKRELAY_COOKIE_NAME")
	setString(&cfg.Auth.CookieDomain, "HOOKRELAY_COOKIE_DOMAIN")
	setBool(&cfg.Auth.CookieSecure, "HOOKRELAY_COOKIE_SECURE")
	setInt(&cfg.Auth.BcryptCost, "HOOKRELAY_BCRYPT_COST")

	// Ingest
	setInt64(&cfg.Ingest.MaxBodyBytes, "HOOKRELAY_MAX_BODY_BYTES")
	setDuration(&cfg.Ingest.PersistTimeout, "HOOKRELAY_PERSIST_TIMEOUT")

	// Relay
	setInt(&cfg.Relay.Shards, "HOOKRELAY_RELAY_SHARDS")
	setInt(&cfg.Relay.FanoutLimit, "HOOKRELAY_RELAY_FANOUT_LIMIT")
	setDuration(&cfg.Relay.WriteTimeout, "HOOKRELAY_RELAY_WRITE_TIMEOUT")
	setDuration(&cfg.Relay.PingInterval, "HOOKRELAY_RELAY_PING_INTERVAL")

	// Cache
	setInt64(&cfg.Cache.L1MaxSizeMB, "HOOKRELAY_CACHE_L1_SIZE_MB")
	setDuration(&cfg.Cache.TenantTTL, "HOOKRELAY_CACHE_TENANT_TTL")

	setInt(&cfg.Breaker.MaxFailures, "HOOKRELAY_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "HOOKRELAY_BREAKER_TIMEOUT")

	setFloat64(&cfg.Rate.RequestsPerSecond, "HOOKRELAY_RATE_RPS")
	setInt(&cfg.Rate.Burst, "HOOKRELAY_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "HOOKRELAY_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "HOOKRELAY_RATE_MAX_IDLE_TIME")

	setString(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.OTEL.Insecure, "HOOKRELAY_OTEL_INSECURE")
	setString(&cfg.OTEL.ServiceName, "OTEL_SERVICE_NAME")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.IngestPort == "" {
		return errors.New("server.ingest_port is required")
	}
	if cfg.Server.RelayPort == "" {
		return errors.New("server.relay_port is required")
	}
	if cfg.Server.IngestPort == cfg.Server.RelayPort {
		return errors.New("server.ingest_port and server.relay_port must differ")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if len(cfg.Auth.JWTSecret) < minJWTSecretLen {
		return fmt.Errorf("auth.jwt_secret must be at least %d characters", minJWTSecretLen)
	}
	if cfg.Auth.AccessTokenExpiry <= 0 {
		return errors.New("auth.access_token_expiry must be > 0")
	}
	if cfg.Ingest.MaxBodyBytes < 1 {
		return errors.New("ingest.max_body_bytes must be >= 1")
	}
	if cfg.Ingest.PersistTimeout <= 0 {
		return errors.New("ingest.persist_timeout must be > 0")
	}
	if cfg.Relay.Shards < 1 {
		return errors.New("relay.shards must be >= 1")
	}
	if cfg.Relay.FanoutLimit < 1 {
		return errors.New("relay.fanout_limit must be >= 1")
	}
	if cfg.Relay.WriteTimeout <= 0 {
		return errors.New("relay.write_timeout must be > 0")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.RequestsPerSecond < 0 {
		return errors.New("rate.requests_per_second must be >= 0")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
