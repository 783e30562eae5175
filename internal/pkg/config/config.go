package config

import (
	"errors"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	APIAddr        string `env:"API_ADDR" envDefault:":8080"`
	AdminProxyAddr string `env:"ADMIN_PROXY_ADDR" envDefault:":8081"`
	OpsAddr        string `env:"OPS_ADDR" envDefault:":9091"`

	PostgresURL string `env:"POSTGRES_URL,required,notEmpty"`
	RedisAddr   string `env:"REDIS_ADDR,required,notEmpty"`

	// Identity tokens. At least one of IDTokenSecret and IDTokenJWKSURL must be set.
	AdminAllowlist  []string      `env:"ADMIN_ALLOWLIST" envSeparator:","`
	IDTokenSecret   string        `env:"ID_TOKEN_SECRET"`
	IDTokenJWKSURL  string        `env:"ID_TOKEN_JWKS_URL"`
	IDTokenIssuer   string        `env:"ID_TOKEN_ISSUER"`
	IDTokenAudience string        `env:"ID_TOKEN_AUDIENCE"`
	JWKSCacheTTL    time.Duration `env:"JWKS_CACHE_TTL" envDefault:"1h"`
	JWKSMinRefresh  time.Duration `env:"JWKS_MIN_REFRESH_INTERVAL" envDefault:"30s"`

	TenantCacheTTL time.Duration `env:"TENANT_CACHE_TTL" envDefault:"0s"`
	ProxyReadLimit int           `env:"PROXY_READ_LIMIT" envDefault:"1000"`
	MaxBodyBytes   int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"` // 1MB

	AuditSink         string   `env:"AUDIT_SINK" envDefault:"store"` // store | stream
	AuditQueueSize    int      `env:"AUDIT_QUEUE_SIZE" envDefault:"1024"`
	AuditRedactFields []string `env:"AUDIT_REDACT_FIELDS" envSeparator:"," envDefault:"apiKey,password,privateKey,secret"`
	AuditDLQStream    string   `env:"AUDIT_DLQ_STREAM" envDefault:"audit_events_dlq"`

	WALPath        string `env:"WAL_PATH" envDefault:"./data/wal"`
	WALSegmentSize int64  `env:"WAL_SEGMENT_SIZE_BYTES" envDefault:"104857600"`  // 100MB
	WALMaxDiskSize int64  `env:"WAL_MAX_DISK_SIZE_BYTES" envDefault:"1073741824"` // 1GB

	SinkBatchSize    int           `env:"SINK_BATCH_SIZE" envDefault:"500"`
	SinkRetryCount   int           `env:"SINK_RETRY_COUNT" envDefault:"3"`
	SinkRetryBackoff time.Duration `env:"SINK_RETRY_BACKOFF" envDefault:"1s"`
	SinkClaimMinIdle time.Duration `env:"SINK_CLAIM_MIN_IDLE" envDefault:"1m"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"50"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"100"`
}

const (
	AuditSinkStore  = "store"
	AuditSinkStream = "stream"
)

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the cross-field constraints env tags cannot express.
func (c *Config) Validate() error {
	if c.IDTokenSecret == "" && c.IDTokenJWKSURL == "" {
		return errors.New("one of ID_TOKEN_SECRET or ID_TOKEN_JWKS_URL is required")
	}
	switch c.AuditSink {
	case AuditSinkStore, AuditSinkStream:
	default:
		return errors.New("AUDIT_SINK must be \"store\" or \"stream\"")
	}
	if c.ProxyReadLimit <= 0 {
		return errors.New("PROXY_READ_LIMIT must be positive")
	}
	if c.AuditQueueSize <= 0 {
		return errors.New("AUDIT_QUEUE_SIZE must be positive")
	}
	for i, uid := range c.AdminAllowlist {
		c.AdminAllowlist[i] = strings.TrimSpace(uid)
	}
	return nil
}
