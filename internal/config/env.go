package config

import "time"

type Config struct {
	Service   *ServiceConfig
	Redis     *RedisConfig
	Postgres  *PostgresConfig
	Auth      *AuthConfig
	Realtime  *RealtimeConfig
	RateLimit *RateLimitConfig
	Worker    *WorkerConfig
	Logger    *LoggerConfig
	Tracer    *TracerConfig
}

type ServiceConfig struct {
	Name            string
	Env             string
	Add             string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

type RedisConfig struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
	PingTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

type AuthConfig struct {
	Secret       string
	TokenTTL     time.Duration
	CookieName   string
	SecureCookie bool
}

// RealtimeConfig tunes the WebSocket layer.
type RealtimeConfig struct {
	SendBuffer   int
	PushTimeout  time.Duration
	WriteTimeout time.Duration
	PongWait     time.Duration
	PingInterval time.Duration
	ReadLimit    int64
	EchoToSender bool
}

type RateLimitConfig struct {
	RPS     float64
	Burst   int
	IdleTTL time.Duration
}

type WorkerConfig struct {
	PresenceSyncInterval time.Duration
}

type LoggerConfig struct {
	Level  string
	Format string
}

type TracerConfig struct {
	Enabled bool
	Address string
}
