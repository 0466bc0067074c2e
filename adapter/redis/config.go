package redis

import (
	"time"
)

// Config for the Redis pub/sub transport.
type Config struct {
	// Client options
	Addr     string
	Username string
	Password string
	DB       int

	// RequestTimeout bounds how long Request waits for a reply.
	RequestTimeout time.Duration

	// Heartbeat / reconnection
	HeartbeatInterval time.Duration
	ReconnectBackoff  time.Duration
	MaxReconnects     int

	// TimingsResetInterval overrides the core default when positive.
	TimingsResetInterval time.Duration
}

// Defaults returns a Config with production-safe defaults.
func Defaults() Config {
	return Config{
		Addr:              "127.0.0.1:6379",
		RequestTimeout:    5 * time.Second,
		HeartbeatInterval: 15 * time.Second,
		ReconnectBackoff:  time.Second,
		MaxReconnects:     5,
	}
}

// ConfigFromMap safely converts cfg into Config with defaults.
func ConfigFromMap(cfg map[string]any) Config {
	getString := func(k, d string) string {
		if v, ok := cfg[k].(string); ok && v != "" {
			return v
		}
		return d
	}
	getInt := func(k string, d int) int {
		switch v := cfg[k].(type) {
		case int:
			return v
		case int32:
			return int(v)
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
		return d
	}
	getDur := func(k string, d time.Duration) time.Duration {
		switch v := cfg[k].(type) {
		case time.Duration:
			return v
		case string:
			if p, err := time.ParseDuration(v); err == nil {
				return p
			}
		case float64:
			return time.Duration(v)
		}
		return d
	}

	def := Defaults()
	return Config{
		Addr:     getString("addr", def.Addr),
		Username: getString("username", ""),
		Password: getString("password", ""),
		DB:       getInt("db", 0),

		RequestTimeout: getDur("request_timeout", def.RequestTimeout),

		HeartbeatInterval: getDur("heartbeat_interval", def.HeartbeatInterval),
		ReconnectBackoff:  getDur("reconnect_backoff", def.ReconnectBackoff),
		MaxReconnects:     getInt("max_reconnects", def.MaxReconnects),

		TimingsResetInterval: getDur("timings_reset_interval", 0),
	}
}
