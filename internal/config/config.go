// Package config loads runtime configuration from environment variables with
// command-line flag overrides.
package config

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	envVarListenAddr      = "MEETLINK_SIGNAL_RELAY_LISTEN_ADDR"
	envVarLogFormat       = "MEETLINK_SIGNAL_RELAY_LOG_FORMAT"
	envVarLogLevel        = "MEETLINK_SIGNAL_RELAY_LOG_LEVEL"
	envVarShutdownTimeout = "MEETLINK_SIGNAL_RELAY_SHUTDOWN_TIMEOUT"

	envVarAllowedOrigins       = "ALLOWED_ORIGINS"
	envVarWSIdleTimeout        = "WS_IDLE_TIMEOUT"
	envVarWSPingInterval       = "WS_PING_INTERVAL"
	envVarMaxMessageBytes      = "MAX_MESSAGE_BYTES"
	envVarMaxMessagesPerSecond = "MAX_MESSAGES_PER_SECOND"

	envVarSTUNUrls = "STUN_URLS"
	envVarTURNUrls = "TURN_URLS"
	// coturn TURN REST (ephemeral) credentials.
	envVarTURNRESTSharedSecret = "TURN_REST_SHARED_SECRET"
	envVarTURNRESTTTL          = "TURN_REST_TTL"
	envVarTURNRESTRealm        = "TURN_REST_REALM"

	envVarAuthMode  = "AUTH_MODE"
	envVarAPIKey    = "API_KEY"
	envVarJWTSecret = "JWT_SECRET"
)

const (
	// DefaultListenAddr keeps the port the signaling service has always used.
	DefaultListenAddr      = "127.0.0.1:9000"
	DefaultShutdownTimeout = 15 * time.Second

	DefaultWSIdleTimeout  = 60 * time.Second
	DefaultWSPingInterval = 25 * time.Second

	// DefaultMaxMessageBytes is sized for SDP payloads, which dominate
	// signaling traffic and can reach tens of kilobytes with many candidates.
	DefaultMaxMessageBytes      = 64 * 1024
	DefaultMaxMessagesPerSecond = 50

	DefaultSTUNUrls      = "stun:stun.l.google.com:19302"
	DefaultTURNRESTTTL   = time.Hour
	DefaultTURNRESTRealm = "meetlink"
)

// AuthMode selects how WebSocket handshakes are authenticated.
type AuthMode string

const (
	// AuthModeNone leaves the endpoint open to any allowed origin.
	AuthModeNone   AuthMode = "none"
	AuthModeAPIKey AuthMode = "apikey"
	AuthModeJWT    AuthMode = "jwt"
)

type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

type Config struct {
	ListenAddr      string
	LogFormat       LogFormat
	LogLevel        slog.Level
	ShutdownTimeout time.Duration

	// AllowedOrigins restricts which browser origins may open the signaling
	// WebSocket. Empty means allow all.
	AllowedOrigins []string

	WSIdleTimeout  time.Duration
	WSPingInterval time.Duration

	MaxMessageBytes      int64
	MaxMessagesPerSecond int

	// STUNUrls and TURNUrls are advertised to clients on GET /ice-config.
	STUNUrls []string
	TURNUrls []string

	// TURN REST shared-secret credentials (coturn static-auth-secret).
	// Required when TURNUrls is non-empty.
	TURNRESTSharedSecret string
	TURNRESTTTL          time.Duration
	TURNRESTRealm        string

	AuthMode  AuthMode
	APIKey    string
	JWTSecret string
}

// TURNRESTEnabled reports whether the server can mint TURN credentials.
func (c Config) TURNRESTEnabled() bool {
	return len(c.TURNUrls) > 0 && c.TURNRESTSharedSecret != ""
}

// Load builds a Config from the process environment, then applies flag
// overrides from args. Flags win over environment variables.
func Load(args []string) (Config, error) {
	return load(args, os.LookupEnv)
}

func load(args []string, lookup func(string) (string, bool)) (Config, error) {
	listenAddr := envOrDefault(lookup, envVarListenAddr, DefaultListenAddr)
	logFormatStr := envOrDefault(lookup, envVarLogFormat, string(LogFormatText))
	logLevelStr := envOrDefault(lookup, envVarLogLevel, "info")
	allowedOriginsStr := envOrDefault(lookup, envVarAllowedOrigins, "")

	shutdownTimeout, err := envDuration(lookup, envVarShutdownTimeout, DefaultShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	wsIdleTimeout, err := envDuration(lookup, envVarWSIdleTimeout, DefaultWSIdleTimeout)
	if err != nil {
		return Config{}, err
	}
	wsPingInterval, err := envDuration(lookup, envVarWSPingInterval, DefaultWSPingInterval)
	if err != nil {
		return Config{}, err
	}
	maxMessageBytes, err := envInt64(lookup, envVarMaxMessageBytes, DefaultMaxMessageBytes)
	if err != nil {
		return Config{}, err
	}
	maxMessagesPerSecond, err := envInt(lookup, envVarMaxMessagesPerSecond, DefaultMaxMessagesPerSecond)
	if err != nil {
		return Config{}, err
	}

	stunURLsStr := envOrDefault(lookup, envVarSTUNUrls, DefaultSTUNUrls)
	turnURLsStr := envOrDefault(lookup, envVarTURNUrls, "")
	turnSecret := envOrDefault(lookup, envVarTURNRESTSharedSecret, "")
	turnRealm := envOrDefault(lookup, envVarTURNRESTRealm, DefaultTURNRESTRealm)
	turnTTL, err := envDuration(lookup, envVarTURNRESTTTL, DefaultTURNRESTTTL)
	if err != nil {
		return Config{}, err
	}

	authModeStr := envOrDefault(lookup, envVarAuthMode, string(AuthModeNone))
	apiKey := envOrDefault(lookup, envVarAPIKey, "")
	jwtSecret := envOrDefault(lookup, envVarJWTSecret, "")

	fs := flag.NewFlagSet("meetlink-signal-relay", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	fs.StringVar(&listenAddr, "listen-addr", listenAddr, "HTTP listen address (host:port; env "+envVarListenAddr+")")
	fs.StringVar(&logFormatStr, "log-format", logFormatStr, "Log format: text or json (env "+envVarLogFormat+")")
	fs.StringVar(&logLevelStr, "log-level", logLevelStr, "Log level: debug, info, warn, error (env "+envVarLogLevel+")")
	fs.DurationVar(&shutdownTimeout, "shutdown-timeout", shutdownTimeout, "Graceful shutdown timeout (env "+envVarShutdownTimeout+")")
	fs.StringVar(&allowedOriginsStr, "allowed-origins", allowedOriginsStr, "Comma-separated list of allowed browser origins, empty = allow all (env "+envVarAllowedOrigins+")")
	fs.DurationVar(&wsIdleTimeout, "ws-idle-timeout", wsIdleTimeout, "Close idle WebSocket connections after this duration (env "+envVarWSIdleTimeout+")")
	fs.DurationVar(&wsPingInterval, "ws-ping-interval", wsPingInterval, "Ping interval on WebSocket connections, must be < --ws-idle-timeout (env "+envVarWSPingInterval+")")
	fs.Int64Var(&maxMessageBytes, "max-message-bytes", maxMessageBytes, "Max inbound WebSocket message size in bytes (env "+envVarMaxMessageBytes+")")
	fs.IntVar(&maxMessagesPerSecond, "max-messages-per-second", maxMessagesPerSecond, "Max inbound WebSocket messages per second per connection (env "+envVarMaxMessagesPerSecond+")")
	fs.StringVar(&stunURLsStr, "stun-urls", stunURLsStr, "Comma-separated STUN URLs advertised to clients (env "+envVarSTUNUrls+")")
	fs.StringVar(&turnURLsStr, "turn-urls", turnURLsStr, "Comma-separated TURN URLs advertised to clients (env "+envVarTURNUrls+")")
	fs.StringVar(&turnSecret, "turn-rest-shared-secret", turnSecret, "TURN REST shared secret, required with --turn-urls (env "+envVarTURNRESTSharedSecret+")")
	fs.DurationVar(&turnTTL, "turn-rest-ttl", turnTTL, "Lifetime of minted TURN credentials (env "+envVarTURNRESTTTL+")")
	fs.StringVar(&turnRealm, "turn-rest-realm", turnRealm, "Realm embedded in minted TURN usernames (env "+envVarTURNRESTRealm+")")
	fs.StringVar(&authModeStr, "auth-mode", authModeStr, "WebSocket handshake auth: none, apikey or jwt (env "+envVarAuthMode+")")
	fs.StringVar(&apiKey, "api-key", apiKey, "Expected API key when --auth-mode=apikey (env "+envVarAPIKey+")")
	fs.StringVar(&jwtSecret, "jwt-secret", jwtSecret, "HMAC-SHA256 secret when --auth-mode=jwt (env "+envVarJWTSecret+")")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	logFormat := LogFormat(strings.ToLower(strings.TrimSpace(logFormatStr)))
	if logFormat != LogFormatText && logFormat != LogFormatJSON {
		return Config{}, fmt.Errorf("invalid log format %q (expected text or json)", logFormatStr)
	}

	logLevel, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	if listenAddr == "" {
		return Config{}, fmt.Errorf("listen address must not be empty")
	}
	if shutdownTimeout <= 0 {
		return Config{}, fmt.Errorf("shutdown timeout must be positive")
	}
	if wsIdleTimeout <= 0 || wsPingInterval <= 0 {
		return Config{}, fmt.Errorf("ws timeouts must be positive")
	}
	if wsPingInterval >= wsIdleTimeout {
		return Config{}, fmt.Errorf("ws ping interval (%s) must be shorter than the idle timeout (%s)", wsPingInterval, wsIdleTimeout)
	}
	if maxMessageBytes <= 0 {
		return Config{}, fmt.Errorf("max message bytes must be positive")
	}
	if maxMessagesPerSecond <= 0 {
		return Config{}, fmt.Errorf("max messages per second must be positive")
	}

	turnURLs := splitCommaList(turnURLsStr)
	if len(turnURLs) > 0 && turnSecret == "" {
		return Config{}, fmt.Errorf("TURN URLs configured without a TURN REST shared secret")
	}
	if turnTTL <= 0 {
		return Config{}, fmt.Errorf("TURN REST ttl must be positive")
	}
	if turnRealm == "" || strings.ContainsRune(turnRealm, ':') {
		return Config{}, fmt.Errorf("invalid TURN REST realm %q", turnRealm)
	}

	authMode := AuthMode(strings.ToLower(strings.TrimSpace(authModeStr)))
	switch authMode {
	case AuthModeNone:
	case AuthModeAPIKey:
		if apiKey == "" {
			return Config{}, fmt.Errorf("auth mode apikey requires an API key")
		}
	case AuthModeJWT:
		if jwtSecret == "" {
			return Config{}, fmt.Errorf("auth mode jwt requires a JWT secret")
		}
	default:
		return Config{}, fmt.Errorf("invalid auth mode %q (expected none, apikey or jwt)", authModeStr)
	}

	return Config{
		ListenAddr:      listenAddr,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		ShutdownTimeout: shutdownTimeout,

		AllowedOrigins: splitCommaList(allowedOriginsStr),

		WSIdleTimeout:  wsIdleTimeout,
		WSPingInterval: wsPingInterval,

		MaxMessageBytes:      maxMessageBytes,
		MaxMessagesPerSecond: maxMessagesPerSecond,

		STUNUrls: splitCommaList(stunURLsStr),
		TURNUrls: turnURLs,

		TURNRESTSharedSecret: turnSecret,
		TURNRESTTTL:          turnTTL,
		TURNRESTRealm:        turnRealm,

		AuthMode:  authMode,
		APIKey:    apiKey,
		JWTSecret: jwtSecret,
	}, nil
}

// NewLogger constructs the process logger per the configured format/level.
func NewLogger(cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var handler slog.Handler
	if cfg.LogFormat == LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (expected debug, info, warn, error)", raw)
	}
}

func envOrDefault(lookup func(string) (string, bool), key, def string) string {
	if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func envDuration(lookup func(string) (string, bool), key string, def time.Duration) (time.Duration, error) {
	v, ok := lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func envInt(lookup func(string) (string, bool), key string, def int) (int, error) {
	v, ok := lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envInt64(lookup func(string) (string, bool), key string, def int64) (int64, error) {
	v, ok := lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func splitCommaList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
