package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by DOCRELAY_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("DOCRELAY_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// AdminAPIKey guards the administrative routes. Empty disables the check.
func AdminAPIKey() string {
	return os.Getenv("ADMIN_API_KEY")
}

// AgentTransport returns how commands reach agents.
// Defaults to "nats" if not set.
// Valid values: nats, mock
func AgentTransport() string {
	t := os.Getenv("AGENT_TRANSPORT")
	if t == "" {
		return "nats"
	}
	return t
}

func NATSURL() string {
	u := os.Getenv("NATS_URL")
	if u == "" {
		return "nats://127.0.0.1:4222"
	}
	return u
}

func AgentSubjectPrefix() string {
	p := os.Getenv("AGENT_SUBJECT_PREFIX")
	if p == "" {
		return "docrelay.agent"
	}
	return p
}

// AgentDispatchTimeout bounds the wait for an agent's acknowledgement.
// Defaults to 10s.
func AgentDispatchTimeout() time.Duration {
	return duration("AGENT_DISPATCH_TIMEOUT", 10*time.Second)
}

// SweepInterval is how often stale transactions are checked.
// Defaults to 1m.
func SweepInterval() time.Duration {
	return duration("SWEEP_INTERVAL", time.Minute)
}

// StaleTransactionAfter is the age at which an unfinished transaction is failed.
// Defaults to 15m.
func StaleTransactionAfter() time.Duration {
	return duration("STALE_TRANSACTION_AFTER", 15*time.Minute)
}

// EventBufferSize is the per-subscriber event queue length.
// Defaults to 64.
func EventBufferSize() int {
	n, err := strconv.Atoi(os.Getenv("EVENT_BUFFER_SIZE"))
	if err != nil || n <= 0 {
		return 64
	}
	return n
}

// WSAllowedOrigins returns the comma separated WS_ALLOWED_ORIGINS list.
// An empty list only admits clients that send no Origin header.
func WSAllowedOrigins() []string {
	raw := os.Getenv("WS_ALLOWED_ORIGINS")
	if raw == "" {
		return nil
	}
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

func duration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
