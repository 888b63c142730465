package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName string
	LogLevel    string

	ServerPort int

	DatabaseURL string
	SQLitePath  string

	JWTSecret    []byte
	TokenTTL     time.Duration
	CookieSecure bool

	BusTransport string
	BusBuffer    int

	KafkaBrokers []string
	KafkaTopic   string

	AMQPURL      string
	AMQPExchange string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	MenuScanURL string

	MutationMaxRetries int
	MutationBackoff    time.Duration

	SeedDemo     bool
	SeedPassword string

	// InstanceID tags relayed events with their origin. Empty means one is
	// generated at startup.
	InstanceID string
}

// Load reads an optional .env file and then the process environment.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "coordinator"),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		ServerPort: EnvIntDefault("SERVER_PORT", 8080),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  EnvDefault("SQLITE_PATH", "coordinator.db"),

		JWTSecret:    []byte(os.Getenv("JWT_SECRET")),
		TokenTTL:     EnvDurationDefault("TOKEN_TTL", 12*time.Hour),
		CookieSecure: EnvBoolDefault("COOKIE_SECURE", false),

		BusTransport: strings.ToLower(EnvDefault("BUS_TRANSPORT", "local")),
		BusBuffer:    EnvIntDefault("BUS_BUFFER", 64),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   EnvDefault("KAFKA_TOPIC", "restaurant_events"),

		AMQPURL:      os.Getenv("AMQP_URL"),
		AMQPExchange: EnvDefault("AMQP_EXCHANGE", "restaurant_events_fanout"),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    EnvDefault("ES_INDEX", "receipts"),

		MenuScanURL: os.Getenv("MENUSCAN_URL"),

		MutationMaxRetries: EnvIntDefault("MUTATION_MAX_RETRIES", 5),
		MutationBackoff:    EnvDurationDefault("MUTATION_BACKOFF", 15*time.Millisecond),

		SeedDemo:     EnvBoolDefault("SEED_DEMO", false),
		SeedPassword: EnvDefault("SEED_PASSWORD", "demo1234"),

		InstanceID: os.Getenv("INSTANCE_ID"),
	}
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
