package config

import (
	"fmt"
	"log"
)

func MustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}

func MustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		log.Fatalf("missing required env %s", envName)
	}
}

// Validate reports settings that the selected bus transport needs but lacks.
func (c Config) Validate() error {
	switch c.BusTransport {
	case "local":
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("BUS_TRANSPORT=kafka requires KAFKA_BROKERS")
		}
	case "amqp":
		if c.AMQPURL == "" {
			return fmt.Errorf("BUS_TRANSPORT=amqp requires AMQP_URL")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("BUS_TRANSPORT=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown BUS_TRANSPORT %q", c.BusTransport)
	}
	if c.MutationMaxRetries < 1 {
		return fmt.Errorf("MUTATION_MAX_RETRIES must be >= 1")
	}
	return nil
}
