package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"counseling-module/models"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	HTTPAddr string

	// Kafka
	KafkaBrokers            string
	KafkaRequestEventsTopic string
	KafkaAssignedTopic      string
	KafkaDLQTopic           string
	KafkaConsumerGroup      string

	// Assignment engine
	EngineMaxAttempts int
	PriorityWeights   models.PriorityWeights
}

var AppConfig Config

// LoadConfig populates AppConfig from the environment, optionally seeded from
// a .env file. It returns an error when the priority weight table cannot be
// parsed: the weights drive both scoring and load accounting, so the service
// must not start with a half-understood table.
func LoadConfig() error {
	// Try loading .env from different locations
	envLocations := []string{
		".env",
		"config/.env",
		"../config/.env",
		"../../config/.env",
	}

	envLoaded := false
	for _, location := range envLocations {
		if err := godotenv.Load(location); err == nil {
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		log.Println("No .env file found, using environment variables")
	}

	weights, err := ParsePriorityWeights(
		getEnvWithDefault("PRIORITY_WEIGHTS", "low:1,medium:2,high:3"),
		getEnvWithDefault("PRIORITY_WEIGHTS_VERSION", "v1"),
	)
	if err != nil {
		return fmt.Errorf("invalid PRIORITY_WEIGHTS: %w", err)
	}

	maxAttempts, err := strconv.Atoi(getEnvWithDefault("ENGINE_MAX_ATTEMPTS", "3"))
	if err != nil || maxAttempts < 1 {
		return fmt.Errorf("invalid ENGINE_MAX_ATTEMPTS: %q", os.Getenv("ENGINE_MAX_ATTEMPTS"))
	}

	AppConfig = Config{
		DBHost:     getEnvWithDefault("DB_HOST", "localhost"),
		DBPort:     getEnvWithDefault("DB_PORT", "5432"),
		DBUser:     getEnvWithDefault("DB_USER", "postgres"),
		DBPassword: getEnvWithDefault("DB_PASSWORD", "postgres"),
		DBName:     getEnvWithDefault("DB_NAME", "postgres"),

		HTTPAddr: getEnvWithDefault("HTTP_ADDR", ":8080"),

		// Kafka settings (comma-separated brokers)
		KafkaBrokers:            getEnvWithDefault("KAFKA_BROKERS", "127.0.0.1:9092"),
		KafkaRequestEventsTopic: getEnvWithDefault("KAFKA_REQUEST_EVENTS_TOPIC", "support.request-events"),
		KafkaAssignedTopic:      getEnvWithDefault("KAFKA_ASSIGNED_TOPIC", "support.assigned-events"),
		KafkaDLQTopic:           getEnvWithDefault("KAFKA_DLQ_TOPIC", "support.assignment-dlq"),
		KafkaConsumerGroup:      getEnvWithDefault("KAFKA_CONSUMER_GROUP", "counseling-module-consumer-group"),

		EngineMaxAttempts: maxAttempts,
		PriorityWeights:   weights,
	}

	return nil
}

// ParsePriorityWeights parses a "low:1,medium:2,high:3" style table. Every
// known priority must appear exactly once with a positive integer weight.
func ParsePriorityWeights(spec, version string) (models.PriorityWeights, error) {
	weights := models.PriorityWeights{
		Version: version,
		Weights: make(map[models.Priority]int),
	}

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			return models.PriorityWeights{}, fmt.Errorf("malformed entry %q", part)
		}

		priority := models.Priority(strings.TrimSpace(kv[0]))
		if !priority.Valid() {
			return models.PriorityWeights{}, fmt.Errorf("unknown priority %q", kv[0])
		}
		if _, dup := weights.Weights[priority]; dup {
			return models.PriorityWeights{}, fmt.Errorf("duplicate priority %q", priority)
		}

		w, err := strconv.Atoi(strings.TrimSpace(kv[1]))
		if err != nil || w < 1 {
			return models.PriorityWeights{}, fmt.Errorf("weight for %q must be a positive integer, got %q", priority, kv[1])
		}
		weights.Weights[priority] = w
	}

	for _, p := range []models.Priority{models.PriorityLow, models.PriorityMedium, models.PriorityHigh} {
		if _, ok := weights.Weights[p]; !ok {
			return models.PriorityWeights{}, fmt.Errorf("missing weight for priority %q", p)
		}
	}

	return weights, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetDBConnString() string {
	return "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=disable"
}
