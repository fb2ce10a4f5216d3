package kafka

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"sync"
	"time"

	"counseling-module/config"
	"counseling-module/logger"

	"github.com/segmentio/kafka-go"
)

var (
	producer      *kafka.Writer
	producerMutex sync.Mutex
	isConnected   bool
)

// InitProducer initializes a Kafka writer using brokers from the config
func InitProducer() {
	producerMutex.Lock()
	defer producerMutex.Unlock()

	if config.AppConfig.KafkaBrokers == "" {
		logger.Info("Kafka is disabled (KAFKA_BROKERS is empty)")
		return
	}

	validBrokers := brokerList()
	if len(validBrokers) == 0 {
		logger.Warn("No valid Kafka brokers configured")
		return
	}

	// Attempt to create required topics
	ensureTopicsExist(validBrokers)

	producer = &kafka.Writer{
		Addr:         kafka.TCP(validBrokers...),
		Balancer:     &kafka.LeastBytes{},
		Async:        false,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireAll,
	}

	logger.Info("Kafka producer initialized. Brokers=%v", validBrokers)
	isConnected = true
}

// brokerList splits and trims the configured comma-separated broker string.
func brokerList() []string {
	var validBrokers []string
	for _, b := range strings.Split(config.AppConfig.KafkaBrokers, ",") {
		if b := strings.TrimSpace(b); b != "" {
			validBrokers = append(validBrokers, b)
		}
	}
	return validBrokers
}

// ensureTopicsExist creates the topics this service relies on if they don't
// already exist. Runs in a background goroutine to avoid blocking startup.
func ensureTopicsExist(brokers []string) {
	go func() {
		// Retry topic creation with exponential backoff
		maxRetries := 5
		for attempt := 0; attempt < maxRetries; attempt++ {
			if attempt > 0 {
				time.Sleep(time.Duration(math.Pow(2, float64(attempt))) * time.Second)
			} else {
				time.Sleep(1 * time.Second)
			}

			conn, err := kafka.Dial("tcp", brokers[0])
			if err != nil {
				if attempt == maxRetries-1 {
					logger.Warn("Could not connect to Kafka broker for topic creation after %d attempts: %v (topics may need manual creation)", maxRetries, err)
				}
				continue
			}

			requiredTopics := []string{
				config.AppConfig.KafkaRequestEventsTopic,
				config.AppConfig.KafkaAssignedTopic,
			}
			if t := strings.TrimSpace(config.AppConfig.KafkaDLQTopic); t != "" {
				requiredTopics = append(requiredTopics, t)
			}

			successCount := 0
			for _, topic := range requiredTopics {
				err := conn.CreateTopics(kafka.TopicConfig{
					Topic:             topic,
					NumPartitions:     1,
					ReplicationFactor: 1,
				})
				if err != nil {
					if strings.Contains(err.Error(), "already exists") {
						successCount++
					}
				} else {
					successCount++
				}
			}

			conn.Close()

			if successCount >= len(requiredTopics) {
				return
			}
		}
	}()
}

// Publish marshals value to JSON and publishes to the given topic with key.
// Uses exponential backoff retry logic (3 attempts); after the last failure
// the message is persisted to the DLQ table. If Kafka is disabled or not
// initialized, returns nil (best-effort).
func Publish(topic, key string, value interface{}) error {
	producerMutex.Lock()
	if producer == nil && config.AppConfig.KafkaBrokers != "" {
		producerMutex.Unlock()
		InitProducer()
		producerMutex.Lock()
	}
	defer producerMutex.Unlock()

	if producer == nil || config.AppConfig.KafkaBrokers == "" {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		logger.Error("Error marshaling Kafka message: %v", err)
		return err
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := producer.WriteMessages(ctx, msg)
		cancel()

		if err == nil {
			isConnected = true
			return nil
		}

		lastErr = err
		logger.Warn("Kafka publish attempt %d failed: %v", attempt+1, err)

		if attempt < 2 {
			time.Sleep(time.Duration(math.Pow(2, float64(attempt))) * time.Second)
		}
		isConnected = false

		// Recreate the producer on the second failure to shed stale broker
		// metadata.
		if attempt == 1 {
			logger.Info("Attempting to recreate Kafka producer due to connection issues")
			if producer != nil {
				producer.Close()
			}
			InitProducer()
		}
	}

	logger.Info("Storing failed message in DLQ. Topic: %s, Key: %s", topic, key)
	if dlqErr := StoreDLQMessage(topic, key, payload, lastErr.Error()); dlqErr != nil {
		logger.Error("Failed to store message in DLQ: %v", dlqErr)
	}

	return lastErr
}

// IsConnected returns true if Kafka producer is connected and ready
func IsConnected() bool {
	producerMutex.Lock()
	defer producerMutex.Unlock()
	return isConnected && producer != nil
}

// Close gracefully closes the Kafka producer
func Close() error {
	producerMutex.Lock()
	defer producerMutex.Unlock()

	if producer != nil {
		return producer.Close()
	}
	return nil
}
