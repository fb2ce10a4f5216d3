package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"counseling-module/config"
	"counseling-module/logger"

	"github.com/segmentio/kafka-go"
)

var errNoProcessor = errors.New("request event processor not registered")

var (
	consumer        *kafka.Reader
	consumerMutex   sync.Mutex
	consumerRunning bool
	stopConsumer    chan bool
	// requestProcessor handles request.created events from Kafka. Registered
	// by the application at startup; the consumer stays a pure transport.
	requestProcessor func(ctx context.Context, payload []byte) error
)

// InitConsumer initializes a Kafka reader for the request events topic.
// The group subscription gives at-least-once delivery: a crash between
// processing and commit redelivers the event, which the assignment engine
// tolerates by being idempotent per request.
func InitConsumer() error {
	consumerMutex.Lock()
	defer consumerMutex.Unlock()

	if config.AppConfig.KafkaBrokers == "" {
		logger.Info("Kafka consumer is disabled (KAFKA_BROKERS is empty)")
		return nil
	}

	validBrokers := brokerList()
	if len(validBrokers) == 0 {
		logger.Warn("No valid Kafka brokers configured for consumer")
		return nil
	}

	topic := config.AppConfig.KafkaRequestEventsTopic
	consumer = kafka.NewReader(kafka.ReaderConfig{
		Brokers:          validBrokers,
		Topic:            topic,
		GroupID:          config.AppConfig.KafkaConsumerGroup,
		StartOffset:      -1,
		CommitInterval:   time.Second,
		MaxBytes:         10e6,
		SessionTimeout:   20 * time.Second,
		ReadBackoffMin:   100 * time.Millisecond,
		ReadBackoffMax:   1 * time.Second,
		QueueCapacity:    100,
		RebalanceTimeout: 60 * time.Second,
	})

	stopConsumer = make(chan bool)
	logger.Info("Kafka consumer initialized. Brokers=%v, Topic=%s, ConsumerGroup=%s",
		validBrokers, topic, config.AppConfig.KafkaConsumerGroup)
	return nil
}

// RegisterRequestProcessor registers the callback that handles
// request.created events.
func RegisterRequestProcessor(fn func(ctx context.Context, payload []byte) error) {
	consumerMutex.Lock()
	defer consumerMutex.Unlock()
	requestProcessor = fn
	logger.Info("Request event processor registered")
}

// StartConsumer starts consuming messages in a separate goroutine
func StartConsumer() {
	consumerMutex.Lock()
	if consumer == nil {
		consumerMutex.Unlock()
		logger.Warn("Consumer not initialized, cannot start")
		return
	}
	if consumerRunning {
		consumerMutex.Unlock()
		logger.Warn("Consumer already running")
		return
	}
	consumerRunning = true
	consumerMutex.Unlock()

	go consumeMessages()
	logger.Info("Kafka consumer started")
}

// consumeMessages continuously reads messages from Kafka and processes them
func consumeMessages() {
	defer func() {
		consumerMutex.Lock()
		consumerRunning = false
		consumerMutex.Unlock()
	}()

	// Allow time for broker to stabilize
	time.Sleep(2 * time.Second)

	for {
		select {
		case <-stopConsumer:
			logger.Info("Consumer stop signal received")
			return
		default:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			msg, err := consumer.ReadMessage(ctx)
			cancel()

			if err != nil {
				// No messages or timeout
				if err == context.DeadlineExceeded || err.Error() == "EOF" {
					continue
				}
				// Group coordinator startup errors
				if strings.Contains(err.Error(), "Group Coordinator Not Available") {
					time.Sleep(500 * time.Millisecond)
					continue
				}
				time.Sleep(1 * time.Second)
				continue
			}

			handleKafkaMessage(msg)
		}
	}
}

// handleKafkaMessage processes incoming Kafka messages.
// On error, messages are sent to the DLQ.
func handleKafkaMessage(msg kafka.Message) {
	_ = HandleMessageForRetry(msg)
}

// HandleMessageForRetry processes one Kafka message and reports whether
// processing succeeded. Failed messages are sent to the DLQ; the DLQ retry
// machinery calls back into this function to reprocess them.
func HandleMessageForRetry(msg kafka.Message) bool {
	var envelope struct {
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		logger.Error("Error unmarshaling message: %v", err)
		_ = SendToDLQ(msg.Topic, string(msg.Key), msg.Value, "Failed to unmarshal JSON: "+err.Error())
		return false
	}

	if envelope.EventType == "" {
		logger.Warn("Message does not contain event type")
		_ = SendToDLQ(msg.Topic, string(msg.Key), msg.Value, "Message does not contain valid event type")
		return false
	}

	logger.Info("Event type: %s", envelope.EventType)

	var handlerErr error
	switch envelope.EventType {
	case "request.created":
		handlerErr = handleRequestCreated(msg.Value)
	default:
		logger.Warn("Unknown event type: %s", envelope.EventType)
		_ = SendToDLQ(msg.Topic, string(msg.Key), msg.Value, "Unknown event type: "+envelope.EventType)
		return false
	}

	if handlerErr != nil {
		logger.Error("Error handling event type %s: %v", envelope.EventType, handlerErr)
		_ = SendToDLQ(msg.Topic, string(msg.Key), msg.Value, "Handler error: "+handlerErr.Error())
		return false
	}

	return true
}

// handleRequestCreated dispatches a request.created event to the registered
// processor.
func handleRequestCreated(payload []byte) error {
	consumerMutex.Lock()
	processor := requestProcessor
	consumerMutex.Unlock()

	if processor == nil {
		return errNoProcessor
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return processor(ctx, payload)
}

// StopConsumer stops the consumer gracefully
func StopConsumer() error {
	consumerMutex.Lock()
	defer consumerMutex.Unlock()

	if !consumerRunning || consumer == nil {
		logger.Warn("Consumer not running")
		return nil
	}

	close(stopConsumer)

	if err := consumer.Close(); err != nil {
		logger.Error("Error closing consumer: %v", err)
		return err
	}

	logger.Info("Kafka consumer stopped")
	return nil
}

// IsConsumerRunning returns true if the consumer is actively running
func IsConsumerRunning() bool {
	consumerMutex.Lock()
	defer consumerMutex.Unlock()
	return consumerRunning && consumer != nil
}
