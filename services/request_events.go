package services

import (
	"context"
	"fmt"
	"time"

	"counseling-module/config"
	"counseling-module/errors"
	"counseling-module/logger"
	"counseling-module/services/assignment"
)

// RequestAssignedEvent is published after a successful assignment so the
// dashboards and notification workers can react without polling the store.
type RequestAssignedEvent struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"` // "request.assigned"
	RequestID     int64     `json:"request_id"`
	CounselorID   int64     `json:"counselor_id"`
	CounselorName string    `json:"counselor_name"`
	ChatRoomID    string    `json:"chat_room_id"`
	Score         float64   `json:"score"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewRequestEventHandler adapts the assignment engine to the Kafka consumer
// callback contract. The engine never returns a Go error, only a structured
// result; this handler decides which failures are worth dead-lettering:
//
//   - business outcomes (no available counselors, no capacity, already
//     assigned, invalid intake data) are final for this delivery — the
//     request legitimately stays pending and redelivery or a later manual
//     re-drive picks it up, so they are logged and swallowed
//   - internal and conflict-exhaustion failures are returned as errors so
//     the consumer parks the event in the DLQ for retry
func NewRequestEventHandler(engine *assignment.Engine) func(ctx context.Context, payload []byte) error {
	return func(ctx context.Context, payload []byte) error {
		result := engine.HandleRequestCreated(ctx, payload)

		if result.Success {
			PublishRequestAssignedEvent(result)
			return nil
		}

		switch result.ErrorKind {
		case errors.NoAvailableCounselors.String(),
			errors.NoCapacity.String(),
			errors.AlreadyAssigned.String(),
			errors.Invalid.String(),
			errors.NotFound.String():
			logger.Info("Request %d left unassigned: %s (%s)", result.RequestID, result.Error, result.ErrorKind)
			return nil
		default:
			return fmt.Errorf("assignment of request %d failed: %s (%s)", result.RequestID, result.Error, result.ErrorKind)
		}
	}
}

// PublishRequestAssignedEvent publishes a request.assigned event to Kafka.
// Non-blocking and best-effort: the assignment is already durable in the
// store, so a lost event only delays the dashboards, it loses nothing.
func PublishRequestAssignedEvent(result assignment.Result) {
	if result.CounselorID == nil {
		return
	}

	event := RequestAssignedEvent{
		EventID:       fmt.Sprintf("assigned-%d-%d", result.RequestID, time.Now().UnixNano()),
		EventType:     "request.assigned",
		RequestID:     result.RequestID,
		CounselorID:   *result.CounselorID,
		CounselorName: result.CounselorName,
		ChatRoomID:    result.ChatRoomID,
		Score:         result.Score,
		Timestamp:     time.Now().UTC(),
	}

	// Keyed by request ID for partitioning
	go func() {
		topic := config.AppConfig.KafkaAssignedTopic
		if err := Publish(topic, fmt.Sprintf("request-%d", event.RequestID), event); err != nil {
			logger.Warn("Failed to publish request.assigned event for request %d: %v", event.RequestID, err)
		} else {
			logger.Info("Published request.assigned event to topic '%s' for request %d", topic, event.RequestID)
		}
	}()
}
