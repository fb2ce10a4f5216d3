package assignment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"counseling-module/errors"
	"counseling-module/logger"
	"counseling-module/models"
)

// RequestCreatedEvent is the payload published by the intake flow when a
// student submits a support request. It carries a snapshot of the inserted
// record so the adapter can fail fast on malformed input without touching
// the store; the commit itself always works from a fresh read.
type RequestCreatedEvent struct {
	EventID   string                `json:"event_id"`
	EventType string                `json:"event_type"` // "request.created"
	RequestID int64                 `json:"request_id"`
	Request   models.SupportRequest `json:"request"`
	Timestamp time.Time             `json:"timestamp"`
}

// Result is the structured outcome of one assignment attempt. Failures are
// carried as values; nothing is thrown past the adapter boundary.
type Result struct {
	Success       bool    `json:"success"`
	RequestID     int64   `json:"request_id,omitempty"`
	CounselorID   *int64  `json:"counselor_id,omitempty"`
	CounselorName string  `json:"counselor_name,omitempty"`
	ChatRoomID    string  `json:"chat_room_id,omitempty"`
	Score         float64 `json:"score,omitempty"`
	ErrorKind     string  `json:"error_kind,omitempty"`
	Error         string  `json:"error,omitempty"`
}

// Engine matches pending support requests to counselors and commits the
// result. It holds no mutable state of its own: all shared state lives in
// the Store, so concurrent invocations for different requests are
// independent and invocations for the same request are idempotent.
type Engine struct {
	store       Store
	weights     models.PriorityWeights
	maxAttempts int
}

// NewEngine creates an engine using the given store capability and priority
// weight table. maxAttempts bounds how many times one invocation will retry
// its read-select-commit cycle after losing a transaction race.
func NewEngine(store Store, weights models.PriorityWeights, maxAttempts int) *Engine {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Engine{store: store, weights: weights, maxAttempts: maxAttempts}
}

// HandleRequestCreated is the entry point invoked once per request-created
// event. Redelivery is possible, so an event for an already assigned request
// resolves to an AlreadyAssigned result without any writes. This never
// panics across the boundary: unexpected failures are logged and returned as
// a structured failure.
func (e *Engine) HandleRequestCreated(ctx context.Context, payload []byte) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic while handling request-created event: %v", r)
			result = failure(result.RequestID, errors.E(errors.Internal, fmt.Sprintf("panic: %v", r)))
		}
	}()

	var event RequestCreatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return failure(0, errors.E(errors.Invalid, "malformed request-created event", err))
	}

	requestID := event.RequestID
	if requestID == 0 {
		requestID = event.Request.ID
	}
	if requestID <= 0 {
		return failure(0, errors.E(errors.Invalid, "request-created event carries no request identifier"))
	}
	// Some producers only publish the identifier; when the snapshot is
	// present, reject obviously bad intake data before any store read.
	if event.Request.ID != 0 {
		if err := validateRequestPayload(&event.Request); err != nil {
			return failure(requestID, err)
		}
	}

	return e.Assign(ctx, requestID)
}

// Assign runs the full selection and commit cycle for one pending request.
// The loop re-reads the counselor pool on every attempt: a lost transaction
// race or a counselor invalidated by re-validation both mean the previous
// snapshot was stale.
func (e *Engine) Assign(ctx context.Context, requestID int64) Result {
	req, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return failure(requestID, err)
	}
	if req.Status != models.RequestStatusPending {
		return failure(requestID, errors.E(errors.AlreadyAssigned,
			fmt.Sprintf("request %d is %s, not pending", requestID, req.Status)))
	}
	if err := validateRequestPayload(req); err != nil {
		return failure(requestID, err)
	}

	// Counselors that failed weight re-validation inside a transaction are
	// excluded from later rounds, otherwise selection would pick them again.
	excluded := make(map[int64]bool)

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		pool, err := e.store.ListCounselors(ctx)
		if err != nil {
			return failure(requestID, err)
		}

		selection, err := SelectCounselor(pool, req, e.weights, excluded)
		if err != nil {
			return failure(requestID, err)
		}

		room, err := e.commit(ctx, requestID, selection.Counselor.ID)
		switch {
		case err == nil:
			logger.Info("Assigned request %d to counselor %d (%s), score=%.2f, chat room %s",
				requestID, selection.Counselor.ID, selection.Counselor.Name, selection.Score, room.ID)
			counselorID := selection.Counselor.ID
			return Result{
				Success:       true,
				RequestID:     requestID,
				CounselorID:   &counselorID,
				CounselorName: selection.Counselor.Name,
				ChatRoomID:    room.ID,
				Score:         selection.Score,
			}

		case errors.Is(err, errStaleCounselor):
			logger.Warn("Counselor %d can no longer fit request %d, reselecting", selection.Counselor.ID, requestID)
			excluded[selection.Counselor.ID] = true

		case errors.IsKind(err, errors.TransactionConflict):
			logger.Warn("Assignment of request %d lost a transaction race (attempt %d/%d)", requestID, attempt, e.maxAttempts)

		default:
			return failure(requestID, err)
		}
	}

	return failure(requestID, errors.E(errors.TransactionConflict,
		fmt.Sprintf("assignment of request %d did not commit after %d attempts", requestID, e.maxAttempts)))
}

// validateRequestPayload enforces the intake contract the engine relies on:
// a non-empty tag set (the scoring denominator) and a known priority (the
// weight and load lookup).
func validateRequestPayload(req *models.SupportRequest) error {
	if len(req.Tags) == 0 {
		return errors.E(errors.Invalid, "request has an empty specialty tag set")
	}
	if !req.Priority.Valid() {
		return errors.E(errors.Invalid, fmt.Sprintf("unknown request priority %q", req.Priority))
	}
	return nil
}

// failure maps an internal error to the structured result contract.
func failure(requestID int64, err error) Result {
	kind := errors.KindOf(err)
	if kind == errors.Other {
		kind = errors.Internal
	}

	msg := err.Error()
	var appErr *errors.Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		msg = appErr.Message
	}

	return Result{
		Success:   false,
		RequestID: requestID,
		ErrorKind: kind.String(),
		Error:     msg,
	}
}
