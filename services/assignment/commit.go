package assignment

import (
	"context"
	"fmt"
	"time"

	"counseling-module/errors"
	"counseling-module/models"

	"github.com/google/uuid"
)

// errStaleCounselor signals that the selected counselor no longer fits the
// request's weight by the time the commit transaction re-read it. The caller
// reacts by excluding the counselor and re-running selection; the error never
// leaves this package.
var errStaleCounselor = errors.NewError("selected counselor is no longer eligible")

// commit finalizes the assignment in one isolated transaction: update the
// request, bump the counselor's load, create the chat room and the
// notification, or none of the above. Both records are re-read under row
// locks before anything is written, so a commit racing this one cannot push
// the counselor past MaxLoad or assign the request twice.
func (e *Engine) commit(ctx context.Context, requestID int64, counselorID int64) (*models.ChatRoom, error) {
	var room *models.ChatRoom

	err := e.store.InTransaction(ctx, func(tx Tx) error {
		req, err := tx.RequestForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != models.RequestStatusPending {
			return errors.E(errors.AlreadyAssigned, fmt.Sprintf("request %d is %s, not pending", req.ID, req.Status))
		}

		weight, err := e.weights.Weight(req.Priority)
		if err != nil {
			return errors.E(errors.Invalid, err.Error())
		}

		counselor, err := tx.CounselorForUpdate(ctx, counselorID)
		if err != nil {
			return err
		}
		// Selection only guarantees currentLoad < maxLoad; the weighted
		// increment can still overshoot, e.g. load 4/5 plus a medium request
		// of weight 2. Reject here and let the caller pick someone else.
		if counselor.CurrentLoad+weight > counselor.MaxLoad {
			return errStaleCounselor
		}

		now := time.Now().UTC()

		req.Status = models.RequestStatusAssigned
		req.CounselorID = &counselor.ID
		req.CounselorName = counselor.Name
		req.UpdatedAt = now
		if err := tx.UpdateRequestAssigned(ctx, req); err != nil {
			return err
		}

		counselor.CurrentLoad += weight
		counselor.Status = counselor.DeriveStatus()
		counselor.LastActive = now
		if err := tx.UpdateCounselorLoad(ctx, counselor); err != nil {
			return err
		}

		room = buildChatRoom(req, counselor, now)
		if err := tx.InsertChatRoom(ctx, room); err != nil {
			return err
		}

		if err := tx.InsertNotification(ctx, buildNotification(req, counselor, room, now)); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return room, nil
}

// buildChatRoom creates the mental-health room between the student and the
// assigned counselor, snapshotting the request details into the immutable
// metadata block.
func buildChatRoom(req *models.SupportRequest, counselor *models.Counselor, now time.Time) *models.ChatRoom {
	return &models.ChatRoom{
		ID:          uuid.NewString(),
		Type:        models.ChatRoomTypeMentalHealth,
		RequestID:   req.ID,
		StudentID:   req.StudentID,
		CounselorID: counselor.ID,
		Status:      models.ChatRoomStatusActive,
		LastMessage: "",
		Metadata: models.ChatRoomMetadata{
			StudentName:   req.StudentName,
			CounselorName: counselor.Name,
			RequestType:   req.RequestType,
			Priority:      req.Priority,
			Confidential:  req.Confidential,
		},
		CreatedAt: now,
	}
}

// buildNotification creates the unread assignment notification addressed to
// the counselor's user account, linking back to the request and the room.
func buildNotification(req *models.SupportRequest, counselor *models.Counselor, room *models.ChatRoom, now time.Time) *models.Notification {
	return &models.Notification{
		ID:     uuid.NewString(),
		UserID: counselor.UserID,
		Type:   models.NotificationTypeAssignment,
		Title:  "New support request assigned to you",
		Message: fmt.Sprintf("%s needs %s support (%s priority). A chat room has been opened for you.",
			req.StudentName, req.RequestType, req.Priority),
		Read:       false,
		RequestID:  req.ID,
		ChatRoomID: room.ID,
		CreatedAt:  now,
	}
}
