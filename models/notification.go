package models

import "time"

const NotificationTypeAssignment = "assignment"

// Notification is the in-app message telling a counselor a new request was
// assigned to them. Created once by the assignment commit; delivery and the
// read flag belong to the notification subsystem.
type Notification struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Type       string    `json:"type"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Read       bool      `json:"read"`
	RequestID  int64     `json:"request_id"`
	ChatRoomID string    `json:"chat_room_id"`
	CreatedAt  time.Time `json:"created_at"`
}
