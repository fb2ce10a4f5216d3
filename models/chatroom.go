package models

import "time"

const (
	ChatRoomTypeMentalHealth = "mental_health"
	ChatRoomStatusActive     = "active"
)

// ChatRoomMetadata is a snapshot of the request and participants captured at
// room creation time. It is immutable: later edits to the student, counselor
// or request records must not change what the chat UI shows for this room.
type ChatRoomMetadata struct {
	StudentName   string   `json:"student_name"`
	CounselorName string   `json:"counselor_name"`
	RequestType   string   `json:"request_type"`
	Priority      Priority `json:"priority"`
	Confidential  bool     `json:"confidential"`
}

// ChatRoom is the private room opened between a student and the counselor
// assigned to their request. Created once by the assignment commit; message
// delivery and later lifecycle changes belong to the chat subsystem.
type ChatRoom struct {
	ID            string           `json:"id"`
	Type          string           `json:"type"`
	RequestID     int64            `json:"request_id"`
	StudentID     string           `json:"student_id"`
	CounselorID   int64            `json:"counselor_id"`
	Status        string           `json:"status"`
	LastMessage   string           `json:"last_message"`
	LastMessageAt *time.Time       `json:"last_message_at,omitempty"`
	Metadata      ChatRoomMetadata `json:"metadata"`
	CreatedAt     time.Time        `json:"created_at"`
}
