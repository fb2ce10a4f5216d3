package models

import (
	"time"
)

// Request lifecycle states. Closed requests exist in the wider platform but
// the assignment engine only ever moves a request from pending to assigned.
const (
	RequestStatusPending  = "pending"
	RequestStatusAssigned = "assigned"
)

// SupportRequest represents a student's submitted need for mental-health
// support. CounselorID is set if and only if Status is assigned.
type SupportRequest struct {
	ID            int64     `json:"id"`
	StudentID     string    `json:"student_id"`
	StudentName   string    `json:"student_name"`
	RequestType   string    `json:"request_type"`
	Priority      Priority  `json:"priority"`
	Tags          []string  `json:"tags"`
	Confidential  bool      `json:"confidential"`
	Status        string    `json:"status"`
	CounselorID   *int64    `json:"counselor_id,omitempty"`
	CounselorName string    `json:"counselor_name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
