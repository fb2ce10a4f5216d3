package assignment

import (
	"context"

	"counseling-module/models"
)

// Store is the read/transactional-write capability the engine needs from the
// backing database. It is passed in explicitly so the engine never reaches
// for a package-level connection; db.Store implements it over Postgres and
// db/inmem.Store over plain maps.
type Store interface {
	// GetRequest returns the current state of a support request, or a
	// NotFound error when no such request exists.
	GetRequest(ctx context.Context, id int64) (*models.SupportRequest, error)

	// ListCounselors returns a fresh snapshot of the whole counselor pool.
	ListCounselors(ctx context.Context) ([]models.Counselor, error)

	// InTransaction runs fn inside one isolated transaction. If fn returns an
	// error nothing is persisted. Serialization and lock conflicts surface as
	// a TransactionConflict error so the caller can retry its whole
	// read-decide-write cycle.
	InTransaction(ctx context.Context, fn func(tx Tx) error) error
}

// Tx exposes the per-record operations available inside one atomic commit.
// The ForUpdate reads lock the row for the remainder of the transaction.
type Tx interface {
	RequestForUpdate(ctx context.Context, id int64) (*models.SupportRequest, error)
	CounselorForUpdate(ctx context.Context, id int64) (*models.Counselor, error)
	UpdateRequestAssigned(ctx context.Context, req *models.SupportRequest) error
	UpdateCounselorLoad(ctx context.Context, c *models.Counselor) error
	InsertChatRoom(ctx context.Context, room *models.ChatRoom) error
	InsertNotification(ctx context.Context, n *models.Notification) error
}
