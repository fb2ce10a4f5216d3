package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"counseling-module/errors"
	"counseling-module/models"
	"counseling-module/services/assignment"

	"github.com/lib/pq"
)

// Postgres error codes that mean the transaction lost a race and the whole
// read-decide-write cycle should be retried.
const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
)

// Store implements assignment.Store over Postgres. Commits run at
// serializable isolation with row locks on the request and counselor, so two
// concurrent assignments contending for the same counselor cannot both read
// the pre-update load and overshoot max_load: one of them fails with a
// serialization error and retries against fresh state.
type Store struct {
	db *sql.DB
}

// NewStore creates a store over the given connection pool.
func NewStore(database *sql.DB) *Store {
	return &Store{db: database}
}

// GetRequest reads the current state of one support request.
func (s *Store) GetRequest(ctx context.Context, id int64) (*models.SupportRequest, error) {
	return scanRequest(s.db.QueryRowContext(ctx, selectRequestQuery+" WHERE id = $1", id), id)
}

// ListCounselors returns a snapshot of the whole counselor pool.
func (s *Store) ListCounselors(ctx context.Context) ([]models.Counselor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, status, specialties, current_load, max_load, last_active
		FROM counselor
		ORDER BY id ASC`)
	if err != nil {
		return nil, errors.E(errors.Internal, "error listing counselors", err)
	}
	defer rows.Close()

	var pool []models.Counselor
	for rows.Next() {
		var c models.Counselor
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Status,
			pq.Array(&c.Specialties), &c.CurrentLoad, &c.MaxLoad, &c.LastActive); err != nil {
			return nil, errors.E(errors.Internal, "error scanning counselor", err)
		}
		pool = append(pool, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.E(errors.Internal, "error iterating counselors", err)
	}

	return pool, nil
}

// InTransaction runs fn inside one serializable transaction. Application
// errors returned by fn pass through untouched; Postgres conflicts are
// translated to TransactionConflict.
func (s *Store) InTransaction(ctx context.Context, fn func(tx assignment.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return errors.E(errors.Internal, "failed to begin transaction", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&pgTx{tx: sqlTx}); err != nil {
		return translateConflict(err)
	}

	if err := sqlTx.Commit(); err != nil {
		return translateConflict(errors.E(errors.Internal, "failed to commit transaction", err))
	}

	return nil
}

// translateConflict maps Postgres serialization failures and deadlocks to
// the retryable TransactionConflict kind.
func translateConflict(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqSerializationFailure, pqDeadlockDetected:
			return errors.E(errors.TransactionConflict, "transaction lost a serialization race", err)
		}
	}
	return err
}

// pgTx implements assignment.Tx over one open *sql.Tx.
type pgTx struct {
	tx *sql.Tx
}

const selectRequestQuery = `
	SELECT id, student_id, student_name, request_type, priority, tags,
	       confidential, status, counselor_id, counselor_name, created_at, updated_at
	FROM support_request`

func (t *pgTx) RequestForUpdate(ctx context.Context, id int64) (*models.SupportRequest, error) {
	return scanRequest(t.tx.QueryRowContext(ctx, selectRequestQuery+" WHERE id = $1 FOR UPDATE", id), id)
}

func (t *pgTx) CounselorForUpdate(ctx context.Context, id int64) (*models.Counselor, error) {
	var c models.Counselor
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, user_id, name, status, specialties, current_load, max_load, last_active
		FROM counselor
		WHERE id = $1
		FOR UPDATE`, id).
		Scan(&c.ID, &c.UserID, &c.Name, &c.Status,
			pq.Array(&c.Specialties), &c.CurrentLoad, &c.MaxLoad, &c.LastActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.E(errors.NotFound, fmt.Sprintf("counselor %d not found", id))
		}
		return nil, errors.E(errors.Internal, "error reading counselor", err)
	}
	return &c, nil
}

func (t *pgTx) UpdateRequestAssigned(ctx context.Context, req *models.SupportRequest) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE support_request
		SET status = $2, counselor_id = $3, counselor_name = $4, updated_at = $5
		WHERE id = $1`,
		req.ID, req.Status, req.CounselorID, req.CounselorName, req.UpdatedAt)
	if err != nil {
		return errors.E(errors.Internal, "error updating request", err)
	}
	return requireOneRow(result, fmt.Sprintf("request %d not found", req.ID))
}

func (t *pgTx) UpdateCounselorLoad(ctx context.Context, c *models.Counselor) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE counselor
		SET current_load = $2, status = $3, last_active = $4
		WHERE id = $1`,
		c.ID, c.CurrentLoad, c.Status, c.LastActive)
	if err != nil {
		return errors.E(errors.Internal, "error updating counselor load", err)
	}
	return requireOneRow(result, fmt.Sprintf("counselor %d not found", c.ID))
}

func (t *pgTx) InsertChatRoom(ctx context.Context, room *models.ChatRoom) error {
	metadata, err := json.Marshal(room.Metadata)
	if err != nil {
		return errors.E(errors.Internal, "error marshaling chat room metadata", err)
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO chat_room (id, type, request_id, student_id, counselor_id,
		                       status, last_message, last_message_at, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10)`,
		room.ID, room.Type, room.RequestID, room.StudentID, room.CounselorID,
		room.Status, room.LastMessage, room.LastMessageAt, metadata, room.CreatedAt)
	if err != nil {
		return errors.E(errors.Internal, "error inserting chat room", err)
	}
	return nil
}

func (t *pgTx) InsertNotification(ctx context.Context, n *models.Notification) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO notification (id, user_id, type, title, message, read,
		                          request_id, chat_room_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		n.ID, n.UserID, n.Type, n.Title, n.Message, n.Read,
		n.RequestID, n.ChatRoomID, n.CreatedAt)
	if err != nil {
		return errors.E(errors.Internal, "error inserting notification", err)
	}
	return nil
}

// scanRequest scans one support request row, mapping no-rows to NotFound.
func scanRequest(row *sql.Row, id int64) (*models.SupportRequest, error) {
	var req models.SupportRequest
	var counselorID sql.NullInt64
	err := row.Scan(&req.ID, &req.StudentID, &req.StudentName, &req.RequestType,
		&req.Priority, pq.Array(&req.Tags), &req.Confidential, &req.Status,
		&counselorID, &req.CounselorName, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.E(errors.NotFound, fmt.Sprintf("support request %d not found", id))
		}
		return nil, errors.E(errors.Internal, "error reading support request", err)
	}
	if counselorID.Valid {
		req.CounselorID = &counselorID.Int64
	}
	return &req, nil
}

func requireOneRow(result sql.Result, missingMsg string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.E(errors.Internal, "error checking rows affected", err)
	}
	if rowsAffected == 0 {
		return errors.E(errors.NotFound, missingMsg)
	}
	return nil
}
