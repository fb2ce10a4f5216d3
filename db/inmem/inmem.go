// Package inmem provides an in-memory implementation of the assignment
// store, used by the engine tests and for running the service without a
// Postgres instance. A single mutex around each transaction gives the same
// effective isolation the Postgres store gets from serializable
// transactions: commits are fully ordered and either apply completely or
// not at all.
package inmem

import (
	"context"
	"fmt"
	"sync"

	"counseling-module/errors"
	"counseling-module/models"
	"counseling-module/services/assignment"
)

type Store struct {
	mu            sync.Mutex
	requests      map[int64]*models.SupportRequest
	counselors    map[int64]*models.Counselor
	chatRooms     map[string]*models.ChatRoom
	notifications map[string]*models.Notification
}

func NewStore() *Store {
	return &Store{
		requests:      make(map[int64]*models.SupportRequest),
		counselors:    make(map[int64]*models.Counselor),
		chatRooms:     make(map[string]*models.ChatRoom),
		notifications: make(map[string]*models.Notification),
	}
}

// AddRequest seeds a support request.
func (s *Store) AddRequest(req models.SupportRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.ID] = copyRequest(&req)
}

// AddCounselor seeds a counselor.
func (s *Store) AddCounselor(c models.Counselor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counselors[c.ID] = copyCounselor(&c)
}

// Request returns the stored request, if any.
func (s *Store) Request(id int64) (*models.SupportRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, false
	}
	return copyRequest(req), true
}

// Counselor returns the stored counselor, if any.
func (s *Store) Counselor(id int64) (*models.Counselor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.counselors[id]
	if !ok {
		return nil, false
	}
	return copyCounselor(c), true
}

// ChatRooms returns all created chat rooms.
func (s *Store) ChatRooms() []models.ChatRoom {
	s.mu.Lock()
	defer s.mu.Unlock()
	rooms := make([]models.ChatRoom, 0, len(s.chatRooms))
	for _, room := range s.chatRooms {
		rooms = append(rooms, *room)
	}
	return rooms
}

// Notifications returns all created notifications.
func (s *Store) Notifications() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]models.Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		list = append(list, *n)
	}
	return list
}

// GetRequest implements assignment.Store.
func (s *Store) GetRequest(ctx context.Context, id int64) (*models.SupportRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, errors.E(errors.NotFound, fmt.Sprintf("support request %d not found", id))
	}
	return copyRequest(req), nil
}

// ListCounselors implements assignment.Store.
func (s *Store) ListCounselors(ctx context.Context) ([]models.Counselor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pool := make([]models.Counselor, 0, len(s.counselors))
	for _, c := range s.counselors {
		pool = append(pool, *copyCounselor(c))
	}
	return pool, nil
}

// InTransaction implements assignment.Store. The transaction stages its
// writes against copies and merges them back only when fn succeeds.
func (s *Store) InTransaction(ctx context.Context, fn func(tx assignment.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn := &memTx{
		store:         s,
		requests:      make(map[int64]*models.SupportRequest),
		counselors:    make(map[int64]*models.Counselor),
		chatRooms:     make(map[string]*models.ChatRoom),
		notifications: make(map[string]*models.Notification),
	}

	if err := fn(txn); err != nil {
		return err
	}

	for id, req := range txn.requests {
		s.requests[id] = req
	}
	for id, c := range txn.counselors {
		s.counselors[id] = c
	}
	for id, room := range txn.chatRooms {
		s.chatRooms[id] = room
	}
	for id, n := range txn.notifications {
		s.notifications[id] = n
	}

	return nil
}

// memTx stages writes for one transaction. Reads see the staged state first
// so read-your-writes holds inside the transaction.
type memTx struct {
	store         *Store
	requests      map[int64]*models.SupportRequest
	counselors    map[int64]*models.Counselor
	chatRooms     map[string]*models.ChatRoom
	notifications map[string]*models.Notification
}

func (t *memTx) RequestForUpdate(ctx context.Context, id int64) (*models.SupportRequest, error) {
	if req, ok := t.requests[id]; ok {
		return copyRequest(req), nil
	}
	req, ok := t.store.requests[id]
	if !ok {
		return nil, errors.E(errors.NotFound, fmt.Sprintf("support request %d not found", id))
	}
	return copyRequest(req), nil
}

func (t *memTx) CounselorForUpdate(ctx context.Context, id int64) (*models.Counselor, error) {
	if c, ok := t.counselors[id]; ok {
		return copyCounselor(c), nil
	}
	c, ok := t.store.counselors[id]
	if !ok {
		return nil, errors.E(errors.NotFound, fmt.Sprintf("counselor %d not found", id))
	}
	return copyCounselor(c), nil
}

func (t *memTx) UpdateRequestAssigned(ctx context.Context, req *models.SupportRequest) error {
	if _, ok := t.store.requests[req.ID]; !ok {
		return errors.E(errors.NotFound, fmt.Sprintf("support request %d not found", req.ID))
	}
	t.requests[req.ID] = copyRequest(req)
	return nil
}

func (t *memTx) UpdateCounselorLoad(ctx context.Context, c *models.Counselor) error {
	if _, ok := t.store.counselors[c.ID]; !ok {
		return errors.E(errors.NotFound, fmt.Sprintf("counselor %d not found", c.ID))
	}
	t.counselors[c.ID] = copyCounselor(c)
	return nil
}

func (t *memTx) InsertChatRoom(ctx context.Context, room *models.ChatRoom) error {
	if _, ok := t.store.chatRooms[room.ID]; ok {
		return errors.E(errors.Internal, fmt.Sprintf("chat room %s already exists", room.ID))
	}
	clone := *room
	t.chatRooms[room.ID] = &clone
	return nil
}

func (t *memTx) InsertNotification(ctx context.Context, n *models.Notification) error {
	if _, ok := t.store.notifications[n.ID]; ok {
		return errors.E(errors.Internal, fmt.Sprintf("notification %s already exists", n.ID))
	}
	clone := *n
	t.notifications[n.ID] = &clone
	return nil
}

func copyRequest(req *models.SupportRequest) *models.SupportRequest {
	clone := *req
	clone.Tags = append([]string(nil), req.Tags...)
	if req.CounselorID != nil {
		id := *req.CounselorID
		clone.CounselorID = &id
	}
	return &clone
}

func copyCounselor(c *models.Counselor) *models.Counselor {
	clone := *c
	clone.Specialties = append([]string(nil), c.Specialties...)
	return &clone
}
