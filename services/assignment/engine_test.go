package assignment_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"counseling-module/db/inmem"
	"counseling-module/errors"
	"counseling-module/models"
	"counseling-module/services/assignment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func engineWeights() models.PriorityWeights {
	return models.DefaultPriorityWeights()
}

func pendingRequest(id int64, priority models.Priority, tags ...string) models.SupportRequest {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return models.SupportRequest{
		ID:           id,
		StudentID:    "student-42",
		StudentName:  "Jamie",
		RequestType:  "stress",
		Priority:     priority,
		Tags:         tags,
		Confidential: true,
		Status:       models.RequestStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func availableCounselor(id int64, load, max int, specialties ...string) models.Counselor {
	return models.Counselor{
		ID:          id,
		UserID:      "user-" + string(rune('a'+id)),
		Name:        "Counselor " + string(rune('A'+id-1)),
		Status:      models.CounselorStatusAvailable,
		Specialties: specialties,
		CurrentLoad: load,
		MaxLoad:     max,
	}
}

func createdEventPayload(t *testing.T, req models.SupportRequest) []byte {
	t.Helper()
	payload, err := json.Marshal(assignment.RequestCreatedEvent{
		EventID:   "evt-1",
		EventType: "request.created",
		RequestID: req.ID,
		Request:   req,
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)
	return payload
}

func TestEngineAssignsBestCounselorAndCommitsAllRecords(t *testing.T) {
	store := inmem.NewStore()
	req := pendingRequest(1, models.PriorityHigh, "anxiety", "grief")
	store.AddRequest(req)
	store.AddCounselor(availableCounselor(1, 0, 5, "anxiety"))
	store.AddCounselor(availableCounselor(2, 0, 5, "anxiety", "grief"))

	engine := assignment.NewEngine(store, engineWeights(), 3)
	result := engine.HandleRequestCreated(context.Background(), createdEventPayload(t, req))

	require.True(t, result.Success, "result: %+v", result)
	require.NotNil(t, result.CounselorID)
	assert.Equal(t, int64(2), *result.CounselorID)
	assert.NotEmpty(t, result.ChatRoomID)
	assert.InDelta(t, 6.0, result.Score, 1e-9)

	updated, ok := store.Request(1)
	require.True(t, ok)
	assert.Equal(t, models.RequestStatusAssigned, updated.Status)
	require.NotNil(t, updated.CounselorID)
	assert.Equal(t, int64(2), *updated.CounselorID)
	assert.NotEmpty(t, updated.CounselorName)

	counselor, ok := store.Counselor(2)
	require.True(t, ok)
	assert.Equal(t, 3, counselor.CurrentLoad, "high priority consumes weight 3")
	assert.Equal(t, models.CounselorStatusAvailable, counselor.Status)
	assert.False(t, counselor.LastActive.IsZero())

	rooms := store.ChatRooms()
	require.Len(t, rooms, 1)
	room := rooms[0]
	assert.Equal(t, result.ChatRoomID, room.ID)
	assert.Equal(t, models.ChatRoomTypeMentalHealth, room.Type)
	assert.Equal(t, models.ChatRoomStatusActive, room.Status)
	assert.Equal(t, int64(1), room.RequestID)
	assert.Equal(t, "student-42", room.StudentID)
	assert.Equal(t, int64(2), room.CounselorID)
	assert.Empty(t, room.LastMessage)
	assert.Nil(t, room.LastMessageAt)
	// Metadata snapshots the request as it was at assignment time
	assert.Equal(t, "Jamie", room.Metadata.StudentName)
	assert.Equal(t, counselor.Name, room.Metadata.CounselorName)
	assert.Equal(t, "stress", room.Metadata.RequestType)
	assert.Equal(t, models.PriorityHigh, room.Metadata.Priority)
	assert.True(t, room.Metadata.Confidential)

	notifications := store.Notifications()
	require.Len(t, notifications, 1)
	n := notifications[0]
	assert.Equal(t, counselor.UserID, n.UserID)
	assert.Equal(t, models.NotificationTypeAssignment, n.Type)
	assert.False(t, n.Read)
	assert.Equal(t, int64(1), n.RequestID)
	assert.Equal(t, room.ID, n.ChatRoomID)
	assert.NotEmpty(t, n.Title)
	assert.Contains(t, n.Message, "Jamie")
}

func TestEngineAssignmentFillsCounselorToBusy(t *testing.T) {
	store := inmem.NewStore()
	req := pendingRequest(1, models.PriorityMedium, "anxiety")
	store.AddRequest(req)
	store.AddCounselor(availableCounselor(1, 3, 5, "anxiety"))

	engine := assignment.NewEngine(store, engineWeights(), 3)
	result := engine.Assign(context.Background(), 1)

	require.True(t, result.Success)
	counselor, ok := store.Counselor(1)
	require.True(t, ok)
	assert.Equal(t, 5, counselor.CurrentLoad)
	assert.Equal(t, models.CounselorStatusBusy, counselor.Status)
}

func TestEngineNoAvailableCounselorsTouchesNothing(t *testing.T) {
	store := inmem.NewStore()
	req := pendingRequest(1, models.PriorityLow, "anxiety")
	store.AddRequest(req)
	busy := availableCounselor(1, 2, 5, "anxiety")
	busy.Status = models.CounselorStatusBusy
	store.AddCounselor(busy)

	engine := assignment.NewEngine(store, engineWeights(), 3)
	result := engine.HandleRequestCreated(context.Background(), createdEventPayload(t, req))

	assert.False(t, result.Success)
	assert.Equal(t, errors.NoAvailableCounselors.String(), result.ErrorKind)

	// No partial writes anywhere
	unchanged, ok := store.Request(1)
	require.True(t, ok)
	assert.Equal(t, models.RequestStatusPending, unchanged.Status)
	assert.Nil(t, unchanged.CounselorID)
	counselor, ok := store.Counselor(1)
	require.True(t, ok)
	assert.Equal(t, 2, counselor.CurrentLoad)
	assert.Empty(t, store.ChatRooms())
	assert.Empty(t, store.Notifications())
}

func TestEngineRedeliveryIsIdempotent(t *testing.T) {
	store := inmem.NewStore()
	req := pendingRequest(1, models.PriorityMedium, "anxiety")
	store.AddRequest(req)
	store.AddCounselor(availableCounselor(1, 0, 5, "anxiety"))

	engine := assignment.NewEngine(store, engineWeights(), 3)
	payload := createdEventPayload(t, req)

	first := engine.HandleRequestCreated(context.Background(), payload)
	require.True(t, first.Success)

	second := engine.HandleRequestCreated(context.Background(), payload)
	assert.False(t, second.Success)
	assert.Equal(t, errors.AlreadyAssigned.String(), second.ErrorKind)

	counselor, ok := store.Counselor(1)
	require.True(t, ok)
	assert.Equal(t, 2, counselor.CurrentLoad, "load must not be double-incremented")
	assert.Len(t, store.ChatRooms(), 1)
	assert.Len(t, store.Notifications(), 1)
}

func TestEngineRejectsWeightOvershootInsteadOfExceedingMaxLoad(t *testing.T) {
	// Selection sees 4 < 5 and picks the counselor, but a medium request
	// consumes 2 units. The commit must refuse rather than push load to 6.
	store := inmem.NewStore()
	req := pendingRequest(1, models.PriorityMedium, "anxiety")
	store.AddRequest(req)
	store.AddCounselor(availableCounselor(1, 4, 5, "anxiety"))

	engine := assignment.NewEngine(store, engineWeights(), 3)
	result := engine.Assign(context.Background(), 1)

	assert.False(t, result.Success)
	assert.Equal(t, errors.NoCapacity.String(), result.ErrorKind)

	counselor, ok := store.Counselor(1)
	require.True(t, ok)
	assert.Equal(t, 4, counselor.CurrentLoad)
	assert.LessOrEqual(t, counselor.CurrentLoad, counselor.MaxLoad)
	unchanged, ok := store.Request(1)
	require.True(t, ok)
	assert.Equal(t, models.RequestStatusPending, unchanged.Status)
}

func TestEngineFallsBackToSecondCounselorAfterOvershoot(t *testing.T) {
	store := inmem.NewStore()
	req := pendingRequest(1, models.PriorityHigh, "anxiety")
	store.AddRequest(req)
	// Counselor 1 outscores counselor 2 on specialty but cannot absorb
	// weight 3: score (0.2+1.0)*3 = 3.6 versus (1.0+0.0)*3 = 3.0.
	store.AddCounselor(availableCounselor(1, 4, 5, "anxiety"))
	store.AddCounselor(availableCounselor(2, 0, 10, "grief"))

	engine := assignment.NewEngine(store, engineWeights(), 3)
	result := engine.Assign(context.Background(), 1)

	require.True(t, result.Success)
	require.NotNil(t, result.CounselorID)
	assert.Equal(t, int64(2), *result.CounselorID)

	skipped, ok := store.Counselor(1)
	require.True(t, ok)
	assert.Equal(t, 4, skipped.CurrentLoad)
	chosen, ok := store.Counselor(2)
	require.True(t, ok)
	assert.Equal(t, 3, chosen.CurrentLoad)
}

// conflictStore injects transaction conflicts before delegating, simulating
// a commit that keeps losing serialization races.
type conflictStore struct {
	inner     assignment.Store
	conflicts int
}

func (s *conflictStore) GetRequest(ctx context.Context, id int64) (*models.SupportRequest, error) {
	return s.inner.GetRequest(ctx, id)
}

func (s *conflictStore) ListCounselors(ctx context.Context) ([]models.Counselor, error) {
	return s.inner.ListCounselors(ctx)
}

func (s *conflictStore) InTransaction(ctx context.Context, fn func(tx assignment.Tx) error) error {
	if s.conflicts > 0 {
		s.conflicts--
		return errors.E(errors.TransactionConflict, "injected serialization failure")
	}
	return s.inner.InTransaction(ctx, fn)
}

func TestEngineRetriesAfterTransactionConflict(t *testing.T) {
	inner := inmem.NewStore()
	req := pendingRequest(1, models.PriorityLow, "anxiety")
	inner.AddRequest(req)
	inner.AddCounselor(availableCounselor(1, 0, 5, "anxiety"))

	engine := assignment.NewEngine(&conflictStore{inner: inner, conflicts: 2}, engineWeights(), 3)
	result := engine.Assign(context.Background(), 1)

	require.True(t, result.Success, "third attempt should commit: %+v", result)
	counselor, ok := inner.Counselor(1)
	require.True(t, ok)
	assert.Equal(t, 1, counselor.CurrentLoad)
}

func TestEngineSurfacesConflictAfterExhaustingAttempts(t *testing.T) {
	inner := inmem.NewStore()
	req := pendingRequest(1, models.PriorityLow, "anxiety")
	inner.AddRequest(req)
	inner.AddCounselor(availableCounselor(1, 0, 5, "anxiety"))

	engine := assignment.NewEngine(&conflictStore{inner: inner, conflicts: 100}, engineWeights(), 3)
	result := engine.Assign(context.Background(), 1)

	assert.False(t, result.Success)
	assert.Equal(t, errors.TransactionConflict.String(), result.ErrorKind)

	unchanged, ok := inner.Request(1)
	require.True(t, ok)
	assert.Equal(t, models.RequestStatusPending, unchanged.Status)
}

func TestEngineRejectsMalformedEvents(t *testing.T) {
	store := inmem.NewStore()
	engine := assignment.NewEngine(store, engineWeights(), 3)
	ctx := context.Background()

	malformed := engine.HandleRequestCreated(ctx, []byte("{not json"))
	assert.False(t, malformed.Success)
	assert.Equal(t, errors.Invalid.String(), malformed.ErrorKind)

	missingID := engine.HandleRequestCreated(ctx, []byte(`{"event_type":"request.created"}`))
	assert.False(t, missingID.Success)
	assert.Equal(t, errors.Invalid.String(), missingID.ErrorKind)

	emptyTags := pendingRequest(1, models.PriorityHigh)
	store.AddRequest(emptyTags)
	noTags := engine.HandleRequestCreated(ctx, createdEventPayload(t, emptyTags))
	assert.False(t, noTags.Success)
	assert.Equal(t, errors.Invalid.String(), noTags.ErrorKind)

	badPriority := pendingRequest(2, "urgent", "anxiety")
	store.AddRequest(badPriority)
	unknown := engine.HandleRequestCreated(ctx, createdEventPayload(t, badPriority))
	assert.False(t, unknown.Success)
	assert.Equal(t, errors.Invalid.String(), unknown.ErrorKind)

	assert.Empty(t, store.ChatRooms())
	assert.Empty(t, store.Notifications())
}

func TestEngineReportsMissingRequest(t *testing.T) {
	engine := assignment.NewEngine(inmem.NewStore(), engineWeights(), 3)
	result := engine.Assign(context.Background(), 99)

	assert.False(t, result.Success)
	assert.Equal(t, errors.NotFound.String(), result.ErrorKind)
}

func TestEngineConcurrentRequestsNeverOverCommitCounselor(t *testing.T) {
	// One counselor with room for two medium requests, three competing
	// invocations: exactly two must win.
	store := inmem.NewStore()
	store.AddCounselor(availableCounselor(1, 0, 4, "anxiety"))
	for id := int64(1); id <= 3; id++ {
		store.AddRequest(pendingRequest(id, models.PriorityMedium, "anxiety"))
	}

	engine := assignment.NewEngine(store, engineWeights(), 3)

	results := make(chan assignment.Result, 3)
	for id := int64(1); id <= 3; id++ {
		go func(id int64) {
			results <- engine.Assign(context.Background(), id)
		}(id)
	}

	succeeded := 0
	for i := 0; i < 3; i++ {
		if r := <-results; r.Success {
			succeeded++
		}
	}
	assert.Equal(t, 2, succeeded)

	counselor, ok := store.Counselor(1)
	require.True(t, ok)
	assert.Equal(t, 4, counselor.CurrentLoad)
	assert.LessOrEqual(t, counselor.CurrentLoad, counselor.MaxLoad)
	assert.Equal(t, models.CounselorStatusBusy, counselor.Status)
}
