package assignment

import (
	"testing"

	"counseling-module/errors"
	"counseling-module/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selectionRequest(priority models.Priority, tags ...string) *models.SupportRequest {
	return &models.SupportRequest{
		ID:       1,
		Priority: priority,
		Tags:     tags,
		Status:   models.RequestStatusPending,
	}
}

func TestSelectCounselorPrefersSpecialtyMatch(t *testing.T) {
	pool := []models.Counselor{
		{ID: 1, Name: "A", Status: models.CounselorStatusAvailable, Specialties: []string{"anxiety"}, CurrentLoad: 0, MaxLoad: 5},
		{ID: 2, Name: "B", Status: models.CounselorStatusAvailable, Specialties: []string{"anxiety", "grief"}, CurrentLoad: 0, MaxLoad: 5},
	}

	sel, err := SelectCounselor(pool, selectionRequest(models.PriorityHigh, "anxiety", "grief"), testWeights(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), sel.Counselor.ID)
	assert.InDelta(t, 6.0, sel.Score, 1e-9)
}

func TestSelectCounselorNeverPicksFullCounselor(t *testing.T) {
	pool := []models.Counselor{
		{ID: 1, Status: models.CounselorStatusAvailable, Specialties: []string{"anxiety"}, CurrentLoad: 5, MaxLoad: 5},
		{ID: 2, Status: models.CounselorStatusAvailable, Specialties: nil, CurrentLoad: 1, MaxLoad: 5},
	}

	// Counselor 1 is a perfect specialty match but has no spare capacity.
	sel, err := SelectCounselor(pool, selectionRequest(models.PriorityLow, "anxiety"), testWeights(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), sel.Counselor.ID)
}

func TestSelectCounselorIgnoresStaleAvailableStatus(t *testing.T) {
	// Status says available but the load numbers say otherwise; the load
	// check must win.
	pool := []models.Counselor{
		{ID: 1, Status: models.CounselorStatusAvailable, CurrentLoad: 5, MaxLoad: 5},
	}

	_, err := SelectCounselor(pool, selectionRequest(models.PriorityLow, "anxiety"), testWeights(), nil)
	require.Error(t, err)
	assert.Equal(t, errors.NoCapacity, errors.KindOf(err))
}

func TestSelectCounselorNoAvailable(t *testing.T) {
	pool := []models.Counselor{
		{ID: 1, Status: models.CounselorStatusBusy, CurrentLoad: 1, MaxLoad: 5},
	}

	_, err := SelectCounselor(pool, selectionRequest(models.PriorityLow, "anxiety"), testWeights(), nil)
	require.Error(t, err)
	assert.Equal(t, errors.NoAvailableCounselors, errors.KindOf(err))

	_, err = SelectCounselor(nil, selectionRequest(models.PriorityLow, "anxiety"), testWeights(), nil)
	require.Error(t, err)
	assert.Equal(t, errors.NoAvailableCounselors, errors.KindOf(err))
}

func TestSelectCounselorTieBreaksOnLowestID(t *testing.T) {
	pool := []models.Counselor{
		{ID: 7, Status: models.CounselorStatusAvailable, Specialties: []string{"anxiety"}, CurrentLoad: 0, MaxLoad: 5},
		{ID: 3, Status: models.CounselorStatusAvailable, Specialties: []string{"anxiety"}, CurrentLoad: 0, MaxLoad: 5},
		{ID: 5, Status: models.CounselorStatusAvailable, Specialties: []string{"anxiety"}, CurrentLoad: 0, MaxLoad: 5},
	}

	// Identical scores across the board, so the lowest ID must win
	// regardless of pool order.
	sel, err := SelectCounselor(pool, selectionRequest(models.PriorityMedium, "anxiety"), testWeights(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), sel.Counselor.ID)

	reversed := []models.Counselor{pool[0], pool[2], pool[1]}
	sel, err = SelectCounselor(reversed, selectionRequest(models.PriorityMedium, "anxiety"), testWeights(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), sel.Counselor.ID)
}

func TestSelectCounselorHonorsExclusions(t *testing.T) {
	pool := []models.Counselor{
		{ID: 1, Status: models.CounselorStatusAvailable, Specialties: []string{"anxiety"}, CurrentLoad: 0, MaxLoad: 5},
		{ID: 2, Status: models.CounselorStatusAvailable, CurrentLoad: 0, MaxLoad: 5},
	}

	sel, err := SelectCounselor(pool, selectionRequest(models.PriorityLow, "anxiety"), testWeights(), map[int64]bool{1: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), sel.Counselor.ID)

	// Excluding everyone reads as exhausted capacity, not an empty pool.
	_, err = SelectCounselor(pool, selectionRequest(models.PriorityLow, "anxiety"), testWeights(), map[int64]bool{1: true, 2: true})
	require.Error(t, err)
	assert.Equal(t, errors.NoCapacity, errors.KindOf(err))
}
