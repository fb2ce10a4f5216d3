package assignment

import (
	"testing"

	"counseling-module/models"

	"github.com/stretchr/testify/assert"
)

func testWeights() models.PriorityWeights {
	return models.DefaultPriorityWeights()
}

func TestScoreSpecialtyOverlap(t *testing.T) {
	req := &models.SupportRequest{
		Priority: models.PriorityLow,
		Tags:     []string{"anxiety", "grief"},
	}

	fullMatch := &models.Counselor{Specialties: []string{"anxiety", "grief", "stress"}, CurrentLoad: 0, MaxLoad: 5}
	halfMatch := &models.Counselor{Specialties: []string{"anxiety"}, CurrentLoad: 0, MaxLoad: 5}
	noMatch := &models.Counselor{Specialties: []string{"career"}, CurrentLoad: 0, MaxLoad: 5}

	// loadScore is 1.0 for all three, priority weight is 1
	assert.InDelta(t, 2.0, Score(fullMatch, req, testWeights()), 1e-9)
	assert.InDelta(t, 1.5, Score(halfMatch, req, testWeights()), 1e-9)
	assert.InDelta(t, 1.0, Score(noMatch, req, testWeights()), 1e-9)
}

func TestScoreLoadComponent(t *testing.T) {
	req := &models.SupportRequest{
		Priority: models.PriorityLow,
		Tags:     []string{"anxiety"},
	}
	c := &models.Counselor{Specialties: nil, CurrentLoad: 3, MaxLoad: 4}

	// 1 - 3/4 = 0.25, no specialty overlap, weight 1
	assert.InDelta(t, 0.25, Score(c, req, testWeights()), 1e-9)
}

func TestScorePriorityWeightMultiplies(t *testing.T) {
	c := &models.Counselor{Specialties: []string{"anxiety"}, CurrentLoad: 0, MaxLoad: 5}

	base := Score(c, &models.SupportRequest{Priority: models.PriorityLow, Tags: []string{"anxiety"}}, testWeights())
	medium := Score(c, &models.SupportRequest{Priority: models.PriorityMedium, Tags: []string{"anxiety"}}, testWeights())
	high := Score(c, &models.SupportRequest{Priority: models.PriorityHigh, Tags: []string{"anxiety"}}, testWeights())

	assert.InDelta(t, 2*base, medium, 1e-9)
	assert.InDelta(t, 3*base, high, 1e-9)
}

func TestScoreWorkedExample(t *testing.T) {
	// High-priority request tagged {anxiety, grief}: a counselor covering
	// both tags must outscore one covering only anxiety.
	req := &models.SupportRequest{
		Priority: models.PriorityHigh,
		Tags:     []string{"anxiety", "grief"},
	}
	a := &models.Counselor{ID: 1, Specialties: []string{"anxiety"}, CurrentLoad: 0, MaxLoad: 5}
	b := &models.Counselor{ID: 2, Specialties: []string{"anxiety", "grief"}, CurrentLoad: 0, MaxLoad: 5}

	assert.InDelta(t, 4.5, Score(a, req, testWeights()), 1e-9)
	assert.InDelta(t, 6.0, Score(b, req, testWeights()), 1e-9)
}

func TestScoreIsDeterministic(t *testing.T) {
	req := &models.SupportRequest{
		Priority: models.PriorityMedium,
		Tags:     []string{"anxiety", "grief", "stress"},
	}
	c := &models.Counselor{Specialties: []string{"grief", "stress"}, CurrentLoad: 2, MaxLoad: 7}

	first := Score(c, req, testWeights())
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Score(c, req, testWeights()))
	}
}

func TestSpecialtyOverlapCountsDuplicateTagsOnce(t *testing.T) {
	assert.Equal(t, 1, specialtyOverlap([]string{"anxiety"}, []string{"anxiety", "anxiety"}))
	assert.Equal(t, 2, specialtyOverlap([]string{"anxiety", "grief"}, []string{"grief", "anxiety"}))
	assert.Equal(t, 0, specialtyOverlap(nil, []string{"anxiety"}))
}
