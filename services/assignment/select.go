package assignment

import (
	"fmt"

	"counseling-module/errors"
	"counseling-module/models"
)

// Selection is the outcome of picking a counselor for a request. Score is
// carried along for logging and the assigned event.
type Selection struct {
	Counselor models.Counselor
	Score     float64
}

// SelectCounselor picks the single best counselor for the request from a
// snapshot of the pool, or returns an explicit error describing why no
// candidate exists:
//
//  1. only counselors whose status is available are considered
//     (none → NoAvailableCounselors)
//  2. of those, only counselors with spare capacity, judged by the load
//     numbers rather than the possibly stale status flag
//     (none → NoCapacity)
//  3. highest score wins; equal scores are broken by the lowest counselor ID
//     so two runs over the same pool always agree
//
// exclude lists counselor IDs already ruled out by in-transaction
// re-validation; they are treated as having no capacity left.
func SelectCounselor(pool []models.Counselor, req *models.SupportRequest, weights models.PriorityWeights, exclude map[int64]bool) (*Selection, error) {
	var available []models.Counselor
	for _, c := range pool {
		if c.Status == models.CounselorStatusAvailable {
			available = append(available, c)
		}
	}
	if len(available) == 0 {
		return nil, errors.E(errors.NoAvailableCounselors, "no counselors are currently available")
	}

	var candidates []models.Counselor
	for _, c := range available {
		if c.HasCapacity() && !exclude[c.ID] {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return nil, errors.E(errors.NoCapacity, fmt.Sprintf("all %d available counselors are at capacity", len(available)))
	}

	best := candidates[0]
	bestScore := Score(&best, req, weights)
	for _, c := range candidates[1:] {
		score := Score(&c, req, weights)
		if score > bestScore || (score == bestScore && c.ID < best.ID) {
			best = c
			bestScore = score
		}
	}

	return &Selection{Counselor: best, Score: bestScore}, nil
}
