package assignment

import (
	"counseling-module/models"
)

// Score computes the suitability of a counselor for a request:
//
//	specialtyScore = |specialties ∩ tags| / |tags|
//	loadScore      = 1 − currentLoad/maxLoad
//	score          = (loadScore + specialtyScore) × priorityWeight
//
// Pure and deterministic: identical inputs always produce the identical
// score. Callers must have validated the request (non-empty tags, known
// priority) and filtered out counselors at capacity; an unknown priority
// contributes weight 0 rather than panicking.
func Score(c *models.Counselor, req *models.SupportRequest, weights models.PriorityWeights) float64 {
	specialtyScore := float64(specialtyOverlap(c.Specialties, req.Tags)) / float64(len(req.Tags))
	loadScore := 1 - float64(c.CurrentLoad)/float64(c.MaxLoad)

	weight, err := weights.Weight(req.Priority)
	if err != nil {
		weight = 0
	}

	return (loadScore + specialtyScore) * float64(weight)
}

// specialtyOverlap counts how many of the request's tags the counselor
// covers. Duplicate tags are counted once.
func specialtyOverlap(specialties, tags []string) int {
	covered := make(map[string]bool, len(specialties))
	for _, s := range specialties {
		covered[s] = true
	}

	seen := make(map[string]bool, len(tags))
	overlap := 0
	for _, t := range tags {
		if covered[t] && !seen[t] {
			overlap++
		}
		seen[t] = true
	}
	return overlap
}
