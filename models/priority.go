package models

import "fmt"

// Priority classifies how urgent a support request is.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priority levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// PriorityWeights maps each priority to the capacity units one assignment
// consumes. The same table multiplies the suitability score, so a high
// priority request both ranks counselors more aggressively and takes more of
// the winner's capacity once committed: the load increment is the weight,
// not a flat +1.
//
// The table is loaded from configuration and carries a version tag so weight
// changes can be rolled out and audited like any other config change.
type PriorityWeights struct {
	Version string           `json:"version"`
	Weights map[Priority]int `json:"weights"`
}

// DefaultPriorityWeights returns the v1 weight table: low=1, medium=2, high=3.
func DefaultPriorityWeights() PriorityWeights {
	return PriorityWeights{
		Version: "v1",
		Weights: map[Priority]int{
			PriorityLow:    1,
			PriorityMedium: 2,
			PriorityHigh:   3,
		},
	}
}

// Weight returns the capacity units consumed by a request of priority p.
func (pw PriorityWeights) Weight(p Priority) (int, error) {
	w, ok := pw.Weights[p]
	if !ok {
		return 0, fmt.Errorf("no weight configured for priority %q (table version %s)", p, pw.Version)
	}
	return w, nil
}
