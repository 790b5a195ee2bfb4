package srs

// Status is the lifecycle stage of a word.
type Status string

const (
	StatusNew      Status = "new"
	StatusLearning Status = "learning"
	StatusReview   Status = "review"
	StatusMastered Status = "mastered"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusLearning, StatusReview, StatusMastered:
		return true
	}
	return false
}

// DeriveStatus computes the status implied by the scheduling fields.
// It never returns StatusNew: a word leaves New on its first review.
func DeriveStatus(repetitions, box, interval int) Status {
	switch {
	case repetitions == 0:
		return StatusLearning
	case box >= MaxBox && interval >= MasteryInterval:
		return StatusMastered
	case interval >= ReviewInterval:
		return StatusReview
	default:
		return StatusLearning
	}
}

// CanTransition reports whether a single review can move a word from one
// status to another. Nothing moves back to New, and New only ever leaves
// through a review.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if to == StatusNew {
		return false
	}
	if from == StatusNew {
		// A first review leaves repetitions at 0 or 1 and the interval at 1.
		return to == StatusLearning
	}
	return true
}
