// Package srs implements the per-word SM-2 + Leitner box scheduler used by
// study sessions.
package srs

import (
	"fmt"
	"time"
)

// Scheduling constants shared by the scheduler and the priority score.
const (
	DefaultEaseFactor = 2.5
	MinEaseFactor     = 1.3
	MinBox            = 1
	MaxBox            = 5
	MasteryInterval   = 21 // days; also the soft-lapse threshold
	ReviewInterval    = 7  // days
)

// Quality is the learner's self-rating for one presentation of a word.
type Quality int

const (
	Again Quality = 1
	Good  Quality = 2
	Easy  Quality = 3
)

// ParseQuality converts a raw rating (1, 2 or 3) into a Quality.
func ParseQuality(v int) (Quality, error) {
	q := Quality(v)
	if !q.Valid() {
		return 0, &ValidationError{Field: "quality", Reason: fmt.Sprintf("%d is not one of 1 (again), 2 (good), 3 (easy)", v), Err: ErrInvalidQuality}
	}
	return q, nil
}

// Valid reports whether q is one of Again, Good or Easy.
func (q Quality) Valid() bool {
	return q == Again || q == Good || q == Easy
}

// Score maps the rating onto the SM-2 0..5 scale.
func (q Quality) Score() int {
	switch q {
	case Again:
		return 0
	case Good:
		return 3
	default:
		return 5
	}
}

// Failed reports whether the rating counts as a lapse.
func (q Quality) Failed() bool {
	return q.Score() < 3
}

func (q Quality) String() string {
	switch q {
	case Again:
		return "again"
	case Good:
		return "good"
	case Easy:
		return "easy"
	}
	return fmt.Sprintf("quality(%d)", int(q))
}

// Progress is the scheduling state of one word.
type Progress struct {
	EaseFactor     float64    `json:"ease_factor"`
	Interval       int        `json:"interval"`
	Repetitions    int        `json:"repetitions"`
	Box            int        `json:"leitner_box"`
	CorrectStreak  int        `json:"correct_streak"`
	WrongCount     int        `json:"wrong_count"`
	TotalReviews   int        `json:"total_reviews"`
	Status         Status     `json:"status"`
	NextReviewDate *time.Time `json:"next_review,omitempty"`
	LastReviewedAt *time.Time `json:"last_reviewed,omitempty"`
}

// NewProgress returns the progress of a word that has never been reviewed.
func NewProgress() Progress {
	return Progress{
		EaseFactor: DefaultEaseFactor,
		Box:        MinBox,
		Status:     StatusNew,
	}
}

// Validate checks the field bounds of p.
func (p Progress) Validate() error {
	switch {
	case p.EaseFactor < MinEaseFactor:
		return &ValidationError{Field: "ease_factor", Reason: fmt.Sprintf("%.2f is below %.1f", p.EaseFactor, MinEaseFactor), Err: ErrInvalidProgress}
	case p.Interval < 0:
		return &ValidationError{Field: "interval", Reason: "must not be negative", Err: ErrInvalidProgress}
	case p.Repetitions < 0:
		return &ValidationError{Field: "repetitions", Reason: "must not be negative", Err: ErrInvalidProgress}
	case p.Box < MinBox || p.Box > MaxBox:
		return &ValidationError{Field: "leitner_box", Reason: fmt.Sprintf("%d is outside [%d,%d]", p.Box, MinBox, MaxBox), Err: ErrInvalidProgress}
	case p.CorrectStreak < 0 || p.WrongCount < 0 || p.TotalReviews < 0:
		return &ValidationError{Field: "counters", Reason: "must not be negative", Err: ErrInvalidProgress}
	case !p.Status.Valid():
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", p.Status), Err: ErrInvalidProgress}
	}
	return nil
}

// IsDue reports whether the word's next review falls on or before today.
// A word without a next review date is always due.
func (p Progress) IsDue(today time.Time) bool {
	if p.NextReviewDate == nil {
		return true
	}
	return !Day(*p.NextReviewDate).After(Day(today))
}

// IsCandidate reports whether the word may be picked for a session started
// today: new and learning words always qualify, others only when due.
func (p Progress) IsCandidate(today time.Time) bool {
	if p.Status == StatusNew || p.Status == StatusLearning {
		return true
	}
	return p.IsDue(today)
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Review is one rating submitted for a word.
type Review struct {
	Quality        Quality
	ResponseTimeMs int64
	HardMode       bool
}

// Validate rejects malformed ratings and negative response times.
func (r Review) Validate() error {
	if !r.Quality.Valid() {
		return &ValidationError{Field: "quality", Reason: fmt.Sprintf("%d is not one of 1 (again), 2 (good), 3 (easy)", int(r.Quality)), Err: ErrInvalidQuality}
	}
	if r.ResponseTimeMs < 0 {
		return &ValidationError{Field: "response_time_ms", Reason: "must not be negative", Err: ErrInvalidResponseTime}
	}
	return nil
}
