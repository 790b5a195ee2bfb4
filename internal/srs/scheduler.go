package srs

import (
	"math"
	"time"
)

// Scheduler computes the next state of a word from a review.
type Scheduler interface {
	// Schedule applies r to p at instant now and returns the updated
	// progress together with its next review date. p is never modified.
	Schedule(p Progress, r Review, now time.Time) (Progress, time.Time, error)

	// Priority scores how urgently p should be reviewed (0..100).
	Priority(p Progress, now time.Time) float64
}

// SM2Scheduler implements Scheduler with SM-2 ease factors combined with a
// five-box Leitner system.
type SM2Scheduler struct{}

// NewSM2Scheduler returns the default scheduler.
func NewSM2Scheduler() *SM2Scheduler {
	return &SM2Scheduler{}
}

// Schedule implements Scheduler.
func (s *SM2Scheduler) Schedule(p Progress, r Review, now time.Time) (Progress, time.Time, error) {
	if err := r.Validate(); err != nil {
		return p, time.Time{}, err
	}
	return Schedule(p, r.Quality, r.HardMode, now)
}

// Priority implements Scheduler.
func (s *SM2Scheduler) Priority(p Progress, now time.Time) float64 {
	return ReviewPriority(p, now)
}

// Schedule is the pure scheduling function behind SM2Scheduler.
//
// Lapses reset the repetition count in both modes. In hard mode the word
// goes back to box 1 with a one day interval; otherwise a word whose
// interval had grown past MasteryInterval keeps 40% of it and half its box.
// Successes advance the box, grow the interval by the pre-update ease
// factor, and apply the Easy bonus and the hard mode dampener.
func Schedule(p Progress, q Quality, hardMode bool, now time.Time) (Progress, time.Time, error) {
	if !q.Valid() {
		return p, time.Time{}, (Review{Quality: q}).Validate()
	}

	next := p
	score := q.Score()

	if q.Failed() {
		next.CorrectStreak = 0
		next.WrongCount++
		next.Repetitions = 0

		if hardMode {
			next.Interval = 1
			next.Box = MinBox
			next.EaseFactor = math.Max(MinEaseFactor, next.EaseFactor-0.3)
		} else {
			if next.Interval > MasteryInterval {
				next.Interval = int(math.Ceil(float64(next.Interval) * 0.4))
				next.Box = max(2, int(math.Ceil(float64(next.Box)/2)))
			} else {
				next.Interval = 1
				next.Box = MinBox
			}
			next.EaseFactor = math.Max(MinEaseFactor, next.EaseFactor-0.15)
		}
	} else {
		next.Repetitions++
		next.CorrectStreak++
		next.Box = min(MaxBox, next.Box+1)

		switch next.Repetitions {
		case 1:
			next.Interval = 1
		case 2:
			next.Interval = 6
		default:
			next.Interval = int(math.Round(float64(next.Interval) * next.EaseFactor))
		}

		if q == Easy {
			next.Interval = int(math.Round(float64(next.Interval) * 1.3))
			next.EaseFactor += 0.15
		}

		if hardMode {
			next.Interval = max(1, int(math.Round(float64(next.Interval)*0.6)))
		}

		d := float64(5 - score)
		next.EaseFactor = math.Max(MinEaseFactor, next.EaseFactor+(0.1-d*(0.08+d*0.02)))
	}

	next.Status = DeriveStatus(next.Repetitions, next.Box, next.Interval)
	next.TotalReviews++

	due := Day(now).AddDate(0, 0, next.Interval)
	reviewed := now
	next.NextReviewDate = &due
	next.LastReviewedAt = &reviewed

	return next, due, nil
}

// ReviewPriority scores a word for smart ordering. Hard words, frequently
// missed words and overdue words score higher; long correct streaks lower
// the score. The result is clamped to [0, 100].
func ReviewPriority(p Progress, now time.Time) float64 {
	priority := 50.0
	priority += (DefaultEaseFactor - p.EaseFactor) * 20
	priority += float64(p.WrongCount) * 5
	priority -= float64(p.CorrectStreak) * 3

	if p.NextReviewDate != nil {
		daysOverdue := math.Floor(now.Sub(*p.NextReviewDate).Hours() / 24)
		if daysOverdue > 0 {
			priority += daysOverdue * 10
		}
	}

	return math.Max(0, math.Min(100, priority))
}

// avgDaysPerBox is the typical time a word spends in each Leitner box.
var avgDaysPerBox = [MaxBox]int{1, 3, 5, 10, 14}

// PredictMasteryDate estimates when p will reach the top box, assuming
// average progress through the remaining boxes.
func PredictMasteryDate(p Progress, now time.Time) time.Time {
	if p.Box >= MaxBox {
		return now
	}
	box := max(p.Box, MinBox)
	days := 0
	for i := box - 1; i < MaxBox; i++ {
		days += avgDaysPerBox[i]
	}
	return now.AddDate(0, 0, days)
}
