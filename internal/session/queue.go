// Package session builds and drives study sessions: it selects the words to
// present, orders and bounds them, runs the flip/answer protocol for each
// card and re-queues missed words for a second look.
package session

import (
	"math/rand"
	"sort"
	"time"

	"github.com/danieldreier/mcp-vocab/internal/srs"
	"github.com/danieldreier/mcp-vocab/internal/storage"
)

// CardState is the presentation state of the current card.
type CardState int

const (
	AwaitingFlip CardState = iota
	AwaitingAnswer
	Answered
)

func (s CardState) String() string {
	switch s {
	case AwaitingFlip:
		return "awaiting_flip"
	case AwaitingAnswer:
		return "awaiting_answer"
	case Answered:
		return "answered"
	}
	return "unknown"
}

// Mode names the kind of study session. Quiz sessions earn bonus XP.
type Mode string

const (
	ModeLearn Mode = "learn"
	ModeQuiz  Mode = "quiz"
)

// Entry is one presentation slot in a queue.
type Entry struct {
	Item storage.WordWithProgress `json:"item"`
	// Redrill marks an entry appended after the word was missed earlier in
	// the same session.
	Redrill bool `json:"redrill"`
}

// Stats aggregates the answers given in one session.
type Stats struct {
	Answered int `json:"answered"`
	Correct  int `json:"correct"`
	Again    int `json:"again"`
	XPEarned int `json:"xp_earned"`
}

// Queue is the ordered sequence of cards for one study session. A Queue is
// owned by a single caller and is not safe for concurrent use.
type Queue struct {
	ID        string
	DeckID    *int64
	Mode      Mode
	HardMode  bool
	Cram      bool
	StartedAt time.Time

	entries  []Entry
	cursor   int
	state    CardState
	complete bool
	finished bool
	stats    Stats
	redrills map[int64]int
}

func newQueue(id string, items []storage.WordWithProgress) *Queue {
	q := &Queue{
		ID:       id,
		entries:  make([]Entry, 0, len(items)),
		redrills: make(map[int64]int),
	}
	for _, it := range items {
		q.entries = append(q.entries, Entry{Item: it})
	}
	if len(q.entries) == 0 {
		// Nothing to study. There is nothing to record either.
		q.complete = true
		q.finished = true
		q.state = Answered
	}
	return q
}

// Len returns the number of presentation slots, including redrills.
func (q *Queue) Len() int { return len(q.entries) }

// Empty reports whether the session had nothing to study.
func (q *Queue) Empty() bool { return len(q.entries) == 0 }

// Complete reports whether every card has been answered.
func (q *Queue) Complete() bool { return q.complete }

// Finished reports whether completion bookkeeping (streak and history) has
// been written.
func (q *Queue) Finished() bool { return q.finished }

// Position returns the zero-based cursor.
func (q *Queue) Position() int { return q.cursor }

// State returns the presentation state of the current card.
func (q *Queue) State() CardState { return q.state }

// Stats returns the session aggregates so far.
func (q *Queue) Stats() Stats { return q.stats }

// Current returns the card under the cursor, or false once the session is
// complete.
func (q *Queue) Current() (Entry, bool) {
	if q.complete || q.cursor >= len(q.entries) {
		return Entry{}, false
	}
	return q.entries[q.cursor], true
}

// Entries returns a copy of all slots in presentation order.
func (q *Queue) Entries() []Entry {
	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	return out
}

// Remaining counts the cards not yet answered, the current one included.
func (q *Queue) Remaining() int {
	if q.complete {
		return 0
	}
	return len(q.entries) - q.cursor
}

func (q *Queue) flip() bool {
	if q.complete || q.state != AwaitingFlip {
		return false
	}
	q.state = AwaitingAnswer
	return true
}

// advance moves to the next card and reports whether the session just
// completed.
func (q *Queue) advance() bool {
	if q.cursor < len(q.entries)-1 {
		q.cursor++
		q.state = AwaitingFlip
		return false
	}
	q.state = Answered
	q.complete = true
	return true
}

// drop removes every slot of wordID from the cursor on and reports whether
// the session is now complete.
func (q *Queue) drop(wordID int64) bool {
	kept := q.entries[:q.cursor]
	for _, e := range q.entries[q.cursor:] {
		if e.Item.Word.ID != wordID {
			kept = append(kept, e)
		}
	}
	q.entries = kept
	if q.cursor < len(q.entries) {
		q.state = AwaitingFlip
		return false
	}
	q.state = Answered
	q.complete = true
	return true
}

// updateProgress replaces the progress of every slot holding wordID, so a
// redrill or a restarted session starts from the latest schedule.
func (q *Queue) updateProgress(wordID int64, p srs.Progress) {
	for i := range q.entries {
		if q.entries[i].Item.Word.ID == wordID {
			q.entries[i].Item.Progress = p
		}
	}
}

// OrderOptions controls BuildOrder.
type OrderOptions struct {
	// Size bounds the result. Zero or negative means unbounded.
	Size int
	// ByPriority orders due words by descending review priority instead of
	// ascending due date.
	ByPriority bool
	Priority   func(p srs.Progress, now time.Time) float64
	Now        time.Time
	// Rand shuffles new words. Nil leaves them in input order.
	Rand *rand.Rand
}

// BuildOrder arranges session candidates: words already in rotation come
// first, oldest due date first (undated first, ties by ID), followed by the
// shuffled new words. The result is truncated to opts.Size.
func BuildOrder(candidates []storage.WordWithProgress, opts OrderOptions) []storage.WordWithProgress {
	var due, fresh []storage.WordWithProgress
	for _, c := range candidates {
		if c.Progress.Status == srs.StatusNew {
			fresh = append(fresh, c)
		} else {
			due = append(due, c)
		}
	}

	if opts.ByPriority && opts.Priority != nil {
		scores := make(map[int64]float64, len(due))
		for _, d := range due {
			scores[d.Word.ID] = opts.Priority(d.Progress, opts.Now)
		}
		sort.SliceStable(due, func(i, j int) bool {
			si, sj := scores[due[i].Word.ID], scores[due[j].Word.ID]
			if si != sj {
				return si > sj
			}
			return due[i].Word.ID < due[j].Word.ID
		})
	} else {
		sort.SliceStable(due, func(i, j int) bool {
			return dueBefore(due[i], due[j])
		})
	}

	if opts.Rand != nil {
		opts.Rand.Shuffle(len(fresh), func(i, j int) {
			fresh[i], fresh[j] = fresh[j], fresh[i]
		})
	}

	ordered := append(due, fresh...)
	if opts.Size > 0 && len(ordered) > opts.Size {
		ordered = ordered[:opts.Size]
	}
	return ordered
}

func dueBefore(a, b storage.WordWithProgress) bool {
	da, db := a.Progress.NextReviewDate, b.Progress.NextReviewDate
	switch {
	case da == nil && db != nil:
		return true
	case da != nil && db == nil:
		return false
	case da != nil && db != nil && !da.Equal(*db):
		return da.Before(*db)
	}
	return a.Word.ID < b.Word.ID
}
