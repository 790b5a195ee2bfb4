package session

import (
	"context"
	"fmt"
	"time"

	"github.com/danieldreier/mcp-vocab/internal/srs"
	"github.com/danieldreier/mcp-vocab/internal/storage"
)

// fakeStore is an in-memory Store whose methods can be made to fail by name.
type fakeStore struct {
	words    map[int64]storage.WordWithProgress
	order    []int64
	stats    map[string]storage.DailyStats
	xp       int
	streak   int
	sessions []storage.SessionRecord
	fail     map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		words: make(map[int64]storage.WordWithProgress),
		stats: make(map[string]storage.DailyStats),
		fail:  make(map[string]error),
	}
}

func (f *fakeStore) add(id, deckID int64, p srs.Progress) {
	f.words[id] = storage.WordWithProgress{
		Word:     storage.Word{ID: id, DeckID: deckID, Term: fmt.Sprintf("word-%d", id), Definition: "def"},
		Progress: p,
	}
	f.order = append(f.order, id)
}

func (f *fakeStore) check(method string) error {
	return f.fail[method]
}

func key(t time.Time) string { return srs.Day(t).Format(storage.DateLayout) }

func (f *fakeStore) FetchCandidates(_ context.Context, deckID *int64, today time.Time) ([]storage.WordWithProgress, error) {
	if err := f.check("FetchCandidates"); err != nil {
		return nil, err
	}
	var out []storage.WordWithProgress
	for _, id := range f.order {
		w := f.words[id]
		if deckID != nil && w.Word.DeckID != *deckID {
			continue
		}
		if w.Progress.IsCandidate(today) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeStore) FetchDeckItemsUnfiltered(_ context.Context, deckID int64, limit int) ([]storage.WordWithProgress, error) {
	if err := f.check("FetchDeckItemsUnfiltered"); err != nil {
		return nil, err
	}
	var out []storage.WordWithProgress
	for _, id := range f.order {
		w := f.words[id]
		if w.Word.DeckID == deckID && len(out) < limit {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeStore) PersistProgress(_ context.Context, wordID int64, p srs.Progress) error {
	if err := f.check("PersistProgress"); err != nil {
		return err
	}
	w, ok := f.words[wordID]
	if !ok {
		return storage.ErrWordNotFound
	}
	w.Progress = p
	f.words[wordID] = w
	return nil
}

func (f *fakeStore) IncrementDailyStats(_ context.Context, day time.Time, d storage.StatsDelta) error {
	if err := f.check("IncrementDailyStats"); err != nil {
		return err
	}
	s := f.stats[key(day)]
	s.Date = key(day)
	s.WordsReviewed += d.WordsReviewed
	s.CorrectCount += d.CorrectCount
	s.XPEarned += d.XPEarned
	f.stats[key(day)] = s
	return nil
}

func (f *fakeStore) ReadTotalXP(context.Context) (int, error) {
	return f.xp, f.check("ReadTotalXP")
}

func (f *fakeStore) WriteTotalXP(_ context.Context, xp int) error {
	if err := f.check("WriteTotalXP"); err != nil {
		return err
	}
	f.xp = xp
	return nil
}

func (f *fakeStore) ReadStreak(context.Context) (int, error) {
	return f.streak, f.check("ReadStreak")
}

func (f *fakeStore) WriteStreak(_ context.Context, days int) error {
	if err := f.check("WriteStreak"); err != nil {
		return err
	}
	f.streak = days
	return nil
}

func (f *fakeStore) ReviewedOn(_ context.Context, day time.Time) (bool, error) {
	return f.stats[key(day)].WordsReviewed > 0, f.check("ReviewedOn")
}

func (f *fakeStore) StreakMaintained(_ context.Context, day time.Time) (bool, error) {
	return f.stats[key(day)].StreakMaintained, f.check("StreakMaintained")
}

func (f *fakeStore) MarkStreakMaintained(_ context.Context, day time.Time) error {
	if err := f.check("MarkStreakMaintained"); err != nil {
		return err
	}
	s := f.stats[key(day)]
	s.Date = key(day)
	s.StreakMaintained = true
	f.stats[key(day)] = s
	return nil
}

func (f *fakeStore) CountReviewed(context.Context) (int, error) {
	n := 0
	for _, w := range f.words {
		if w.Progress.TotalReviews > 0 {
			n++
		}
	}
	return n, f.check("CountReviewed")
}

func (f *fakeStore) CountMastered(context.Context) (int, error) {
	n := 0
	for _, w := range f.words {
		if w.Progress.Status == srs.StatusMastered {
			n++
		}
	}
	return n, f.check("CountMastered")
}

func (f *fakeStore) RecordSession(_ context.Context, rec storage.SessionRecord) error {
	if err := f.check("RecordSession"); err != nil {
		return err
	}
	f.sessions = append(f.sessions, rec)
	return nil
}
