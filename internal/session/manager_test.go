package session

import (
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/danieldreier/mcp-vocab/internal/srs"
	"github.com/danieldreier/mcp-vocab/internal/storage"
)

var testNow = time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)

var errDisk = errors.New("disk full")

func daysFromNow(n int) *time.Time {
	t := srs.Day(testNow).AddDate(0, 0, n)
	return &t
}

func reviewProgress(nextReview *time.Time) srs.Progress {
	return srs.Progress{
		EaseFactor:     2.5,
		Interval:       10,
		Repetitions:    3,
		Box:            3,
		CorrectStreak:  3,
		TotalReviews:   3,
		Status:         srs.StatusReview,
		NextReviewDate: nextReview,
	}
}

func learningProgress() srs.Progress {
	return srs.Progress{
		EaseFactor:   2.5,
		Interval:     1,
		Repetitions:  1,
		Box:          2,
		TotalReviews: 1,
		Status:       srs.StatusLearning,
	}
}

func newTestManager(store Store, opts ...Option) *Manager {
	base := []Option{
		WithClock(func() time.Time { return testNow }),
		WithRand(rand.New(rand.NewSource(42))),
	}
	return NewManager(store, nil, append(base, opts...)...)
}

func wordIDs(q *Queue) []int64 {
	var ids []int64
	for _, e := range q.Entries() {
		ids = append(ids, e.Item.Word.ID)
	}
	return ids
}

func answer(t *testing.T, m *Manager, q *Queue, quality srs.Quality) AnswerResult {
	t.Helper()
	require.True(t, m.Flip(q), "flip")
	res, err := m.Answer(context.Background(), q, srs.Review{Quality: quality, ResponseTimeMs: 1200})
	require.NoError(t, err)
	return res
}

func TestStartOrdersDueBeforeNewAndBounds(t *testing.T) {
	build := func() []int64 {
		store := newFakeStore()
		store.add(1, 1, reviewProgress(daysFromNow(-1)))
		store.add(2, 1, reviewProgress(daysFromNow(-3)))
		store.add(3, 1, reviewProgress(daysFromNow(-2)))
		for id := int64(4); id <= 10; id++ {
			store.add(id, 1, srs.NewProgress())
		}
		m := newTestManager(store)
		q, err := m.Start(context.Background(), StartOptions{Size: 5})
		require.NoError(t, err)
		return wordIDs(q)
	}

	ids := build()
	require.Len(t, ids, 5)
	assert.Equal(t, []int64{2, 3, 1}, ids[:3], "due words come first, oldest first")
	for _, id := range ids[3:] {
		assert.GreaterOrEqual(t, id, int64(4))
	}
	assert.NotEqual(t, ids[3], ids[4])
	assert.Equal(t, ids, build(), "same seed gives the same order")
}

func TestBuildOrder(t *testing.T) {
	item := func(id int64, p srs.Progress) storage.WordWithProgress {
		return storage.WordWithProgress{Word: storage.Word{ID: id}, Progress: p}
	}

	t.Run("undated first then by date then by id", func(t *testing.T) {
		in := []storage.WordWithProgress{
			item(5, reviewProgress(daysFromNow(-1))),
			item(4, learningProgress()),
			item(3, reviewProgress(daysFromNow(-2))),
			item(2, reviewProgress(daysFromNow(-1))),
			item(1, learningProgress()),
		}
		got := BuildOrder(in, OrderOptions{Now: testNow})
		var ids []int64
		for _, w := range got {
			ids = append(ids, w.Word.ID)
		}
		assert.Equal(t, []int64{1, 4, 3, 2, 5}, ids)
	})

	t.Run("priority order", func(t *testing.T) {
		struggling := reviewProgress(daysFromNow(0))
		struggling.EaseFactor = 1.3
		struggling.WrongCount = 4
		struggling.CorrectStreak = 0
		in := []storage.WordWithProgress{
			item(1, reviewProgress(daysFromNow(-1))),
			item(2, struggling),
		}
		got := BuildOrder(in, OrderOptions{ByPriority: true, Priority: srs.ReviewPriority, Now: testNow})
		require.Len(t, got, 2)
		assert.Equal(t, int64(2), got[0].Word.ID)
	})

	t.Run("unbounded without rand keeps new words in input order", func(t *testing.T) {
		in := []storage.WordWithProgress{
			item(9, srs.NewProgress()),
			item(7, srs.NewProgress()),
			item(8, reviewProgress(daysFromNow(-1))),
		}
		got := BuildOrder(in, OrderOptions{Now: testNow})
		var ids []int64
		for _, w := range got {
			ids = append(ids, w.Word.ID)
		}
		assert.Equal(t, []int64{8, 9, 7}, ids)
	})
}

func TestStartSizeBounds(t *testing.T) {
	store := newFakeStore()
	for id := int64(1); id <= 150; id++ {
		store.add(id, 1, srs.NewProgress())
	}
	m := newTestManager(store)

	q, err := m.Start(context.Background(), StartOptions{})
	require.NoError(t, err)
	assert.Equal(t, DefaultSessionSize, q.Len())

	q, err = m.Start(context.Background(), StartOptions{Size: 500})
	require.NoError(t, err)
	assert.Equal(t, MaxSessionSize, q.Len())
}

func TestStartCramAndEmpty(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.add(1, 1, reviewProgress(daysFromNow(5)))
	store.add(2, 1, reviewProgress(daysFromNow(9)))
	m := newTestManager(store)

	deck := int64(1)
	q, err := m.Start(ctx, StartOptions{DeckID: &deck})
	require.NoError(t, err)
	assert.True(t, q.Cram)
	assert.Equal(t, 2, q.Len())
	assert.False(t, q.Complete())

	// Without a deck there is no cram fallback.
	q, err = m.Start(ctx, StartOptions{})
	require.NoError(t, err)
	assert.True(t, q.Empty())
	assert.True(t, q.Complete())
	assert.True(t, q.Finished())
	assert.False(t, q.Cram)
	_, ok := q.Current()
	assert.False(t, ok)

	empty := int64(2)
	q, err = m.Start(ctx, StartOptions{DeckID: &empty})
	require.NoError(t, err)
	assert.True(t, q.Empty())
	assert.False(t, q.Cram)

	// Finishing an empty session writes nothing.
	summary, err := m.Finish(ctx, q)
	require.NoError(t, err)
	assert.Zero(t, summary.Answered)
	assert.Empty(t, store.sessions)
}

func TestStartFetchError(t *testing.T) {
	store := newFakeStore()
	store.fail["FetchCandidates"] = errDisk
	_, err := newTestManager(store).Start(context.Background(), StartOptions{})
	assert.ErrorIs(t, err, errDisk)
}

func TestFlipAndAnswerProtocol(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.add(1, 1, srs.NewProgress())
	m := newTestManager(store)
	q, err := m.Start(ctx, StartOptions{})
	require.NoError(t, err)

	_, err = m.Answer(ctx, q, srs.Review{Quality: srs.Good})
	assert.ErrorIs(t, err, ErrNotFlipped)

	assert.True(t, m.Flip(q))
	assert.False(t, m.Flip(q), "second flip is a no-op")
	assert.Equal(t, AwaitingAnswer, q.State())

	_, err = m.Answer(ctx, q, srs.Review{Quality: srs.Quality(7)})
	assert.ErrorIs(t, err, srs.ErrInvalidQuality)
	_, err = m.Answer(ctx, q, srs.Review{Quality: srs.Good, ResponseTimeMs: -1})
	assert.ErrorIs(t, err, srs.ErrInvalidResponseTime)
	assert.Equal(t, 0, store.xp)
	assert.Equal(t, AwaitingAnswer, q.State())
	assert.Equal(t, Stats{}, q.Stats())

	res, err := m.Answer(ctx, q, srs.Review{Quality: srs.Good})
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.True(t, q.Complete())
	assert.False(t, m.Flip(q), "flip after completion is a no-op")

	_, err = m.Answer(ctx, q, srs.Review{Quality: srs.Good})
	assert.ErrorIs(t, err, ErrSessionComplete)
}

func TestAnswerRecordsEverything(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.add(1, 1, srs.NewProgress())
	store.add(2, 1, srs.NewProgress())

	var signals []Signals
	m := newTestManager(store, WithEventSink(SinkFunc(func(_ context.Context, s Signals) {
		signals = append(signals, s)
	})))
	q, err := m.Start(ctx, StartOptions{})
	require.NoError(t, err)
	first, _ := q.Current()

	res := answer(t, m, q, srs.Good)
	assert.Equal(t, first.Item.Word.ID, res.WordID)
	assert.Equal(t, 10, res.XPEarned)
	assert.Equal(t, 10, res.TotalXP)
	assert.Equal(t, 1, res.Progress.Repetitions)
	assert.Equal(t, srs.StatusLearning, res.Progress.Status)
	assert.Equal(t, srs.Day(testNow).AddDate(0, 0, 1), res.NextReview)
	assert.False(t, res.Complete)
	assert.Nil(t, res.Summary)

	if diff := cmp.Diff(res.Progress, store.words[res.WordID].Progress); diff != "" {
		t.Errorf("stored progress mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, storage.DailyStats{Date: "2024-03-10", WordsReviewed: 1, CorrectCount: 1, XPEarned: 10}, store.stats["2024-03-10"])
	assert.Equal(t, 1, q.Position())
	assert.Equal(t, AwaitingFlip, q.State())
	assert.Equal(t, Stats{Answered: 1, Correct: 1, XPEarned: 10}, q.Stats())

	require.Len(t, signals, 1)
	assert.Equal(t, Signals{
		SessionID:          q.ID,
		WordID:             res.WordID,
		Quality:            srs.Good,
		WordsTotalReviewed: 1,
		MasteredCount:      0,
		ResponseTimeMs:     1200,
		HourOfDay:          15,
	}, signals[0])

	res = answer(t, m, q, srs.Easy)
	assert.Equal(t, 15, res.XPEarned)
	assert.True(t, res.Complete)
	require.NotNil(t, res.Summary)
	assert.Equal(t, 1, res.Summary.Streak)
	assert.Equal(t, Stats{Answered: 2, Correct: 2, XPEarned: 25}, res.Summary.Stats)
	assert.Equal(t, q.ID, res.Summary.SessionID)

	require.Len(t, store.sessions, 1)
	rec := store.sessions[0]
	assert.Equal(t, q.ID, rec.ID)
	assert.Equal(t, "learn", rec.Mode)
	assert.Equal(t, 2, rec.WordsStudied)
	assert.Equal(t, 25, rec.XPEarned)
	assert.Equal(t, 1, store.streak)
	assert.True(t, store.stats["2024-03-10"].StreakMaintained)
}

func TestAnswerXP(t *testing.T) {
	tests := []struct {
		name    string
		mode    Mode
		streak  int
		quality srs.Quality
		want    int
	}{
		{name: "learn good", mode: ModeLearn, quality: srs.Good, want: 10},
		{name: "quiz good", mode: ModeQuiz, quality: srs.Good, want: 12},
		{name: "learn good with streak", mode: ModeLearn, streak: 4, quality: srs.Good, want: 12},
		{name: "quiz good with streak", mode: ModeQuiz, streak: 4, quality: srs.Good, want: 14},
		{name: "again still earns", mode: ModeLearn, quality: srs.Again, want: 5},
		{name: "streak bonus caps", mode: ModeLearn, streak: 30, quality: srs.Easy, want: 23},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			store.streak = tt.streak
			store.add(1, 1, srs.NewProgress())
			m := newTestManager(store)
			q, err := m.Start(context.Background(), StartOptions{Mode: tt.mode})
			require.NoError(t, err)
			res := answer(t, m, q, tt.quality)
			assert.Equal(t, tt.want, res.XPEarned)
		})
	}
}

func TestAnswerLevelUp(t *testing.T) {
	store := newFakeStore()
	store.xp = 95
	store.add(1, 1, srs.NewProgress())
	m := newTestManager(store)
	q, err := m.Start(context.Background(), StartOptions{})
	require.NoError(t, err)

	res := answer(t, m, q, srs.Good)
	assert.True(t, res.LeveledUp)
	assert.Equal(t, 2, res.Level.Level)
	assert.Equal(t, "Learner", res.Level.Title)
	assert.Equal(t, 105, store.xp)
}

func TestAnswerHardModeFromQueue(t *testing.T) {
	store := newFakeStore()
	store.add(1, 1, learningProgress())
	m := newTestManager(store)
	q, err := m.Start(context.Background(), StartOptions{HardMode: true})
	require.NoError(t, err)

	res := answer(t, m, q, srs.Again)
	assert.InDelta(t, 2.2, res.Progress.EaseFactor, 1e-9)
	assert.Equal(t, 1, res.Progress.Box)
}

func TestRequeuePolicies(t *testing.T) {
	t.Run("again requeues once", func(t *testing.T) {
		store := newFakeStore()
		store.add(1, 1, learningProgress())
		store.add(2, 1, learningProgress())
		m := newTestManager(store)
		q, err := m.Start(context.Background(), StartOptions{})
		require.NoError(t, err)
		require.Equal(t, []int64{1, 2}, wordIDs(q))

		res := answer(t, m, q, srs.Again)
		assert.True(t, res.Requeued)
		assert.Equal(t, []int64{1, 2, 1}, wordIDs(q))
		redrill := q.Entries()[2]
		assert.True(t, redrill.Redrill)
		assert.Equal(t, res.Progress, redrill.Item.Progress)

		answer(t, m, q, srs.Good)
		res = answer(t, m, q, srs.Again)
		assert.False(t, res.Requeued, "one redrill per word")
		assert.True(t, res.Complete)
		assert.Equal(t, 3, store.words[1].Progress.TotalReviews)
		assert.Equal(t, Stats{Answered: 3, Correct: 1, Again: 2, XPEarned: 20}, q.Stats())
	})

	t.Run("none never requeues", func(t *testing.T) {
		store := newFakeStore()
		store.add(1, 1, learningProgress())
		m := newTestManager(store, WithConfig(Config{Requeue: RequeueNone}))
		q, err := m.Start(context.Background(), StartOptions{})
		require.NoError(t, err)

		res := answer(t, m, q, srs.Again)
		assert.False(t, res.Requeued)
		assert.True(t, res.Complete)
		assert.Equal(t, 1, q.Len())
	})

	t.Run("max redrills", func(t *testing.T) {
		store := newFakeStore()
		store.add(1, 1, learningProgress())
		m := newTestManager(store, WithConfig(Config{Requeue: RequeueOnAgain, MaxRedrills: 2}))
		q, err := m.Start(context.Background(), StartOptions{})
		require.NoError(t, err)

		assert.True(t, answer(t, m, q, srs.Again).Requeued)
		assert.True(t, answer(t, m, q, srs.Again).Requeued)
		res := answer(t, m, q, srs.Again)
		assert.False(t, res.Requeued)
		assert.True(t, res.Complete)
		assert.Equal(t, 3, q.Len())
	})
}

func TestParseRequeuePolicy(t *testing.T) {
	p, err := ParseRequeuePolicy("none")
	require.NoError(t, err)
	assert.Equal(t, RequeueNone, p)

	_, err = ParseRequeuePolicy("sometimes")
	assert.Error(t, err)
}

func TestAnswerPersistenceFailureLeavesQueueUnchanged(t *testing.T) {
	for _, method := range []string{"ReadStreak", "PersistProgress", "IncrementDailyStats", "WriteTotalXP", "CountMastered"} {
		t.Run(method, func(t *testing.T) {
			ctx := context.Background()
			store := newFakeStore()
			store.add(1, 1, learningProgress())
			store.add(2, 1, learningProgress())
			m := newTestManager(store)
			q, err := m.Start(ctx, StartOptions{})
			require.NoError(t, err)
			before := q.Entries()

			store.fail[method] = errDisk
			require.True(t, m.Flip(q))
			_, err = m.Answer(ctx, q, srs.Review{Quality: srs.Again})
			require.ErrorIs(t, err, ErrPersistence)
			assert.ErrorIs(t, err, errDisk)

			assert.Equal(t, 0, q.Position())
			assert.Equal(t, AwaitingAnswer, q.State())
			assert.Equal(t, Stats{}, q.Stats())
			if diff := cmp.Diff(before, q.Entries()); diff != "" {
				t.Errorf("queue changed (-before +after):\n%s", diff)
			}

			delete(store.fail, method)
			res, err := m.Answer(ctx, q, srs.Review{Quality: srs.Again})
			require.NoError(t, err)
			assert.True(t, res.Requeued)
			assert.Equal(t, 1, q.Position())
		})
	}
}

func TestAnswerSkipsDeletedWord(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.add(1, 1, learningProgress())
	store.add(2, 1, learningProgress())
	m := newTestManager(store)
	q, err := m.Start(ctx, StartOptions{})
	require.NoError(t, err)
	ids := wordIDs(q)
	require.Len(t, ids, 2)
	missed, kept := ids[0], ids[1]

	res := answer(t, m, q, srs.Again)
	require.True(t, res.Requeued)
	assert.Equal(t, []int64{missed, kept, missed}, wordIDs(q))
	delete(store.words, missed)

	res = answer(t, m, q, srs.Good)
	assert.False(t, res.Complete)
	xp := store.xp

	require.True(t, m.Flip(q))
	res, err = m.Answer(ctx, q, srs.Review{Quality: srs.Good})
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, missed, res.WordID)
	assert.Zero(t, res.XPEarned)
	assert.True(t, res.Complete)
	require.NotNil(t, res.Summary)
	assert.Equal(t, 2, res.Summary.Answered)
	assert.Equal(t, xp, store.xp)
	assert.Equal(t, []int64{missed, kept}, wordIDs(q))
	assert.Len(t, store.sessions, 1)
}

func TestAnswerSkipsDeletedWordMidQueue(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.add(1, 1, learningProgress())
	store.add(2, 1, learningProgress())
	m := newTestManager(store)
	q, err := m.Start(ctx, StartOptions{})
	require.NoError(t, err)
	ids := wordIDs(q)
	delete(store.words, ids[0])

	require.True(t, m.Flip(q))
	res, err := m.Answer(ctx, q, srs.Review{Quality: srs.Easy})
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.False(t, res.Complete)
	assert.Equal(t, AwaitingFlip, q.State())
	cur, ok := q.Current()
	require.True(t, ok)
	assert.Equal(t, ids[1], cur.Item.Word.ID)

	delete(store.words, ids[1])
	require.True(t, m.Flip(q))
	res, err = m.Answer(ctx, q, srs.Review{Quality: srs.Good})
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Nil(t, res.Summary, "no answers were recorded")
	assert.True(t, q.Finished())
	assert.Empty(t, store.sessions)
	assert.Zero(t, store.streak)
	assert.Zero(t, store.xp)
}

func TestFinishRetry(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.add(1, 1, srs.NewProgress())
	m := newTestManager(store)
	q, err := m.Start(ctx, StartOptions{})
	require.NoError(t, err)

	_, err = m.Finish(ctx, q)
	assert.ErrorIs(t, err, ErrNotComplete)

	store.fail["RecordSession"] = errDisk
	require.True(t, m.Flip(q))
	res, err := m.Answer(ctx, q, srs.Review{Quality: srs.Good})
	require.ErrorIs(t, err, ErrFinish)
	assert.True(t, res.Complete)
	assert.Equal(t, 10, res.XPEarned)
	assert.True(t, q.Complete())
	assert.False(t, q.Finished())
	assert.Equal(t, 1, store.streak)

	delete(store.fail, "RecordSession")
	summary, err := m.Finish(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Streak, "streak is maintained once per day")
	assert.True(t, q.Finished())
	require.Len(t, store.sessions, 1)

	_, err = m.Finish(ctx, q)
	require.NoError(t, err)
	assert.Len(t, store.sessions, 1)
}

func TestMaintainStreak(t *testing.T) {
	yesterday := srs.Day(testNow).AddDate(0, 0, -1).Format(storage.DateLayout)
	today := srs.Day(testNow).Format(storage.DateLayout)

	tests := []struct {
		name       string
		current    int
		studiedYes bool
		maintained bool
		want       int
	}{
		{name: "first day", current: 0, want: 1},
		{name: "continues", current: 4, studiedYes: true, want: 5},
		{name: "broken", current: 4, want: 1},
		{name: "already maintained", current: 4, maintained: true, want: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			store.streak = tt.current
			if tt.studiedYes {
				store.stats[yesterday] = storage.DailyStats{Date: yesterday, WordsReviewed: 3}
			}
			if tt.maintained {
				store.stats[today] = storage.DailyStats{Date: today, StreakMaintained: true}
			}
			m := newTestManager(store)

			got, err := m.MaintainStreak(context.Background(), testNow)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, store.streak)

			again, err := m.MaintainStreak(context.Background(), testNow)
			require.NoError(t, err)
			assert.Equal(t, tt.want, again, "second call the same day changes nothing")
		})
	}
}

func TestRestart(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.add(1, 1, learningProgress())
	store.add(2, 1, learningProgress())
	m := newTestManager(store)
	q, err := m.Start(ctx, StartOptions{})
	require.NoError(t, err)
	firstID := q.ID

	answer(t, m, q, srs.Again)
	answer(t, m, q, srs.Good)
	res := answer(t, m, q, srs.Good)
	require.True(t, res.Complete)

	m.Restart(q)
	assert.NotEqual(t, firstID, q.ID)
	assert.Equal(t, []int64{1, 2}, wordIDs(q))
	assert.Equal(t, 0, q.Position())
	assert.Equal(t, AwaitingFlip, q.State())
	assert.False(t, q.Complete())
	assert.False(t, q.Finished())
	assert.Equal(t, Stats{}, q.Stats())
	for _, e := range q.Entries() {
		assert.Equal(t, store.words[e.Item.Word.ID].Progress, e.Item.Progress)
	}

	res = answer(t, m, q, srs.Again)
	assert.True(t, res.Requeued, "redrill budget resets on restart")
}

func TestSessionWithFileStorage(t *testing.T) {
	ctx := context.Background()
	fs := storage.NewFileStorage(filepath.Join(t.TempDir(), "vocab.json"), zap.NewNop())
	require.NoError(t, fs.Load())

	deck, err := fs.CreateDeck(ctx, "Spanish", "")
	require.NoError(t, err)
	for _, term := range []string{"perro", "gato", "casa"} {
		_, err := fs.CreateWord(ctx, storage.WordInput{DeckID: deck.ID, Term: term, Definition: "x"})
		require.NoError(t, err)
	}

	m := newTestManager(fs, WithLogger(zap.NewNop()), WithEventSink(LogSink{Logger: zap.NewNop()}))
	q, err := m.Start(ctx, StartOptions{DeckID: &deck.ID})
	require.NoError(t, err)
	require.Equal(t, 3, q.Len())

	var last AnswerResult
	for !q.Complete() {
		last = answer(t, m, q, srs.Good)
	}
	require.NotNil(t, last.Summary)
	assert.Equal(t, 3, last.Summary.Answered)

	xp, err := fs.ReadTotalXP(ctx)
	require.NoError(t, err)
	assert.Equal(t, 30, xp)

	stats, err := fs.DailyStats(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.WordsReviewed)
	assert.True(t, stats.StreakMaintained)

	sessions, err := fs.ListSessions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, q.ID, sessions[0].ID)

	words, err := fs.ListWords(ctx, &deck.ID)
	require.NoError(t, err)
	for _, w := range words {
		assert.Equal(t, 1, w.Progress.Repetitions)
		assert.Equal(t, srs.StatusLearning, w.Progress.Status)
	}
}
