package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/danieldreier/mcp-vocab/internal/leveling"
	"github.com/danieldreier/mcp-vocab/internal/srs"
	"github.com/danieldreier/mcp-vocab/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session size bounds and the number of words shown when a deck has nothing
// due.
const (
	DefaultSessionSize = 20
	MaxSessionSize     = 100
	DefaultCramLimit   = 20
	DefaultMaxRedrills = 1
)

var (
	// ErrSessionComplete is returned when answering a finished session.
	ErrSessionComplete = errors.New("session is complete")
	// ErrNotFlipped is returned when answering before the card was flipped.
	ErrNotFlipped = errors.New("card has not been flipped")
	// ErrNotComplete is returned when finishing a session that still has cards.
	ErrNotComplete = errors.New("session is not complete")
	// ErrPersistence wraps store failures while recording an answer. The
	// queue is unchanged and the answer may be retried.
	ErrPersistence = errors.New("persist answer")
	// ErrFinish wraps store failures during completion bookkeeping. Call
	// Manager.Finish to retry.
	ErrFinish = errors.New("finish session")
)

// Store is the persistence the session manager needs.
type Store interface {
	FetchCandidates(ctx context.Context, deckID *int64, today time.Time) ([]storage.WordWithProgress, error)
	FetchDeckItemsUnfiltered(ctx context.Context, deckID int64, limit int) ([]storage.WordWithProgress, error)
	PersistProgress(ctx context.Context, wordID int64, p srs.Progress) error
	IncrementDailyStats(ctx context.Context, day time.Time, d storage.StatsDelta) error
	ReadTotalXP(ctx context.Context) (int, error)
	WriteTotalXP(ctx context.Context, xp int) error
	ReadStreak(ctx context.Context) (int, error)
	WriteStreak(ctx context.Context, days int) error
	ReviewedOn(ctx context.Context, day time.Time) (bool, error)
	StreakMaintained(ctx context.Context, day time.Time) (bool, error)
	MarkStreakMaintained(ctx context.Context, day time.Time) error
	CountReviewed(ctx context.Context) (int, error)
	CountMastered(ctx context.Context) (int, error)
	RecordSession(ctx context.Context, rec storage.SessionRecord) error
}

// RequeuePolicy decides what happens to a word answered Again.
type RequeuePolicy string

const (
	// RequeueOnAgain appends a missed word to the end of the session so it
	// is drilled again before the session ends.
	RequeueOnAgain RequeuePolicy = "again"
	// RequeueNone moves past a missed word; it comes back on a later day.
	RequeueNone RequeuePolicy = "none"
)

// ParseRequeuePolicy accepts "again" or "none".
func ParseRequeuePolicy(s string) (RequeuePolicy, error) {
	switch p := RequeuePolicy(s); p {
	case RequeueOnAgain, RequeueNone:
		return p, nil
	}
	return "", fmt.Errorf("unknown requeue policy %q (want %q or %q)", s, RequeueOnAgain, RequeueNone)
}

// Config holds the tunable session behaviour.
type Config struct {
	SessionSize     int
	CramLimit       int
	Requeue         RequeuePolicy
	MaxRedrills     int
	OrderByPriority bool
}

// DefaultConfig returns the standard session settings.
func DefaultConfig() Config {
	return Config{
		SessionSize: DefaultSessionSize,
		CramLimit:   DefaultCramLimit,
		Requeue:     RequeueOnAgain,
		MaxRedrills: DefaultMaxRedrills,
	}
}

// Manager starts and drives study sessions against a Store.
type Manager struct {
	store     Store
	scheduler srs.Scheduler
	cfg       Config
	logger    *zap.Logger
	rng       *rand.Rand
	now       func() time.Time
	sink      EventSink
}

// Option configures a Manager.
type Option func(*Manager)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(m *Manager) { m.cfg = cfg }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithRand sets the random source used to shuffle new words.
func WithRand(r *rand.Rand) Option {
	return func(m *Manager) { m.rng = r }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithEventSink sets the receiver of answer signals.
func WithEventSink(s EventSink) Option {
	return func(m *Manager) { m.sink = s }
}

// NewManager returns a Manager using store for persistence and scheduler for
// the review math. A nil scheduler selects the SM-2 scheduler.
func NewManager(store Store, scheduler srs.Scheduler, opts ...Option) *Manager {
	if scheduler == nil {
		scheduler = srs.NewSM2Scheduler()
	}
	m := &Manager{
		store:     store,
		scheduler: scheduler,
		cfg:       DefaultConfig(),
		logger:    zap.NewNop(),
		now:       time.Now,
		sink:      NopSink,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(m.now().UnixNano()))
	}
	if m.cfg.SessionSize <= 0 {
		m.cfg.SessionSize = DefaultSessionSize
	}
	if m.cfg.CramLimit <= 0 {
		m.cfg.CramLimit = DefaultCramLimit
	}
	if m.cfg.Requeue == "" {
		m.cfg.Requeue = RequeueOnAgain
	}
	if m.cfg.MaxRedrills < 0 {
		m.cfg.MaxRedrills = 0
	}
	return m
}

// Config returns the effective configuration.
func (m *Manager) Config() Config { return m.cfg }

// StartOptions describes the session to build.
type StartOptions struct {
	// DeckID restricts the session to one deck. Nil studies everything.
	DeckID *int64
	// Size bounds the session; zero uses the configured size.
	Size     int
	HardMode bool
	Mode     Mode
}

// Start selects, orders and bounds the cards for a new session. A
// deck-scoped session with nothing due falls back to cramming the deck. A
// queue with no cards at all is returned complete, not as an error.
func (m *Manager) Start(ctx context.Context, opts StartOptions) (*Queue, error) {
	now := m.now()

	size := opts.Size
	if size <= 0 {
		size = m.cfg.SessionSize
	}
	size = min(size, MaxSessionSize)

	mode := opts.Mode
	if mode == "" {
		mode = ModeLearn
	}

	candidates, err := m.store.FetchCandidates(ctx, opts.DeckID, now)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}

	cram := false
	if len(candidates) == 0 && opts.DeckID != nil {
		candidates, err = m.store.FetchDeckItemsUnfiltered(ctx, *opts.DeckID, m.cfg.CramLimit)
		if err != nil {
			return nil, fmt.Errorf("fetch deck %d: %w", *opts.DeckID, err)
		}
		cram = len(candidates) > 0
	}

	ordered := BuildOrder(candidates, OrderOptions{
		Size:       size,
		ByPriority: m.cfg.OrderByPriority,
		Priority:   m.scheduler.Priority,
		Now:        now,
		Rand:       m.rng,
	})

	q := newQueue(uuid.New().String(), ordered)
	q.DeckID = opts.DeckID
	q.Mode = mode
	q.HardMode = opts.HardMode
	q.Cram = cram
	q.StartedAt = now

	m.logger.Info("Session started",
		zap.String("session_id", q.ID),
		zap.Int("cards", q.Len()),
		zap.Int("candidates", len(candidates)),
		zap.Bool("cram", cram),
		zap.String("mode", string(mode)),
	)
	return q, nil
}

// Flip reveals the answer side of the current card. It reports whether the
// state changed; flipping twice or after completion does nothing.
func (m *Manager) Flip(q *Queue) bool {
	return q.flip()
}

// AnswerResult reports the outcome of one answer.
type AnswerResult struct {
	WordID     int64              `json:"word_id"`
	Quality    srs.Quality        `json:"quality"`
	Progress   srs.Progress       `json:"progress"`
	NextReview time.Time          `json:"next_review"`
	XPEarned   int                `json:"xp_earned"`
	TotalXP    int                `json:"total_xp"`
	Level      leveling.LevelInfo `json:"level"`
	LeveledUp  bool               `json:"leveled_up"`
	Requeued   bool               `json:"requeued"`
	Skipped    bool               `json:"skipped,omitempty"`
	Complete   bool               `json:"complete"`
	Summary    *Summary           `json:"summary,omitempty"`
}

// Answer records a rating for the current card, persists the new schedule
// with the day's statistics and XP, re-queues the word if the policy asks
// for it, and advances the queue.
//
// Nothing in q changes unless every store write succeeds, so a failed
// Answer can be retried with the same review. If the answer completes the
// session and completion bookkeeping fails, the result is returned together
// with an ErrFinish error.
func (m *Manager) Answer(ctx context.Context, q *Queue, r srs.Review) (AnswerResult, error) {
	if q.complete {
		return AnswerResult{}, ErrSessionComplete
	}
	if q.state != AwaitingAnswer {
		return AnswerResult{}, ErrNotFlipped
	}
	if err := r.Validate(); err != nil {
		return AnswerResult{}, err
	}

	now := m.now()
	entry := q.entries[q.cursor]
	wordID := entry.Item.Word.ID
	r.HardMode = r.HardMode || q.HardMode

	updated, due, err := m.scheduler.Schedule(entry.Item.Progress, r, now)
	if err != nil {
		return AnswerResult{}, err
	}

	streak, err := m.store.ReadStreak(ctx)
	if err != nil {
		return AnswerResult{}, fmt.Errorf("%w: read streak: %w", ErrPersistence, err)
	}
	xp := leveling.XPForAnswer(r.Quality, streak, q.Mode == ModeQuiz)
	correct := 0
	if !r.Quality.Failed() {
		correct = 1
	}

	if err := m.store.PersistProgress(ctx, wordID, updated); err != nil {
		if errors.Is(err, storage.ErrWordNotFound) {
			return m.skipDeleted(ctx, q, wordID, r.Quality)
		}
		m.logger.Error("Failed to persist progress", zap.Int64("word_id", wordID), zap.Error(err))
		return AnswerResult{}, fmt.Errorf("%w: progress of word %d: %w", ErrPersistence, wordID, err)
	}
	if err := m.store.IncrementDailyStats(ctx, now, storage.StatsDelta{WordsReviewed: 1, CorrectCount: correct, XPEarned: xp}); err != nil {
		return AnswerResult{}, fmt.Errorf("%w: daily stats: %w", ErrPersistence, err)
	}
	prevXP, err := m.store.ReadTotalXP(ctx)
	if err != nil {
		return AnswerResult{}, fmt.Errorf("%w: read xp: %w", ErrPersistence, err)
	}
	totalXP := prevXP + xp
	if err := m.store.WriteTotalXP(ctx, totalXP); err != nil {
		return AnswerResult{}, fmt.Errorf("%w: write xp: %w", ErrPersistence, err)
	}
	reviewed, err := m.store.CountReviewed(ctx)
	if err != nil {
		return AnswerResult{}, fmt.Errorf("%w: count reviewed: %w", ErrPersistence, err)
	}
	mastered, err := m.store.CountMastered(ctx)
	if err != nil {
		return AnswerResult{}, fmt.Errorf("%w: count mastered: %w", ErrPersistence, err)
	}

	// Every write succeeded; from here on only the in-memory queue changes.
	q.updateProgress(wordID, updated)
	q.stats.Answered++
	q.stats.Correct += correct
	q.stats.XPEarned += xp
	if r.Quality == srs.Again {
		q.stats.Again++
	}

	before, after := leveling.LevelOf(prevXP), leveling.LevelOf(totalXP)
	result := AnswerResult{
		WordID:     wordID,
		Quality:    r.Quality,
		Progress:   updated,
		NextReview: due,
		XPEarned:   xp,
		TotalXP:    totalXP,
		Level:      after,
		LeveledUp:  after.Level > before.Level,
	}

	if r.Quality == srs.Again && m.cfg.Requeue == RequeueOnAgain && q.redrills[wordID] < m.cfg.MaxRedrills {
		redrill := entry.Item
		redrill.Progress = updated
		q.entries = append(q.entries, Entry{Item: redrill, Redrill: true})
		q.redrills[wordID]++
		result.Requeued = true
	}

	m.sink.Emit(ctx, Signals{
		SessionID:          q.ID,
		WordID:             wordID,
		Quality:            r.Quality,
		WordsTotalReviewed: reviewed,
		MasteredCount:      mastered,
		ResponseTimeMs:     r.ResponseTimeMs,
		HourOfDay:          now.Hour(),
	})

	m.logger.Debug("Answer recorded",
		zap.String("session_id", q.ID),
		zap.Int64("word_id", wordID),
		zap.Stringer("quality", r.Quality),
		zap.String("status", string(updated.Status)),
		zap.Int("interval", updated.Interval),
		zap.Int("xp", xp),
		zap.Bool("requeued", result.Requeued),
	)

	if !q.advance() {
		return result, nil
	}

	result.Complete = true
	summary, err := m.Finish(ctx, q)
	if err != nil {
		return result, err
	}
	result.Summary = &summary
	return result, nil
}

// skipDeleted drops a word that was deleted after the session started and
// moves on. Nothing is recorded for it. A session left with no answers is
// closed without streak or history bookkeeping.
func (m *Manager) skipDeleted(ctx context.Context, q *Queue, wordID int64, quality srs.Quality) (AnswerResult, error) {
	m.logger.Warn("Word deleted during session, skipping",
		zap.String("session_id", q.ID),
		zap.Int64("word_id", wordID),
	)
	result := AnswerResult{WordID: wordID, Quality: quality, Skipped: true}
	if !q.drop(wordID) {
		return result, nil
	}
	result.Complete = true
	if q.stats.Answered == 0 {
		q.finished = true
		return result, nil
	}
	summary, err := m.Finish(ctx, q)
	if err != nil {
		return result, err
	}
	result.Summary = &summary
	return result, nil
}

// Summary describes a completed session.
type Summary struct {
	SessionID string `json:"session_id"`
	Stats
	Streak   int           `json:"streak"`
	Duration time.Duration `json:"duration"`
	Cram     bool          `json:"cram"`
}

// Finish runs completion bookkeeping for a complete queue: the once-a-day
// streak update and the session history record. Answer calls it when the
// last card is answered; call it again after an ErrFinish failure. Once it
// has succeeded further calls do not write anything.
func (m *Manager) Finish(ctx context.Context, q *Queue) (Summary, error) {
	if !q.complete {
		return Summary{}, ErrNotComplete
	}
	now := m.now()
	summary := Summary{
		SessionID: q.ID,
		Stats:     q.stats,
		Duration:  now.Sub(q.StartedAt),
		Cram:      q.Cram,
	}
	if q.finished {
		streak, err := m.store.ReadStreak(ctx)
		if err != nil {
			return summary, fmt.Errorf("%w: read streak: %w", ErrFinish, err)
		}
		summary.Streak = streak
		return summary, nil
	}

	streak, err := m.MaintainStreak(ctx, now)
	if err != nil {
		m.logger.Error("Streak maintenance failed", zap.String("session_id", q.ID), zap.Error(err))
		return summary, fmt.Errorf("%w: %w", ErrFinish, err)
	}
	summary.Streak = streak

	rec := storage.SessionRecord{
		ID:           q.ID,
		StartedAt:    q.StartedAt,
		EndedAt:      now,
		Mode:         string(q.Mode),
		DeckID:       q.DeckID,
		WordsStudied: q.stats.Answered,
		CorrectCount: q.stats.Correct,
		XPEarned:     q.stats.XPEarned,
	}
	if err := m.store.RecordSession(ctx, rec); err != nil {
		m.logger.Error("Failed to record session", zap.String("session_id", q.ID), zap.Error(err))
		return summary, fmt.Errorf("%w: record session: %w", ErrFinish, err)
	}

	q.finished = true
	m.logger.Info("Session complete",
		zap.String("session_id", q.ID),
		zap.Int("answered", q.stats.Answered),
		zap.Int("correct", q.stats.Correct),
		zap.Int("xp", q.stats.XPEarned),
		zap.Int("streak", streak),
	)
	return summary, nil
}

// MaintainStreak updates the day streak once per calendar day. The streak
// grows when the learner also studied yesterday (or had no streak yet) and
// restarts at 1 otherwise. It returns the streak after the update.
func (m *Manager) MaintainStreak(ctx context.Context, now time.Time) (int, error) {
	today := srs.Day(now)

	done, err := m.store.StreakMaintained(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("check streak: %w", err)
	}
	current, err := m.store.ReadStreak(ctx)
	if err != nil {
		return 0, fmt.Errorf("read streak: %w", err)
	}
	if done {
		return current, nil
	}

	yesterday, err := m.store.ReviewedOn(ctx, today.AddDate(0, 0, -1))
	if err != nil {
		return 0, fmt.Errorf("check yesterday: %w", err)
	}

	next := 1
	if yesterday || current == 0 {
		next = current + 1
	}
	if err := m.store.WriteStreak(ctx, next); err != nil {
		return 0, fmt.Errorf("write streak: %w", err)
	}
	if err := m.store.MarkStreakMaintained(ctx, today); err != nil {
		return 0, fmt.Errorf("mark streak: %w", err)
	}
	return next, nil
}

// Restart rewinds q to its first card under a new session ID, keeping the
// cards and their latest progress but clearing the aggregates. Redrill slots
// are dropped.
func (m *Manager) Restart(q *Queue) {
	if q.Empty() {
		return
	}
	kept := q.entries[:0]
	for _, e := range q.entries {
		if !e.Redrill {
			kept = append(kept, e)
		}
	}
	q.entries = kept
	q.ID = uuid.New().String()
	q.StartedAt = m.now()
	q.cursor = 0
	q.state = AwaitingFlip
	q.complete = false
	q.finished = false
	q.stats = Stats{}
	q.redrills = make(map[int64]int)
	m.logger.Info("Session restarted", zap.String("session_id", q.ID), zap.Int("cards", q.Len()))
}
