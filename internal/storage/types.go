package storage

import (
	"context"
	"errors"
	"time"

	"github.com/danieldreier/mcp-vocab/internal/srs"
)

// DateLayout is the calendar-day key used for daily statistics.
const DateLayout = "2006-01-02"

// ErrWordNotFound is returned when a word is not found in the storage
var ErrWordNotFound = errors.New("word not found")

// ErrDeckNotFound is returned when a deck is not found in the storage
var ErrDeckNotFound = errors.New("deck not found")

// Deck groups words for scoped study sessions
type Deck struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Word is a single vocabulary item
type Word struct {
	ID         int64     `json:"id" db:"id"`
	DeckID     int64     `json:"deck_id" db:"deck_id"`
	Term       string    `json:"term" db:"term"`
	Definition string    `json:"definition" db:"definition"`
	Example    string    `json:"example,omitempty" db:"example"`
	Phonetic   string    `json:"phonetic,omitempty" db:"phonetic"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// WordInput carries the fields needed to create a word
type WordInput struct {
	DeckID     int64
	Term       string
	Definition string
	Example    string
	Phonetic   string
}

// WordWithProgress pairs a word with its scheduling state
type WordWithProgress struct {
	Word     Word         `json:"word"`
	Progress srs.Progress `json:"progress"`
}

// DailyStats aggregates one calendar day of study
type DailyStats struct {
	Date             string `json:"date" db:"date"`
	WordsReviewed    int    `json:"words_reviewed" db:"words_reviewed"`
	CorrectCount     int    `json:"correct_count" db:"correct_count"`
	XPEarned         int    `json:"xp_earned" db:"xp_earned"`
	StreakMaintained bool   `json:"streak_maintained" db:"streak_maintained"`
}

// StatsDelta is added to a day's statistics after each answer
type StatsDelta struct {
	WordsReviewed int
	CorrectCount  int
	XPEarned      int
}

// SessionRecord summarizes one finished study session
type SessionRecord struct {
	ID           string    `json:"id" db:"id"`
	StartedAt    time.Time `json:"started_at" db:"started_at"`
	EndedAt      time.Time `json:"ended_at" db:"ended_at"`
	Mode         string    `json:"mode" db:"mode"`
	DeckID       *int64    `json:"deck_id,omitempty" db:"deck_id"`
	WordsStudied int       `json:"words_studied" db:"words_studied"`
	CorrectCount int       `json:"correct_count" db:"correct_count"`
	XPEarned     int       `json:"xp_earned" db:"xp_earned"`
}

// Storage represents the storage interface for the vocabulary collection.
// Calendar-day arguments are truncated to midnight by the implementation.
type Storage interface {
	// Deck operations
	CreateDeck(ctx context.Context, name, description string) (Deck, error)
	GetDeck(ctx context.Context, id int64) (Deck, error)
	ListDecks(ctx context.Context) ([]Deck, error)
	// DeleteDeck removes a deck together with its words and their progress.
	DeleteDeck(ctx context.Context, id int64) error

	// Word operations. Creating a word also creates its progress record.
	CreateWord(ctx context.Context, in WordInput) (WordWithProgress, error)
	GetWord(ctx context.Context, id int64) (WordWithProgress, error)
	ListWords(ctx context.Context, deckID *int64) ([]WordWithProgress, error)
	DeleteWord(ctx context.Context, id int64) error
	EnsureProgressRecords(ctx context.Context) (int, error)

	// Session selection
	FetchCandidates(ctx context.Context, deckID *int64, today time.Time) ([]WordWithProgress, error)
	FetchDeckItemsUnfiltered(ctx context.Context, deckID int64, limit int) ([]WordWithProgress, error)
	CountDue(ctx context.Context, today time.Time) (int, error)

	// Progress and statistics
	PersistProgress(ctx context.Context, wordID int64, p srs.Progress) error
	IncrementDailyStats(ctx context.Context, day time.Time, d StatsDelta) error
	DailyStats(ctx context.Context, day time.Time) (DailyStats, error)
	ReviewedOn(ctx context.Context, day time.Time) (bool, error)
	StreakMaintained(ctx context.Context, day time.Time) (bool, error)
	MarkStreakMaintained(ctx context.Context, day time.Time) error
	CountReviewed(ctx context.Context) (int, error)
	CountMastered(ctx context.Context) (int, error)

	// Settings
	ReadTotalXP(ctx context.Context) (int, error)
	WriteTotalXP(ctx context.Context, xp int) error
	ReadStreak(ctx context.Context) (int, error)
	WriteStreak(ctx context.Context, days int) error

	// Session history
	RecordSession(ctx context.Context, rec SessionRecord) error
	ListSessions(ctx context.Context, limit int) ([]SessionRecord, error)

	Close() error
}

func dayKey(t time.Time) string {
	return srs.Day(t).Format(DateLayout)
}
