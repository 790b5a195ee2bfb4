package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danieldreier/mcp-vocab/internal/srs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Supported SQL drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	settingTotalXP = "total_xp"
	settingStreak  = "streak"
)

func init() {
	// sqlx does not know the modernc driver name; it takes '?' placeholders.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// SQLStorage implements Storage on a relational database through sqlx.
// Queries are written with '?' placeholders and rebound for the driver.
type SQLStorage struct {
	db     *sqlx.DB
	driver string
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

var _ Storage = (*SQLStorage)(nil)

// SQLOption configures an SQLStorage.
type SQLOption func(*SQLStorage)

// WithLocation sets the time zone used to turn stored calendar days back
// into times. Defaults to time.Local.
func WithLocation(loc *time.Location) SQLOption {
	return func(s *SQLStorage) { s.loc = loc }
}

// WithSQLLogger sets the logger.
func WithSQLLogger(logger *zap.Logger) SQLOption {
	return func(s *SQLStorage) { s.logger = logger }
}

// OpenSQL connects to the database, applies driver-specific settings and
// creates the schema if needed.
func OpenSQL(ctx context.Context, driver, dsn string, opts ...SQLOption) (*SQLStorage, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &SQLStorage{
		db:     db,
		driver: driver,
		loc:    time.Local,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if driver == DriverSQLite {
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if err := applyPragmas(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragmas: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s.logger.Info("SQL storage ready", zap.String("driver", driver))
	return s, nil
}

// applyPragmas configures SQLite for single-user performance.
func applyPragmas(ctx context.Context, db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func (s *SQLStorage) migrate(ctx context.Context) error {
	idCol, refCol, realCol := "INTEGER PRIMARY KEY AUTOINCREMENT", "INTEGER", "REAL"
	if s.driver == DriverPostgres {
		idCol, refCol, realCol = "BIGSERIAL PRIMARY KEY", "BIGINT", "DOUBLE PRECISION"
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS decks (
			id ` + idCol + `,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS words (
			id ` + idCol + `,
			deck_id ` + refCol + ` NOT NULL REFERENCES decks(id) ON DELETE CASCADE,
			term TEXT NOT NULL,
			definition TEXT NOT NULL,
			example TEXT NOT NULL DEFAULT '',
			phonetic TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_words_deck ON words(deck_id)`,
		`CREATE TABLE IF NOT EXISTS progress (
			word_id ` + refCol + ` PRIMARY KEY REFERENCES words(id) ON DELETE CASCADE,
			ease_factor ` + realCol + ` NOT NULL DEFAULT 2.5,
			interval_days INTEGER NOT NULL DEFAULT 0,
			repetitions INTEGER NOT NULL DEFAULT 0,
			leitner_box INTEGER NOT NULL DEFAULT 1,
			correct_streak INTEGER NOT NULL DEFAULT 0,
			wrong_count INTEGER NOT NULL DEFAULT 0,
			total_reviews INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'new',
			next_review TEXT,
			last_reviewed TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_progress_next_review ON progress(next_review)`,
		`CREATE TABLE IF NOT EXISTS stats (
			date TEXT PRIMARY KEY,
			words_reviewed INTEGER NOT NULL DEFAULT 0,
			correct_count INTEGER NOT NULL DEFAULT 0,
			xp_earned INTEGER NOT NULL DEFAULT 0,
			streak_maintained INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS study_sessions (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			mode TEXT NOT NULL,
			deck_id ` + refCol + `,
			words_studied INTEGER NOT NULL DEFAULT 0,
			correct_count INTEGER NOT NULL DEFAULT 0,
			xp_earned INTEGER NOT NULL DEFAULT 0
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection
func (s *SQLStorage) Close() error {
	return s.db.Close()
}

func (s *SQLStorage) q(query string) string {
	return s.db.Rebind(query)
}

type deckRow struct {
	ID          int64  `db:"id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	CreatedAt   string `db:"created_at"`
}

func (r deckRow) deck() Deck {
	return Deck{ID: r.ID, Name: r.Name, Description: r.Description, CreatedAt: parseTimestamp(r.CreatedAt)}
}

// wordRow is one word joined with its (possibly missing) progress record.
type wordRow struct {
	ID            int64          `db:"id"`
	DeckID        int64          `db:"deck_id"`
	Term          string         `db:"term"`
	Definition    string         `db:"definition"`
	Example       string         `db:"example"`
	Phonetic      string         `db:"phonetic"`
	CreatedAt     string         `db:"created_at"`
	EaseFactor    float64        `db:"ease_factor"`
	IntervalDays  int            `db:"interval_days"`
	Repetitions   int            `db:"repetitions"`
	LeitnerBox    int            `db:"leitner_box"`
	CorrectStreak int            `db:"correct_streak"`
	WrongCount    int            `db:"wrong_count"`
	TotalReviews  int            `db:"total_reviews"`
	Status        string         `db:"status"`
	NextReview    sql.NullString `db:"next_review"`
	LastReviewed  sql.NullString `db:"last_reviewed"`
}

const selectWords = `SELECT w.id, w.deck_id, w.term, w.definition, w.example, w.phonetic, w.created_at,
	COALESCE(p.ease_factor, 2.5) AS ease_factor,
	COALESCE(p.interval_days, 0) AS interval_days,
	COALESCE(p.repetitions, 0) AS repetitions,
	COALESCE(p.leitner_box, 1) AS leitner_box,
	COALESCE(p.correct_streak, 0) AS correct_streak,
	COALESCE(p.wrong_count, 0) AS wrong_count,
	COALESCE(p.total_reviews, 0) AS total_reviews,
	COALESCE(p.status, 'new') AS status,
	p.next_review, p.last_reviewed
FROM words w LEFT JOIN progress p ON p.word_id = w.id`

func (s *SQLStorage) rowToWord(r wordRow) WordWithProgress {
	progress := srs.Progress{
		EaseFactor:    r.EaseFactor,
		Interval:      r.IntervalDays,
		Repetitions:   r.Repetitions,
		Box:           r.LeitnerBox,
		CorrectStreak: r.CorrectStreak,
		WrongCount:    r.WrongCount,
		TotalReviews:  r.TotalReviews,
		Status:        srs.Status(r.Status),
	}
	if r.NextReview.Valid {
		if d, err := time.ParseInLocation(DateLayout, r.NextReview.String, s.loc); err == nil {
			progress.NextReviewDate = &d
		}
	}
	if r.LastReviewed.Valid {
		t := parseTimestamp(r.LastReviewed.String)
		progress.LastReviewedAt = &t
	}
	return WordWithProgress{
		Word: Word{
			ID:         r.ID,
			DeckID:     r.DeckID,
			Term:       r.Term,
			Definition: r.Definition,
			Example:    r.Example,
			Phonetic:   r.Phonetic,
			CreatedAt:  parseTimestamp(r.CreatedAt),
		},
		Progress: progress,
	}
}

func (s *SQLStorage) selectWordRows(ctx context.Context, query string, args ...any) ([]WordWithProgress, error) {
	var rows []wordRow
	if err := s.db.SelectContext(ctx, &rows, s.q(query), args...); err != nil {
		return nil, err
	}
	result := make([]WordWithProgress, 0, len(rows))
	for _, r := range rows {
		result = append(result, s.rowToWord(r))
	}
	return result, nil
}

// CreateDeck creates a new deck
func (s *SQLStorage) CreateDeck(ctx context.Context, name, description string) (Deck, error) {
	created := s.now()
	var id int64
	err := s.db.QueryRowxContext(ctx,
		s.q(`INSERT INTO decks (name, description, created_at) VALUES (?, ?, ?) RETURNING id`),
		name, description, formatTimestamp(created),
	).Scan(&id)
	if err != nil {
		return Deck{}, fmt.Errorf("insert deck: %w", err)
	}
	return Deck{ID: id, Name: name, Description: description, CreatedAt: created}, nil
}

// GetDeck retrieves a deck by ID
func (s *SQLStorage) GetDeck(ctx context.Context, id int64) (Deck, error) {
	var row deckRow
	err := s.db.GetContext(ctx, &row, s.q(`SELECT id, name, description, created_at FROM decks WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return Deck{}, ErrDeckNotFound
	}
	if err != nil {
		return Deck{}, fmt.Errorf("get deck %d: %w", id, err)
	}
	return row.deck(), nil
}

// ListDecks returns all decks ordered by ID
func (s *SQLStorage) ListDecks(ctx context.Context) ([]Deck, error) {
	var rows []deckRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, name, description, created_at FROM decks ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list decks: %w", err)
	}
	decks := make([]Deck, 0, len(rows))
	for _, r := range rows {
		decks = append(decks, r.deck())
	}
	return decks, nil
}

// CreateWord inserts a word and its fresh progress record in one transaction
func (s *SQLStorage) CreateWord(ctx context.Context, in WordInput) (WordWithProgress, error) {
	if _, err := s.GetDeck(ctx, in.DeckID); err != nil {
		return WordWithProgress{}, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return WordWithProgress{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	created := s.now()
	var id int64
	err = tx.QueryRowxContext(ctx,
		tx.Rebind(`INSERT INTO words (deck_id, term, definition, example, phonetic, created_at) VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
		in.DeckID, in.Term, in.Definition, in.Example, in.Phonetic, formatTimestamp(created),
	).Scan(&id)
	if err != nil {
		return WordWithProgress{}, fmt.Errorf("insert word: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO progress (word_id) VALUES (?)`), id); err != nil {
		return WordWithProgress{}, fmt.Errorf("insert progress: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return WordWithProgress{}, fmt.Errorf("commit: %w", err)
	}

	return WordWithProgress{
		Word: Word{
			ID:         id,
			DeckID:     in.DeckID,
			Term:       in.Term,
			Definition: in.Definition,
			Example:    in.Example,
			Phonetic:   in.Phonetic,
			CreatedAt:  created,
		},
		Progress: srs.NewProgress(),
	}, nil
}

// GetWord retrieves a word and its progress by ID
func (s *SQLStorage) GetWord(ctx context.Context, id int64) (WordWithProgress, error) {
	words, err := s.selectWordRows(ctx, selectWords+` WHERE w.id = ?`, id)
	if err != nil {
		return WordWithProgress{}, fmt.Errorf("get word %d: %w", id, err)
	}
	if len(words) == 0 {
		return WordWithProgress{}, ErrWordNotFound
	}
	return words[0], nil
}

// ListWords returns all words ordered by ID, optionally restricted to a deck
func (s *SQLStorage) ListWords(ctx context.Context, deckID *int64) ([]WordWithProgress, error) {
	query, args := selectWords, []any{}
	if deckID != nil {
		query += ` WHERE w.deck_id = ?`
		args = append(args, *deckID)
	}
	words, err := s.selectWordRows(ctx, query+` ORDER BY w.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list words: %w", err)
	}
	return words, nil
}

// DeleteDeck removes a deck with its words and progress. Child rows are
// deleted explicitly since SQLite enforces foreign keys per connection.
func (s *SQLStorage) DeleteDeck(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM progress WHERE word_id IN (SELECT id FROM words WHERE deck_id = ?)`), id); err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM words WHERE deck_id = ?`), id); err != nil {
		return fmt.Errorf("delete words: %w", err)
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM decks WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete deck: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDeckNotFound
	}
	return tx.Commit()
}

// DeleteWord removes a word and its progress record
func (s *SQLStorage) DeleteWord(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM progress WHERE word_id = ?`), id); err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM words WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete word: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrWordNotFound
	}
	return tx.Commit()
}

// EnsureProgressRecords creates progress records for words that lack one
func (s *SQLStorage) EnsureProgressRecords(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO progress (word_id) SELECT id FROM words WHERE id NOT IN (SELECT word_id FROM progress)`)
	if err != nil {
		return 0, fmt.Errorf("backfill progress: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("backfill progress: %w", err)
	}
	if n > 0 {
		s.logger.Info("Backfilled progress records", zap.Int64("count", n))
	}
	return int(n), nil
}

// FetchCandidates returns the words eligible for a session started today
func (s *SQLStorage) FetchCandidates(ctx context.Context, deckID *int64, today time.Time) ([]WordWithProgress, error) {
	var where strings.Builder
	where.WriteString(` WHERE (p.word_id IS NULL OR p.status IN ('new', 'learning') OR p.next_review IS NULL OR p.next_review <= ?)`)
	args := []any{dayKey(today)}
	if deckID != nil {
		where.WriteString(` AND w.deck_id = ?`)
		args = append(args, *deckID)
	}
	words, err := s.selectWordRows(ctx, selectWords+where.String()+` ORDER BY w.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}
	return words, nil
}

// FetchDeckItemsUnfiltered returns up to limit words of a deck regardless of
// their schedule
func (s *SQLStorage) FetchDeckItemsUnfiltered(ctx context.Context, deckID int64, limit int) ([]WordWithProgress, error) {
	words, err := s.selectWordRows(ctx, selectWords+` WHERE w.deck_id = ? ORDER BY w.id LIMIT ?`, deckID, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch deck %d: %w", deckID, err)
	}
	return words, nil
}

// CountDue counts reviewed words whose next review is on or before today
func (s *SQLStorage) CountDue(ctx context.Context, today time.Time) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.q(`SELECT COUNT(*) FROM progress WHERE next_review IS NOT NULL AND next_review <= ?`), dayKey(today))
	if err != nil {
		return 0, fmt.Errorf("count due: %w", err)
	}
	return n, nil
}

// PersistProgress replaces the progress record of a word
func (s *SQLStorage) PersistProgress(ctx context.Context, wordID int64, p srs.Progress) error {
	var nextReview, lastReviewed sql.NullString
	if p.NextReviewDate != nil {
		nextReview = sql.NullString{String: dayKey(*p.NextReviewDate), Valid: true}
	}
	if p.LastReviewedAt != nil {
		lastReviewed = sql.NullString{String: formatTimestamp(*p.LastReviewedAt), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, s.q(`UPDATE progress SET
		ease_factor = ?, interval_days = ?, repetitions = ?, leitner_box = ?,
		correct_streak = ?, wrong_count = ?, total_reviews = ?, status = ?,
		next_review = ?, last_reviewed = ?
		WHERE word_id = ?`),
		p.EaseFactor, p.Interval, p.Repetitions, p.Box,
		p.CorrectStreak, p.WrongCount, p.TotalReviews, string(p.Status),
		nextReview, lastReviewed, wordID,
	)
	if err != nil {
		return fmt.Errorf("update progress of word %d: %w", wordID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrWordNotFound
	}
	return nil
}

// IncrementDailyStats adds d to the statistics of day
func (s *SQLStorage) IncrementDailyStats(ctx context.Context, day time.Time, d StatsDelta) error {
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO stats (date, words_reviewed, correct_count, xp_earned)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (date) DO UPDATE SET
			words_reviewed = stats.words_reviewed + excluded.words_reviewed,
			correct_count = stats.correct_count + excluded.correct_count,
			xp_earned = stats.xp_earned + excluded.xp_earned`),
		dayKey(day), d.WordsReviewed, d.CorrectCount, d.XPEarned,
	)
	if err != nil {
		return fmt.Errorf("increment stats: %w", err)
	}
	return nil
}

type statsRow struct {
	Date             string `db:"date"`
	WordsReviewed    int    `db:"words_reviewed"`
	CorrectCount     int    `db:"correct_count"`
	XPEarned         int    `db:"xp_earned"`
	StreakMaintained int    `db:"streak_maintained"`
}

// DailyStats returns the statistics of day, zero-valued if none were recorded
func (s *SQLStorage) DailyStats(ctx context.Context, day time.Time) (DailyStats, error) {
	key := dayKey(day)
	var row statsRow
	err := s.db.GetContext(ctx, &row, s.q(`SELECT date, words_reviewed, correct_count, xp_earned, streak_maintained FROM stats WHERE date = ?`), key)
	if errors.Is(err, sql.ErrNoRows) {
		return DailyStats{Date: key}, nil
	}
	if err != nil {
		return DailyStats{}, fmt.Errorf("get stats for %s: %w", key, err)
	}
	return DailyStats{
		Date:             row.Date,
		WordsReviewed:    row.WordsReviewed,
		CorrectCount:     row.CorrectCount,
		XPEarned:         row.XPEarned,
		StreakMaintained: row.StreakMaintained != 0,
	}, nil
}

// ReviewedOn reports whether any word was reviewed on day
func (s *SQLStorage) ReviewedOn(ctx context.Context, day time.Time) (bool, error) {
	stats, err := s.DailyStats(ctx, day)
	if err != nil {
		return false, err
	}
	return stats.WordsReviewed > 0, nil
}

// StreakMaintained reports whether the streak was already updated for day
func (s *SQLStorage) StreakMaintained(ctx context.Context, day time.Time) (bool, error) {
	stats, err := s.DailyStats(ctx, day)
	if err != nil {
		return false, err
	}
	return stats.StreakMaintained, nil
}

// MarkStreakMaintained flags day as having its streak updated
func (s *SQLStorage) MarkStreakMaintained(ctx context.Context, day time.Time) error {
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO stats (date, streak_maintained) VALUES (?, 1)
		ON CONFLICT (date) DO UPDATE SET streak_maintained = 1`), dayKey(day))
	if err != nil {
		return fmt.Errorf("mark streak: %w", err)
	}
	return nil
}

// CountReviewed counts words that have been reviewed at least once
func (s *SQLStorage) CountReviewed(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM progress WHERE total_reviews > 0`); err != nil {
		return 0, fmt.Errorf("count reviewed: %w", err)
	}
	return n, nil
}

// CountMastered counts words whose status is mastered
func (s *SQLStorage) CountMastered(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM progress WHERE status = 'mastered'`); err != nil {
		return 0, fmt.Errorf("count mastered: %w", err)
	}
	return n, nil
}

func (s *SQLStorage) readSetting(ctx context.Context, key string) (int, error) {
	var value string
	err := s.db.GetContext(ctx, &value, s.q(`SELECT value FROM settings WHERE key = ?`), key)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read setting %s: %w", key, err)
	}
	var n int
	if _, err := fmt.Sscan(value, &n); err != nil {
		return 0, fmt.Errorf("setting %s holds %q: %w", key, value, err)
	}
	return n, nil
}

func (s *SQLStorage) writeSetting(ctx context.Context, key string, n int) error {
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`), key, fmt.Sprint(n))
	if err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	return nil
}

// ReadTotalXP returns the accumulated XP
func (s *SQLStorage) ReadTotalXP(ctx context.Context) (int, error) {
	return s.readSetting(ctx, settingTotalXP)
}

// WriteTotalXP stores the accumulated XP
func (s *SQLStorage) WriteTotalXP(ctx context.Context, xp int) error {
	return s.writeSetting(ctx, settingTotalXP, xp)
}

// ReadStreak returns the current day streak
func (s *SQLStorage) ReadStreak(ctx context.Context) (int, error) {
	return s.readSetting(ctx, settingStreak)
}

// WriteStreak stores the current day streak
func (s *SQLStorage) WriteStreak(ctx context.Context, days int) error {
	return s.writeSetting(ctx, settingStreak, days)
}

type sessionRow struct {
	ID           string        `db:"id"`
	StartedAt    string        `db:"started_at"`
	EndedAt      string        `db:"ended_at"`
	Mode         string        `db:"mode"`
	DeckID       sql.NullInt64 `db:"deck_id"`
	WordsStudied int           `db:"words_studied"`
	CorrectCount int           `db:"correct_count"`
	XPEarned     int           `db:"xp_earned"`
}

// RecordSession appends a finished session to the history
func (s *SQLStorage) RecordSession(ctx context.Context, rec SessionRecord) error {
	var deckID sql.NullInt64
	if rec.DeckID != nil {
		deckID = sql.NullInt64{Int64: *rec.DeckID, Valid: true}
	}
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO study_sessions
		(id, started_at, ended_at, mode, deck_id, words_studied, correct_count, xp_earned)
		VALUES (:id, :started_at, :ended_at, :mode, :deck_id, :words_studied, :correct_count, :xp_earned)`,
		sessionRow{
			ID:           rec.ID,
			StartedAt:    formatTimestamp(rec.StartedAt),
			EndedAt:      formatTimestamp(rec.EndedAt),
			Mode:         rec.Mode,
			DeckID:       deckID,
			WordsStudied: rec.WordsStudied,
			CorrectCount: rec.CorrectCount,
			XPEarned:     rec.XPEarned,
		})
	if err != nil {
		return fmt.Errorf("record session %s: %w", rec.ID, err)
	}
	return nil
}

// ListSessions returns the most recent sessions first, at most limit of them
// (all when limit <= 0)
func (s *SQLStorage) ListSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	query := `SELECT id, started_at, ended_at, mode, deck_id, words_studied, correct_count, xp_earned
		FROM study_sessions ORDER BY ended_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []sessionRow
	if err := s.db.SelectContext(ctx, &rows, s.q(query), args...); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	result := make([]SessionRecord, 0, len(rows))
	for _, r := range rows {
		rec := SessionRecord{
			ID:           r.ID,
			StartedAt:    parseTimestamp(r.StartedAt),
			EndedAt:      parseTimestamp(r.EndedAt),
			Mode:         r.Mode,
			WordsStudied: r.WordsStudied,
			CorrectCount: r.CorrectCount,
			XPEarned:     r.XPEarned,
		}
		if r.DeckID.Valid {
			id := r.DeckID.Int64
			rec.DeckID = &id
		}
		result = append(result, rec)
	}
	return result, nil
}

// timestampLayout is fixed width so stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
