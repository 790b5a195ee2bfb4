package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/danieldreier/mcp-vocab/internal/srs"
	"go.uber.org/zap"
)

// Settings holds the learner-wide counters
type Settings struct {
	TotalXP int `json:"total_xp"`
	Streak  int `json:"streak"`
}

// VocabStore represents the data structure stored in the JSON file
type VocabStore struct {
	Decks       map[int64]Deck         `json:"decks"`
	Words       map[int64]Word         `json:"words"`
	Progress    map[int64]srs.Progress `json:"progress"`
	Stats       map[string]DailyStats  `json:"stats"`
	Settings    Settings               `json:"settings"`
	Sessions    []SessionRecord        `json:"sessions"`
	NextDeckID  int64                  `json:"next_deck_id"`
	NextWordID  int64                  `json:"next_word_id"`
	LastUpdated time.Time              `json:"last_updated"`
}

func emptyStore() VocabStore {
	return VocabStore{
		Decks:      make(map[int64]Deck),
		Words:      make(map[int64]Word),
		Progress:   make(map[int64]srs.Progress),
		Stats:      make(map[string]DailyStats),
		Sessions:   []SessionRecord{},
		NextDeckID: 1,
		NextWordID: 1,
	}
}

// FileStorage implements the Storage interface using a JSON file for persistence.
// Every mutation is written to disk before it returns; if the write fails the
// in-memory change is rolled back so memory and disk never disagree.
type FileStorage struct {
	filePath string
	store    VocabStore
	mu       sync.RWMutex
	logger   *zap.Logger
	now      func() time.Time
}

var _ Storage = (*FileStorage)(nil)

// NewFileStorage creates a new FileStorage instance. Call Load before use.
func NewFileStorage(filePath string, logger *zap.Logger) *FileStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug("Creating new FileStorage", zap.String("path", filePath))
	return &FileStorage{
		filePath: filePath,
		store:    emptyStore(),
		logger:   logger,
		now:      time.Now,
	}
}

// commit saves the store and runs undo if the save fails. Assumes the write
// lock is held.
func (fs *FileStorage) commit(undo func()) error {
	if err := fs.save(); err != nil {
		undo()
		return err
	}
	return nil
}

// CreateDeck creates a new deck
func (fs *FileStorage) CreateDeck(_ context.Context, name, description string) (Deck, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	deck := Deck{
		ID:          fs.store.NextDeckID,
		Name:        name,
		Description: description,
		CreatedAt:   fs.now(),
	}
	fs.store.Decks[deck.ID] = deck
	fs.store.NextDeckID++

	err := fs.commit(func() {
		delete(fs.store.Decks, deck.ID)
		fs.store.NextDeckID--
	})
	if err != nil {
		return Deck{}, err
	}
	return deck, nil
}

// GetDeck retrieves a deck by ID
func (fs *FileStorage) GetDeck(_ context.Context, id int64) (Deck, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	deck, ok := fs.store.Decks[id]
	if !ok {
		return Deck{}, ErrDeckNotFound
	}
	return deck, nil
}

// ListDecks returns all decks ordered by ID
func (fs *FileStorage) ListDecks(_ context.Context) ([]Deck, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	decks := make([]Deck, 0, len(fs.store.Decks))
	for _, d := range fs.store.Decks {
		decks = append(decks, d)
	}
	sort.Slice(decks, func(i, j int) bool { return decks[i].ID < decks[j].ID })
	return decks, nil
}

// DeleteDeck removes a deck with all of its words and progress records
func (fs *FileStorage) DeleteDeck(_ context.Context, id int64) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	deck, ok := fs.store.Decks[id]
	if !ok {
		return ErrDeckNotFound
	}
	words := make(map[int64]Word)
	progress := make(map[int64]srs.Progress)
	for wid, w := range fs.store.Words {
		if w.DeckID != id {
			continue
		}
		words[wid] = w
		if p, ok := fs.store.Progress[wid]; ok {
			progress[wid] = p
		}
		delete(fs.store.Words, wid)
		delete(fs.store.Progress, wid)
	}
	delete(fs.store.Decks, id)

	err := fs.commit(func() {
		fs.store.Decks[id] = deck
		for wid, w := range words {
			fs.store.Words[wid] = w
		}
		for wid, p := range progress {
			fs.store.Progress[wid] = p
		}
	})
	if err != nil {
		return err
	}
	fs.logger.Info("Deleted deck", zap.Int64("deck_id", id), zap.Int("words", len(words)))
	return nil
}

// CreateWord creates a word together with a fresh progress record
func (fs *FileStorage) CreateWord(_ context.Context, in WordInput) (WordWithProgress, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, ok := fs.store.Decks[in.DeckID]; !ok {
		return WordWithProgress{}, ErrDeckNotFound
	}

	word := Word{
		ID:         fs.store.NextWordID,
		DeckID:     in.DeckID,
		Term:       in.Term,
		Definition: in.Definition,
		Example:    in.Example,
		Phonetic:   in.Phonetic,
		CreatedAt:  fs.now(),
	}
	progress := srs.NewProgress()

	fs.store.Words[word.ID] = word
	fs.store.Progress[word.ID] = progress
	fs.store.NextWordID++

	err := fs.commit(func() {
		delete(fs.store.Words, word.ID)
		delete(fs.store.Progress, word.ID)
		fs.store.NextWordID--
	})
	if err != nil {
		return WordWithProgress{}, err
	}
	return WordWithProgress{Word: word, Progress: progress}, nil
}

// GetWord retrieves a word and its progress by ID
func (fs *FileStorage) GetWord(_ context.Context, id int64) (WordWithProgress, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	word, ok := fs.store.Words[id]
	if !ok {
		return WordWithProgress{}, ErrWordNotFound
	}
	return fs.withProgress(word), nil
}

// ListWords returns all words ordered by ID, optionally restricted to a deck
func (fs *FileStorage) ListWords(_ context.Context, deckID *int64) ([]WordWithProgress, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	return fs.collect(deckID, func(WordWithProgress) bool { return true }, 0), nil
}

// DeleteWord removes a word and its progress record
func (fs *FileStorage) DeleteWord(_ context.Context, id int64) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	word, ok := fs.store.Words[id]
	if !ok {
		return ErrWordNotFound
	}
	progress, hadProgress := fs.store.Progress[id]

	delete(fs.store.Words, id)
	delete(fs.store.Progress, id)

	return fs.commit(func() {
		fs.store.Words[id] = word
		if hadProgress {
			fs.store.Progress[id] = progress
		}
	})
}

// EnsureProgressRecords creates progress records for words that lack one and
// returns how many were created.
func (fs *FileStorage) EnsureProgressRecords(_ context.Context) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	var created []int64
	for id := range fs.store.Words {
		if _, ok := fs.store.Progress[id]; !ok {
			fs.store.Progress[id] = srs.NewProgress()
			created = append(created, id)
		}
	}
	if len(created) == 0 {
		return 0, nil
	}

	err := fs.commit(func() {
		for _, id := range created {
			delete(fs.store.Progress, id)
		}
	})
	if err != nil {
		return 0, err
	}
	fs.logger.Info("Backfilled progress records", zap.Int("count", len(created)))
	return len(created), nil
}

// FetchCandidates returns the words eligible for a session started today
func (fs *FileStorage) FetchCandidates(_ context.Context, deckID *int64, today time.Time) ([]WordWithProgress, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	return fs.collect(deckID, func(w WordWithProgress) bool {
		return w.Progress.IsCandidate(today)
	}, 0), nil
}

// FetchDeckItemsUnfiltered returns up to limit words of a deck regardless of
// their schedule
func (fs *FileStorage) FetchDeckItemsUnfiltered(_ context.Context, deckID int64, limit int) ([]WordWithProgress, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	return fs.collect(&deckID, func(WordWithProgress) bool { return true }, limit), nil
}

// CountDue counts reviewed words whose next review is on or before today
func (fs *FileStorage) CountDue(_ context.Context, today time.Time) (int, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	count := 0
	for _, p := range fs.store.Progress {
		if p.NextReviewDate != nil && p.IsDue(today) {
			count++
		}
	}
	return count, nil
}

// PersistProgress replaces the progress record of a word
func (fs *FileStorage) PersistProgress(_ context.Context, wordID int64, p srs.Progress) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, ok := fs.store.Words[wordID]; !ok {
		return ErrWordNotFound
	}
	prev, hadPrev := fs.store.Progress[wordID]
	fs.store.Progress[wordID] = p

	return fs.commit(func() {
		if hadPrev {
			fs.store.Progress[wordID] = prev
		} else {
			delete(fs.store.Progress, wordID)
		}
	})
}

// IncrementDailyStats adds d to the statistics of day
func (fs *FileStorage) IncrementDailyStats(_ context.Context, day time.Time, d StatsDelta) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	key := dayKey(day)
	prev, hadPrev := fs.store.Stats[key]
	next := prev
	next.Date = key
	next.WordsReviewed += d.WordsReviewed
	next.CorrectCount += d.CorrectCount
	next.XPEarned += d.XPEarned
	fs.store.Stats[key] = next

	return fs.commit(fs.restoreStats(key, prev, hadPrev))
}

// DailyStats returns the statistics of day, zero-valued if none were recorded
func (fs *FileStorage) DailyStats(_ context.Context, day time.Time) (DailyStats, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	key := dayKey(day)
	stats, ok := fs.store.Stats[key]
	if !ok {
		return DailyStats{Date: key}, nil
	}
	return stats, nil
}

// ReviewedOn reports whether any word was reviewed on day
func (fs *FileStorage) ReviewedOn(_ context.Context, day time.Time) (bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	return fs.store.Stats[dayKey(day)].WordsReviewed > 0, nil
}

// StreakMaintained reports whether the streak was already updated for day
func (fs *FileStorage) StreakMaintained(_ context.Context, day time.Time) (bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	return fs.store.Stats[dayKey(day)].StreakMaintained, nil
}

// MarkStreakMaintained flags day as having its streak updated
func (fs *FileStorage) MarkStreakMaintained(_ context.Context, day time.Time) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	key := dayKey(day)
	prev, hadPrev := fs.store.Stats[key]
	next := prev
	next.Date = key
	next.StreakMaintained = true
	fs.store.Stats[key] = next

	return fs.commit(fs.restoreStats(key, prev, hadPrev))
}

func (fs *FileStorage) restoreStats(key string, prev DailyStats, hadPrev bool) func() {
	return func() {
		if hadPrev {
			fs.store.Stats[key] = prev
		} else {
			delete(fs.store.Stats, key)
		}
	}
}

// CountReviewed counts words that have been reviewed at least once
func (fs *FileStorage) CountReviewed(_ context.Context) (int, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	count := 0
	for _, p := range fs.store.Progress {
		if p.TotalReviews > 0 {
			count++
		}
	}
	return count, nil
}

// CountMastered counts words whose status is mastered
func (fs *FileStorage) CountMastered(_ context.Context) (int, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	count := 0
	for _, p := range fs.store.Progress {
		if p.Status == srs.StatusMastered {
			count++
		}
	}
	return count, nil
}

// ReadTotalXP returns the accumulated XP
func (fs *FileStorage) ReadTotalXP(_ context.Context) (int, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.store.Settings.TotalXP, nil
}

// WriteTotalXP stores the accumulated XP
func (fs *FileStorage) WriteTotalXP(_ context.Context, xp int) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	prev := fs.store.Settings.TotalXP
	fs.store.Settings.TotalXP = xp
	return fs.commit(func() { fs.store.Settings.TotalXP = prev })
}

// ReadStreak returns the current day streak
func (fs *FileStorage) ReadStreak(_ context.Context) (int, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.store.Settings.Streak, nil
}

// WriteStreak stores the current day streak
func (fs *FileStorage) WriteStreak(_ context.Context, days int) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	prev := fs.store.Settings.Streak
	fs.store.Settings.Streak = days
	return fs.commit(func() { fs.store.Settings.Streak = prev })
}

// RecordSession appends a finished session to the history
func (fs *FileStorage) RecordSession(_ context.Context, rec SessionRecord) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n := len(fs.store.Sessions)
	fs.store.Sessions = append(fs.store.Sessions, rec)
	return fs.commit(func() { fs.store.Sessions = fs.store.Sessions[:n] })
}

// ListSessions returns the most recent sessions first, at most limit of them
// (all when limit <= 0)
func (fs *FileStorage) ListSessions(_ context.Context, limit int) ([]SessionRecord, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	n := len(fs.store.Sessions)
	if limit <= 0 || limit > n {
		limit = n
	}
	result := make([]SessionRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		result = append(result, fs.store.Sessions[i])
	}
	return result, nil
}

// Close releases nothing; every mutation is already on disk.
func (fs *FileStorage) Close() error {
	return nil
}

func (fs *FileStorage) withProgress(word Word) WordWithProgress {
	progress, ok := fs.store.Progress[word.ID]
	if !ok {
		progress = srs.NewProgress()
	}
	return WordWithProgress{Word: word, Progress: progress}
}

// collect returns the words matching keep in ID order, limited to limit
// entries when limit > 0. Assumes the read lock is held.
func (fs *FileStorage) collect(deckID *int64, keep func(WordWithProgress) bool, limit int) []WordWithProgress {
	ids := make([]int64, 0, len(fs.store.Words))
	for id, w := range fs.store.Words {
		if deckID != nil && w.DeckID != *deckID {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	result := make([]WordWithProgress, 0, len(ids))
	for _, id := range ids {
		w := fs.withProgress(fs.store.Words[id])
		if !keep(w) {
			continue
		}
		result = append(result, w)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result
}

// save is the internal helper for saving data without acquiring the lock again.
// Assumes the lock (write lock) is already held.
func (fs *FileStorage) save() error {
	fs.store.LastUpdated = fs.now()

	dataBytes, err := json.MarshalIndent(fs.store, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal storage data: %w", err)
	}

	dir := filepath.Dir(fs.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to a temporary file, then rename it over the target (atomic on most systems)
	tempFile := fs.filePath + ".tmp"
	if err := os.WriteFile(tempFile, dataBytes, 0644); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tempFile, fs.filePath); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	fs.logger.Debug("Storage saved", zap.String("path", fs.filePath), zap.Int("words", len(fs.store.Words)))
	return nil
}

// Load loads the vocabulary data from the file, creating it when missing
func (fs *FileStorage) Load() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, err := os.Stat(fs.filePath); os.IsNotExist(err) {
		fs.logger.Info("Storage file not found, initializing empty store", zap.String("path", fs.filePath))
		fs.store = emptyStore()
		if err := fs.save(); err != nil {
			return fmt.Errorf("failed to save initial empty store: %w", err)
		}
		return nil
	}

	data, err := os.ReadFile(fs.filePath)
	if err != nil {
		return fmt.Errorf("failed to read storage file: %w", err)
	}
	if len(data) == 0 {
		fs.store = emptyStore()
		return nil
	}

	store := emptyStore()
	if err := json.Unmarshal(data, &store); err != nil {
		return fmt.Errorf("failed to unmarshal storage data: %w", err)
	}

	// Initialize maps/slices if they are nil after unmarshal (e.g., loading older format)
	if store.Decks == nil {
		store.Decks = make(map[int64]Deck)
	}
	if store.Words == nil {
		store.Words = make(map[int64]Word)
	}
	if store.Progress == nil {
		store.Progress = make(map[int64]srs.Progress)
	}
	if store.Stats == nil {
		store.Stats = make(map[string]DailyStats)
	}
	if store.Sessions == nil {
		store.Sessions = []SessionRecord{}
	}

	fs.store = store
	fs.logger.Debug("Storage loaded", zap.String("path", fs.filePath), zap.Int("decks", len(store.Decks)), zap.Int("words", len(store.Words)))
	return nil
}
