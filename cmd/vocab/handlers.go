package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/danieldreier/mcp-vocab/internal/leveling"
	"github.com/danieldreier/mcp-vocab/internal/session"
	"github.com/danieldreier/mcp-vocab/internal/srs"
	"github.com/danieldreier/mcp-vocab/internal/storage"
)

// vocabServer holds the state shared by the MCP tool handlers. There is one
// active session at a time; starting a new one abandons the previous queue.
type vocabServer struct {
	store   storage.Storage
	manager *session.Manager
	logger  *zap.Logger
	now     func() time.Time

	mu     sync.Mutex
	active *session.Queue
}

func newVocabServer(store storage.Storage, manager *session.Manager, logger *zap.Logger) *vocabServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &vocabServer{
		store:   store,
		manager: manager,
		logger:  logger,
		now:     time.Now,
	}
}

// cardFace is the visible part of the current card. The back side is only
// filled in once the card has been flipped.
type cardFace struct {
	WordID     int64      `json:"word_id"`
	Term       string     `json:"term"`
	Phonetic   string     `json:"phonetic,omitempty"`
	Definition string     `json:"definition,omitempty"`
	Example    string     `json:"example,omitempty"`
	Status     srs.Status `json:"status"`
	Redrill    bool       `json:"redrill,omitempty"`
}

// cardView describes the active session from the learner's point of view.
type cardView struct {
	SessionID string    `json:"session_id"`
	Position  int       `json:"position"`
	Total     int       `json:"total"`
	Remaining int       `json:"remaining"`
	State     string    `json:"state"`
	Mode      string    `json:"mode"`
	Cram      bool      `json:"cram,omitempty"`
	Complete  bool      `json:"complete"`
	Card      *cardFace `json:"card,omitempty"`
	Message   string    `json:"message,omitempty"`
}

func viewOf(q *session.Queue) cardView {
	v := cardView{
		SessionID: q.ID,
		Position:  q.Position() + 1,
		Total:     q.Len(),
		Remaining: q.Remaining(),
		State:     q.State().String(),
		Mode:      string(q.Mode),
		Cram:      q.Cram,
		Complete:  q.Complete(),
	}
	if q.Empty() {
		v.Position = 0
		v.Message = "Nothing to study right now. Add words or come back later."
		return v
	}
	entry, ok := q.Current()
	if !ok {
		v.Position = q.Len()
		v.Message = "Session complete."
		return v
	}
	w := entry.Item.Word
	face := &cardFace{
		WordID:   w.ID,
		Term:     w.Term,
		Phonetic: w.Phonetic,
		Status:   entry.Item.Progress.Status,
		Redrill:  entry.Redrill,
	}
	if q.State() != session.AwaitingFlip {
		face.Definition = w.Definition
		face.Example = w.Example
	}
	v.Card = face
	return v
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func errorResult(format string, args ...any) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf(format, args...))
}

func stringArg(request mcp.CallToolRequest, name string) string {
	s, _ := request.Params.Arguments[name].(string)
	return s
}

func numberArg(request mcp.CallToolRequest, name string) (float64, bool) {
	n, ok := request.Params.Arguments[name].(float64)
	return n, ok
}

// maxWholeNumber is the largest integer a JSON number carries exactly.
const maxWholeNumber = 1 << 53

// wholeNumberArg reads an integral numeric argument. Fractional and
// out-of-range values are rejected instead of being truncated.
func wholeNumberArg(request mcp.CallToolRequest, name string) (int64, bool, error) {
	n, ok := numberArg(request, name)
	if !ok {
		return 0, false, nil
	}
	if n != math.Trunc(n) || math.Abs(n) > maxWholeNumber {
		return 0, true, fmt.Errorf("%s must be a whole number, got %v", name, n)
	}
	return int64(n), true, nil
}

func boolArg(request mcp.CallToolRequest, name string) bool {
	b, _ := request.Params.Arguments[name].(bool)
	return b
}

// optionalDeck reads deck_id and checks that the deck exists.
func (s *vocabServer) optionalDeck(ctx context.Context, request mcp.CallToolRequest) (*int64, *mcp.CallToolResult) {
	id, ok, err := wholeNumberArg(request, "deck_id")
	if err != nil {
		return nil, errorResult("%v", err)
	}
	if !ok {
		return nil, nil
	}
	if _, err := s.store.GetDeck(ctx, id); err != nil {
		if errors.Is(err, storage.ErrDeckNotFound) {
			return nil, errorResult("Deck %d not found", id)
		}
		return nil, errorResult("Error reading deck: %v", err)
	}
	return &id, nil
}

// handleCreateDeck handles the create_deck tool request.
func (s *vocabServer) handleCreateDeck(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := stringArg(request, "name")
	if name == "" {
		return errorResult("Missing required parameter: name"), nil
	}
	deck, err := s.store.CreateDeck(ctx, name, stringArg(request, "description"))
	if err != nil {
		s.logger.Error("Failed to create deck", zap.String("name", name), zap.Error(err))
		return errorResult("Error creating deck: %v", err), nil
	}
	return jsonResult(deck)
}

// handleListDecks handles the list_decks tool request.
func (s *vocabServer) handleListDecks(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	decks, err := s.store.ListDecks(ctx)
	if err != nil {
		return errorResult("Error listing decks: %v", err), nil
	}
	return jsonResult(map[string]any{"decks": decks})
}

// handleAddWord handles the add_word tool request.
func (s *vocabServer) handleAddWord(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deckID, ok, err := wholeNumberArg(request, "deck_id")
	if err != nil {
		return errorResult("%v", err), nil
	}
	if !ok {
		return errorResult("Missing required parameter: deck_id"), nil
	}
	in := storage.WordInput{
		DeckID:     deckID,
		Term:       stringArg(request, "term"),
		Definition: stringArg(request, "definition"),
		Example:    stringArg(request, "example"),
		Phonetic:   stringArg(request, "phonetic"),
	}
	if in.Term == "" || in.Definition == "" {
		return errorResult("Both term and definition are required"), nil
	}
	word, err := s.store.CreateWord(ctx, in)
	if errors.Is(err, storage.ErrDeckNotFound) {
		return errorResult("Deck %d not found", in.DeckID), nil
	}
	if err != nil {
		s.logger.Error("Failed to add word", zap.String("term", in.Term), zap.Error(err))
		return errorResult("Error adding word: %v", err), nil
	}
	return jsonResult(word)
}

// handleDeleteWord handles the delete_word tool request. A word deleted while
// it is still queued in the active session is skipped when answered.
func (s *vocabServer) handleDeleteWord(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, ok, err := wholeNumberArg(request, "word_id")
	if err != nil {
		return errorResult("%v", err), nil
	}
	if !ok {
		return errorResult("Missing required parameter: word_id"), nil
	}
	if err := s.store.DeleteWord(ctx, id); err != nil {
		if errors.Is(err, storage.ErrWordNotFound) {
			return errorResult("Word %d not found", id), nil
		}
		s.logger.Error("Failed to delete word", zap.Int64("word_id", id), zap.Error(err))
		return errorResult("Error deleting word: %v", err), nil
	}
	return jsonResult(map[string]any{"deleted": true, "word_id": id})
}

// handleDeleteDeck handles the delete_deck tool request. The deck's words
// and their progress are deleted with it.
func (s *vocabServer) handleDeleteDeck(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, ok, err := wholeNumberArg(request, "deck_id")
	if err != nil {
		return errorResult("%v", err), nil
	}
	if !ok {
		return errorResult("Missing required parameter: deck_id"), nil
	}
	if err := s.store.DeleteDeck(ctx, id); err != nil {
		if errors.Is(err, storage.ErrDeckNotFound) {
			return errorResult("Deck %d not found", id), nil
		}
		s.logger.Error("Failed to delete deck", zap.Int64("deck_id", id), zap.Error(err))
		return errorResult("Error deleting deck: %v", err), nil
	}
	return jsonResult(map[string]any{"deleted": true, "deck_id": id})
}

// handleListWords handles the list_words tool request.
func (s *vocabServer) handleListWords(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deckID, errRes := s.optionalDeck(ctx, request)
	if errRes != nil {
		return errRes, nil
	}
	words, err := s.store.ListWords(ctx, deckID)
	if err != nil {
		return errorResult("Error listing words: %v", err), nil
	}
	return jsonResult(map[string]any{"words": words, "count": len(words)})
}

// handleStartSession handles the start_session tool request. It replaces any
// active session.
func (s *vocabServer) handleStartSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deckID, errRes := s.optionalDeck(ctx, request)
	if errRes != nil {
		return errRes, nil
	}
	opts := session.StartOptions{
		DeckID:   deckID,
		HardMode: boolArg(request, "hard_mode"),
		Mode:     session.ModeLearn,
	}
	size, _, err := wholeNumberArg(request, "size")
	if err != nil {
		return errorResult("%v", err), nil
	}
	opts.Size = int(size)
	switch mode := stringArg(request, "mode"); mode {
	case "", string(session.ModeLearn):
	case string(session.ModeQuiz):
		opts.Mode = session.ModeQuiz
	default:
		return errorResult("Unknown mode %q (use learn or quiz)", mode), nil
	}

	q, err := s.manager.Start(ctx, opts)
	if err != nil {
		s.logger.Error("Failed to start session", zap.Error(err))
		return errorResult("Error starting session: %v", err), nil
	}

	s.mu.Lock()
	s.active = q
	s.mu.Unlock()
	return jsonResult(viewOf(q))
}

// handleFlipCard handles the flip_card tool request.
func (s *vocabServer) handleFlipCard(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return errorResult("No active session. Call start_session first."), nil
	}
	s.manager.Flip(s.active)
	return jsonResult(viewOf(s.active))
}

type answerResponse struct {
	Result  session.AnswerResult `json:"result"`
	Next    cardView             `json:"next"`
	Warning string               `json:"warning,omitempty"`
}

// handleAnswerCard handles the answer_card tool request.
func (s *vocabServer) handleAnswerCard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, ok, err := wholeNumberArg(request, "quality")
	if err != nil {
		return errorResult("%v", &srs.ValidationError{Field: "quality", Reason: err.Error(), Err: srs.ErrInvalidQuality}), nil
	}
	if !ok {
		return errorResult("Missing required parameter: quality"), nil
	}
	quality, err := srs.ParseQuality(int(raw))
	if err != nil {
		return errorResult("%v", err), nil
	}
	review := srs.Review{Quality: quality}
	if ms, ok := numberArg(request, "response_time_ms"); ok {
		if ms < 0 {
			return errorResult("%v", &srs.ValidationError{Field: "response_time_ms", Reason: "must not be negative", Err: srs.ErrInvalidResponseTime}), nil
		}
		review.ResponseTimeMs = int64(math.Round(ms))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return errorResult("No active session. Call start_session first."), nil
	}

	result, err := s.manager.Answer(ctx, s.active, review)
	resp := answerResponse{Result: result}
	switch {
	case errors.Is(err, session.ErrNotFlipped):
		return errorResult("Flip the card before answering."), nil
	case errors.Is(err, session.ErrSessionComplete):
		return errorResult("This session is complete. Start or restart a session."), nil
	case errors.Is(err, session.ErrFinish):
		// The answer was recorded; only the end-of-session bookkeeping failed.
		resp.Warning = fmt.Sprintf("Session summary not saved yet: %v", err)
	case err != nil:
		return errorResult("Error recording answer: %v", err), nil
	}
	resp.Next = viewOf(s.active)
	return jsonResult(resp)
}

// handleRestartSession handles the restart_session tool request.
func (s *vocabServer) handleRestartSession(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return errorResult("No active session. Call start_session first."), nil
	}
	s.manager.Restart(s.active)
	return jsonResult(viewOf(s.active))
}

type levelResponse struct {
	TotalXP int `json:"total_xp"`
	leveling.LevelInfo
}

// handleGetLevel handles the get_level tool request.
func (s *vocabServer) handleGetLevel(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := levelOf(ctx, s.store)
	if err != nil {
		return errorResult("Error reading XP: %v", err), nil
	}
	return jsonResult(resp)
}

// handleGetStats handles the get_stats tool request.
func (s *vocabServer) handleGetStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := collectStats(ctx, s.store, s.now())
	if err != nil {
		return errorResult("Error collecting stats: %v", err), nil
	}
	return jsonResult(resp)
}
