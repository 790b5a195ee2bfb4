// Package propertytest drives the session manager with random command
// sequences and checks every step against a small model of the session.
package propertytest

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/commands"

	"github.com/danieldreier/mcp-vocab/internal/leveling"
	"github.com/danieldreier/mcp-vocab/internal/session"
	"github.com/danieldreier/mcp-vocab/internal/srs"
	"github.com/danieldreier/mcp-vocab/internal/storage"
)

// Now is the fixed clock of every system under test.
var Now = time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC)

// --- System Under Test Definition ---

// VocabSUT is a session manager on top of a file store.
type VocabSUT struct {
	Store   *storage.FileStorage
	Manager *session.Manager
	DeckID  int64
	Queue   *session.Queue
	Ctx     context.Context
}

// NewVocabSUT opens a fresh store at path with a single deck.
func NewVocabSUT(path string, seed int64) (*VocabSUT, error) {
	ctx := context.Background()
	fs := storage.NewFileStorage(path, nil)
	if err := fs.Load(); err != nil {
		return nil, err
	}
	deck, err := fs.CreateDeck(ctx, "Property", "")
	if err != nil {
		return nil, err
	}
	m := session.NewManager(fs, nil,
		session.WithClock(func() time.Time { return Now }),
		session.WithRand(rand.New(rand.NewSource(seed))),
	)
	return &VocabSUT{Store: fs, Manager: m, DeckID: deck.ID, Ctx: ctx}, nil
}

// --- State Definition ---

// SessionState is the model of the store and the active session.
type SessionState struct {
	Words  int
	Streak int
	XP     int

	Active   bool
	Quiz     bool
	Original int // slots before any redrill was appended
	Len      int
	Cursor   int
	Flipped  bool
	Complete bool

	Logf func(format string, args ...any)
}

// Copy returns a copy of s.
func (s *SessionState) Copy() *SessionState {
	c := *s
	return &c
}

func (s *SessionState) logf(format string, args ...any) {
	if s.Logf != nil {
		s.Logf(format, args...)
	}
}

func fail(s *SessionState, label, format string, args ...any) *gopter.PropResult {
	s.logf("%s: "+format, append([]any{label}, args...)...)
	return gopter.NewPropResult(false, label)
}

// --- AddWordCmd ---

// AddWordCmd creates a word in the deck.
type AddWordCmd struct {
	Term string
}

func (c *AddWordCmd) Run(sut commands.SystemUnderTest) commands.Result {
	v := sut.(*VocabSUT)
	_, err := v.Store.CreateWord(v.Ctx, storage.WordInput{DeckID: v.DeckID, Term: c.Term, Definition: "meaning of " + c.Term})
	return err
}

func (c *AddWordCmd) NextState(state commands.State) commands.State {
	s := state.(*SessionState).Copy()
	s.Words++
	return s
}

func (c *AddWordCmd) PreCondition(commands.State) bool { return true }

func (c *AddWordCmd) PostCondition(state commands.State, result commands.Result) *gopter.PropResult {
	if err, ok := result.(error); ok && err != nil {
		return fail(state.(*SessionState), c.String(), "create word: %v", err)
	}
	return &gopter.PropResult{Status: gopter.PropTrue}
}

func (c *AddWordCmd) String() string { return fmt.Sprintf("AddWord(%q)", c.Term) }

// --- StartCmd ---

// StartCmd starts a session over every deck.
type StartCmd struct {
	Size int
	Quiz bool
}

type startResult struct {
	Len      int
	Complete bool
	Err      error
}

func (c *StartCmd) mode() session.Mode {
	if c.Quiz {
		return session.ModeQuiz
	}
	return session.ModeLearn
}

func (c *StartCmd) Run(sut commands.SystemUnderTest) commands.Result {
	v := sut.(*VocabSUT)
	q, err := v.Manager.Start(v.Ctx, session.StartOptions{Size: c.Size, Mode: c.mode()})
	if err != nil {
		return startResult{Err: err}
	}
	v.Queue = q
	return startResult{Len: q.Len(), Complete: q.Complete()}
}

func (c *StartCmd) NextState(state commands.State) commands.State {
	s := state.(*SessionState).Copy()
	s.Active = true
	s.Quiz = c.Quiz
	s.Cursor = 0
	s.Flipped = false
	return s
}

func (c *StartCmd) PreCondition(commands.State) bool { return true }

// PostCondition checks the bound and records the queue length in the model,
// since which words are due depends on their earlier answers.
func (c *StartCmd) PostCondition(state commands.State, result commands.Result) *gopter.PropResult {
	s := state.(*SessionState)
	r := result.(startResult)
	if r.Err != nil {
		return fail(s, c.String(), "start: %v", r.Err)
	}
	size := c.Size
	if size <= 0 {
		size = session.DefaultSessionSize
	}
	if r.Len > min(size, s.Words) {
		return fail(s, c.String(), "queue has %d cards, bound is %d", r.Len, min(size, s.Words))
	}
	if r.Complete != (r.Len == 0) {
		return fail(s, c.String(), "complete=%v with %d cards", r.Complete, r.Len)
	}
	s.Original = r.Len
	s.Len = r.Len
	s.Complete = r.Len == 0
	return &gopter.PropResult{Status: gopter.PropTrue}
}

func (c *StartCmd) String() string { return fmt.Sprintf("Start(size=%d, quiz=%v)", c.Size, c.Quiz) }

// --- FlipCmd ---

// FlipCmd flips the current card.
type FlipCmd struct{}

func (c *FlipCmd) Run(sut commands.SystemUnderTest) commands.Result {
	v := sut.(*VocabSUT)
	return v.Manager.Flip(v.Queue)
}

func (c *FlipCmd) NextState(state commands.State) commands.State {
	return state.(*SessionState).Copy()
}

func (c *FlipCmd) PreCondition(state commands.State) bool { return state.(*SessionState).Active }

func (c *FlipCmd) PostCondition(state commands.State, result commands.Result) *gopter.PropResult {
	s := state.(*SessionState)
	changed := result.(bool)
	want := !s.Complete && !s.Flipped
	if changed != want {
		return fail(s, c.String(), "flip changed=%v, want %v", changed, want)
	}
	if !s.Complete {
		s.Flipped = true
	}
	return &gopter.PropResult{Status: gopter.PropTrue}
}

func (c *FlipCmd) String() string { return "Flip" }

// --- AnswerCmd ---

// AnswerCmd answers the current card.
type AnswerCmd struct {
	Quality srs.Quality
}

type answerResult struct {
	Result  session.AnswerResult
	Err     error
	Stored  srs.Progress
	StoreXP int
}

func (c *AnswerCmd) Run(sut commands.SystemUnderTest) commands.Result {
	v := sut.(*VocabSUT)
	res, err := v.Manager.Answer(v.Ctx, v.Queue, srs.Review{Quality: c.Quality})
	out := answerResult{Result: res, Err: err}
	if err == nil {
		if w, gerr := v.Store.GetWord(v.Ctx, res.WordID); gerr == nil {
			out.Stored = w.Progress
		}
		out.StoreXP, _ = v.Store.ReadTotalXP(v.Ctx)
	}
	return out
}

func (c *AnswerCmd) NextState(state commands.State) commands.State {
	return state.(*SessionState).Copy()
}

func (c *AnswerCmd) PreCondition(state commands.State) bool { return state.(*SessionState).Active }

// PostCondition checks the answer against the model and then advances the
// model. Only slots before Original can be re-queued: each word appears once
// among them and at most one redrill is allowed per word.
func (c *AnswerCmd) PostCondition(state commands.State, result commands.Result) *gopter.PropResult {
	s := state.(*SessionState)
	r := result.(answerResult)
	label := c.String()

	switch {
	case s.Complete:
		if !errors.Is(r.Err, session.ErrSessionComplete) {
			return fail(s, label, "answer on complete session: %v", r.Err)
		}
		return &gopter.PropResult{Status: gopter.PropTrue}
	case !s.Flipped:
		if !errors.Is(r.Err, session.ErrNotFlipped) {
			return fail(s, label, "answer before flip: %v", r.Err)
		}
		return &gopter.PropResult{Status: gopter.PropTrue}
	case r.Err != nil:
		return fail(s, label, "answer: %v", r.Err)
	}

	res := r.Result
	wantXP := leveling.XPForAnswer(c.Quality, s.Streak, s.Quiz)
	if res.XPEarned != wantXP || res.TotalXP != s.XP+wantXP || r.StoreXP != res.TotalXP {
		return fail(s, label, "xp earned=%d total=%d stored=%d, want %d and %d", res.XPEarned, res.TotalXP, r.StoreXP, wantXP, s.XP+wantXP)
	}
	if err := res.Progress.Validate(); err != nil {
		return fail(s, label, "invalid progress: %v", err)
	}
	if res.Progress.Interval != r.Stored.Interval || res.Progress.Box != r.Stored.Box ||
		res.Progress.EaseFactor != r.Stored.EaseFactor || res.Progress.TotalReviews != r.Stored.TotalReviews {
		return fail(s, label, "stored progress %+v differs from %+v", r.Stored, res.Progress)
	}
	if c.Quality == srs.Again && res.Progress.Status != srs.StatusLearning {
		return fail(s, label, "again left status %s", res.Progress.Status)
	}

	wantRequeue := c.Quality == srs.Again && s.Cursor < s.Original
	if res.Requeued != wantRequeue {
		return fail(s, label, "requeued=%v at slot %d of %d originals", res.Requeued, s.Cursor, s.Original)
	}
	if wantRequeue {
		s.Len++
	}
	wantComplete := s.Cursor+1 >= s.Len
	if res.Complete != wantComplete {
		return fail(s, label, "complete=%v at slot %d of %d", res.Complete, s.Cursor, s.Len)
	}

	s.XP += wantXP
	s.Flipped = false
	if wantComplete {
		s.Complete = true
		s.Streak = 1
		if res.Summary == nil || res.Summary.Streak != 1 {
			return fail(s, label, "missing or wrong summary %+v", res.Summary)
		}
	} else {
		s.Cursor++
	}
	return &gopter.PropResult{Status: gopter.PropTrue}
}

func (c *AnswerCmd) String() string { return fmt.Sprintf("Answer(%s)", c.Quality) }

// --- RestartCmd ---

// RestartCmd rewinds the active session.
type RestartCmd struct{}

func (c *RestartCmd) Run(sut commands.SystemUnderTest) commands.Result {
	v := sut.(*VocabSUT)
	v.Manager.Restart(v.Queue)
	return v.Queue.Len()
}

func (c *RestartCmd) NextState(state commands.State) commands.State {
	return state.(*SessionState).Copy()
}

func (c *RestartCmd) PreCondition(state commands.State) bool { return state.(*SessionState).Active }

func (c *RestartCmd) PostCondition(state commands.State, result commands.Result) *gopter.PropResult {
	s := state.(*SessionState)
	if got := result.(int); got != s.Original {
		return fail(s, c.String(), "restart kept %d cards, want %d", got, s.Original)
	}
	s.Len = s.Original
	s.Cursor = 0
	s.Flipped = false
	s.Complete = s.Original == 0
	return &gopter.PropResult{Status: gopter.PropTrue}
}

func (c *RestartCmd) String() string { return "Restart" }
