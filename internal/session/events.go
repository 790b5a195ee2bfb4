package session

import (
	"context"

	"github.com/danieldreier/mcp-vocab/internal/srs"
	"go.uber.org/zap"
)

// Signals are emitted after every successfully recorded answer so that an
// achievement layer can evaluate its own rules.
type Signals struct {
	SessionID          string      `json:"session_id"`
	WordID             int64       `json:"word_id"`
	Quality            srs.Quality `json:"quality"`
	WordsTotalReviewed int         `json:"words_total_reviewed"`
	MasteredCount      int         `json:"mastered_count"`
	ResponseTimeMs     int64       `json:"response_time_ms"`
	HourOfDay          int         `json:"hour_of_day"`
}

// EventSink receives answer signals. Emit must not block for long; the
// session waits for it before advancing.
type EventSink interface {
	Emit(ctx context.Context, s Signals)
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(ctx context.Context, s Signals)

// Emit implements EventSink.
func (f SinkFunc) Emit(ctx context.Context, s Signals) { f(ctx, s) }

type nopSink struct{}

func (nopSink) Emit(context.Context, Signals) {}

// NopSink discards all signals.
var NopSink EventSink = nopSink{}

// LogSink writes every signal to a zap logger at info level.
type LogSink struct {
	Logger *zap.Logger
}

// Emit implements EventSink.
func (l LogSink) Emit(_ context.Context, s Signals) {
	l.Logger.Info("Answer signal",
		zap.String("session_id", s.SessionID),
		zap.Int64("word_id", s.WordID),
		zap.Stringer("quality", s.Quality),
		zap.Int("words_total_reviewed", s.WordsTotalReviewed),
		zap.Int("mastered_count", s.MasteredCount),
		zap.Int64("response_time_ms", s.ResponseTimeMs),
		zap.Int("hour_of_day", s.HourOfDay),
	)
}
