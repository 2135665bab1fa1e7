// Package pipeline turns one uploaded utterance into one answer: transcribe,
// generate a reply, and extract a structured math operation when the question
// contains one.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mathvoice/mathvoice/internal/audio"
	"github.com/mathvoice/mathvoice/internal/config"
	"github.com/mathvoice/mathvoice/internal/llm"
	"github.com/mathvoice/mathvoice/internal/mathparse"
	"github.com/mathvoice/mathvoice/internal/protocol"
	"github.com/mathvoice/mathvoice/internal/stt"
)

// ErrUnintelligible marks audio that produced no usable transcript. Handlers
// translate it into a client error rather than a server failure.
var ErrUnintelligible = errors.New("could not understand audio")

// Answer is the outcome of processing one utterance.
type Answer struct {
	Transcript string
	Text       string
	MathOp     *protocol.MathOperation
}

type Service struct {
	recognizer stt.Recognizer
	generator  llm.Generator
	defaults   llm.Request
	logger     *slog.Logger
}

func New(cfg config.LLMConfig, recognizer stt.Recognizer, generator llm.Generator, logger *slog.Logger) *Service {
	return &Service{
		recognizer: recognizer,
		generator:  generator,
		defaults:   llm.RequestFromConfig(cfg),
		logger:     logger.With(slog.String("component", "pipeline")),
	}
}

// Process transcribes PCM audio and produces the reply for it.
func (s *Service) Process(ctx context.Context, sessionID string, pcm audio.PCM) (Answer, error) {
	result, err := s.recognizer.Transcribe(ctx, pcm.Data, pcm.SampleRate, pcm.Channels)
	if err != nil {
		return Answer{}, fmt.Errorf("%w: %w", ErrUnintelligible, err)
	}
	transcript := strings.TrimSpace(result.Text)
	if transcript == "" {
		return Answer{}, ErrUnintelligible
	}
	s.logger.Debug("transcribed utterance",
		slog.String("session_id", sessionID),
		slog.String("text", transcript))

	req := s.defaults
	req.SessionID = sessionID
	req.Prompt = transcript

	start := time.Now()
	text, err := llm.Complete(ctx, s.generator, req)
	if err != nil {
		return Answer{Transcript: transcript}, fmt.Errorf("generate reply: %w", err)
	}
	s.logger.Info("generated reply",
		slog.String("session_id", sessionID),
		slog.Duration("latency", time.Since(start)))

	return Answer{
		Transcript: transcript,
		Text:       text,
		MathOp:     mathparse.Extract(transcript),
	}, nil
}
