// Package server exposes the mathvoice HTTP API: audio upload and answer,
// spoken replies, history, and health.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mathvoice/mathvoice/internal/audio"
	"github.com/mathvoice/mathvoice/internal/bus"
	"github.com/mathvoice/mathvoice/internal/config"
	"github.com/mathvoice/mathvoice/internal/history"
	"github.com/mathvoice/mathvoice/internal/pipeline"
	"github.com/mathvoice/mathvoice/internal/protocol"
	"github.com/mathvoice/mathvoice/internal/tts"
)

const (
	maxUploadBytes  = 20 << 20
	processTimeout  = 60 * time.Second
	synthTimeout    = 45 * time.Second
	audioFieldName  = "audio"
	sessionHeader   = "X-Session-ID"
	historyMaxLimit = 200
)

type Server struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *pipeline.Service
	synth    tts.Synthesizer
	store    *history.Store
	bus      *bus.Client
	replies  *replyCache

	requests metric.Int64Counter
}

// New wires the API surface. The bus client may be nil when event publishing
// is disabled.
func New(cfg config.Config, p *pipeline.Service, synth tts.Synthesizer, store *history.Store, busClient *bus.Client, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "http-api")),
		pipeline: p,
		synth:    synth,
		store:    store,
		bus:      busClient,
		replies:  newReplyCache(256),
	}

	meter := otel.Meter("github.com/mathvoice/mathvoice/server")
	counter, err := meter.Int64Counter("mathvoice_process_audio_requests_total",
		metric.WithDescription("Audio processing requests by outcome"))
	if err != nil {
		s.logger.Warn("failed to create request counter", slog.String("error", err.Error()))
	} else {
		s.requests = counter
	}
	return s
}

// Routes registers the API handlers on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.Handle("/api/process-audio", s.cors(http.HandlerFunc(s.handleProcessAudio)))
	mux.Handle("/api/audio/", s.cors(http.HandlerFunc(s.handleAudio)))
	mux.Handle("/api/history", s.cors(http.HandlerFunc(s.handleHistory)))
	mux.Handle("/api/health", s.cors(http.HandlerFunc(s.handleHealth)))
}

// cors mirrors the origin back for configured origins and always allows
// credentials, matching what the browser front end expects.
func (s *Server) cors(next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(s.cfg.CORS.AllowedOrigins))
	for _, origin := range s.cfg.CORS.AllowedOrigins {
		allowed[origin] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && allowed[origin] {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
			if r.Method == http.MethodOptions {
				h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "*")
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleProcessAudio(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile(audioFieldName)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing audio file in request.")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	s.logger.Debug("received audio upload",
		slog.String("content_type", contentType),
		slog.Int64("size", header.Size))
	if !strings.Contains(contentType, "audio") {
		s.logger.Warn("invalid upload content type", slog.String("content_type", contentType))
		s.countRequest(r.Context(), "invalid_type")
		writeError(w, http.StatusBadRequest, "Invalid file type. Please upload an audio file.")
		return
	}

	payload, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read audio file.")
		return
	}

	pcm, err := audio.DecodeWav(payload)
	if err != nil {
		s.logger.Warn("failed to decode upload", slog.String("error", err.Error()))
		s.countRequest(r.Context(), "undecodable")
		writeError(w, http.StatusBadRequest, "Could not understand audio")
		return
	}

	sessionID := r.Header.Get(sessionHeader)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(r.Context(), processTimeout)
	defer cancel()

	answer, err := s.pipeline.Process(ctx, sessionID, pcm)
	if err != nil {
		if errors.Is(err, pipeline.ErrUnintelligible) {
			s.logger.Warn("speech recognition failed", slog.String("error", err.Error()))
			s.countRequest(r.Context(), "unintelligible")
			writeError(w, http.StatusBadRequest, "Could not understand audio")
			return
		}
		s.logger.Error("answer pipeline failed", slog.String("error", err.Error()))
		s.countRequest(r.Context(), "pipeline_error")
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("AI processing error: %s", err))
		return
	}

	responseID := uuid.NewString()
	s.replies.put(responseID, answer.Text)
	s.persist(r.Context(), sessionID, responseID, answer)
	s.broadcast(sessionID, responseID, answer)
	s.countRequest(r.Context(), "ok")

	writeJSON(w, http.StatusOK, protocol.ChatResponse{
		TextResponse:  answer.Text,
		MathOperation: answer.MathOp,
		ResponseID:    responseID,
	})
}

func (s *Server) persist(ctx context.Context, sessionID, responseID string, answer pipeline.Answer) {
	if s.store == nil {
		return
	}
	err := s.store.Append(ctx, history.Exchange{
		ResponseID: responseID,
		SessionID:  sessionID,
		Transcript: answer.Transcript,
		Text:       answer.Text,
		MathOp:     answer.MathOp,
	})
	if err != nil {
		s.logger.Warn("failed to persist exchange", slog.String("error", err.Error()))
	}
}

func (s *Server) broadcast(sessionID, responseID string, answer pipeline.Answer) {
	if s.bus == nil {
		return
	}
	now := time.Now().UTC()
	s.bus.PublishTranscript(protocol.TranscriptEvent{
		SessionID: sessionID,
		Text:      answer.Transcript,
		Timestamp: now,
	})
	s.bus.PublishResponse(protocol.ResponseEvent{
		SessionID:  sessionID,
		ResponseID: responseID,
		Text:       answer.Text,
		MathOp:     answer.MathOp,
		Timestamp:  now,
	})
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	responseID := strings.TrimPrefix(r.URL.Path, "/api/audio/")
	if responseID == "" || strings.Contains(responseID, "/") {
		writeError(w, http.StatusNotFound, "unknown response id")
		return
	}

	text, ok := s.replies.get(responseID)
	if !ok && s.store != nil {
		ex, err := s.store.GetByResponseID(r.Context(), responseID)
		if err == nil {
			text = ex.Text
			ok = true
		}
	}
	if !ok || text == "" {
		writeError(w, http.StatusNotFound, "unknown response id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), synthTimeout)
	defer cancel()

	pcm, sampleRate, channels, err := tts.Collect(ctx, s.synth, tts.SynthRequest{Text: text, Voice: s.cfg.TTS.Voice})
	if err != nil {
		s.logger.Error("speech synthesis failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error generating audio: %s", err))
		return
	}
	if sampleRate == 0 {
		sampleRate = s.cfg.TTS.SampleRate
	}
	if channels == 0 {
		channels = s.cfg.TTS.Channels
	}

	payload, err := audio.EncodeWav(pcm, sampleRate, channels)
	if err != nil {
		s.logger.Error("failed to encode spoken reply", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Error generating audio")
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	_, _ = w.Write(payload)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if limit > historyMaxLimit {
		limit = historyMaxLimit
	}

	var exchanges []history.Exchange
	if s.store != nil {
		var err error
		exchanges, err = s.store.ListRecent(r.Context(), limit)
		if err != nil {
			s.logger.Error("failed to list history", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "failed to list history")
			return
		}
	}

	type entry struct {
		ResponseID string                  `json:"response_id"`
		SessionID  string                  `json:"session_id"`
		Transcript string                  `json:"transcript"`
		Text       string                  `json:"text_response"`
		MathOp     *protocol.MathOperation `json:"math_operation,omitempty"`
		CreatedAt  time.Time               `json:"created_at"`
	}
	entries := make([]entry, 0, len(exchanges))
	for _, ex := range exchanges {
		entries = append(entries, entry{
			ResponseID: ex.ResponseID,
			SessionID:  ex.SessionID,
			Transcript: ex.Transcript,
			Text:       ex.Text,
			MathOp:     ex.MathOp,
			CreatedAt:  ex.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":     len(entries),
		"exchanges": entries,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) countRequest(ctx context.Context, outcome string) {
	if s.requests == nil {
		return
	}
	s.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
