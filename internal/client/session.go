package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sync"
	"time"

	"github.com/mathvoice/mathvoice/internal/config"
	"github.com/mathvoice/mathvoice/internal/protocol"
)

// genericErrorMessage is the single user-facing message for any submission
// failure; the underlying cause goes to the log only.
const genericErrorMessage = "Sorry, something went wrong. Please try again."

// ErrNotReady reports a Submit without a captured blob or while another
// phase is active. The UI hides the send control in those states, so hitting
// this is a programming error rather than a user mistake.
var ErrNotReady = errors.New("no captured audio ready to submit")

// State is a snapshot of the session for rendering. At most one of Recording
// and Processing is true; Response and Err are never both set for the same
// submission.
type State struct {
	Recording  bool
	Processing bool
	HasAudio   bool
	Response   *protocol.ChatResponse
	Err        string
}

// Session drives one record/submit/playback conversation against the server.
type Session struct {
	recorder Recorder
	speaker  Speaker
	client   *http.Client
	baseURL  string
	cookie   string
	logger   *slog.Logger

	mu         sync.Mutex
	recording  bool
	processing bool
	captured   []byte
	response   *protocol.ChatResponse
	errMsg     string
	speakWG    sync.WaitGroup
}

func NewSession(cfg config.ClientConfig, recorder Recorder, speaker Speaker, logger *slog.Logger) *Session {
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if speaker == nil {
		speaker = NewNoopSpeaker()
	}
	return &Session{
		recorder: recorder,
		speaker:  speaker,
		client:   &http.Client{Timeout: timeout},
		baseURL:  cfg.ServerURL,
		cookie:   cfg.AuthCookie,
		logger:   logger.With(slog.String("component", "session")),
	}
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Recording:  s.recording,
		Processing: s.processing,
		HasAudio:   len(s.captured) > 0,
		Response:   s.response,
		Err:        s.errMsg,
	}
}

// StartRecording acquires the microphone and begins capturing. A failure to
// acquire the device is logged and leaves the session unchanged. Starting a
// new recording discards any previously captured, unsent blob.
func (s *Session) StartRecording() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recording || s.processing {
		return
	}
	if err := s.recorder.Start(); err != nil {
		s.logger.Error("failed to start recording", slog.String("error", err.Error()))
		return
	}
	s.recording = true
	s.captured = nil
}

// StopRecording finalizes the capture and keeps the blob for submission.
// Without an active recording it is a no-op.
func (s *Session) StopRecording() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.recording {
		return
	}
	s.recording = false
	blob, err := s.recorder.Stop()
	if err != nil {
		s.logger.Error("failed to finalize recording", slog.String("error", err.Error()))
		return
	}
	s.captured = blob
}

// CanSubmit reports whether the send control should be available.
func (s *Session) CanSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.captured) > 0 && !s.recording && !s.processing
}

// Submit uploads the captured blob and stores the server's answer. It clears
// both the previous response and error before issuing the request, keeps the
// processing flag set for exactly the duration of the round trip, and speaks
// a non-empty text response without blocking.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	if len(s.captured) == 0 || s.recording || s.processing {
		s.mu.Unlock()
		return ErrNotReady
	}
	blob := s.captured
	s.processing = true
	s.errMsg = ""
	s.response = nil
	s.mu.Unlock()

	resp, err := s.postAudio(ctx, blob)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.processing = false
	if err != nil {
		s.logger.Error("submission failed", slog.String("error", err.Error()))
		s.errMsg = genericErrorMessage
		return nil
	}
	s.captured = nil
	s.response = resp

	if resp.TextResponse != "" {
		s.speakWG.Add(1)
		go func(text, responseID string) {
			defer s.speakWG.Done()
			speakCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.speaker.Speak(speakCtx, text, responseID); err != nil {
				s.logger.Warn("speech playback failed", slog.String("error", err.Error()))
			}
		}(resp.TextResponse, resp.ResponseID)
	}
	return nil
}

// Wait blocks until background playback started by Submit has finished.
func (s *Session) Wait() {
	s.speakWG.Wait()
}

func (s *Session) postAudio(ctx context.Context, blob []byte) (*protocol.ChatResponse, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="audio"; filename="recording.wav"`)
	header.Set("Content-Type", "audio/wav")
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("create form part: %w", err)
	}
	if _, err := part.Write(blob); err != nil {
		return nil, fmt.Errorf("write audio part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/process-audio", &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if s.cookie != "" {
		req.Header.Set("Cookie", s.cookie)
	}

	httpResp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload audio: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		return nil, fmt.Errorf("server returned %s: %s", httpResp.Status, bytes.TrimSpace(detail))
	}

	var parsed protocol.ChatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &parsed, nil
}

// Health checks the server's /api/health endpoint.
func (s *Session) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/health", nil)
	if err != nil {
		return err
	}
	if s.cookie != "" {
		req.Header.Set("Cookie", s.cookie)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}
