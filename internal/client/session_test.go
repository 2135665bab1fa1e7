package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/mathvoice/mathvoice/internal/config"
)

type fakeRecorder struct {
	blob     []byte
	active   bool
	startErr error
	stops    int
}

func (f *fakeRecorder) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	f.active = true
	return nil
}

func (f *fakeRecorder) Stop() ([]byte, error) {
	if !f.active {
		return nil, nil
	}
	f.active = false
	f.stops++
	return f.blob, nil
}

type fakeSpeaker struct {
	mu     sync.Mutex
	spoken []string
}

func (f *fakeSpeaker) Speak(ctx context.Context, text, responseID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, text)
	return nil
}

func (f *fakeSpeaker) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession(t *testing.T, serverURL string, rec Recorder, spk Speaker) *Session {
	t.Helper()
	cfg := config.ClientConfig{ServerURL: serverURL, TimeoutMS: 5000}
	return NewSession(cfg, rec, spk, testLogger())
}

func TestRecordStopYieldsBlob(t *testing.T) {
	rec := &fakeRecorder{blob: []byte("pcm")}
	s := newTestSession(t, "http://unused", rec, nil)

	s.StartRecording()
	if !s.State().Recording {
		t.Fatal("expected recording state")
	}
	s.StopRecording()

	state := s.State()
	if state.Recording {
		t.Fatal("expected recording to have stopped")
	}
	if !state.HasAudio {
		t.Fatal("expected a captured blob")
	}
	if rec.active {
		t.Fatal("expected the device to be released")
	}
	if rec.stops != 1 {
		t.Fatalf("stops = %d, want 1", rec.stops)
	}
}

func TestStopWithoutStartIsNoop(t *testing.T) {
	rec := &fakeRecorder{blob: []byte("pcm")}
	s := newTestSession(t, "http://unused", rec, nil)

	s.StopRecording()
	if rec.stops != 0 {
		t.Fatalf("stops = %d, want 0", rec.stops)
	}
	if s.State().HasAudio {
		t.Fatal("expected no captured blob")
	}
}

func TestNewRecordingDiscardsUnsentBlob(t *testing.T) {
	rec := &fakeRecorder{blob: []byte("pcm")}
	s := newTestSession(t, "http://unused", rec, nil)

	s.StartRecording()
	s.StopRecording()
	if !s.State().HasAudio {
		t.Fatal("expected first capture")
	}

	s.StartRecording()
	if s.State().HasAudio {
		t.Fatal("expected previous blob to be discarded")
	}
}

func TestStartFailureLeavesSessionIdle(t *testing.T) {
	rec := &fakeRecorder{startErr: io.ErrClosedPipe}
	s := newTestSession(t, "http://unused", rec, nil)

	s.StartRecording()
	if s.State().Recording {
		t.Fatal("expected session to stay idle after start failure")
	}
}

func TestSubmitRequiresCapturedAudio(t *testing.T) {
	rec := &fakeRecorder{blob: []byte("pcm")}
	s := newTestSession(t, "http://unused", rec, nil)

	if s.CanSubmit() {
		t.Fatal("expected submit to be unavailable without audio")
	}
	if err := s.Submit(context.Background()); err != ErrNotReady {
		t.Fatalf("err = %v, want ErrNotReady", err)
	}

	s.StartRecording()
	if s.CanSubmit() {
		t.Fatal("expected submit to be unavailable while recording")
	}
	if err := s.Submit(context.Background()); err != ErrNotReady {
		t.Fatalf("err = %v, want ErrNotReady", err)
	}
}

func TestSubmitWhileProcessingRejected(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text_response":"4","math_operation":null}`))
	}))
	defer srv.Close()

	rec := &fakeRecorder{blob: []byte("pcm")}
	s := newTestSession(t, srv.URL, rec, &fakeSpeaker{})

	s.StartRecording()
	s.StopRecording()

	done := make(chan error, 1)
	go func() { done <- s.Submit(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for !s.State().Processing {
		if time.Now().After(deadline) {
			t.Fatal("first submission never entered processing")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if s.CanSubmit() {
		t.Fatal("expected submit to be unavailable while processing")
	}
	if err := s.Submit(context.Background()); err != ErrNotReady {
		t.Fatalf("second submit err = %v, want ErrNotReady", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	s.Wait()

	state := s.State()
	if state.Response == nil || state.Response.TextResponse != "4" {
		t.Fatalf("unexpected response: %+v", state.Response)
	}
}

func TestSubmitSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/process-audio" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		file, header, err := r.FormFile("audio")
		if err != nil {
			t.Errorf("missing audio field: %v", err)
			http.Error(w, "bad", http.StatusBadRequest)
			return
		}
		defer file.Close()
		if ct := header.Header.Get("Content-Type"); ct != "audio/wav" {
			t.Errorf("part content type = %q, want audio/wav", ct)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text_response":"4","math_operation":{"num1":2,"operator":"+","num2":2,"result":4},"response_id":"r1"}`))
	}))
	defer srv.Close()

	rec := &fakeRecorder{blob: []byte("pcm")}
	spk := &fakeSpeaker{}
	s := newTestSession(t, srv.URL, rec, spk)

	s.StartRecording()
	s.StopRecording()
	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	s.Wait()

	state := s.State()
	if state.Processing {
		t.Fatal("expected processing to have finished")
	}
	if state.Err != "" {
		t.Fatalf("unexpected error message: %q", state.Err)
	}
	if state.Response == nil || state.Response.TextResponse != "4" {
		t.Fatalf("unexpected response: %+v", state.Response)
	}
	op := state.Response.MathOperation
	if op == nil || op.Num1 != 2 || op.Num2 != 2 || op.Operator != "+" || op.Result != 4 {
		t.Fatalf("unexpected operation: %+v", op)
	}
	if state.HasAudio {
		t.Fatal("expected captured blob to be cleared after success")
	}
	if got := spk.texts(); len(got) != 1 || got[0] != "4" {
		t.Fatalf("spoken = %v, want [4]", got)
	}
}

func TestSubmitWithoutOperation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text_response":"hello there","math_operation":null}`))
	}))
	defer srv.Close()

	rec := &fakeRecorder{blob: []byte("pcm")}
	s := newTestSession(t, srv.URL, rec, &fakeSpeaker{})

	s.StartRecording()
	s.StopRecording()
	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	s.Wait()

	state := s.State()
	if state.Response == nil || state.Response.TextResponse != "hello there" {
		t.Fatalf("unexpected response: %+v", state.Response)
	}
	if state.Response.MathOperation != nil {
		t.Fatalf("expected no operation, got %+v", state.Response.MathOperation)
	}
}

func TestSubmitFailureKeepsBlob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"AI processing error: boom"}`))
	}))
	defer srv.Close()

	rec := &fakeRecorder{blob: []byte("pcm")}
	spk := &fakeSpeaker{}
	s := newTestSession(t, srv.URL, rec, spk)

	s.StartRecording()
	s.StopRecording()
	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	state := s.State()
	if state.Processing {
		t.Fatal("expected processing to have finished")
	}
	if state.Err == "" {
		t.Fatal("expected an error message")
	}
	if state.Response != nil {
		t.Fatalf("expected no response beside the error, got %+v", state.Response)
	}
	if !state.HasAudio {
		t.Fatal("expected the blob to survive a failed submission")
	}
	if len(spk.texts()) != 0 {
		t.Fatal("expected no playback after failure")
	}
}

func TestSubmitClearsPreviousError(t *testing.T) {
	var fail bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text_response":"6","math_operation":null}`))
	}))
	defer srv.Close()

	rec := &fakeRecorder{blob: []byte("pcm")}
	s := newTestSession(t, srv.URL, rec, &fakeSpeaker{})

	fail = true
	s.StartRecording()
	s.StopRecording()
	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if s.State().Err == "" {
		t.Fatal("expected an error message after failure")
	}

	fail = false
	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	s.Wait()

	state := s.State()
	if state.Err != "" {
		t.Fatalf("expected error to be cleared, got %q", state.Err)
	}
	if state.Response == nil || state.Response.TextResponse != "6" {
		t.Fatalf("unexpected response: %+v", state.Response)
	}
}

func TestEmptyResponseNotSpoken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text_response":"","math_operation":null}`))
	}))
	defer srv.Close()

	rec := &fakeRecorder{blob: []byte("pcm")}
	spk := &fakeSpeaker{}
	s := newTestSession(t, srv.URL, rec, spk)

	s.StartRecording()
	s.StopRecording()
	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	s.Wait()

	if len(spk.texts()) != 0 {
		t.Fatal("expected nothing to be spoken for an empty answer")
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	s := newTestSession(t, srv.URL, &fakeRecorder{}, nil)
	if err := s.Health(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}

	bad := newTestSession(t, srv.URL+"/missing", &fakeRecorder{}, nil)
	if err := bad.Health(context.Background()); err == nil {
		t.Fatal("expected an error for a bad endpoint")
	}
}
