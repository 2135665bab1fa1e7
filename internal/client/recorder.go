// Package client implements the interactive side of mathvoice: microphone
// capture, the ask/answer session flow, spoken playback, and terminal
// rendering of results.
package client

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/mattn/go-shellwords"
)

// Recorder captures microphone audio into a single WAV blob per session.
type Recorder interface {
	// Start begins a capture session. It fails when the device cannot be
	// acquired or a capture is already running.
	Start() error
	// Stop finalizes the capture and returns the recorded blob. Calling it
	// without a running capture is a no-op returning (nil, nil).
	Stop() ([]byte, error)
}

// ErrAlreadyRecording reports a Start while a capture session is active.
var ErrAlreadyRecording = errors.New("capture already in progress")

type execRecorder struct {
	cmd  []string
	mu   sync.Mutex
	proc *exec.Cmd
	path string
}

// NewExecRecorder records through an external capture command (arecord, rec,
// sox...) that writes a WAV file at the path appended to its arguments and
// finishes the file when interrupted.
func NewExecRecorder(command string) (Recorder, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse record command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("record command empty")
	}
	return &execRecorder{cmd: args}, nil
}

func (r *execRecorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.proc != nil {
		return ErrAlreadyRecording
	}

	path := filepath.Join(os.TempDir(), fmt.Sprintf("mathvoice-%d.wav", time.Now().UnixNano()))
	args := append(append([]string{}, r.cmd[1:]...), path)
	proc := exec.Command(r.cmd[0], args...)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("start capture: %w", err)
	}
	r.proc = proc
	r.path = path
	return nil
}

func (r *execRecorder) Stop() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.proc == nil {
		return nil, nil
	}
	proc := r.proc
	path := r.path
	r.proc = nil
	r.path = ""

	// Interrupt lets the capture tool flush and close the WAV header; kill is
	// the fallback when the process ignores it.
	if err := proc.Process.Signal(os.Interrupt); err != nil {
		_ = proc.Process.Kill()
	}
	_ = proc.Wait()

	defer os.Remove(path)
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read capture file: %w", err)
	}
	return blob, nil
}
