package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/exec"

	"github.com/mattn/go-shellwords"

	"github.com/mathvoice/mathvoice/internal/config"
)

// Speaker reads a response aloud. Implementations must be safe to call from a
// background goroutine; playback never blocks the session flow.
type Speaker interface {
	Speak(ctx context.Context, text, responseID string) error
}

type noopSpeaker struct{}

func NewNoopSpeaker() Speaker { return noopSpeaker{} }

func (noopSpeaker) Speak(context.Context, string, string) error { return nil }

type execSpeaker struct {
	cmd []string
}

// NewExecSpeaker speaks through a local synthesis command (espeak, say...)
// that takes the text as its final argument.
func NewExecSpeaker(command string) (Speaker, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse speak command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("speak command empty")
	}
	return &execSpeaker{cmd: args}, nil
}

func (s *execSpeaker) Speak(ctx context.Context, text, _ string) error {
	args := append(append([]string{}, s.cmd[1:]...), text)
	cmd := exec.CommandContext(ctx, s.cmd[0], args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("speak command failed: %w", err)
	}
	return nil
}

type remoteSpeaker struct {
	baseURL string
	cookie  string
	play    []string
	client  *http.Client
}

// NewRemoteSpeaker fetches the server-synthesized spoken reply and pipes the
// WAV stream into a player command's stdin (aplay, ffplay -, ...).
func NewRemoteSpeaker(cfg config.ClientConfig) (Speaker, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.PlayCommand)
	if err != nil {
		return nil, fmt.Errorf("parse play command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("play command empty")
	}
	return &remoteSpeaker{
		baseURL: cfg.ServerURL,
		cookie:  cfg.AuthCookie,
		play:    args,
		client:  http.DefaultClient,
	}, nil
}

func (s *remoteSpeaker) Speak(ctx context.Context, _, responseID string) error {
	if responseID == "" {
		return errors.New("response id missing, cannot fetch spoken reply")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/audio/"+responseID, nil)
	if err != nil {
		return err
	}
	if s.cookie != "" {
		req.Header.Set("Cookie", s.cookie)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch spoken reply: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("spoken reply unavailable: %s", resp.Status)
	}

	cmd := exec.CommandContext(ctx, s.play[0], s.play[1:]...)
	cmd.Stdin = resp.Body
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("play command failed: %w", err)
	}
	return nil
}

// SpeakerFromConfig builds the configured playback backend.
func SpeakerFromConfig(cfg config.ClientConfig) (Speaker, error) {
	switch cfg.SpeakerMode {
	case "off":
		return NewNoopSpeaker(), nil
	case "exec":
		return NewExecSpeaker(cfg.SpeakCommand)
	case "remote":
		return NewRemoteSpeaker(cfg)
	default:
		return nil, fmt.Errorf("unknown speaker mode %q", cfg.SpeakerMode)
	}
}
