package stt

import (
	"fmt"

	"github.com/mathvoice/mathvoice/internal/config"
)

// FromConfig builds the configured recognizer backend.
func FromConfig(cfg config.STTConfig) (Recognizer, error) {
	switch cfg.Mode {
	case "mock":
		return NewMockRecognizer(""), nil
	case "exec":
		return NewExecRecognizer(cfg)
	default:
		return nil, fmt.Errorf("unknown stt mode %q", cfg.Mode)
	}
}
