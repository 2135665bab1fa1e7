package stt

import (
	"context"
	"fmt"
)

type mockRecognizer struct {
	text string
}

// NewMockRecognizer returns a recognizer that emits text without touching any
// audio backend. With an empty canned text it reports the payload size, which
// is enough to see audio flowing end to end in development.
func NewMockRecognizer(text string) Recognizer {
	return &mockRecognizer{text: text}
}

func (m *mockRecognizer) Transcribe(_ context.Context, pcm []byte, _ int, _ int) (Result, error) {
	if m.text != "" {
		return Result{Text: m.text, Confidence: 1}, nil
	}
	return Result{Text: fmt.Sprintf("[transcript length=%d]", len(pcm))}, nil
}
