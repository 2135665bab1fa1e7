package llm

import (
	"context"
	"strings"
	"testing"
)

func TestMockGeneratorAnswersMath(t *testing.T) {
	g := NewMockGenerator()

	text, err := Complete(context.Background(), g, Request{SessionID: "s1", Prompt: "what is 2 + 2"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if text != "4" {
		t.Fatalf("text = %q, want 4", text)
	}

	text, err = Complete(context.Background(), g, Request{SessionID: "s1", Prompt: "what is 7 / 0"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if text != "undefined" {
		t.Fatalf("text = %q, want undefined", text)
	}
}

func TestMockGeneratorFallback(t *testing.T) {
	g := NewMockGenerator()

	text, err := Complete(context.Background(), g, Request{SessionID: "s1", Prompt: "tell me a joke"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !strings.Contains(text, "what is 2 + 2") {
		t.Fatalf("expected a usage hint, got %q", text)
	}
}

func TestMockGeneratorHonorsContext(t *testing.T) {
	g := NewMockGenerator()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Complete(ctx, g, Request{Prompt: "what is 1 + 1"}); err == nil {
		t.Fatal("expected a context error")
	}
}
