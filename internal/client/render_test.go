package client

import (
	"strings"
	"testing"

	"github.com/mathvoice/mathvoice/internal/protocol"
)

func TestComparisonPanel(t *testing.T) {
	panel := ComparisonPanel(protocol.MathOperation{Num1: 2, Operator: "+", Num2: 3, Result: 5})
	if !strings.Contains(panel, "●●") {
		t.Fatalf("expected dot groups in panel:\n%s", panel)
	}
	if !strings.Contains(panel, "5") {
		t.Fatalf("expected the result in panel:\n%s", panel)
	}
}

func TestComparisonPanelUndefined(t *testing.T) {
	panel := ComparisonPanel(protocol.MathOperation{Num1: 7, Operator: "/", Num2: 0, Undefined: true})
	if !strings.Contains(panel, "undefined") {
		t.Fatalf("expected undefined result in panel:\n%s", panel)
	}
}

func TestDotsCapped(t *testing.T) {
	got := dots(25)
	if strings.Count(got, "●") != maxDots {
		t.Fatalf("expected %d dots, got %q", maxDots, got)
	}
	if !strings.Contains(got, "(+5)") {
		t.Fatalf("expected overflow marker, got %q", got)
	}
	if dots(-1) != "" {
		t.Fatal("negative counts render nothing")
	}
}

func TestRenderState(t *testing.T) {
	out := RenderState(State{Err: "Sorry, something went wrong. Please try again."})
	if !strings.Contains(out, "went wrong") {
		t.Fatalf("expected error text, got %q", out)
	}

	out = RenderState(State{Response: &protocol.ChatResponse{TextResponse: "4"}})
	if !strings.Contains(out, "4") {
		t.Fatalf("expected answer text, got %q", out)
	}
	if strings.Contains(out, "●") {
		t.Fatal("no panel expected without an operation")
	}
}
