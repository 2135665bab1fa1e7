package llm

import (
	"context"
	"strings"
	"time"

	"github.com/mathvoice/mathvoice/internal/mathparse"
)

type mockGenerator struct{}

// NewMockGenerator answers arithmetic questions locally and nudges toward the
// expected phrasing for anything else, so the server works end to end without
// a model backend.
func NewMockGenerator() Generator { return &mockGenerator{} }

func (m *mockGenerator) Generate(ctx context.Context, req Request, consumer func(Chunk) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(20 * time.Millisecond):
	}
	content := `Try asking something like "what is 2 + 2".`
	if op := mathparse.Extract(strings.TrimSpace(req.Prompt)); op != nil {
		content = op.ResultString()
	}
	return consumer(Chunk{
		SessionID: req.SessionID,
		Content:   content,
		Partial:   false,
		Latency:   20 * time.Millisecond,
	})
}
