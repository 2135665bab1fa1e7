package tts

import "context"

// SynthRequest contains parameters to synthesize speech.
type SynthRequest struct {
	Text  string
	Voice string
}

// SynthChunk contains PCM data.
type SynthChunk struct {
	Sequence   int
	SampleRate int
	Channels   int
	PCM        []byte
	Final      bool
}

// Synthesizer is the contract for producing audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthRequest) (<-chan SynthChunk, <-chan error)
}

// Collect drains a synthesis into one PCM buffer.
func Collect(ctx context.Context, s Synthesizer, req SynthRequest) ([]byte, int, int, error) {
	chunks, errs := s.Synthesize(ctx, req)
	var pcm []byte
	sampleRate, channels := 0, 0
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				chunks = nil
				break
			}
			pcm = append(pcm, chunk.PCM...)
			if chunk.SampleRate > 0 {
				sampleRate = chunk.SampleRate
			}
			if chunk.Channels > 0 {
				channels = chunk.Channels
			}
		case err, ok := <-errs:
			if ok && err != nil {
				return nil, 0, 0, err
			}
			errs = nil
		case <-ctx.Done():
			return nil, 0, 0, ctx.Err()
		}
		if chunks == nil && errs == nil {
			return pcm, sampleRate, channels, nil
		}
	}
}
