// Package audio converts between WAV payloads and raw 16-bit PCM.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// PCM is decoded little-endian 16-bit mono/stereo audio.
type PCM struct {
	Data       []byte
	SampleRate int
	Channels   int
}

var ErrNotWav = errors.New("payload is not a wav file")

// DecodeWav reads a WAV payload and returns its samples as 16-bit PCM.
func DecodeWav(payload []byte) (PCM, error) {
	decoder := wav.NewDecoder(bytes.NewReader(payload))
	if !decoder.IsValidFile() {
		return PCM{}, ErrNotWav
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return PCM{}, fmt.Errorf("decode wav: %w", err)
	}
	format := buf.Format
	if format == nil {
		return PCM{}, errors.New("wav payload missing format")
	}

	data := make([]byte, len(buf.Data)*2)
	for i, sample := range buf.Data {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(int16(clampSample(sample))))
	}
	return PCM{
		Data:       data,
		SampleRate: format.SampleRate,
		Channels:   format.NumChannels,
	}, nil
}

func clampSample(s int) int {
	if s > 32767 {
		return 32767
	}
	if s < -32768 {
		return -32768
	}
	return s
}

// WritePCMToWav encodes 16-bit PCM into a WAV stream. The writer must be
// seekable because the encoder patches the header on close.
func WritePCMToWav(file *os.File, pcm []byte, sampleRate, channels int) error {
	if len(pcm)%2 != 0 {
		return errors.New("pcm payload not aligned")
	}
	buffer := &gaudio.IntBuffer{Format: &gaudio.Format{NumChannels: channels, SampleRate: sampleRate}}
	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	buffer.Data = samples

	enc := wav.NewEncoder(file, sampleRate, 16, channels, 1)
	if err := enc.Write(buffer); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}

// EncodeWav renders PCM as a complete in-memory WAV payload, going through a
// temp file because the encoder needs io.WriteSeeker.
func EncodeWav(pcm []byte, sampleRate, channels int) ([]byte, error) {
	file, err := os.CreateTemp("", "mathvoice_wav_*.wav")
	if err != nil {
		return nil, fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(file.Name())
	defer file.Close()

	if err := WritePCMToWav(file, pcm, sampleRate, channels); err != nil {
		return nil, err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(file)
}
