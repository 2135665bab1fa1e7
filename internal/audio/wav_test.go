package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func sinePCM(n int) []byte {
	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(i%2000-1000)))
	}
	return pcm
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	pcm := sinePCM(1600)

	payload, err := EncodeWav(pcm, 16000, 1)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeWav(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.SampleRate != 16000 || decoded.Channels != 1 {
		t.Fatalf("unexpected format: %d Hz %d ch", decoded.SampleRate, decoded.Channels)
	}
	if !bytes.Equal(decoded.Data, pcm) {
		t.Fatalf("pcm changed across round trip: %d vs %d bytes", len(decoded.Data), len(pcm))
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := DecodeWav([]byte("definitely not audio")); err == nil {
		t.Fatal("expected error for non-wav payload")
	}
}

func TestWritePCMRejectsUnaligned(t *testing.T) {
	if _, err := EncodeWav([]byte{0x01}, 16000, 1); err == nil {
		t.Fatal("expected error for odd-length pcm")
	}
}
