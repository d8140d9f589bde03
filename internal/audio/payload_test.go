package audio

import (
	"context"
	"encoding/base64"
	"testing"
	"time"
)

func TestResolve_EmptyPayloadIsMetadataOnly(t *testing.T) {
	n, err := Resolve(context.Background(), Payload{}, time.Second, true, 8000, 1)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !n.IsEmpty {
		t.Error("IsEmpty = false, want true for zero-length payload")
	}
}

func TestResolve_RawPCMWrappedInWAV(t *testing.T) {
	pcm := make([]byte, 320) // 20ms @ 8kHz 16-bit mono
	n, err := Resolve(context.Background(), Payload{Raw: pcm}, time.Second, true, 8000, 1)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if n.ContentType != "audio/wav" {
		t.Errorf("ContentType = %q, want audio/wav", n.ContentType)
	}
	if !IsWAVContainer(n.Bytes) {
		t.Error("result bytes are not a WAV container")
	}
}

func TestResolve_Base64Decoded(t *testing.T) {
	pcm := []byte{1, 2, 3, 4}
	enc := base64.StdEncoding.EncodeToString(pcm)
	n, err := Resolve(context.Background(), Payload{Base64: enc}, time.Second, false, 8000, 1)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(n.Bytes) != len(pcm) {
		t.Errorf("decoded %d bytes, want %d", len(n.Bytes), len(pcm))
	}
}

func TestWriteWAV_HeaderFields(t *testing.T) {
	data := WriteWAV([]byte{0, 0, 0, 0}, 8000, 1)
	if !IsWAVContainer(data) {
		t.Fatal("WriteWAV output is not a recognizable WAV container")
	}
	if len(data) != 44+4 {
		t.Errorf("len = %d, want 48 (44-byte header + 4 bytes of PCM)", len(data))
	}
}
