package audio

import (
	"bytes"
	"testing"
)

func TestConcatWAV_JoinsPCMPreservingFormat(t *testing.T) {
	a := WriteWAV([]byte{1, 2, 3, 4}, 8000, 1)
	b := WriteWAV([]byte{5, 6, 7, 8}, 8000, 1)

	merged, err := ConcatWAV([][]byte{a, b})
	if err != nil {
		t.Fatalf("ConcatWAV() error = %v", err)
	}

	rate, ch, data, err := splitWAV(merged)
	if err != nil {
		t.Fatalf("splitWAV(merged) error = %v", err)
	}
	if rate != 8000 || ch != 1 {
		t.Errorf("format = (%d, %d), want (8000, 1)", rate, ch)
	}
	if !bytes.Equal(data, []byte{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Errorf("data = %v, want concatenated PCM", data)
	}
}

func TestConcatWAV_NoBlobsErrors(t *testing.T) {
	if _, err := ConcatWAV(nil); err == nil {
		t.Error("expected an error for empty input")
	}
}

func TestSplitWAV_RejectsNonWAV(t *testing.T) {
	if _, _, _, err := splitWAV([]byte("not a wav file")); err == nil {
		t.Error("expected an error for non-WAV input")
	}
}
