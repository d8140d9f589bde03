package audio

import (
	"encoding/binary"
	"fmt"
)

// ConcatWAV stream-concatenates the PCM data of one or more WAV blobs into a
// single WAV container, used by the Call Linker's merge step (§4.G step 1)
// to join two short segments' audio. All inputs are assumed to share the
// same sample rate and channel count (the bridge emits one fixed format);
// the first blob's fmt chunk is reused for the merged container.
func ConcatWAV(blobs [][]byte) ([]byte, error) {
	if len(blobs) == 0 {
		return nil, fmt.Errorf("concat wav: no blobs given")
	}

	var sampleRate, channels int
	var pcm []byte
	for i, blob := range blobs {
		rate, ch, data, err := splitWAV(blob)
		if err != nil {
			return nil, fmt.Errorf("concat wav: blob %d: %w", i, err)
		}
		if i == 0 {
			sampleRate, channels = rate, ch
		}
		pcm = append(pcm, data...)
	}
	return WriteWAV(pcm, sampleRate, channels), nil
}

// splitWAV parses a minimal RIFF/WAVE container and returns its sample
// rate, channel count, and raw PCM payload (the "data" chunk).
func splitWAV(blob []byte) (sampleRate int, channels int, data []byte, err error) {
	if !IsWAVContainer(blob) {
		return 0, 0, nil, fmt.Errorf("not a WAV container")
	}
	pos := 12
	for pos+8 <= len(blob) {
		id := string(blob[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(blob[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(blob) {
			size = len(blob) - body
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return 0, 0, nil, fmt.Errorf("fmt chunk too short")
			}
			channels = int(binary.LittleEndian.Uint16(blob[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(blob[body+4 : body+8]))
		case "data":
			data = blob[body : body+size]
		}
		pos = body + size
		if size%2 == 1 {
			pos++ // chunks are word-aligned
		}
	}
	if data == nil {
		return 0, 0, nil, fmt.Errorf("no data chunk found")
	}
	if sampleRate == 0 {
		return 0, 0, nil, fmt.Errorf("no fmt chunk found")
	}
	return sampleRate, channels, data, nil
}
