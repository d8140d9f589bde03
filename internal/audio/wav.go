// Package audio normalizes inbound scanner-bridge payloads into stored blobs
// (spec.md §4.B step 2): base64/raw-bytes/URL payloads become either a WAV
// container (for raw PCM) or an as-is blob with detected content-type.
package audio

import (
	"bytes"
	"encoding/binary"
)

// WriteWAV wraps raw 16-bit PCM samples in a minimal WAV container.
// sampleRate and channels describe the PCM as delivered by the bridge.
func WriteWAV(pcm []byte, sampleRate int, channels int) []byte {
	const bitsPerSample = 16
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8
	dataLen := len(pcm)

	buf := new(bytes.Buffer)
	buf.WriteString("RIFF")
	writeU32(buf, uint32(36+dataLen))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	writeU32(buf, 16) // PCM fmt chunk size
	writeU16(buf, 1)  // audio format: PCM
	writeU16(buf, uint16(channels))
	writeU32(buf, uint32(sampleRate))
	writeU32(buf, uint32(byteRate))
	writeU16(buf, uint16(blockAlign))
	writeU16(buf, bitsPerSample)

	buf.WriteString("data")
	writeU32(buf, uint32(dataLen))
	buf.Write(pcm)

	return buf.Bytes()
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

// IsWAVContainer reports whether data already carries a RIFF/WAVE header, so
// callers don't double-wrap audio that's already a complete container.
func IsWAVContainer(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}
