// Package audio reassembles independently synthesized WAV segments into a
// single well-formed container.
//
// The synthesis provider returns one complete WAV file per chunk. Stitching
// strips every segment down to its raw PCM sample data, concatenates the
// samples in chunk order, and emits one container whose RIFF and data size
// fields reflect the combined length.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// RIFF layout constants. All size fields are unsigned 32-bit little-endian.
const (
	riffPreambleLen = 12 // "RIFF" + size + "WAVE"
	markerLen       = 4
	sizeFieldLen    = 4
	riffSizeOffset  = 4
)

// Static errors.
var (
	ErrNoSegments      = errors.New("no audio segments to stitch")
	ErrNoDataChunk     = errors.New("wav segment has no data chunk")
	ErrNoFmtChunk      = errors.New("wav segment has no fmt chunk")
	ErrSegmentTooShort = errors.New("wav segment shorter than a RIFF preamble")
	ErrInvalidEncoding = errors.New("invalid encoding parameters")
)

// findMarker scans wav for the 4-byte ASCII marker starting at the end of
// the mandatory RIFF preamble, and returns the marker's byte offset.
//
// Scanning is required: provider headers may carry optional sub-chunks
// (fact, LIST) ahead of data, so a fixed 44-byte header assumption is
// unsafe.
func findMarker(wav []byte, marker string) (int, bool) {
	for i := riffPreambleLen; i+markerLen+sizeFieldLen <= len(wav); i++ {
		if string(wav[i:i+markerLen]) == marker {
			return i, true
		}
	}

	return 0, false
}

// SampleData returns the raw PCM region of a WAV buffer: everything after
// the data marker and its size field.
func SampleData(wav []byte) ([]byte, error) {
	if len(wav) < riffPreambleLen+markerLen+sizeFieldLen {
		return nil, ErrSegmentTooShort
	}

	marker, ok := findMarker(wav, "data")
	if !ok {
		return nil, ErrNoDataChunk
	}

	return wav[marker+markerLen+sizeFieldLen:], nil
}

// Stitch combines ordered WAV segments into one container.
//
// A single segment is returned unchanged, byte for byte. Otherwise the
// first segment's header (up to its data size field) becomes the template
// for the output, which is valid because every segment of one generation
// was synthesized with identical format parameters. The RIFF chunk size and
// data chunk size are recomputed for the combined length.
//
// A segment with no locatable data marker fails the whole operation; a
// corrupt segment cannot be skipped without producing audibly broken
// output.
func Stitch(segments [][]byte) ([]byte, error) {
	if len(segments) == 0 {
		return nil, ErrNoSegments
	}

	if len(segments) == 1 {
		return segments[0], nil
	}

	parts := make([][]byte, 0, len(segments))
	totalData := 0

	for i, segment := range segments {
		data, err := SampleData(segment)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i+1, err)
		}

		parts = append(parts, data)
		totalData += len(data)
	}

	// Template header: first segment's bytes through its data marker,
	// excluding the stale size field.
	marker, _ := findMarker(segments[0], "data")
	header := segments[0][:marker+markerLen]

	out := make([]byte, 0, len(header)+sizeFieldLen+totalData)
	out = append(out, header...)
	out = binary.LittleEndian.AppendUint32(out, uint32(totalData))

	for _, part := range parts {
		out = append(out, part...)
	}

	// The RIFF chunk size counts everything after itself.
	binary.LittleEndian.PutUint32(out[riffSizeOffset:], uint32(len(out)-riffSizeOffset-sizeFieldLen))

	return out, nil
}

// Duration reports the playing time of a WAV buffer, derived from the data
// chunk length and the byte rate recorded in the fmt chunk.
func Duration(wav []byte) (time.Duration, error) {
	data, err := SampleData(wav)
	if err != nil {
		return 0, err
	}

	fmtMarker, ok := findMarker(wav, "fmt ")
	if !ok {
		return 0, ErrNoFmtChunk
	}

	// Byte rate sits 8 bytes into the fmt chunk body.
	rateOffset := fmtMarker + markerLen + sizeFieldLen + 8
	if rateOffset+4 > len(wav) {
		return 0, ErrNoFmtChunk
	}

	byteRate := binary.LittleEndian.Uint32(wav[rateOffset : rateOffset+4])
	if byteRate == 0 {
		return 0, ErrNoFmtChunk
	}

	seconds := float64(len(data)) / float64(byteRate)

	return time.Duration(seconds * float64(time.Second)), nil
}

// EncodePCM16 writes 16-bit PCM samples into a canonical 44-byte-header WAV
// container. The service itself only reassembles provider audio; this
// encoder backs the demo tone endpoint and test fixtures.
func EncodePCM16(samples []int16, sampleRate, channels int) ([]byte, error) {
	if sampleRate < 1 || channels < 1 {
		return nil, fmt.Errorf("%w: sample rate %d, channels %d",
			ErrInvalidEncoding, sampleRate, channels)
	}

	const bitsPerSample = 16

	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8
	dataSize := len(samples) * 2
	riffSize := 4 + (8 + 16) + (8 + dataSize)

	out := make([]byte, 0, 8+riffSize)
	out = append(out, "RIFF"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(riffSize))
	out = append(out, "WAVE"...)
	out = append(out, "fmt "...)
	out = binary.LittleEndian.AppendUint32(out, 16)
	out = binary.LittleEndian.AppendUint16(out, 1) // PCM
	out = binary.LittleEndian.AppendUint16(out, uint16(channels))
	out = binary.LittleEndian.AppendUint32(out, uint32(sampleRate))
	out = binary.LittleEndian.AppendUint32(out, uint32(byteRate))
	out = binary.LittleEndian.AppendUint16(out, uint16(blockAlign))
	out = binary.LittleEndian.AppendUint16(out, bitsPerSample)
	out = append(out, "data"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(dataSize))

	for _, s := range samples {
		out = binary.LittleEndian.AppendUint16(out, uint16(s))
	}

	return out, nil
}
