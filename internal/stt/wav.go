package stt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

var errNotWAV = errors.New("not a RIFF/WAVE file")

// AudioDuration returns the playback length of a WAV file in seconds, or 0
// when the file cannot be read or is not PCM WAV.
func AudioDuration(path string) float64 {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	d, err := ProbeWAV(f)
	if err != nil {
		return 0
	}
	return d
}

// ProbeWAV walks the RIFF chunks of a WAV stream and computes its duration
// from the fmt and data chunks.
func ProbeWAV(r io.Reader) (float64, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return 0, fmt.Errorf("failed to read RIFF header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return 0, errNotWAV
	}

	var (
		sampleRate uint32
		blockAlign uint16
		haveFmt    bool
	)

	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return 0, fmt.Errorf("no data chunk: %w", err)
		}
		id := string(hdr[0:4])
		size := binary.LittleEndian.Uint32(hdr[4:8])

		switch id {
		case "fmt ":
			if size < 16 {
				return 0, fmt.Errorf("fmt chunk too short: %d bytes", size)
			}
			var fmtChunk [16]byte
			if _, err := io.ReadFull(r, fmtChunk[:]); err != nil {
				return 0, fmt.Errorf("failed to read fmt chunk: %w", err)
			}
			sampleRate = binary.LittleEndian.Uint32(fmtChunk[4:8])
			blockAlign = binary.LittleEndian.Uint16(fmtChunk[12:14])
			haveFmt = true
			if err := skip(r, int64(size-16)+int64(size&1)); err != nil {
				return 0, err
			}

		case "data":
			if !haveFmt || sampleRate == 0 || blockAlign == 0 {
				return 0, fmt.Errorf("data chunk before valid fmt chunk")
			}
			frames := size / uint32(blockAlign)
			return float64(frames) / float64(sampleRate), nil

		default:
			if err := skip(r, int64(size)+int64(size&1)); err != nil {
				return 0, err
			}
		}
	}
}

func skip(r io.Reader, n int64) error {
	if n <= 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, r, n); err != nil {
		return fmt.Errorf("truncated chunk: %w", err)
	}
	return nil
}
