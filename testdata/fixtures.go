package testdata

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io"

	"github.com/ayusman/wavecoach/internal/pose"
)

// Recorded pose streams.
const (
	// SingleWave is one right-arm repetition at 640x480 using named joints.
	SingleWave = "single_wave.jsonl"
	// ThreeWavesLandmarks is three left-arm repetitions at 1280x720 using
	// MediaPipe landmark arrays.
	ThreeWavesLandmarks = "three_waves_landmarks.jsonl"
)

//go:embed poses/*
var posesFS embed.FS

// Open returns the raw bytes of a recording.
func Open(name string) ([]byte, error) {
	data, err := posesFS.ReadFile("poses/" + name)
	if err != nil {
		return nil, fmt.Errorf("load recording %s: %w", name, err)
	}
	return data, nil
}

// LoadSource returns a StreamSource replaying a recording.
func LoadSource(name string) (*pose.StreamSource, error) {
	data, err := Open(name)
	if err != nil {
		return nil, err
	}
	return pose.NewStreamSource(bytes.NewReader(data)), nil
}

// LoadFrames decodes every frame of a recording.
func LoadFrames(name string) ([]*pose.Frame, error) {
	src, err := LoadSource(name)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	var frames []*pose.Frame
	for {
		frame, err := src.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode recording %s: %w", name, err)
		}
		frames = append(frames, frame)
	}
}
