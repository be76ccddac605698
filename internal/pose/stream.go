package pose

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/ayusman/wavecoach/internal/geometry"
)

// maxLineSize bounds a single JSON frame line.
const maxLineSize = 1 << 20

// StreamSource reads newline-delimited JSON frames, as written by an external
// pose estimation process or a recording of one.
type StreamSource struct {
	r       io.Reader
	scanner *bufio.Scanner
	line    int
	mu      sync.Mutex
}

// NewStreamSource creates a StreamSource reading from r.
// If r implements io.Closer it is closed by Close.
func NewStreamSource(r io.Reader) *StreamSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &StreamSource{
		r:       r,
		scanner: scanner,
	}
}

// Next decodes the next non-empty line.
func (s *StreamSource) Next(ctx context.Context) (*Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, fmt.Errorf("read frame: %w", err)
			}
			return nil, io.EOF
		}
		s.line++

		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		frame, err := DecodeFrame(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", s.line, err)
		}
		return frame, nil
	}
}

// Close closes the underlying reader when it supports closing.
func (s *StreamSource) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// DecodeFrame parses one JSON frame. Joints may be given either by name in a
// "joints" object or positionally in a MediaPipe "landmarks" array.
func DecodeFrame(data []byte) (*Frame, error) {
	var jf jsonFrame
	if err := json.Unmarshal(data, &jf); err != nil {
		return nil, fmt.Errorf("parse frame: %w", err)
	}
	return jf.toFrame()
}

// jsonFrame represents the JSON structure of a frame on the wire.
type jsonFrame struct {
	Timestamp int64                     `json:"timestamp"`
	Width     int                       `json:"width"`
	Height    int                       `json:"height"`
	Joints    map[string]geometry.Point `json:"joints"`
	Landmarks []jsonLandmark            `json:"landmarks"`
}

type jsonLandmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

func (jf jsonFrame) toFrame() (*Frame, error) {
	frame := &Frame{
		Timestamp: jf.Timestamp,
		Width:     jf.Width,
		Height:    jf.Height,
		Joints:    make(map[Joint]geometry.Point),
	}

	for i, lm := range jf.Landmarks {
		if joint, ok := JointAt(i); ok {
			frame.Joints[joint] = geometry.Point{X: lm.X, Y: lm.Y}
		}
	}

	// Named joints take precedence over positional landmarks.
	for name, p := range jf.Joints {
		frame.Joints[Joint(name)] = p
	}

	if len(frame.Joints) == 0 {
		return nil, fmt.Errorf("frame has no joints")
	}

	return frame, nil
}
