package pose

import (
	"context"
	"io"
	"math"
	"sync"

	"github.com/ayusman/wavecoach/internal/geometry"
)

// Default frame size of synthesized frames.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

// MockSource replays a fixed sequence of frames.
// It allows tests to control what the pipeline receives.
type MockSource struct {
	frames []*Frame
	index  int
	err    error
	closed bool
	mu     sync.Mutex
}

// NewMockSource creates a MockSource that plays back frames once.
func NewMockSource(frames ...*Frame) *MockSource {
	return &MockSource{frames: frames}
}

// SetError sets the error that will be returned by Next.
func (m *MockSource) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Next returns the next frame, the configured error, or io.EOF.
func (m *MockSource) Next(ctx context.Context) (*Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.closed || m.index >= len(m.frames) {
		return nil, io.EOF
	}

	frame := m.frames[m.index].Clone()
	m.index++
	return frame, nil
}

// Close stops playback.
func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// ArmFrame returns a frame of the given side whose elbow angle, measured in
// pixels of a DefaultWidth x DefaultHeight image, equals elbowAngle degrees.
// The upper arm hangs straight down and the forearm swings away from the body.
func ArmFrame(side Side, elbowAngle float64) *Frame {
	mirror := 1.0
	if side == SideLeft {
		mirror = -1.0
	}

	rad := elbowAngle * math.Pi / 180
	cx := float64(DefaultWidth) / 2

	// Pixel positions.
	hip := geometry.Point{X: cx - mirror*20, Y: 400}
	shoulder := geometry.Point{X: cx, Y: 150}
	elbow := geometry.Point{X: cx, Y: 250}
	wrist := geometry.Point{
		X: elbow.X + mirror*100*math.Sin(rad),
		Y: elbow.Y - 100*math.Cos(rad),
	}

	names := side.ArmJoints()
	frame := &Frame{
		Width:  DefaultWidth,
		Height: DefaultHeight,
		Joints: make(map[Joint]geometry.Point, len(names)),
	}
	for i, p := range []geometry.Point{hip, shoulder, elbow, wrist} {
		frame.Joints[names[i]] = geometry.Point{
			X: p.X / DefaultWidth,
			Y: p.Y / DefaultHeight,
		}
	}
	return frame
}

// WaveFrames returns one frame per angle, timestamped 66ms apart (~15 FPS).
func WaveFrames(side Side, angles ...float64) []*Frame {
	frames := make([]*Frame, len(angles))
	for i, a := range angles {
		f := ArmFrame(side, a)
		f.Timestamp = int64(i) * 66
		frames[i] = f
	}
	return frames
}

// RepetitionAngles is one complete wave repetition: bent, extended to 80
// degrees, back to bent and held for a frame.
func RepetitionAngles() []float64 {
	return []float64{10, 20, 40, 60, 80, 60, 30, 10, 10}
}
