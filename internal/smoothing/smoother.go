// Package smoothing reduces landmark jitter with one Kalman filter per joint.
package smoothing

import (
	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/pkg/errors"

	"github.com/ayusman/wavecoach/internal/geometry"
	"github.com/ayusman/wavecoach/internal/pose"
)

// Options tunes the filters. Noise values are in pixels.
type Options struct {
	// Dt is the time step between frames in filter units.
	Dt float64
	// ProcessNoise is the standard deviation of the acceleration.
	ProcessNoise float64
	// MeasurementNoise is the standard deviation of a detected position.
	MeasurementNoise float64
}

// DefaultOptions follow the blob tracker settings of the MOT pipeline.
func DefaultOptions() Options {
	return Options{
		Dt:               1.0,
		ProcessNoise:     2.0,
		MeasurementNoise: 0.1,
	}
}

// Smoother filters the joints of consecutive frames of one subject.
// It is not safe for concurrent use.
type Smoother struct {
	opts    Options
	filters map[pose.Joint]*kalman_filter.Kalman2D
}

// New creates a Smoother with no history.
func New(opts Options) *Smoother {
	return &Smoother{
		opts:    opts,
		filters: make(map[pose.Joint]*kalman_filter.Kalman2D),
	}
}

// Smooth returns a copy of frame with every joint replaced by its filtered
// position. A joint seen for the first time is returned unchanged and seeds
// its filter. Filtering runs in pixel space so that both axes share one
// noise model; frames without a positive size are passed through.
func (s *Smoother) Smooth(frame *pose.Frame) (*pose.Frame, error) {
	out := frame.Clone()
	if frame.Width <= 0 || frame.Height <= 0 {
		return out, nil
	}
	w, h := float64(frame.Width), float64(frame.Height)

	for joint, p := range frame.Joints {
		if !p.IsFinite() {
			continue
		}
		px := p.Scale(w, h)

		kf, ok := s.filters[joint]
		if !ok {
			s.filters[joint] = kalman_filter.NewKalman2D(
				s.opts.Dt, 0, 0,
				s.opts.ProcessNoise, s.opts.MeasurementNoise, s.opts.MeasurementNoise,
				kalman_filter.WithState2D(px.X, px.Y),
			)
			continue
		}

		kf.Predict()
		if err := kf.Update(px.X, px.Y); err != nil {
			return nil, errors.Wrapf(err, "Can't update filter for joint %s", joint)
		}
		x, y := kf.GetState()
		out.Joints[joint] = geometry.Point{X: x / w, Y: y / h}
	}

	return out, nil
}

// Reset drops the history of every joint.
func (s *Smoother) Reset() {
	s.filters = make(map[pose.Joint]*kalman_filter.Kalman2D)
}

// Tracked returns the number of joints with a filter.
func (s *Smoother) Tracked() int {
	return len(s.filters)
}
