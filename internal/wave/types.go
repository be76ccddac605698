// Package wave counts arm-wave repetitions from elbow angles and scores
// how well each repetition covers a target range of motion.
package wave

import (
	"errors"
	"fmt"
	"math"

	"github.com/ayusman/wavecoach/internal/geometry"
)

// Default analyzer thresholds, in degrees.
const (
	DefaultWaveAngleThresh = 45.0
	DefaultMinAngle        = 15.0
	DefaultMaxAngle        = 75.0
)

var (
	// ErrInvalidConfig is returned when analyzer thresholds cannot produce scores.
	ErrInvalidConfig = errors.New("invalid wave config")
	// ErrInvalidFrame is returned for non-positive frame dimensions.
	ErrInvalidFrame = errors.New("invalid frame dimensions")
	// ErrMalformedJoint is returned when a joint coordinate is NaN or infinite.
	ErrMalformedJoint = errors.New("malformed joint coordinate")
)

// Observation classifies the arm posture of a single frame.
type Observation int

const (
	// ObservationIn means the elbow angle is below the wave threshold (arm bent).
	ObservationIn Observation = iota
	// ObservationOut means the elbow angle is at or above the threshold (arm extended).
	ObservationOut
)

var observationNames = map[Observation]string{
	ObservationIn:  "WAVE_IN",
	ObservationOut: "WAVE_OUT",
}

// String returns the display label for the observation.
func (o Observation) String() string {
	if name, ok := observationNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Observation(%d)", int(o))
}

// MarshalText implements encoding.TextMarshaler.
func (o Observation) MarshalText() ([]byte, error) {
	name, ok := observationNames[o]
	if !ok {
		return nil, fmt.Errorf("unknown observation %d", int(o))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Observation) UnmarshalText(text []byte) error {
	for k, v := range observationNames {
		if v == string(text) {
			*o = k
			return nil
		}
	}
	return fmt.Errorf("unknown observation %q", string(text))
}

// State is the progress of the current repetition.
// States advance strictly in declaration order and wrap from Complete to Init.
type State int

const (
	StateInit State = iota
	StateStarted
	StateOutward
	StateInwards
	StateComplete
)

var stateNames = map[State]string{
	StateInit:     "INIT",
	StateStarted:  "STARTED",
	StateOutward:  "OUTWARD",
	StateInwards:  "INWARDS",
	StateComplete: "COMPLETE",
}

// String returns the display label for the state.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	name, ok := stateNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown state %d", int(s))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	for k, v := range stateNames {
		if v == string(text) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", string(text))
}

// Config holds the analyzer thresholds in degrees.
type Config struct {
	// WaveAngleThresh separates WAVE_IN from WAVE_OUT.
	WaveAngleThresh float64 `json:"wave_angle_thresh"`
	// MinAngle and MaxAngle bound the target range used for scoring.
	MinAngle float64 `json:"min_angle"`
	MaxAngle float64 `json:"max_angle"`
}

// DefaultConfig returns the thresholds used by the reference deployment.
func DefaultConfig() Config {
	return Config{
		WaveAngleThresh: DefaultWaveAngleThresh,
		MinAngle:        DefaultMinAngle,
		MaxAngle:        DefaultMaxAngle,
	}
}

// Validate checks that the configuration produces finite scores.
func (c Config) Validate() error {
	for name, v := range map[string]float64{
		"wave_angle_thresh": c.WaveAngleThresh,
		"min_angle":         c.MinAngle,
		"max_angle":         c.MaxAngle,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not a finite number", ErrInvalidConfig, name)
		}
	}
	if c.MinAngle >= c.MaxAngle {
		return fmt.Errorf("%w: min_angle %.2f must be below max_angle %.2f", ErrInvalidConfig, c.MinAngle, c.MaxAngle)
	}
	return nil
}

// Joints holds the four arm joints of one body side in normalized [0,1] coordinates.
type Joints struct {
	Hip      geometry.Point `json:"hip"`
	Shoulder geometry.Point `json:"shoulder"`
	Elbow    geometry.Point `json:"elbow"`
	Wrist    geometry.Point `json:"wrist"`
}

func (j Joints) validate() error {
	points := []struct {
		name string
		p    geometry.Point
	}{
		{"hip", j.Hip},
		{"shoulder", j.Shoulder},
		{"elbow", j.Elbow},
		{"wrist", j.Wrist},
	}
	for _, jp := range points {
		if !jp.p.IsFinite() {
			return fmt.Errorf("%w: %s", ErrMalformedJoint, jp.name)
		}
	}
	return nil
}

// Result is everything a renderer needs to display for one analyzed frame.
type Result struct {
	Shoulder       geometry.Point `json:"shoulder"`
	Elbow          geometry.Point `json:"elbow"`
	ShoulderAngle  float64        `json:"shoulder_angle"`
	ElbowAngle     float64        `json:"elbow_angle"`
	Direction      int            `json:"direction"`
	Observation    Observation    `json:"observation"`
	State          State          `json:"state"`
	Count          int            `json:"count"`
	WavePercentage float64        `json:"wave_percentage"`
	// Performance is the peak score reached so far in the current repetition.
	Performance float64 `json:"performance"`

	// Completed is set on the frame that finished a repetition.
	Completed bool `json:"completed"`
	// RepetitionPerformance is the peak score of the repetition that just
	// completed. Only meaningful when Completed is set.
	RepetitionPerformance float64 `json:"repetition_performance,omitempty"`
}

// Snapshot exposes the analyzer's running state for inspection.
type Snapshot struct {
	Count           int     `json:"count"`
	State           State   `json:"state"`
	PeakPerformance float64 `json:"peak_performance"`
	PrevAngle       float64 `json:"prev_angle"`
	HasPrevAngle    bool    `json:"has_prev_angle"`
}
