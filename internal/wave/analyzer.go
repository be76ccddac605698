package wave

import (
	"fmt"
	"math"

	"github.com/ayusman/wavecoach/internal/geometry"
)

// Analyzer tracks wave repetitions for a single subject.
//
// Frames must be fed in capture order: direction detection and peak
// performance depend on the previous call. An Analyzer is not safe for
// concurrent use; hold one per tracked subject and serialize calls.
type Analyzer struct {
	config Config

	count          int
	state          State
	prevAngle      float64
	hasPrev        bool
	maxPerformance float64
}

// New creates an Analyzer with the given thresholds.
func New(config Config) (*Analyzer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{
		config: config,
		state:  StateInit,
	}, nil
}

// Config returns the thresholds the analyzer was built with.
func (a *Analyzer) Config() Config {
	return a.config
}

// Analyze processes one frame of normalized arm joints.
//
// Steps:
// 1. De-normalize joints to pixels
// 2. Compute shoulder angle (display only) and elbow angle
// 3. Derive direction from the previous elbow angle
// 4. Classify WAVE_IN / WAVE_OUT
// 5. Advance the repetition state machine
// 6. Score the frame unless the repetition has not started moving outward
//
// A completed repetition is settled within the same call: the returned
// State is INIT, Completed is set and the count already includes it.
// On error the analyzer state is left untouched.
func (a *Analyzer) Analyze(joints Joints, width, height int) (Result, error) {
	if width <= 0 || height <= 0 {
		return Result{}, fmt.Errorf("%w: %dx%d", ErrInvalidFrame, width, height)
	}
	if err := joints.validate(); err != nil {
		return Result{}, err
	}

	w, h := float64(width), float64(height)
	hip := joints.Hip.Scale(w, h)
	shoulder := joints.Shoulder.Scale(w, h)
	elbow := joints.Elbow.Scale(w, h)
	wrist := joints.Wrist.Scale(w, h)

	shoulderAngle := math.Abs(geometry.Angle(hip, shoulder, elbow))
	elbowAngle := math.Abs(geometry.Angle(shoulder, elbow, wrist))

	// Positive means the arm is extending, negative retracting.
	direction := 0
	if a.hasPrev {
		direction = int(elbowAngle - a.prevAngle)
	}
	a.prevAngle = elbowAngle
	a.hasPrev = true

	obs := a.classify(elbowAngle)
	a.advance(obs, direction)

	res := Result{
		Shoulder:      shoulder,
		Elbow:         elbow,
		ShoulderAngle: shoulderAngle,
		ElbowAngle:    elbowAngle,
		Direction:     direction,
		Observation:   obs,
	}

	if a.state != StateInit && a.state != StateStarted {
		res.WavePercentage = a.config.WavePercentage(elbowAngle, direction)
		a.maxPerformance = math.Max(a.config.Performance(elbowAngle), a.maxPerformance)
		res.Performance = a.maxPerformance
	}

	if a.state == StateComplete {
		res.Completed = true
		res.RepetitionPerformance = a.maxPerformance
		a.complete()
		res.WavePercentage = 0
		res.Performance = 0
	}

	res.State = a.state
	res.Count = a.count
	return res, nil
}

// ResetCount zeroes the repetition count. The state machine, previous angle
// and peak performance are left as they are.
func (a *Analyzer) ResetCount() {
	a.count = 0
}

// Reset returns the analyzer to its freshly constructed state.
func (a *Analyzer) Reset() {
	a.count = 0
	a.state = StateInit
	a.prevAngle = 0
	a.hasPrev = false
	a.maxPerformance = 0
}

// Snapshot returns the current running state.
func (a *Analyzer) Snapshot() Snapshot {
	return Snapshot{
		Count:           a.count,
		State:           a.state,
		PeakPerformance: a.maxPerformance,
		PrevAngle:       a.prevAngle,
		HasPrevAngle:    a.hasPrev,
	}
}

func (a *Analyzer) classify(elbowAngle float64) Observation {
	if elbowAngle < a.config.WaveAngleThresh {
		return ObservationIn
	}
	return ObservationOut
}

// advance applies one transition of the repetition state machine.
// Conditions not listed keep the current state.
func (a *Analyzer) advance(obs Observation, direction int) {
	switch a.state {
	case StateInit:
		if obs == ObservationIn {
			a.state = StateStarted
		}
	case StateStarted:
		if direction > 0 {
			a.state = StateOutward
		}
	case StateOutward:
		if direction < 0 {
			a.state = StateInwards
		}
	case StateInwards:
		if obs == ObservationIn && direction == 0 {
			a.state = StateComplete
		}
	case StateComplete:
		a.complete()
	}
}

// complete applies the side effects of leaving the COMPLETE state.
func (a *Analyzer) complete() {
	a.count++
	a.maxPerformance = 0
	a.state = StateInit
}
