package app

import (
	"sync"

	"github.com/ayusman/wavecoach/internal/pose"
	"github.com/ayusman/wavecoach/internal/smoothing"
	"github.com/ayusman/wavecoach/internal/store"
	"github.com/ayusman/wavecoach/internal/wave"
)

// tracker owns the analysis state of one live session. Its mutex serializes
// frames so that they reach the analyzer in arrival order.
type tracker struct {
	mu sync.Mutex

	session  store.Session
	side     pose.Side
	analyzer *wave.Analyzer
	smoother *smoothing.Smoother

	// frames seen since the last completed repetition
	framesInRep int
	// repetitions stored over the session's lifetime, unaffected by ResetCount
	repetitions int
	ended       bool
}

func newTracker(session *store.Session, side pose.Side, analyzer *wave.Analyzer) *tracker {
	return &tracker{
		session:  *session,
		side:     side,
		analyzer: analyzer,
	}
}

// analyze smooths the frame if enabled, extracts the arm and runs the analyzer.
// Called with t.mu held.
func (t *tracker) analyze(frame *pose.Frame) (wave.Result, error) {
	if t.smoother != nil {
		smoothed, err := t.smoother.Smooth(frame)
		if err != nil {
			return wave.Result{}, err
		}
		frame = smoothed
	}

	joints, err := frame.Arm(t.side)
	if err != nil {
		return wave.Result{}, err
	}

	res, err := t.analyzer.Analyze(joints, frame.Width, frame.Height)
	if err != nil {
		return wave.Result{}, err
	}
	t.framesInRep++
	return res, nil
}
