// Package report aggregates the stored repetitions of a session.
package report

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/wavecoach/internal/store"
)

// Summary describes the repetitions of one session.
type Summary struct {
	Repetitions       int     `json:"repetitions"`
	BestPerformance   float64 `json:"best_performance"`
	WorstPerformance  float64 `json:"worst_performance"`
	MeanPerformance   float64 `json:"mean_performance"`
	MedianPerformance float64 `json:"median_performance"`
	// StdDevPerformance is the sample standard deviation; zero below two repetitions.
	StdDevPerformance float64 `json:"stddev_performance"`
	MeanFrames        float64 `json:"mean_frames"`
	// Duration spans the first to the last completed repetition.
	Duration time.Duration `json:"duration"`
}

// Summarize computes the statistics of reps. Empty input yields a zero Summary.
func Summarize(reps []store.Repetition) Summary {
	if len(reps) == 0 {
		return Summary{}
	}

	peaks := make([]float64, len(reps))
	frames := make([]float64, len(reps))
	first, last := reps[0].CompletedAt, reps[0].CompletedAt
	for i, rep := range reps {
		peaks[i] = rep.PeakPerformance
		frames[i] = float64(rep.Frames)
		if rep.CompletedAt.Before(first) {
			first = rep.CompletedAt
		}
		if rep.CompletedAt.After(last) {
			last = rep.CompletedAt
		}
	}

	s := Summary{
		Repetitions:      len(reps),
		BestPerformance:  floats.Max(peaks),
		WorstPerformance: floats.Min(peaks),
		MeanFrames:       stat.Mean(frames, nil),
		Duration:         last.Sub(first),
	}

	if len(peaks) > 1 {
		s.MeanPerformance, s.StdDevPerformance = stat.MeanStdDev(peaks, nil)
	} else {
		s.MeanPerformance = peaks[0]
	}

	sorted := append([]float64(nil), peaks...)
	sort.Float64s(sorted)
	s.MedianPerformance = median(sorted)

	return s
}

// median of sorted values; an even count averages the two middle ones.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return stat.Quantile(0.5, stat.Empirical, sorted, nil)
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
