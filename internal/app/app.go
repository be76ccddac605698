// Package app ties pose sources, wave analyzers, storage, metrics and hooks
// together into tracked sessions.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/ayusman/wavecoach/internal/hook"
	"github.com/ayusman/wavecoach/internal/metrics"
	"github.com/ayusman/wavecoach/internal/pose"
	"github.com/ayusman/wavecoach/internal/report"
	"github.com/ayusman/wavecoach/internal/smoothing"
	"github.com/ayusman/wavecoach/internal/store"
	"github.com/ayusman/wavecoach/internal/wave"
)

var (
	// ErrSessionNotFound is returned for unknown session IDs.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionEnded is returned when frames are sent to an ended session.
	ErrSessionEnded = errors.New("session ended")
	// ErrInvalidOptions is returned when session options are rejected.
	ErrInvalidOptions = errors.New("invalid session options")
)

// ResultFunc receives every analyzed frame of every session.
// It is called in frame order for a session and must not call back into the
// App for that session.
type ResultFunc func(sessionID string, res wave.Result)

// Config holds the dependencies of the application.
type Config struct {
	Store        *store.Store
	Metrics      *metrics.Manager
	Hooks        *hook.Registry
	HookExecutor *hook.Executor
	// Defaults apply to sessions started without explicit options.
	Defaults SessionOptions
}

// SessionOptions configures a new session.
type SessionOptions struct {
	Name      string
	Side      pose.Side
	Wave      wave.Config
	Smoothing bool
}

// DefaultSessionOptions returns right-arm options with the default thresholds.
func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		Side: pose.SideRight,
		Wave: wave.DefaultConfig(),
	}
}

// App is the registry of live sessions.
type App struct {
	config   Config
	trackers map[string]*tracker
	onResult ResultFunc
	mu       sync.RWMutex

	hookWG     sync.WaitGroup
	hookCtx    context.Context
	hookCancel context.CancelFunc
}

// New creates an App. Sessions left active by a previous run are ended,
// because analyzer state does not survive a restart.
func New(config Config) (*App, error) {
	if config.Store == nil {
		return nil, errors.New("app: store is required")
	}
	if config.Metrics == nil {
		config.Metrics = metrics.NewTestManager()
	}
	if config.Hooks == nil {
		config.Hooks = hook.NewRegistry()
	}
	if config.HookExecutor == nil {
		config.HookExecutor = hook.NewExecutor(5000)
	}
	if config.Defaults.Side == "" {
		config.Defaults.Side = pose.SideRight
	}
	if config.Defaults.Wave == (wave.Config{}) {
		config.Defaults.Wave = wave.DefaultConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		config:     config,
		trackers:   make(map[string]*tracker),
		hookCtx:    ctx,
		hookCancel: cancel,
	}

	if err := a.endStaleSessions(); err != nil {
		cancel()
		return nil, err
	}
	return a, nil
}

func (a *App) endStaleSessions() error {
	sessions, err := a.config.Store.Sessions().List()
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	now := time.Now()
	ended := 0
	for _, s := range sessions {
		if !s.Active() {
			continue
		}
		if err := a.config.Store.Sessions().End(s.ID, now); err != nil {
			return fmt.Errorf("end stale session %s: %w", s.ID, err)
		}
		ended++
	}
	if ended > 0 {
		log.Infof("ended %d sessions left open by a previous run", ended)
	}
	return nil
}

// OnResult registers the callback for analyzed frames.
func (a *App) OnResult(fn ResultFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onResult = fn
}

// Metrics returns the metrics manager in use.
func (a *App) Metrics() *metrics.Manager {
	return a.config.Metrics
}

// Hooks returns the hook registry in use.
func (a *App) Hooks() *hook.Registry {
	return a.config.Hooks
}

// StartSession creates and persists a session and begins tracking it.
func (a *App) StartSession(opts SessionOptions) (*store.Session, error) {
	side, err := pose.ParseSide(string(opts.Side))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}

	analyzer, err := wave.New(opts.Wave)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}

	name := opts.Name
	if name == "" {
		name = "session " + time.Now().Format("2006-01-02 15:04")
	}

	session := &store.Session{
		ID:              uuid.New().String(),
		Name:            name,
		Side:            string(side),
		WaveAngleThresh: opts.Wave.WaveAngleThresh,
		MinAngle:        opts.Wave.MinAngle,
		MaxAngle:        opts.Wave.MaxAngle,
		Smoothing:       opts.Smoothing,
	}
	if err := a.config.Store.Sessions().Create(session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	t := newTracker(session, side, analyzer)
	if opts.Smoothing {
		t.smoother = smoothing.New(smoothing.DefaultOptions())
	}

	a.mu.Lock()
	a.trackers[session.ID] = t
	a.mu.Unlock()

	a.config.Metrics.GaugeActiveSessions.Inc()
	log.WithFields(log.Fields{
		"session": session.ID,
		"side":    side,
	}).Info("session started")

	return session, nil
}

// tracker returns the live tracker for id, telling apart ended and unknown sessions.
func (a *App) tracker(id string) (*tracker, error) {
	a.mu.RLock()
	t, ok := a.trackers[id]
	a.mu.RUnlock()
	if ok {
		return t, nil
	}

	if _, err := a.config.Store.Sessions().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return nil, ErrSessionEnded
}

// Analyze runs one frame through the session's analyzer.
// Completed repetitions are stored, counted and announced to hooks before
// the result is returned.
func (a *App) Analyze(id string, frame *pose.Frame) (wave.Result, error) {
	t, err := a.tracker(id)
	if err != nil {
		return wave.Result{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ended {
		return wave.Result{}, ErrSessionEnded
	}

	start := time.Now()
	res, err := t.analyze(frame)
	if err != nil {
		a.config.Metrics.CounterRejectedFrames.WithLabelValues(rejectReason(err)).Inc()
		return wave.Result{}, err
	}
	a.config.Metrics.HistFrameDuration.Observe(time.Since(start).Seconds())
	a.config.Metrics.CounterFrames.WithLabelValues(res.State.String()).Inc()

	// The analyzer has already counted a completion, so the result is
	// published even when storing it fails.
	var storeErr error
	if res.Completed {
		storeErr = a.completeRepetition(t, res, frame.Timestamp)
	}

	a.mu.RLock()
	onResult := a.onResult
	a.mu.RUnlock()
	if onResult != nil {
		onResult(id, res)
	}

	return res, storeErr
}

// completeRepetition persists a finished repetition and fires hooks.
// Called with t.mu held.
func (a *App) completeRepetition(t *tracker, res wave.Result, timestamp int64) error {
	rep := &store.Repetition{
		SessionID:       t.session.ID,
		Index:           t.repetitions + 1,
		PeakPerformance: res.RepetitionPerformance,
		Frames:          t.framesInRep,
	}
	t.framesInRep = 0

	if err := a.config.Store.Repetitions().Create(rep); err != nil {
		return fmt.Errorf("store repetition: %w", err)
	}
	t.repetitions = rep.Index

	if err := a.config.Store.Sessions().UpdateCount(t.session.ID, res.Count); err != nil {
		return fmt.Errorf("update count: %w", err)
	}

	a.config.Metrics.CounterRepetitions.Inc()
	a.config.Metrics.HistRepetitionPerformance.Observe(rep.PeakPerformance)

	log.WithFields(log.Fields{
		"session":     t.session.ID,
		"repetition":  rep.Index,
		"count":       res.Count,
		"performance": fmt.Sprintf("%.1f", rep.PeakPerformance),
		"timestamp":   timestamp,
	}).Info("repetition completed")

	a.fireHooks(hook.Event{
		Type:            hook.EventRepetitionCompleted,
		SessionID:       t.session.ID,
		SessionName:     t.session.Name,
		Repetition:      rep.Index,
		Count:           res.Count,
		PeakPerformance: rep.PeakPerformance,
		Frames:          rep.Frames,
		Timestamp:       rep.CompletedAt,
	})
	return nil
}

// fireHooks runs every registered hook in the background.
func (a *App) fireHooks(ev hook.Event) {
	hooks := a.config.Hooks.List()
	if len(hooks) == 0 {
		return
	}

	a.hookWG.Add(1)
	go func() {
		defer a.hookWG.Done()
		for _, h := range hooks {
			resp, err := a.config.HookExecutor.Execute(a.hookCtx, h, ev)
			status := "ok"
			switch {
			case err != nil:
				status = "error"
				log.Errorf("hook %s: %s", h.Name, err)
			case !resp.Success:
				status = "failed"
				log.Warnf("hook %s reported failure: %s", h.Name, resp.Error)
			}
			a.config.Metrics.CounterHookRuns.WithLabelValues(h.Name, status).Inc()
		}
	}()
}

// ResetCount zeroes the session's repetition count.
func (a *App) ResetCount(id string) error {
	t, err := a.tracker(id)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.analyzer.ResetCount()
	if err := a.config.Store.Sessions().UpdateCount(id, 0); err != nil {
		return fmt.Errorf("update count: %w", err)
	}
	log.WithField("session", id).Info("count reset")
	return nil
}

// EndSession stops tracking a session. Ending an ended session is a no-op.
func (a *App) EndSession(id string) error {
	a.mu.Lock()
	t, ok := a.trackers[id]
	delete(a.trackers, id)
	a.mu.Unlock()

	if !ok {
		s, err := a.Session(id)
		if err != nil {
			return err
		}
		if !s.Active() {
			return nil
		}
		return a.config.Store.Sessions().End(id, time.Now())
	}

	t.mu.Lock()
	t.ended = true
	t.mu.Unlock()

	a.config.Metrics.GaugeActiveSessions.Dec()
	if err := a.config.Store.Sessions().End(id, time.Now()); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	log.WithField("session", id).Info("session ended")
	return nil
}

// DeleteSession ends a session and removes it with its repetitions.
func (a *App) DeleteSession(id string) error {
	if err := a.EndSession(id); err != nil {
		return err
	}
	if err := a.config.Store.Sessions().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	return nil
}

// Session returns the stored session.
func (a *App) Session(id string) (*store.Session, error) {
	s, err := a.config.Store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return s, nil
}

// Sessions returns all stored sessions, newest first.
func (a *App) Sessions() ([]*store.Session, error) {
	return a.config.Store.Sessions().List()
}

// Snapshot returns the live analyzer state of an active session.
func (a *App) Snapshot(id string) (wave.Snapshot, error) {
	t, err := a.tracker(id)
	if err != nil {
		return wave.Snapshot{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.analyzer.Snapshot(), nil
}

// Repetitions returns the stored repetitions of a session.
func (a *App) Repetitions(id string) ([]store.Repetition, error) {
	if _, err := a.Session(id); err != nil {
		return nil, err
	}
	return a.config.Store.Repetitions().ListBySession(id)
}

// Summary aggregates the stored repetitions of a session.
func (a *App) Summary(id string) (report.Summary, error) {
	reps, err := a.Repetitions(id)
	if err != nil {
		return report.Summary{}, err
	}
	return report.Summarize(reps), nil
}

// Close ends every live session and waits for running hooks.
func (a *App) Close() error {
	a.mu.RLock()
	ids := make([]string, 0, len(a.trackers))
	for id := range a.trackers {
		ids = append(ids, id)
	}
	a.mu.RUnlock()

	var err error
	for _, id := range ids {
		err = multierr.Append(err, a.EndSession(id))
	}

	a.hookWG.Wait()
	a.hookCancel()
	return err
}

// rejectReason labels an analysis error for metrics.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, wave.ErrInvalidFrame):
		return "invalid_frame"
	case errors.Is(err, wave.ErrMalformedJoint):
		return "malformed_joint"
	case errors.Is(err, pose.ErrMissingJoint):
		return "missing_joint"
	default:
		return "other"
	}
}

// IsFrameError reports whether err concerns a single frame rather than the
// session, so that a stream can continue after it.
func IsFrameError(err error) bool {
	return errors.Is(err, wave.ErrInvalidFrame) ||
		errors.Is(err, wave.ErrMalformedJoint) ||
		errors.Is(err, pose.ErrMissingJoint)
}
