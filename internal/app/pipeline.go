package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/ayusman/wavecoach/internal/pose"
)

// Run feeds frames from src into a session until the source is exhausted or
// ctx is cancelled. The source is closed on return.
//
// Pipeline logic:
// 1. Pull the next frame from the source
// 2. Analyze it against the session (smoothing, arm extraction, state machine)
// 3. Frames that cannot be analyzed are logged and skipped
// 4. Session errors (ended, unknown) and source errors stop the run
//
// Reaching the end of the source returns nil.
func (a *App) Run(ctx context.Context, id string, src pose.Source) error {
	defer func() {
		if err := src.Close(); err != nil {
			log.Warnf("close source for session %s: %s", id, err)
		}
	}()

	if _, err := a.tracker(id); err != nil {
		return err
	}

	frames, skipped := 0, 0
	for {
		frame, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			log.WithFields(log.Fields{
				"session": id,
				"frames":  frames,
				"skipped": skipped,
			}).Info("source exhausted")
			return nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("read frame: %w", err)
		}

		if _, err := a.Analyze(id, frame); err != nil {
			if IsFrameError(err) {
				skipped++
				log.WithField("session", id).Debugf("skipping frame %d: %s", frame.Timestamp, err)
				continue
			}
			return err
		}
		frames++
	}
}
