package recording

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"
)

// Capture records until ctx is done or d elapses, whichever comes first,
// and returns the clip. d <= 0 falls back to the configured timeout.
func (r *Recorder) Capture(ctx context.Context, d time.Duration) (*Buffer, error) {
	if d <= 0 || (r.config.Timeout > 0 && d > r.config.Timeout) {
		d = r.config.Timeout
	}
	captureCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	frames, errs, err := r.Start(captureCtx)
	if err != nil {
		return nil, err
	}

	pcm, captureErr := collect(frames, errs)
	r.Wait()

	if captureErr != nil {
		return nil, captureErr
	}
	buf := FromPCM16LE(pcm, r.config.SampleRate, r.config.Channels)
	if len(buf.Samples) == 0 {
		return nil, fmt.Errorf("no audio captured")
	}
	log.Printf("Recording: captured %v of audio", buf.Duration())
	return buf, nil
}

// collect drains both channels until the capture loop closes them.
func collect(frames <-chan AudioFrame, errs <-chan error) ([]byte, error) {
	var pcm bytes.Buffer
	var firstErr error
	for frames != nil || errs != nil {
		select {
		case f, ok := <-frames:
			if !ok {
				frames = nil
				continue
			}
			pcm.Write(f.Data)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return pcm.Bytes(), firstErr
}
