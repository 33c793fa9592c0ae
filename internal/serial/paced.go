package serial

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// PacedWriter spaces consecutive frames at least interval apart. The RFM12
// base station drops input that arrives while it is still transmitting.
type PacedWriter struct {
	w       FrameWriter
	limiter *rate.Limiter
}

// NewPacedWriter wraps w. A non-positive interval disables pacing.
func NewPacedWriter(w FrameWriter, interval time.Duration) *PacedWriter {
	lim := rate.NewLimiter(rate.Inf, 1)
	if interval > 0 {
		lim = rate.NewLimiter(rate.Every(interval), 1)
	}
	return &PacedWriter{w: w, limiter: lim}
}

// WriteFrame waits for the pacing interval, then writes frame.
func (p *PacedWriter) WriteFrame(frame []byte) error {
	if err := p.limiter.Wait(context.Background()); err != nil {
		return err
	}
	return p.w.WriteFrame(frame)
}
