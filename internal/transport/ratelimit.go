// Package transport wraps byte-oriented device links with bandwidth-aware
// write throttling, so render loops can run at animation rate without
// overflowing a slow bus's receive buffer.
package transport

import (
	"io"
	"time"
)

// bitsPerByte accounts for UART framing: 1 start + 8 data + 1 stop.
const bitsPerByte = 10.0

// RateLimitedWriter throttles writes to a byte-stream sink based on the
// link's baud rate and the frame size it carries.
//
// Frames arriving faster than the computed safe interval are dropped, not
// queued: WriteThrottled reports 0 bytes written and WriteAllThrottled
// reports false, neither is an error. The conservative budget is
//
//	safeFPS = max(floor((baud/10)/frameSize) - 1, 1)
type RateLimitedWriter struct {
	w           io.Writer
	baudRate    int
	minInterval time.Duration
	lastSend    time.Time
}

// NewRateLimitedWriter wraps w. frameSize is the full frame length in bytes,
// header included.
func NewRateLimitedWriter(w io.Writer, baudRate, frameSize int) *RateLimitedWriter {
	return &RateLimitedWriter{
		w:           w,
		baudRate:    baudRate,
		minInterval: minInterval(baudRate, frameSize),
	}
}

func minInterval(baudRate, frameSize int) time.Duration {
	if frameSize < 1 {
		frameSize = 1
	}
	bytesPerSecond := float64(baudRate) / bitsPerByte
	theoreticalFPS := bytesPerSecond / float64(frameSize)
	safeFPS := float64(int(theoreticalFPS)) - 1
	if safeFPS < 1 {
		safeFPS = 1
	}
	return time.Duration(float64(time.Second) / safeFPS)
}

// SetFrameSize recomputes the interval for protocols whose payload size
// changes with configuration.
func (r *RateLimitedWriter) SetFrameSize(frameSize int) {
	r.minInterval = minInterval(r.baudRate, frameSize)
}

// SafeFPS reports the current frame budget.
func (r *RateLimitedWriter) SafeFPS() float64 {
	return float64(time.Second) / float64(r.minInterval)
}

// MinInterval reports the minimum time between accepted frames.
func (r *RateLimitedWriter) MinInterval() time.Duration {
	return r.minInterval
}

// WriteThrottled writes data unless the minimum interval since the last
// accepted write has not yet elapsed, in which case the frame is dropped and
// (0, nil) is returned.
func (r *RateLimitedWriter) WriteThrottled(data []byte) (int, error) {
	now := time.Now()
	if !r.lastSend.IsZero() && now.Sub(r.lastSend) < r.minInterval {
		return 0, nil
	}
	n, err := r.w.Write(data)
	if err != nil {
		return n, err
	}
	r.lastSend = now
	return n, nil
}

// WriteAllThrottled is WriteThrottled with an all-or-nothing contract: it
// returns false when the frame was dropped by throttling and true once the
// whole frame reached the sink.
func (r *RateLimitedWriter) WriteAllThrottled(data []byte) (bool, error) {
	now := time.Now()
	if !r.lastSend.IsZero() && now.Sub(r.lastSend) < r.minInterval {
		return false, nil
	}
	if err := writeAll(r.w, data); err != nil {
		return false, err
	}
	r.lastSend = now
	return true, nil
}

func writeAll(w io.Writer, data []byte) error {
	for len(data) > 0 {
		n, err := w.Write(data)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}
