package capture

import (
	"context"
	"sync"
	"time"
)

// Mark is a named point on an exchange's timeline, as an offset from the
// capture start.
type Mark struct {
	Name   string        `json:"name"`
	Offset time.Duration `json:"offset"`
}

// Timeline accumulates named marks relative to a fixed start time. Pipeline
// stages record phase boundaries (DNS done, connection made, first byte) as
// the exchange progresses; the interceptor copies the marks into the event
// at finalization. Safe for concurrent use.
type Timeline struct {
	mu    sync.Mutex
	start time.Time
	marks []Mark
}

// NewTimeline creates a timeline anchored at start.
func NewTimeline(start time.Time) *Timeline {
	return &Timeline{start: start}
}

// Mark records a named point at the current offset. Offsets are
// non-decreasing in call order.
func (t *Timeline) Mark(name string) {
	offset := time.Since(t.start)
	t.mu.Lock()
	if n := len(t.marks); n > 0 && offset < t.marks[n-1].Offset {
		offset = t.marks[n-1].Offset
	}
	t.marks = append(t.marks, Mark{Name: name, Offset: offset})
	t.mu.Unlock()
}

// Marks returns a copy of the recorded marks in order.
func (t *Timeline) Marks() []Mark {
	t.mu.Lock()
	out := make([]Mark, len(t.marks))
	copy(out, t.marks)
	t.mu.Unlock()
	return out
}

type timelineKey struct{}

// WithTimeline returns a context carrying the timeline for one exchange.
func WithTimeline(ctx context.Context, t *Timeline) context.Context {
	return context.WithValue(ctx, timelineKey{}, t)
}

// TimelineFrom extracts the exchange timeline from a context, if present.
func TimelineFrom(ctx context.Context) (*Timeline, bool) {
	t, ok := ctx.Value(timelineKey{}).(*Timeline)
	return t, ok
}
