package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/sadopc/wiretap/internal/protocol"
)

// Interceptor records every exchange passing through the pipeline without
// altering what the caller sees. Recording is fail-open: a fault inside the
// interceptor never changes the outcome of the traffic it observes.
type Interceptor struct {
	store   *Store
	hub     *Hub
	maxBody int64
	onFault func(error)
}

// NewInterceptor creates an interceptor appending to store and publishing to
// hub. hub may be nil when no consumers need notifications.
func NewInterceptor(store *Store, hub *Hub) *Interceptor {
	return &Interceptor{store: store, hub: hub}
}

// SetMaxBodyBytes caps the bytes kept per stored body copy. Zero means
// unlimited. Truncation affects only the stored copy, never the response
// returned to the caller.
func (i *Interceptor) SetMaxBodyBytes(n int64) {
	i.maxBody = n
}

// SetFaultHandler installs a diagnostic sink for internal capture faults.
// Faults are swallowed either way; the handler only observes them.
func (i *Interceptor) SetFaultHandler(fn func(error)) {
	i.onFault = fn
}

// Wrap returns a handler that records the exchange and delegates to next.
// The delegate is invoked exactly once with the caller's context, and its
// outcome — response, error, or panic — is passed through unchanged.
func (i *Interceptor) Wrap(next protocol.Handler) protocol.Handler {
	return func(ctx context.Context, req *protocol.Request) (resp *protocol.Response, err error) {
		start := time.Now()
		ev, ok := i.begin(req)
		if !ok {
			// Could not even build the partial event; stay out of the way.
			return next(ctx, req)
		}

		tl := NewTimeline(start)
		defer func() {
			r := recover()
			i.finalize(&ev, tl, start, resp, err, r)
			if r != nil {
				panic(r)
			}
		}()

		resp, err = next(WithTimeline(ctx, tl), req)
		return resp, err
	}
}

// begin builds the partial event from the outgoing request, converting any
// internal fault into a skipped capture.
func (i *Interceptor) begin(req *protocol.Request) (ev Event, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			i.fault(fmt.Errorf("building event: %v", r))
			ok = false
		}
	}()
	ev = NewEvent(req.Method, req.URL, req.Headers, i.clampBody(req.Body))
	return ev, true
}

// finalize completes the event on every exit path and hands it to the store
// and hub. Faults here are swallowed so capture can never break traffic.
func (i *Interceptor) finalize(ev *Event, tl *Timeline, start time.Time, resp *protocol.Response, callErr error, panicked any) {
	defer func() {
		if r := recover(); r != nil {
			i.fault(fmt.Errorf("finalizing event: %v", r))
		}
	}()

	ev.Elapsed = time.Since(start)
	ev.Timeline = tl.Marks()

	switch {
	case panicked != nil:
		ev.Err = fmt.Sprint(panicked)
	case callErr != nil:
		ev.Err = callErr.Error()
	}

	// A response observed before a later failure keeps its fields; Err
	// stays authoritative for the terminal state.
	if resp != nil {
		ev.StatusCode = resp.StatusCode
		ev.StatusText = resp.Status
		ev.ResponseHeaders = cloneHeaders(resp.Headers)
		ev.ResponseBody = i.clampBody(resp.Body)
		if ev.Err == "" && resp.Err != "" {
			ev.Err = resp.Err
		}
	}

	i.store.Append(*ev)
	if i.hub != nil {
		i.hub.Publish(*ev)
	}
}

func (i *Interceptor) clampBody(b []byte) []byte {
	if i.maxBody > 0 && int64(len(b)) > i.maxBody {
		b = b[:i.maxBody]
	}
	return cloneBytes(b)
}

func (i *Interceptor) fault(err error) {
	if i.onFault != nil {
		i.onFault(err)
	}
}
