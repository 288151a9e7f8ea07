package loop

import (
	"context"

	"github.com/litrev/litrev/internal/debug"
	"github.com/litrev/litrev/internal/event"
)

// Guard wraps a controller event stream and guarantees the guarded stream
// carries exactly one terminal done event, always last, regardless of how
// the source ends. Events are forwarded faithfully and in order. If src
// closes without a terminal event, Guard synthesizes an error followed by
// done. If the consumer cancels ctx, Guard stops silently; the same ctx
// must drive the source so the producer unwinds too.
func Guard(ctx context.Context, src <-chan event.Event) <-chan event.Event {
	out := make(chan event.Event, 32)

	go func() {
		defer close(out)

		for ev := range src {
			select {
			case out <- ev:
			case <-ctx.Done():
				debug.Logf("guard: consumer disconnected")
				return
			}
			if ev.IsTerminal() {
				// Done is the last event by contract; anything a broken
				// source sends afterwards must not reach the consumer.
				return
			}
		}

		if ctx.Err() != nil {
			return
		}

		debug.Logf("guard: stream ended without done event")
		select {
		case out <- event.Error("stream ended unexpectedly"):
		case <-ctx.Done():
			return
		}
		select {
		case out <- event.Done():
		case <-ctx.Done():
		}
	}()

	return out
}
