package base

import (
	"context"
	"time"

	"github.com/ajitpratap0/tap-dayforce/pkg/errors"
)

// Window is a half-open time range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Duration returns End - Start.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// ForEachWindow calls body for each contiguous window of width step covering
// [start, end), in chronological order. The last window is clipped to end.
// Nothing happens when start is not before end.
func ForEachWindow(ctx context.Context, start, end time.Time, step time.Duration, body func(Window) error) error {
	if step <= 0 {
		return errors.Newf(errors.ErrorTypeValidation, "window step must be positive, got %s", step)
	}

	for cur := start; cur.Before(end); {
		if err := ctx.Err(); err != nil {
			return err
		}

		next := cur.Add(step)
		if next.After(end) {
			next = end
		}
		if err := body(Window{Start: cur, End: next}); err != nil {
			return err
		}
		cur = next
	}
	return nil
}

// Windows returns the windows ForEachWindow would visit.
func Windows(start, end time.Time, step time.Duration) ([]Window, error) {
	var out []Window
	err := ForEachWindow(context.Background(), start, end, step, func(w Window) error {
		out = append(out, w)
		return nil
	})
	return out, err
}
