package livepreview

import (
	"context"
	"time"

	"github.com/pthm/livepreview/lib/cslp"
)

// Field is schema information about a hovered field.
type Field struct {
	DisplayName string
	DataType    string
}

// FieldLookup resolves schema information for a field, typically by asking
// the authoring application or a schema cache.
//
// Lookups run off the event path. An answer is applied only if the element
// that triggered it is still hovered; late answers are discarded.
//
// Example:
//
//	lookup := livepreview.FieldLookupFunc(func(ctx context.Context, ref cslp.Reference) (livepreview.Field, error) {
//	    return schemas.Field(ctx, ref.ContentTypeUID, ref.FieldPath)
//	})
//	engine := livepreview.New(win, tr, in, livepreview.WithFieldLookup(lookup))
type FieldLookup interface {
	LookupField(ctx context.Context, ref cslp.Reference) (Field, error)
}

// FieldLookupFunc adapts a function to FieldLookup.
type FieldLookupFunc func(ctx context.Context, ref cslp.Reference) (Field, error)

func (f FieldLookupFunc) LookupField(ctx context.Context, ref cslp.Reference) (Field, error) {
	return f(ctx, ref)
}

// Scheduler runs fn every interval until stop is called. It drives the
// entry-page heartbeat.
type Scheduler func(interval time.Duration, fn func()) (stop func())

// TickerScheduler is the default Scheduler, backed by time.Ticker.
func TickerScheduler(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
	}
}
