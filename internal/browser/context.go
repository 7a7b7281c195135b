// internal/browser/context.go
package browser

import "context"

// CombineContext returns a context derived from ctx1 (the tab context) that
// is canceled when *either* ctx1 or ctx2 (the caller's context) is done.
// Values come from ctx1 only. chromedp looks up its target there, while ctx2
// usually carries no more than an operation deadline.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	// Deriving from ctx1 keeps its values and its own cancellation.
	combined, cancel := context.WithCancel(ctx1)

	// Tie ctx2 to the combined context. The goroutine exits as soon as
	// either side is done.
	go func() {
		select {
		case <-ctx2.Done():
			// Caller gave up or hit its deadline.
			cancel()
		case <-combined.Done():
			// Already canceled through ctx1 or the returned cancel func.
		}
	}()

	return combined, cancel
}
