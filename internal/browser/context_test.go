// internal/browser/context_test.go
package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

type ctxKey struct{}

func TestCombineContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("secondary cancellation propagates", func(t *testing.T) {
		primary := context.WithValue(context.Background(), ctxKey{}, "tab")
		secondary, cancelSecondary := context.WithCancel(context.Background())

		combined, cancel := CombineContext(primary, secondary)
		defer cancel()

		assert.Equal(t, "tab", combined.Value(ctxKey{}))
		cancelSecondary()
		select {
		case <-combined.Done():
		case <-time.After(time.Second):
			t.Fatal("combined context was not canceled")
		}
		assert.NoError(t, primary.Err())
	})

	t.Run("primary cancellation propagates", func(t *testing.T) {
		primary, cancelPrimary := context.WithCancel(context.Background())
		combined, cancel := CombineContext(primary, context.Background())
		defer cancel()

		cancelPrimary()
		<-combined.Done()
		assert.ErrorIs(t, combined.Err(), context.Canceled)
	})

	t.Run("values only come from the primary", func(t *testing.T) {
		secondary := context.WithValue(context.Background(), ctxKey{}, "caller")
		combined, cancel := CombineContext(context.Background(), secondary)
		defer cancel()
		assert.Nil(t, combined.Value(ctxKey{}))
	})
}
