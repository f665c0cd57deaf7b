package resource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Background(t *testing.T) {
	c := NewController(Config{MaxBackgroundWorkers: 2})

	require.True(t, c.TryAcquireBackground())
	require.True(t, c.TryAcquireBackground())
	assert.False(t, c.TryAcquireBackground(), "third slot must be refused")
	assert.Equal(t, int64(2), c.BackgroundActive())

	c.ReleaseBackground()
	assert.True(t, c.TryAcquireBackground())
}

func TestController_AcquireBackground_Canceled(t *testing.T) {
	c := NewController(Config{MaxBackgroundWorkers: 1})
	require.NoError(t, c.AcquireBackground(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := c.AcquireBackground(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestController_NilEnforcesNothing(t *testing.T) {
	var c *Controller

	require.NoError(t, c.AcquireBackground(context.Background()))
	c.ReleaseBackground()
	assert.True(t, c.TryAcquireBackground())
	require.NoError(t, c.AcquireIO(context.Background(), 1<<20))
}

func TestController_AcquireIO_SplitsOversizedRequests(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})

	// Slightly larger than the burst; must not error.
	require.NoError(t, c.AcquireIO(context.Background(), (1<<20)+16))
}
