package resource

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitedWriter(t *testing.T) {
	rc := NewController(Config{IOLimitBytesPerSec: 1 << 20})

	var buf bytes.Buffer
	w := NewRateLimitedWriter(context.Background(), &buf, rc)

	n, err := w.Write([]byte("throttled payload"))
	require.NoError(t, err)
	assert.Equal(t, 17, n)
	assert.Equal(t, "throttled payload", buf.String())
}

func TestRateLimitedWriter_CanceledContext(t *testing.T) {
	rc := NewController(Config{IOLimitBytesPerSec: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	w := NewRateLimitedWriter(ctx, &buf, rc)

	_, err := w.Write([]byte("a"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, buf.Len(), "nothing written when the budget wait fails")
}

func TestRateLimitedReader(t *testing.T) {
	rc := NewController(Config{IOLimitBytesPerSec: 1 << 20})

	r := NewRateLimitedReader(context.Background(), strings.NewReader("throttled payload"), rc)

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "throttled payload", string(data))
}

func TestRateLimited_NilController(t *testing.T) {
	var buf bytes.Buffer
	w := NewRateLimitedWriter(context.Background(), &buf, nil)
	_, err := w.Write([]byte("unlimited"))
	require.NoError(t, err)

	r := NewRateLimitedReader(context.Background(), strings.NewReader("unlimited"), nil)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "unlimited", string(data))
}
