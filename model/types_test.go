package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextObjectID_Unique(t *testing.T) {
	seen := make(map[ObjectID]struct{})
	for i := 0; i < 1000; i++ {
		id := NextObjectID()
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %d", id)
		seen[id] = struct{}{}
	}
}

func TestGenericObject(t *testing.T) {
	a := NewGenericObject([]byte("hello"))
	b := NewGenericObject([]byte("hello"))
	c := NewGenericObject([]byte("world"))

	assert.NotEqual(t, a.ID(), b.ID())
	assert.NotEmpty(t, a.Locator())
	assert.Equal(t, 5, a.Size())

	assert.True(t, a.DataEquals(b), "equal payloads must be data-equal")
	assert.True(t, b.DataEquals(a))
	assert.False(t, a.DataEquals(c))
}

func TestGenericObject_Restore(t *testing.T) {
	orig := NewGenericObjectWithLocator("loc-1", []byte("payload"))
	restored := RestoreGenericObject(orig.ID(), orig.Locator(), orig.Data())

	assert.Equal(t, orig.ID(), restored.ID())
	assert.Equal(t, orig.Locator(), restored.Locator())
	assert.True(t, orig.DataEquals(restored))
	assert.Equal(t, orig.DataHash(), restored.DataHash())
}
