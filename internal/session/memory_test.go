package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryStore(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		store := NewMemoryStore(time.Minute)

		value, ok, err := store.Get(context.TODO(), "sess-1", "shortlink_clicked_promo1")

		assert.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, value)
	})

	t.Run("set then get", func(t *testing.T) {
		store := NewMemoryStore(time.Minute)

		err := store.Set(context.TODO(), "sess-1", "shortlink_clicked_promo1", "true")
		assert.NoError(t, err)

		value, ok, err := store.Get(context.TODO(), "sess-1", "shortlink_clicked_promo1")

		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "true", value)
	})

	t.Run("keys are scoped per session", func(t *testing.T) {
		store := NewMemoryStore(time.Minute)

		err := store.Set(context.TODO(), "sess-1", "shortlink_clicked_promo1", "true")
		assert.NoError(t, err)

		_, ok, err := store.Get(context.TODO(), "sess-2", "shortlink_clicked_promo1")

		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("entries expire", func(t *testing.T) {
		store := NewMemoryStore(10 * time.Millisecond)

		err := store.Set(context.TODO(), "sess-1", "shortlink_clicked_promo1", "true")
		assert.NoError(t, err)

		time.Sleep(20 * time.Millisecond)

		_, ok, err := store.Get(context.TODO(), "sess-1", "shortlink_clicked_promo1")

		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("zero ttl falls back to the default", func(t *testing.T) {
		store := NewMemoryStore(0)

		assert.Equal(t, DefaultTTL, store.ttl)
	})
}
