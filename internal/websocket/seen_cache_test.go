package websocket

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func Test_SeenCache_Suppresses_Duplicates(t *testing.T) {
	c := newSeenCache(8, time.Minute)
	id := uuid.New()

	require.True(t, c.Observe(id))
	require.False(t, c.Observe(id))
	require.False(t, c.Observe(id))
	require.True(t, c.Observe(uuid.New()))
}

func Test_SeenCache_Expires_After_TTL(t *testing.T) {
	c := newSeenCache(8, time.Minute)
	now := time.Now()
	c.clock = func() time.Time { return now }

	id := uuid.New()
	require.True(t, c.Observe(id))

	now = now.Add(30 * time.Second)
	require.False(t, c.Observe(id))

	now = now.Add(31 * time.Second)
	require.True(t, c.Observe(id))
}

func Test_SeenCache_Bounded_By_Capacity(t *testing.T) {
	c := newSeenCache(2, time.Hour)
	base := time.Now()
	tick := 0
	c.clock = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	first := uuid.New()
	require.True(t, c.Observe(first))
	require.True(t, c.Observe(uuid.New()))
	require.True(t, c.Observe(uuid.New()))

	// The oldest entry was evicted, so it reads as unseen again.
	require.True(t, c.Observe(first))
	require.LessOrEqual(t, len(c.entries), 2)
}

func Test_SeenCache_Is_Per_Session(t *testing.T) {
	a := newSeenCache(8, time.Minute)
	b := newSeenCache(8, time.Minute)
	id := uuid.New()

	require.True(t, a.Observe(id))
	// Another session's history never mutes this one.
	require.True(t, b.Observe(id))
}
