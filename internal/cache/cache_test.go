package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func TestKey(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	assert.Equal(t, Key("장학금 마감", a), Key("장학금 마감", a))
	assert.NotEqual(t, Key("장학금 마감", a), Key("장학금 마감", b))
	assert.NotEqual(t, Key("장학금 마감", a), Key("장학금  마감", a))
	assert.NotEqual(t, Key("Tuition", a), Key("tuition", a))
}

func TestGetPut(t *testing.T) {
	c := New[string]()
	tenant := uuid.New()

	_, ok := c.Get("q", tenant)
	assert.False(t, ok)

	c.Put("q", tenant, "answer")
	v, ok := c.Get("q", tenant)
	require.True(t, ok)
	assert.Equal(t, "answer", v)

	_, ok = c.Get("q", uuid.New())
	assert.False(t, ok, "other tenants must not see the entry")
}

func TestTTL(t *testing.T) {
	clock := newClock()
	c := New[string](WithTTL(time.Minute), WithClock(clock.Now))
	tenant := uuid.New()

	c.Put("q", tenant, "answer")
	clock.Advance(time.Minute)
	_, ok := c.Get("q", tenant)
	assert.True(t, ok, "an entry exactly TTL old is still served")

	clock.Advance(time.Second)
	_, ok = c.Get("q", tenant)
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len(), "expired entries are not removed by Get")

	c.Put("q", tenant, "fresh")
	v, ok := c.Get("q", tenant)
	require.True(t, ok)
	assert.Equal(t, "fresh", v)
}

func TestPut_SweepsExpiredWhenFull(t *testing.T) {
	clock := newClock()
	c := New[int](WithTTL(time.Minute), WithMaxEntries(3), WithClock(clock.Now))
	tenant := uuid.New()

	c.Put("old-1", tenant, 1)
	c.Put("old-2", tenant, 2)
	clock.Advance(2 * time.Minute)
	c.Put("live", tenant, 3)
	assert.Equal(t, 3, c.Len())

	// Reaching the bound is allowed; only exceeding it sweeps
	c.Put("new", tenant, 4)
	assert.Equal(t, 4, c.Len())

	c.Put("newer", tenant, 5)
	assert.Equal(t, 3, c.Len())
	_, ok := c.Get("old-1", tenant)
	assert.False(t, ok)
	for _, q := range []string{"live", "new", "newer"} {
		_, ok = c.Get(q, tenant)
		assert.True(t, ok, q)
	}
}

func TestPut_NoSweepAtCapacity(t *testing.T) {
	clock := newClock()
	c := New[int](WithTTL(time.Minute), WithMaxEntries(2), WithClock(clock.Now))
	tenant := uuid.New()

	c.Put("old", tenant, 1)
	clock.Advance(2 * time.Minute)
	c.Put("live", tenant, 2)
	assert.Equal(t, 2, c.Len(), "expired entry stays until the cache holds more than max")
}

func TestPut_KeepsLiveEntriesOverCapacity(t *testing.T) {
	c := New[int](WithMaxEntries(2))
	tenant := uuid.New()
	for i := 0; i < 4; i++ {
		c.Put(fmt.Sprintf("q%d", i), tenant, i)
	}
	assert.Equal(t, 4, c.Len())
}

func TestPurge(t *testing.T) {
	c := New[int]()
	c.Put("a", uuid.New(), 1)
	c.Put("b", uuid.New(), 2)
	assert.Equal(t, 2, c.Purge())
	assert.Equal(t, 0, c.Len())
}

func TestConcurrentAccess(t *testing.T) {
	c := New[int](WithMaxEntries(50))
	tenants := []uuid.UUID{uuid.New(), uuid.New()}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				q := fmt.Sprintf("q%d", i%20)
				tenant := tenants[(w+i)%2]
				c.Put(q, tenant, i)
				c.Get(q, tenant)
			}
		}(w)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 40)
}

func TestPurgeTenant(t *testing.T) {
	c := New[int]()
	alpha, beta := uuid.New(), uuid.New()
	c.Put("q1", alpha, 1)
	c.Put("q2", alpha, 2)
	c.Put("q1", beta, 3)

	assert.Equal(t, 2, c.PurgeTenant(alpha))
	assert.Equal(t, 0, c.PurgeTenant(alpha))
	_, ok := c.Get("q1", alpha)
	assert.False(t, ok)
	v, ok := c.Get("q1", beta)
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}
