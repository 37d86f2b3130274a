package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLocker(t *testing.T, ttl time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, ttl), mr
}

func TestRedisLockerAcquireRelease(t *testing.T) {
	locker, mr := newRedisLocker(t, time.Second)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "slot:1:100")
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:slot:1:100"))

	release()
	assert.False(t, mr.Exists("lock:slot:1:100"))
}

func TestRedisLockerContendedKeyTimesOut(t *testing.T) {
	locker, _ := newRedisLocker(t, 100*time.Millisecond)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "slot:1:100")
	require.NoError(t, err)
	defer release()

	_, err = locker.Acquire(ctx, "slot:1:100")
	assert.ErrorIs(t, err, ErrNotAcquired)
}

func TestRedisLockerReleaseKeepsForeignToken(t *testing.T) {
	locker, mr := newRedisLocker(t, time.Second)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "appointment:7")
	require.NoError(t, err)

	// Simulate expiry followed by another holder taking the key.
	require.NoError(t, mr.Set("lock:appointment:7", "someone-else"))
	release()

	value, err := mr.Get("lock:appointment:7")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", value)
}

func TestLocalLockerSerializesHolders(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		inside  int32
		maxSeen int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(ctx, "slot:1:100")
			if err != nil {
				t.Error(err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				seen := atomic.LoadInt32(&maxSeen)
				if n <= seen || atomic.CompareAndSwapInt32(&maxSeen, seen, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen)
	assert.Empty(t, locker.slots)
}

func TestLocalLockerHonoursContext(t *testing.T) {
	locker := NewLocalLocker()
	release, err := locker.Acquire(context.Background(), "k")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSlotKeyIsStablePerHour(t *testing.T) {
	hour := time.Date(2030, 5, 1, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, SlotKey(3, hour), SlotKey(3, hour.In(time.FixedZone("BRT", -3*3600))))
	assert.NotEqual(t, SlotKey(3, hour), SlotKey(4, hour))
}
