package tracker

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"jurix/config"
	"jurix/types"
)

// fakeClock is a manually advanced clock shared by a tracker and its store
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
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

type storeFactory func(t *testing.T, clock *fakeClock) (Store, func(time.Duration))

func memoryFactory(t *testing.T, clock *fakeClock) (Store, func(time.Duration)) {
	return NewMemoryStoreWithClock(clock.Now), clock.Advance
}

func redisFactory(t *testing.T, clock *fakeClock) (Store, func(time.Duration)) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStoreWithClient(client), func(d time.Duration) {
		clock.Advance(d)
		mr.FastForward(d)
	}
}

var factories = map[string]storeFactory{
	"memory": memoryFactory,
	"redis":  redisFactory,
}

func TestTryMarkInProgressSingleWinner(t *testing.T) {
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock()
			store, _ := factory(t, clock)
			tr := New(store, WithClock(clock.Now))
			ctx := context.Background()

			var wins atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 32; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if tr.TryMarkInProgress(ctx, "ABC-1") {
						wins.Add(1)
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, int32(1), wins.Load())

			tr.ClearInProgress(ctx, "ABC-1")
			assert.True(t, tr.TryMarkInProgress(ctx, "ABC-1"), "claim is available again after clear")
		})
	}
}

func TestMarkGeneratedReleasesClaimAndBlocksNewOnes(t *testing.T) {
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock()
			store, _ := factory(t, clock)
			tr := New(store, WithClock(clock.Now))
			ctx := context.Background()

			require.False(t, tr.HasBeenGenerated(ctx, "ABC-1"))
			require.True(t, tr.TryMarkInProgress(ctx, "ABC-1"))

			tr.MarkGenerated(ctx, "ABC-1")

			assert.True(t, tr.HasBeenGenerated(ctx, "ABC-1"))
			assert.False(t, tr.TryMarkInProgress(ctx, "ABC-1"))

			status, err := tr.State(ctx, "ABC-1")
			require.NoError(t, err)
			assert.Equal(t, types.StateGenerated, status.State)
			assert.Equal(t, clock.Now().UnixMilli(), status.Since)
		})
	}
}

func TestGeneratedMarkerExpires(t *testing.T) {
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock()
			store, advance := factory(t, clock)
			tr := New(store, WithClock(clock.Now), WithTTLs(time.Minute, time.Hour))
			ctx := context.Background()

			require.True(t, tr.TryMarkInProgress(ctx, "ABC-1"))
			tr.MarkGenerated(ctx, "ABC-1")
			advance(2 * time.Hour)

			assert.False(t, tr.HasBeenGenerated(ctx, "ABC-1"))
			assert.True(t, tr.TryMarkInProgress(ctx, "ABC-1"))
		})
	}
}

func TestInProgressClaimExpires(t *testing.T) {
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock()
			store, advance := factory(t, clock)
			tr := New(store, WithClock(clock.Now))
			ctx := context.Background()

			require.True(t, tr.TryMarkInProgress(ctx, "ABC-1"))
			advance(config.DefaultInProgressTTL - time.Minute)
			assert.False(t, tr.TryMarkInProgress(ctx, "ABC-1"))

			advance(2 * time.Minute)
			assert.True(t, tr.TryMarkInProgress(ctx, "ABC-1"))
		})
	}
}

func TestSweepStaleRecoversOldClaims(t *testing.T) {
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock()
			store, advance := factory(t, clock)
			// Claim TTL longer than the sweep age so only the sweep can free it.
			tr := New(store, WithClock(clock.Now), WithTTLs(time.Hour, 0))
			ctx := context.Background()

			require.True(t, tr.TryMarkInProgress(ctx, "ABC-1"))
			advance(16 * time.Minute)
			require.True(t, tr.TryMarkInProgress(ctx, "ABC-2"))

			removed, err := tr.SweepStale(ctx, 15*time.Minute)
			require.NoError(t, err)
			assert.Equal(t, 1, removed)

			assert.True(t, tr.TryMarkInProgress(ctx, "ABC-1"))
			assert.False(t, tr.TryMarkInProgress(ctx, "ABC-2"))
		})
	}
}

// retakingStore releases and re-takes a claim right after every scan
type retakingStore struct {
	Store
	key   string
	value func() string
}

func (r *retakingStore) ScanPrefix(ctx context.Context, prefix string) (map[string]string, error) {
	claims, err := r.Store.ScanPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if err := r.Store.Delete(ctx, r.key); err != nil {
		return nil, err
	}
	return claims, r.Store.Set(ctx, r.key, r.value(), time.Hour)
}

func TestSweepStaleKeepsClaimRetakenAfterScan(t *testing.T) {
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock()
			inner, advance := factory(t, clock)
			ctx := context.Background()

			require.True(t, New(inner, WithClock(clock.Now), WithTTLs(time.Hour, 0)).TryMarkInProgress(ctx, "ABC-1"))
			advance(16 * time.Minute)

			store := &retakingStore{
				Store: inner,
				key:   InProgressPrefix + "ABC-1",
				value: func() string { return strconv.FormatInt(clock.Now().UnixMilli(), 10) },
			}
			tr := New(store, WithClock(clock.Now))

			removed, err := tr.SweepStale(ctx, 15*time.Minute)
			require.NoError(t, err)
			assert.Zero(t, removed)

			status, err := tr.State(ctx, "ABC-1")
			require.NoError(t, err)
			assert.Equal(t, types.StateInProgress, status.State)
			assert.Equal(t, clock.Now().UnixMilli(), status.Since)
		})
	}
}

func TestDeleteIfValue(t *testing.T) {
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			store, _ := factory(t, newFakeClock())
			ctx := context.Background()
			require.NoError(t, store.Set(ctx, "k", "new", time.Hour))

			ok, err := store.DeleteIfValue(ctx, "k", "old")
			require.NoError(t, err)
			assert.False(t, ok)
			exists, err := store.Exists(ctx, "k")
			require.NoError(t, err)
			assert.True(t, exists)

			ok, err = store.DeleteIfValue(ctx, "k", "new")
			require.NoError(t, err)
			assert.True(t, ok)
			exists, err = store.Exists(ctx, "k")
			require.NoError(t, err)
			assert.False(t, exists)

			ok, err = store.DeleteIfValue(ctx, "missing", "x")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestSweepStaleDropsCorruptClaims(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, InProgressPrefix+"ABC-9", "not-a-timestamp", time.Hour))

	removed, err := New(store).SweepStale(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestStateTransitions(t *testing.T) {
	clock := newFakeClock()
	tr := New(NewMemoryStoreWithClock(clock.Now), WithClock(clock.Now))
	ctx := context.Background()

	status, err := tr.State(ctx, "ABC-1")
	require.NoError(t, err)
	assert.Equal(t, types.StateAbsent, status.State)

	require.True(t, tr.TryMarkInProgress(ctx, "ABC-1"))
	status, err = tr.State(ctx, "ABC-1")
	require.NoError(t, err)
	assert.Equal(t, types.StateInProgress, status.State)
	assert.Equal(t, clock.Now().UnixMilli(), status.Since)
}

func TestRecordStartup(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	startup := time.UnixMilli(1234)

	require.NoError(t, New(store).RecordStartup(ctx, startup))

	val, ok, err := store.Get(ctx, StartupTimeKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1234", val)
}

func TestArticleLookupCountsAsGenerated(t *testing.T) {
	ctx := context.Background()
	lookup := func(_ context.Context, key string) (bool, error) {
		return key == "ABC-1", nil
	}
	tr := New(NewMemoryStore(), WithArticleLookup(lookup))

	assert.True(t, tr.HasBeenGenerated(ctx, "ABC-1"))
	assert.False(t, tr.HasBeenGenerated(ctx, "ABC-2"))

	failing := New(NewMemoryStore(), WithArticleLookup(func(context.Context, string) (bool, error) {
		return false, errors.New("s3 down")
	}))
	assert.True(t, failing.HasBeenGenerated(ctx, "ABC-3"))
}

// failingStore errors on every read and on claims.
type failingStore struct{ MemoryStore }

var errStore = errors.New("store unavailable")

func (*failingStore) Get(context.Context, string) (string, bool, error) { return "", false, errStore }
func (*failingStore) Exists(context.Context, string) (bool, error)      { return false, errStore }
func (*failingStore) SetIfAbsent(context.Context, string, string, time.Duration, ...string) (bool, error) {
	return false, errStore
}
func (*failingStore) ScanPrefix(context.Context, string) (map[string]string, error) {
	return nil, errStore
}

func TestStorageErrorsFailClosed(t *testing.T) {
	tr := New(&failingStore{})
	ctx := context.Background()

	assert.True(t, tr.HasBeenGenerated(ctx, "ABC-1"))
	assert.False(t, tr.TryMarkInProgress(ctx, "ABC-1"))

	_, err := tr.SweepStale(ctx, time.Minute)
	assert.ErrorIs(t, err, errStore)

	_, err = tr.State(ctx, "ABC-1")
	assert.ErrorIs(t, err, errStore)
}

func TestOpenFallsBackToMemory(t *testing.T) {
	ctx := context.Background()

	disabled := Open(ctx, config.RedisConfig{Enabled: false})
	assert.True(t, disabled.Degraded())

	unreachable := Open(ctx, config.RedisConfig{Enabled: true, Addr: "127.0.0.1:1"})
	assert.True(t, unreachable.Degraded())
	assert.True(t, unreachable.TryMarkInProgress(ctx, "ABC-1"))
	assert.False(t, unreachable.TryMarkInProgress(ctx, "ABC-1"))

	mr := miniredis.RunT(t)
	durable := Open(ctx, config.RedisConfig{Enabled: true, Addr: mr.Addr()})
	defer durable.Close()
	assert.False(t, durable.Degraded())
	assert.True(t, durable.TryMarkInProgress(ctx, "ABC-1"))
	assert.True(t, mr.Exists(InProgressPrefix+"ABC-1"))
}

// In-progress and generated markers never hold together for one issue.
func TestMarkersAreMutuallyExclusive(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		clock := newFakeClock()
		tr := New(NewMemoryStoreWithClock(clock.Now), WithClock(clock.Now))
		ctx := context.Background()
		keys := []string{"ABC-1", "ABC-2"}

		for i := 0; i < 40; i++ {
			key := rapid.SampledFrom(keys).Draw(t, "key")
			switch rapid.IntRange(0, 4).Draw(t, "op") {
			case 0:
				tr.TryMarkInProgress(ctx, key)
			case 1:
				tr.ClearInProgress(ctx, key)
			case 2:
				tr.MarkGenerated(ctx, key)
			case 3:
				clock.Advance(time.Duration(rapid.IntRange(0, 20).Draw(t, "minutes")) * time.Minute)
			case 4:
				if _, err := tr.SweepStale(ctx, config.DefaultInProgressTTL); err != nil {
					t.Fatal(err)
				}
			}

			for _, k := range keys {
				gen, _ := tr.store.Exists(ctx, generatedKey(k))
				inProg, _ := tr.store.Exists(ctx, inProgressKey(k))
				if gen && inProg {
					t.Fatalf("%s is both generated and in progress", k)
				}
			}
		}
	})
}
