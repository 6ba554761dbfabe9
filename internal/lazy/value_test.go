package lazy

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_LoadsOnce(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	release := make(chan struct{})
	v := New(func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	})
	assert.Equal(t, Pending, v.State())

	const callers = 16
	var wg sync.WaitGroup
	results := make([]int, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = v.Get(context.Background())
		}()
	}

	require.Eventually(t, func() bool { return v.State() == Loading }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, 42, results[i])
	}
	assert.Equal(t, Ready, v.State())

	got, err := v.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, int32(1), calls.Load())
}

func TestValue_FailureIsKept(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	var calls atomic.Int32
	v := New(func(context.Context) (string, error) {
		calls.Add(1)
		return "", boom
	})

	_, err := v.Get(context.Background())
	require.ErrorIs(t, err, boom)
	_, err = v.Get(context.Background())
	require.ErrorIs(t, err, boom)

	assert.Equal(t, Failed, v.State())
	assert.Equal(t, int32(1), calls.Load())
}

func TestValue_CallerCancelDoesNotAbortLoad(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	v := New(func(ctx context.Context) (string, error) {
		select {
		case <-release:
			return "done", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := v.Get(ctx)
	require.ErrorIs(t, err, context.Canceled)

	close(release)
	got, err := v.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", got)
}

func TestValue_Panic(t *testing.T) {
	t.Parallel()

	v := New(func(context.Context) (int, error) {
		panic("bad header")
	})
	_, err := v.Get(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad header")
	assert.Equal(t, Failed, v.State())
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "loading", Loading.String())
	assert.Equal(t, "ready", Ready.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "unknown", State(9).String())
}
