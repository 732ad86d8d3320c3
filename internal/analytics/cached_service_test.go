package analytics

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type countingService struct {
	calls   atomic.Int32
	delay   time.Duration
	err     error
	release chan struct{}
}

func (s *countingService) Dashboard(_ context.Context, userID int64) (Dashboard, error) {
	n := s.calls.Add(1)
	if s.release != nil {
		<-s.release
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return Dashboard{}, s.err
	}
	return Dashboard{Summary: Summary{
		TotalMonthlySpend: decimal.NewFromInt(userID),
		Counts:            Counts{Total: int(n)},
	}}, nil
}

func TestCachedService_Dashboard(t *testing.T) {
	t.Parallel()

	t.Run("uses cache for same user", func(t *testing.T) {
		t.Parallel()
		upstream := &countingService{}
		svc := NewCachedService(upstream, time.Hour)

		got1, err := svc.Dashboard(context.Background(), 7)
		require.NoError(t, err)
		got2, err := svc.Dashboard(context.Background(), 7)
		require.NoError(t, err)
		require.Equal(t, got1, got2)
		require.EqualValues(t, 1, upstream.calls.Load())
	})

	t.Run("cache key is per user", func(t *testing.T) {
		t.Parallel()
		upstream := &countingService{}
		svc := NewCachedService(upstream, time.Hour)

		a, err := svc.Dashboard(context.Background(), 1)
		require.NoError(t, err)
		b, err := svc.Dashboard(context.Background(), 2)
		require.NoError(t, err)
		require.False(t, a.Summary.TotalMonthlySpend.Equal(b.Summary.TotalMonthlySpend))
		require.EqualValues(t, 2, upstream.calls.Load())
	})

	t.Run("expired entry triggers refresh", func(t *testing.T) {
		t.Parallel()
		upstream := &countingService{}
		svc := NewCachedService(upstream, time.Nanosecond)

		_, err := svc.Dashboard(context.Background(), 1)
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
		_, err = svc.Dashboard(context.Background(), 1)
		require.NoError(t, err)
		require.EqualValues(t, 2, upstream.calls.Load())
	})

	t.Run("ttl starts after upstream fetch completes", func(t *testing.T) {
		t.Parallel()
		upstream := &countingService{delay: 20 * time.Millisecond}
		svc := NewCachedService(upstream, 10*time.Millisecond)

		_, err := svc.Dashboard(context.Background(), 1)
		require.NoError(t, err)
		_, err = svc.Dashboard(context.Background(), 1)
		require.NoError(t, err)
		require.EqualValues(t, 1, upstream.calls.Load())
	})

	t.Run("errors are not cached", func(t *testing.T) {
		t.Parallel()
		upstream := &countingService{err: errors.New("upstream down")}
		svc := NewCachedService(upstream, time.Hour)

		_, err := svc.Dashboard(context.Background(), 1)
		require.Error(t, err)
		_, err = svc.Dashboard(context.Background(), 1)
		require.Error(t, err)
		require.EqualValues(t, 2, upstream.calls.Load())
	})

	t.Run("concurrent misses share one request", func(t *testing.T) {
		t.Parallel()
		upstream := &countingService{release: make(chan struct{})}
		svc := NewCachedService(upstream, time.Hour)

		const callers = 8
		var wg sync.WaitGroup
		results := make([]Dashboard, callers)
		errs := make([]error, callers)
		for i := range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i], errs[i] = svc.Dashboard(context.Background(), 3)
			}()
		}

		require.Eventually(t, func() bool { return upstream.calls.Load() == 1 }, time.Second, time.Millisecond)
		time.Sleep(10 * time.Millisecond)
		close(upstream.release)
		wg.Wait()

		for i := range callers {
			require.NoError(t, errs[i])
			require.Equal(t, results[0], results[i])
		}
		require.EqualValues(t, 1, upstream.calls.Load())
	})

	t.Run("cancelled waiter returns context error", func(t *testing.T) {
		t.Parallel()
		upstream := &countingService{release: make(chan struct{})}
		svc := NewCachedService(upstream, time.Hour)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := svc.Dashboard(ctx, 1)
		require.ErrorIs(t, err, context.Canceled)
		close(upstream.release)
	})

	t.Run("requires inner service", func(t *testing.T) {
		t.Parallel()
		_, err := NewCachedService(nil, time.Hour).Dashboard(context.Background(), 1)
		require.Error(t, err)
	})
}

func TestCachedService_Invalidate(t *testing.T) {
	t.Parallel()

	t.Run("drops cached entry", func(t *testing.T) {
		t.Parallel()
		upstream := &countingService{}
		svc := NewCachedService(upstream, time.Hour)

		_, err := svc.Dashboard(context.Background(), 1)
		require.NoError(t, err)
		svc.Invalidate(1)
		got, err := svc.Dashboard(context.Background(), 1)
		require.NoError(t, err)
		require.Equal(t, 2, got.Summary.Counts.Total)
		require.EqualValues(t, 2, upstream.calls.Load())
	})

	t.Run("leaves other users cached", func(t *testing.T) {
		t.Parallel()
		upstream := &countingService{}
		svc := NewCachedService(upstream, time.Hour)

		_, err := svc.Dashboard(context.Background(), 1)
		require.NoError(t, err)
		svc.Invalidate(2)
		_, err = svc.Dashboard(context.Background(), 1)
		require.NoError(t, err)
		require.EqualValues(t, 1, upstream.calls.Load())
	})

	t.Run("in-flight result is not stored after invalidation", func(t *testing.T) {
		t.Parallel()
		upstream := &countingService{release: make(chan struct{})}
		svc := NewCachedService(upstream, time.Hour)

		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = svc.Dashboard(context.Background(), 1)
		}()
		require.Eventually(t, func() bool { return upstream.calls.Load() == 1 }, time.Second, time.Millisecond)

		svc.Invalidate(1)
		close(upstream.release)
		<-done

		_, err := svc.Dashboard(context.Background(), 1)
		require.NoError(t, err)
		require.EqualValues(t, 2, upstream.calls.Load())
	})
}
