package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BaSui01/travelrag/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fastPolicy(maxRetries int) *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:   maxRetries,
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     20 * time.Millisecond,
		Multiplier:   2.0,
		Jitter:       false,
		ShouldRetry:  func(error) bool { return true },
	}
}

func TestBackoffRetryer_Success(t *testing.T) {
	retryer := NewBackoffRetryer(fastPolicy(3), zap.NewNop())

	callCount := 0
	err := retryer.Do(context.Background(), func() error {
		callCount++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, callCount, "应该只调用一次")
}

func TestBackoffRetryer_RetryAndSuccess(t *testing.T) {
	retryer := NewBackoffRetryer(fastPolicy(3), zap.NewNop())

	callCount := 0
	err := retryer.Do(context.Background(), func() error {
		callCount++
		if callCount < 3 {
			return errors.New("temporary error")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, callCount, "应该调用三次")
}

func TestBackoffRetryer_MaxRetriesExceeded(t *testing.T) {
	retryer := NewBackoffRetryer(fastPolicy(2), zap.NewNop())

	callCount := 0
	testErr := errors.New("persistent error")
	err := retryer.Do(context.Background(), func() error {
		callCount++
		return testErr
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, testErr)
	assert.Equal(t, 3, callCount, "初次调用 + 2 次重试")
}

func TestBackoffRetryer_ZeroRetriesReturnsErrorUnchanged(t *testing.T) {
	retryer := NewBackoffRetryer(fastPolicy(0), zap.NewNop())

	testErr := types.NewError(types.ErrRetrieval, "index down")
	err := retryer.Do(context.Background(), func() error { return testErr })
	assert.Same(t, testErr, err)
}

func TestBackoffRetryer_DefaultPredicateUsesRetryableFlag(t *testing.T) {
	policy := fastPolicy(3)
	policy.ShouldRetry = nil
	retryer := NewBackoffRetryer(policy, zap.NewNop())

	t.Run("non-retryable stops immediately", func(t *testing.T) {
		calls := 0
		err := retryer.Do(context.Background(), func() error {
			calls++
			return types.NewError(types.ErrUnauthorized, "bad key")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retryable is retried", func(t *testing.T) {
		calls := 0
		err := retryer.Do(context.Background(), func() error {
			calls++
			if calls == 1 {
				return types.NewError(types.ErrRateLimited, "slow").WithRetryable(true)
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})
}

func TestBackoffRetryer_ContextCanceled(t *testing.T) {
	policy := fastPolicy(5)
	policy.InitialDelay = time.Second
	policy.MaxDelay = time.Second
	retryer := NewBackoffRetryer(policy, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	lastErr := types.NewError(types.ErrRetrieval, "index down")
	err := retryer.Do(ctx, func() error { return lastErr })

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, types.IsCode(err, types.ErrRetrieval), "最后一次错误应保留在错误链中")
}

func TestBackoffRetryer_DelayCalculation(t *testing.T) {
	r := NewBackoffRetryer(&RetryPolicy{
		MaxRetries:   5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     300 * time.Millisecond,
		Multiplier:   2.0,
	}, zap.NewNop()).(*backoffRetryer)

	assert.Equal(t, 100*time.Millisecond, r.calculateDelay(1))
	assert.Equal(t, 200*time.Millisecond, r.calculateDelay(2))
	assert.Equal(t, 300*time.Millisecond, r.calculateDelay(3), "受 MaxDelay 限制")
}

func TestBackoffRetryer_OnRetryCallback(t *testing.T) {
	policy := fastPolicy(2)
	var attempts []int
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		attempts = append(attempts, attempt)
	}
	retryer := NewBackoffRetryer(policy, zap.NewNop())

	_ = retryer.Do(context.Background(), func() error { return errors.New("x") })
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDoWithResult(t *testing.T) {
	retryer := NewBackoffRetryer(fastPolicy(2), zap.NewNop())

	calls := 0
	val, err := DoWithResult(context.Background(), retryer, func() ([]float64, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("flaky")
		}
		return []float64{1, 2}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, val)

	_, err = DoWithResult(context.Background(), NewBackoffRetryer(fastPolicy(0), nil), func() (int, error) {
		return 7, errors.New("fail")
	})
	require.Error(t, err)
}

func TestDoWithResult_NilRetryer(t *testing.T) {
	calls := 0
	val, err := DoWithResult(context.Background(), nil, func() (string, error) {
		calls++
		return "once", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "once", val)
	assert.Equal(t, 1, calls)
}
