package services

import (
	"context"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

// RetryPolicy defines retry behavior for failed operations
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	JitterEnabled bool
}

// DefaultRetryPolicies returns default retry policies for common operations
func DefaultRetryPolicies() map[string]*RetryPolicy {
	return map[string]*RetryPolicy{
		"redis_connect": {
			MaxRetries:    5,
			InitialDelay:  200 * time.Millisecond,
			MaxDelay:      5 * time.Second,
			BackoffFactor: 2.0,
			JitterEnabled: true,
		},
		"redis_operation": {
			MaxRetries:    3,
			InitialDelay:  25 * time.Millisecond,
			MaxDelay:      1 * time.Second,
			BackoffFactor: 2.0,
			JitterEnabled: false,
		},
	}
}

// ExecuteWithRetry runs operation until it succeeds, the policy is exhausted
// or ctx is done. A nil policy uses three retries with exponential backoff.
func ExecuteWithRetry(ctx context.Context, logger *logrus.Logger, operationName string, policy *RetryPolicy, operation func(context.Context) error) error {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if policy == nil {
		policy = &RetryPolicy{
			MaxRetries:    3,
			InitialDelay:  100 * time.Millisecond,
			MaxDelay:      5 * time.Second,
			BackoffFactor: 2.0,
			JitterEnabled: true,
		}
	}

	start := time.Now()
	delay := policy.InitialDelay
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := operation(ctx)
		if err == nil {
			if attempt > 0 {
				logger.WithFields(logrus.Fields{
					"operation": operationName,
					"attempts":  attempt + 1,
					"duration":  time.Since(start),
				}).Info("Operation recovered after retry")
			}
			return nil
		}
		lastErr = err

		if attempt == policy.MaxRetries {
			break
		}

		logger.WithFields(logrus.Fields{
			"operation": operationName,
			"attempt":   attempt + 1,
			"error":     err.Error(),
			"delay":     delay,
		}).Warn("Operation failed, retrying")

		timer := time.NewTimer(retryDelay(delay, policy))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * policy.BackoffFactor)
		if policy.MaxDelay > 0 && delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}

	logger.WithFields(logrus.Fields{
		"operation": operationName,
		"attempts":  policy.MaxRetries + 1,
		"duration":  time.Since(start),
		"error":     lastErr.Error(),
	}).Error("Operation failed after all retries")

	return lastErr
}

// retryDelay adds up to 10% jitter when enabled.
func retryDelay(base time.Duration, policy *RetryPolicy) time.Duration {
	if !policy.JitterEnabled || base <= 0 {
		return base
	}
	return base + time.Duration(rand.Int63n(int64(base)/10+1))
}
