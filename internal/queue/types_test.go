package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalculateBackoffGrowsExponentially(t *testing.T) {
	for retry := 0; retry < 6; retry++ {
		backoff := calculateBackoff(retry)

		expected := 5 * time.Duration(1<<retry) * time.Second
		lower := time.Duration(float64(expected) * 0.8)
		upper := time.Duration(float64(expected) * 1.2)

		assert.GreaterOrEqual(t, backoff, lower, "retry %d below jitter window", retry)
		assert.LessOrEqual(t, backoff, upper, "retry %d above jitter window", retry)
	}
}

func TestCalculateBackoffCapped(t *testing.T) {
	backoff := calculateBackoff(20)
	assert.LessOrEqual(t, backoff, time.Duration(3600*1.2)*time.Second)
}

func TestEnqueueOptions(t *testing.T) {
	opts := EnqueueOptions{maxRetry: DefaultMaxRetries}
	WithDelay(10 * time.Second)(&opts)
	WithMaxRetry(7)(&opts)

	assert.Equal(t, 10*time.Second, opts.delay)
	assert.Equal(t, 7, opts.maxRetry)
}
