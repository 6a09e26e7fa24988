package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoffAttempts(t *testing.T) {
	b := New(Config{
		Min:          250 * time.Millisecond,
		Max:          1 * time.Second,
		Factor:       2,
		NoJitter:     true,
		RetryTimeout: 2 * time.Second,
	})
	// 1st attempt: 0
	// 2nd attempt: 250ms
	// 3rd attempt: 500ms
	// 4th attempt: 1s
	var attempts int
	a := b.Attempts()
	for a.WaitForNext() {
		attempts++
	}
	require.Error(t, a.Err())
	require.Equal(t, 4, attempts)
}

func TestBackoffAttemptsAlwaysExecutesOneAttemptRegardlessOfTimeout(t *testing.T) {
	b := New(Config{
		Min:          time.Second,
		RetryTimeout: 100 * time.Millisecond,
	})

	var attempts int
	a := b.Attempts()
	for a.WaitForNext() {
		attempts++
	}
	require.Error(t, a.Err())
	require.Equal(t, 1, attempts)
}
