// Package backoff implements the bounded-retry schedule used for tracker
// announce retries (§4.4): an exponential delay
// between attempts, capped by a maximum interval and an overall retry
// timeout, with the first attempt always executed immediately.
package backoff

import (
	"errors"
	"time"

	cenkalti "github.com/cenkalti/backoff"
)

// Config configures a Backoff's retry schedule.
type Config struct {
	Min          time.Duration `yaml:"min"`
	Max          time.Duration `yaml:"max"`
	Factor       float64       `yaml:"factor"`
	NoJitter     bool          `yaml:"no_jitter"`
	RetryTimeout time.Duration `yaml:"retry_timeout"`
}

func (c Config) applyDefaults() Config {
	if c.Min == 0 {
		c.Min = 250 * time.Millisecond
	}
	if c.Max == 0 {
		c.Max = c.Min
	}
	if c.Factor == 0 {
		c.Factor = 2
	}
	return c
}

// Backoff is a reusable retry schedule factory.
type Backoff struct {
	config Config
}

// New creates a Backoff from config, applying defaults for unset fields.
func New(config Config) *Backoff {
	return &Backoff{config: config.applyDefaults()}
}

// ErrRetryTimeout is returned by Attempts.Err once the retry timeout has
// elapsed (or would be exceeded by the next wait) without success.
var ErrRetryTimeout = errors.New("backoff: retry timeout exceeded")

// Attempts is a one-shot iterator over a single retry sequence.
type Attempts struct {
	eb           *cenkalti.ExponentialBackOff
	deadline     time.Time
	retryTimeout time.Duration
	attempted    int
	err          error
}

// Attempts starts a new attempt sequence. Call WaitForNext in a loop; it
// blocks between attempts (after the first, which runs immediately) and
// returns false once the retry timeout is exhausted.
func (b *Backoff) Attempts() *Attempts {
	eb := &cenkalti.ExponentialBackOff{
		InitialInterval:     b.config.Min,
		MaxInterval:         b.config.Max,
		Multiplier:          b.config.Factor,
		RandomizationFactor: 0,
		MaxElapsedTime:      0, // we track the deadline ourselves, see below.
		Clock:               cenkalti.SystemClock,
	}
	if !b.config.NoJitter {
		eb.RandomizationFactor = cenkalti.DefaultRandomizationFactor
	}
	eb.Reset()
	return &Attempts{
		eb:           eb,
		deadline:     time.Now().Add(b.config.RetryTimeout),
		retryTimeout: b.config.RetryTimeout,
	}
}

// WaitForNext reports whether another attempt should be made, sleeping for
// the computed backoff interval first (except before the very first
// attempt, which always runs). It returns false once the retry timeout
// would be exceeded, without sleeping past it.
func (a *Attempts) WaitForNext() bool {
	if a.attempted == 0 {
		a.attempted++
		return true
	}
	if a.retryTimeout > 0 && !time.Now().Before(a.deadline) {
		a.err = ErrRetryTimeout
		return false
	}
	d := a.eb.NextBackOff()
	if d == cenkalti.Stop {
		a.err = ErrRetryTimeout
		return false
	}
	if a.retryTimeout > 0 && time.Now().Add(d).After(a.deadline) {
		a.err = ErrRetryTimeout
		return false
	}
	time.Sleep(d)
	a.attempted++
	return true
}

// Err returns the reason the attempt sequence ended. It is always non-nil
// once WaitForNext has returned false.
func (a *Attempts) Err() error {
	if a.err == nil {
		return ErrRetryTimeout
	}
	return a.err
}

// Attempted returns how many attempts have executed so far.
func (a *Attempts) Attempted() int {
	return a.attempted
}
