// Package bandwidth implements token-bucket rate limiting for peer
// connection egress/ingress byte transfer (§4.7: per-connection throughput
// is bounded so the choke algorithm's ranking reflects policy, not raw NIC
// capacity). Grounded on golang.org/x/time/rate, the same token-bucket
// library the rest of the corpus reaches for.
package bandwidth

import (
	"context"
	"errors"

	"golang.org/x/time/rate"
)

// Config configures a Limiter. Bits-per-second is converted to a token
// rate by dividing by TokenSize (bits per token); the initial bucket burst
// equals that token rate, so a freshly constructed Limiter starts full.
type Config struct {
	EgressBitsPerSec  uint64 `yaml:"egress_bits_per_sec"`
	IngressBitsPerSec uint64 `yaml:"ingress_bits_per_sec"`
	TokenSize         int64  `yaml:"token_size"`
	Enable            bool   `yaml:"enable"`
}

func (c Config) applyDefaults() Config {
	if c.TokenSize == 0 {
		c.TokenSize = 1
	}
	return c
}

// Limiter rate-limits egress and ingress byte transfer independently.
type Limiter struct {
	config Config

	egress  *rate.Limiter
	ingress *rate.Limiter

	egressBitsPerSec  uint64
	ingressBitsPerSec uint64

	currentEgressLimit  int64
	currentIngressLimit int64
}

// NewLimiter creates a Limiter. If config.Enable is false, the returned
// Limiter never blocks: egress and ingress remain nil.
func NewLimiter(config Config) (*Limiter, error) {
	config = config.applyDefaults()
	if !config.Enable {
		return &Limiter{config: config}, nil
	}
	if config.EgressBitsPerSec == 0 {
		return nil, errors.New("bandwidth: egress bits per sec must be positive")
	}
	if config.IngressBitsPerSec == 0 {
		return nil, errors.New("bandwidth: ingress bits per sec must be positive")
	}
	egressLimit := tokensPerSec(config.EgressBitsPerSec, config.TokenSize)
	ingressLimit := tokensPerSec(config.IngressBitsPerSec, config.TokenSize)
	return &Limiter{
		config:              config,
		egress:              rate.NewLimiter(rate.Limit(egressLimit), int(egressLimit)),
		ingress:             rate.NewLimiter(rate.Limit(ingressLimit), int(ingressLimit)),
		egressBitsPerSec:    config.EgressBitsPerSec,
		ingressBitsPerSec:   config.IngressBitsPerSec,
		currentEgressLimit:  egressLimit,
		currentIngressLimit: ingressLimit,
	}, nil
}

func tokensPerSec(bitsPerSec uint64, tokenSize int64) int64 {
	tps := int64(bitsPerSec) / tokenSize
	if tps < 1 {
		tps = 1
	}
	return tps
}

func tokensForBytes(nbytes int64, tokenSize int64) int64 {
	tokens := (nbytes * 8) / tokenSize
	if tokens == 0 {
		tokens = 1
	}
	return tokens
}

// ReserveEgress blocks until nbytes worth of egress tokens are available.
// It errors if nbytes alone would never fit in the bucket.
func (l *Limiter) ReserveEgress(nbytes int64) error {
	return reserve(l.egress, nbytes, l.config.TokenSize)
}

// ReserveIngress blocks until nbytes worth of ingress tokens are available.
func (l *Limiter) ReserveIngress(nbytes int64) error {
	return reserve(l.ingress, nbytes, l.config.TokenSize)
}

func reserve(limiter *rate.Limiter, nbytes int64, tokenSize int64) error {
	if limiter == nil {
		return nil
	}
	n := tokensForBytes(nbytes, tokenSize)
	return limiter.WaitN(context.Background(), int(n))
}

// Adjust rescales both directions' limits by 1/denom, e.g. to divide
// available bandwidth evenly across denom concurrent torrents.
func (l *Limiter) Adjust(denom int) error {
	if denom <= 0 {
		return errors.New("bandwidth: adjust denominator must be positive")
	}
	if !l.config.Enable {
		return nil
	}
	newEgress := adjustLimit(l.egressBitsPerSec, l.config.TokenSize, denom)
	newIngress := adjustLimit(l.ingressBitsPerSec, l.config.TokenSize, denom)
	l.egress.SetLimit(rate.Limit(newEgress))
	l.egress.SetBurst(int(newEgress))
	l.ingress.SetLimit(rate.Limit(newIngress))
	l.ingress.SetBurst(int(newIngress))
	l.currentEgressLimit = newEgress
	l.currentIngressLimit = newIngress
	return nil
}

func adjustLimit(bitsPerSec uint64, tokenSize int64, denom int) int64 {
	v := int64(bitsPerSec) / tokenSize / int64(denom)
	if v < 1 {
		v = 1
	}
	return v
}

// EgressLimit returns the current egress token rate.
func (l *Limiter) EgressLimit() int64 {
	return l.currentEgressLimit
}

// IngressLimit returns the current ingress token rate.
func (l *Limiter) IngressLimit() int64 {
	return l.currentIngressLimit
}
