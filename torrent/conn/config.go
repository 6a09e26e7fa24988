package conn

import (
	"time"

	"github.com/fenwick-labs/corelode/internal/bandwidth"
)

// Config is the configuration for an individual live peer connection
// (§4.5).
type Config struct {
	// SenderBufferSize is the size of the outbound message channel.
	SenderBufferSize int `yaml:"sender_buffer_size"`

	// ReceiverBufferSize is the size of the inbound message channel.
	ReceiverBufferSize int `yaml:"receiver_buffer_size"`

	// KeepAliveInterval is the maximum idle time before a keep-alive
	// message is sent (§4.5: "send every ≤120 s idle").
	KeepAliveInterval time.Duration `yaml:"keep_alive_interval"`

	// IdleTimeout is the maximum silence before the connection is
	// dropped (§4.5: "drop if no traffic received for 150 s").
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	Bandwidth bandwidth.Config `yaml:"bandwidth"`
}

func (c Config) applyDefaults() Config {
	if c.SenderBufferSize == 0 {
		c.SenderBufferSize = 1000
	}
	if c.ReceiverBufferSize == 0 {
		c.ReceiverBufferSize = 1000
	}
	if c.KeepAliveInterval == 0 {
		c.KeepAliveInterval = 120 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 150 * time.Second
	}
	return c
}
