// Package download implements the per-torrent coordinator (§4.9): one task
// that owns the peer pool, bridges tracker discovery and scheduler
// assignment, and drives the 1s performance/progress/choke tick.
package download

import "time"

// Config controls a Coordinator's peer pool and tick cadence.
type Config struct {
	MaxConnections int           `yaml:"max_connections"`
	TickInterval   time.Duration `yaml:"tick_interval"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// applyDefaults fills unset fields (§4.9: "up to max_connections (default
// 100)"; "every 1 s tick").
func (c Config) applyDefaults() Config {
	if c.MaxConnections == 0 {
		c.MaxConnections = 100
	}
	if c.TickInterval == 0 {
		c.TickInterval = time.Second
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 3 * time.Second
	}
	return c
}
