// Package upnp aggregates the deployment-facing settings for this
// module's three UPnP roles — the SSDP advertiser, the
// ContentDirectory server, and the IGD port-mapping client — into one
// struct the root config.Config embeds, following the same
// one-struct-per-subsystem idiom as torrent/conn.Config and
// torrent/download.Config.
package upnp

import (
	"time"

	"github.com/fenwick-labs/corelode/upnp/ssdp"
)

// Config controls every UPnP-facing subsystem this module runs.
type Config struct {
	// FriendlyName is the device's friendlyName in its device
	// description document (§4.11). The SSDP USN is built from UUID, not
	// from this name.
	FriendlyName string `yaml:"friendly_name"`

	// UUID is the device's UDN (without the "uuid:" prefix), stable
	// across restarts so control points don't treat a restart as a new
	// device (§4.11).
	UUID string `yaml:"uuid"`

	// BaseURL roots the poster/stream links ContentDirectory Browse
	// responses hand back, e.g. "http://192.168.1.5:8200".
	BaseURL string `yaml:"base_url"`

	// SSDP controls advertisement cadence and headers.
	SSDP ssdp.Config `yaml:"ssdp"`

	// IGDLeaseRenewInterval is the poll interval igdlease.Manager.RenewLoop
	// uses to check for leases approaching expiry.
	IGDLeaseRenewInterval time.Duration `yaml:"igd_lease_renew_interval"`

	// IGDLeaseDuration is the lease length requested on each IGD port
	// mapping (AddPortMapping's NewLeaseDuration).
	IGDLeaseDuration time.Duration `yaml:"igd_lease_duration"`
}

// ApplyDefaults fills zero-value fields with sane defaults. Exported
// for the same reason introdetect.Config.ApplyDefaults is: this struct
// has no single NewX constructor of its own, it's unpacked field by
// field into ssdp.NewServer, igdlease.NewManager, and
// contentdirectory.NewMediaServerDirectory by the process that wires
// this module together.
func (c Config) ApplyDefaults() Config {
	if c.FriendlyName == "" {
		c.FriendlyName = "Go Media Server"
	}
	if c.UUID == "" {
		c.UUID = "4d696e64-6c65-7373-8000-000000000001"
	}
	if c.IGDLeaseRenewInterval == 0 {
		c.IGDLeaseRenewInterval = time.Minute
	}
	if c.IGDLeaseDuration == 0 {
		c.IGDLeaseDuration = time.Hour
	}
	return c
}
