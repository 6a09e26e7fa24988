// Package config defines the root configuration loaded at process
// start, aggregating one struct per subsystem the way SPEC_FULL.md
// §4.16 requires. It holds no logic of its own beyond Load and
// ApplyDefaults: each field is handed to the subsystem it names, which
// applies its own applyDefaults the way it always has (conn.Config,
// tracker.Config, storage.Config, and download.Config already follow
// that idiom; upnp.Config and introdetect.Config were added alongside
// this package since the UPnP stack and the intro-detection pipeline
// previously had no deployment-facing config surface of their own).
package config

import (
	"github.com/fenwick-labs/corelode/internal/configutil"
	"github.com/fenwick-labs/corelode/internal/log"
	"github.com/fenwick-labs/corelode/introdetect"
	"github.com/fenwick-labs/corelode/torrent/conn"
	"github.com/fenwick-labs/corelode/torrent/dht"
	"github.com/fenwick-labs/corelode/torrent/download"
	"github.com/fenwick-labs/corelode/torrent/storage"
	"github.com/fenwick-labs/corelode/torrent/tracker"
	"github.com/fenwick-labs/corelode/upnp"
)

// Config is the top-level, on-disk configuration for the media server
// process: a BitTorrent client/seeder, a UPnP media server and IGD
// client, and the intro-detection pipeline run over a library.
type Config struct {
	// DataDir is the root directory downloaded pieces and the media
	// library's fingerprint cache are stored under.
	DataDir string `yaml:"data_dir" validate:"nonzero"`

	Log         log.Config         `yaml:"log"`
	Conn        conn.Config        `yaml:"conn"`
	Tracker     tracker.Config     `yaml:"tracker"`
	Storage     storage.Config     `yaml:"storage"`
	Download    download.Config    `yaml:"download"`
	DHT         dht.Config         `yaml:"dht"`
	UPnP        upnp.Config        `yaml:"upnp"`
	IntroDetect introdetect.Config `yaml:"intro_detect"`
}

// Load reads filename (following any `extends:` chain it declares) into
// a Config, via internal/configutil.Load.
func Load(filename string) (Config, error) {
	var cfg Config
	if err := configutil.Load(filename, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills UPnP and intro-detection defaults; the other
// embedded configs apply their own defaults inside their subsystem's
// constructor (download.New, tracker.NewTask, storage.New, ...), exactly as
// they did before this struct existed to embed them.
func (c Config) ApplyDefaults() Config {
	c.UPnP = c.UPnP.ApplyDefaults()
	c.IntroDetect = c.IntroDetect.ApplyDefaults()
	return c
}
