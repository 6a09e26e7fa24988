package introdetect

import "time"

// Config controls how DetectIntros is invoked for a season; it carries
// no tuning for the matching math itself (matchThreshold, gaussianSigma,
// etc. stay internal constants grounded directly on lib.rs, per
// DESIGN.md) but does carry the one caller-facing knob spec.md leaves
// open: how short a shared segment can be and still count as an intro.
type Config struct {
	// MinIntroDuration is the minDuration passed to DetectIntros: a
	// shared segment shorter than this is treated as a false positive
	// (recap/cold-open music cue) rather than an intro.
	MinIntroDuration time.Duration `yaml:"min_intro_duration"`
}

// ApplyDefaults fills zero-value fields with the package's defaults.
// Exported, unlike most of this module's applyDefaults methods, because
// DetectIntros is a free function rather than a constructor: there is
// no NewX(config) call site inside this package to apply defaults at,
// so the caller applies them itself before reading cfg.MinIntroDuration
// (config.Config.ApplyDefaults does so for the root configuration).
func (c Config) ApplyDefaults() Config {
	if c.MinIntroDuration == 0 {
		c.MinIntroDuration = 60 * time.Second
	}
	return c
}
