package visual

import "time"

// Config tunes the comparator. All knobs are explicit: nothing in this
// package reads environment state, so two comparators with equal Config
// behave identically.
type Config struct {
	// PixelDiffThreshold is the per-pixel tolerance as a fraction of the
	// channel range; pixels closer than this count as identical.
	PixelDiffThreshold float64
	// AlphaWeight controls how strongly near-transparent pixels weigh in
	// the comparison and how faded unchanged pixels appear in diff images.
	AlphaWeight float64
	// PassThreshold is the maximum differing-pixel percentage for a
	// comparison to pass. Intentionally coarser than PixelDiffThreshold:
	// per-pixel tolerance absorbs rendering noise, this absorbs small
	// dynamic-content drift.
	PassThreshold float64
	// RetentionWindow is the default age beyond which diff artifacts are
	// pruned.
	RetentionWindow time.Duration
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		PixelDiffThreshold: 0.1,
		AlphaWeight:        0.1,
		PassThreshold:      5.0,
		RetentionWindow:    7 * 24 * time.Hour,
	}
}

// withDefaults fills zero-valued fields so a partially populated Config
// is usable. A zero field always means "use the default": an explicit
// zero cannot be expressed (a PassThreshold of 0 would fail every
// nonzero diff; use a tiny positive value for that).
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PixelDiffThreshold == 0 {
		c.PixelDiffThreshold = d.PixelDiffThreshold
	}
	if c.AlphaWeight == 0 {
		c.AlphaWeight = d.AlphaWeight
	}
	if c.PassThreshold == 0 {
		c.PassThreshold = d.PassThreshold
	}
	if c.RetentionWindow == 0 {
		c.RetentionWindow = d.RetentionWindow
	}
	return c
}
