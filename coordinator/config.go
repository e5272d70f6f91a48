package coordinator

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Config tunes the coordinator's thresholds (spec.md §4.5, §9's open
// question on the HTF overlay tolerance).
type Config struct {
	// HTFOverlayTolerance is the +/- band for classifying the trading close
	// as "at" the projected HTF PLdot level. Default 0.001 (0.1%), per the
	// source's hard-coded value (spec.md §9 open question, resolved in
	// DESIGN.md).
	HTFOverlayTolerance decimal.Decimal
	// ConfluenceWindow (W) is how many recent points per timeframe feed
	// confluence-zone clustering and the pattern-confluence window.
	// Default 50.
	ConfluenceWindow int
	// ConfluenceTolerancePct is how close two candidate levels must be to
	// merge into one zone. Default 0.005 (0.5%).
	ConfluenceTolerancePct decimal.Decimal
	// MinZoneStrength is the minimum number of confirming timeframes for a
	// zone to be retained. Default 2.
	MinZoneStrength int
}

// DefaultConfig returns the spec.md defaults.
func DefaultConfig() Config {
	return Config{
		HTFOverlayTolerance:    decimal.NewFromFloat(0.001),
		ConfluenceWindow:       50,
		ConfluenceTolerancePct: decimal.NewFromFloat(0.005),
		MinZoneStrength:        2,
	}
}

// Validate checks the configuration is usable; a malformed config is an
// InvalidConfiguration error, fatal at startup per spec.md §7.
func (c Config) Validate() error {
	if c.ConfluenceWindow <= 0 {
		return errors.New("confluence window must be > 0")
	}
	if c.MinZoneStrength < 2 {
		return errors.New("min zone strength must be >= 2")
	}
	if c.ConfluenceTolerancePct.IsNegative() {
		return errors.New("confluence tolerance must be >= 0")
	}
	if c.HTFOverlayTolerance.IsNegative() {
		return errors.New("HTF overlay tolerance must be >= 0")
	}
	return nil
}
