package domain

import "fmt"

const (
	DefaultAspectRatio = "16:9"
	DefaultSeconds     = 5

	// SeedMax is the largest seed the provider accepts.
	SeedMax = 4294967294
)

var allowedAspectRatios = map[string]bool{
	"16:9": true,
	"9:16": true,
	"1:1":  true,
	"4:3":  true,
	"3:4":  true,
	"21:9": true,
}

var allowedSeconds = map[int]bool{
	5:  true,
	10: true,
}

// GenerationOptions is the immutable set of knobs for one generation job.
// A zero Seed means "let the provider choose". ExploreMode runs without
// consuming credits.
type GenerationOptions struct {
	AspectRatio string `json:"aspect_ratio"`
	Seconds     int    `json:"seconds"`
	Seed        int64  `json:"seed,omitempty"`
	ExploreMode bool   `json:"explore_mode,omitempty"`
}

// Normalize fills unset fields with defaults.
func (o GenerationOptions) Normalize() GenerationOptions {
	if o.AspectRatio == "" {
		o.AspectRatio = DefaultAspectRatio
	}
	if o.Seconds == 0 {
		o.Seconds = DefaultSeconds
	}
	return o
}

// Validate checks the option values against the provider's accepted sets.
func (o GenerationOptions) Validate() error {
	if !allowedAspectRatios[o.AspectRatio] {
		return fmt.Errorf("unsupported aspect ratio %q", o.AspectRatio)
	}
	if !allowedSeconds[o.Seconds] {
		return fmt.Errorf("unsupported duration %ds", o.Seconds)
	}
	if o.Seed != 0 && (o.Seed < 1 || o.Seed > SeedMax) {
		return fmt.Errorf("seed %d out of range [1, %d]", o.Seed, int64(SeedMax))
	}
	return nil
}
