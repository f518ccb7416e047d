package sim

import (
	"fmt"
	"strconv"
	"strings"
)

// Scene returns the mean luminance a frame would have at the reference
// exposure (10ms, unity gain, sensitivity 1.0).
type Scene func(frame uint32) float64

// Constant is a scene that never changes.
func Constant(luma float64) Scene {
	return func(uint32) float64 { return luma }
}

// Step is a scene that switches from before to after at frame at.
func Step(before, after float64, at uint32) Scene {
	return func(frame uint32) float64 {
		if frame < at {
			return before
		}
		return after
	}
}

// ParseScene parses "0.05" as a constant scene and "0.05:0.4@60" as a step
// to 0.4 at frame 60.
func ParseScene(s string) (Scene, error) {
	before, rest, isStep := strings.Cut(s, ":")
	b, err := parseLuma(before)
	if err != nil {
		return nil, err
	}
	if !isStep {
		return Constant(b), nil
	}

	afterStr, atStr, ok := strings.Cut(rest, "@")
	if !ok {
		return nil, fmt.Errorf("step scene %q needs a frame, like 0.05:0.4@60", s)
	}
	a, err := parseLuma(afterStr)
	if err != nil {
		return nil, err
	}
	at, err := strconv.ParseUint(atStr, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid step frame %q: %w", atStr, err)
	}
	return Step(b, a, uint32(at)), nil
}

func parseLuma(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid scene luminance %q: %w", s, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("scene luminance must be positive, got %g", v)
	}
	return v, nil
}
