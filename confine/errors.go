package confine

import (
	"errors"
	"fmt"
)

// ErrUnknownLevel indicates an out-of-range optimization level.
var ErrUnknownLevel = errors.New("confine: unknown optimization level")

func errUnknownLevel(l Level) error {
	return fmt.Errorf("%w: %d", ErrUnknownLevel, int(l))
}

// Internal failures driving the multiway-cut backtracking. They never
// escape the package.
var (
	// errCutTooBig reports that the bounded vertex cut exceeded its bound.
	errCutTooBig = errors.New("confine: vertex cut larger than bound")

	// errNoReduction reports that the multiway cut cannot beat the
	// incumbent keypoint set.
	errNoReduction = errors.New("confine: no keypoint reduction possible")
)
