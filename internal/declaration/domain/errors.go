package declaration

import (
	"errors"
	"fmt"
)

var (
	// ErrAlignment marks a meter whose readings cannot be placed on the reference timeline.
	ErrAlignment = errors.New("declaration: alignment failed")
	// ErrEmptyPeriod is returned when a meter reported no periods.
	ErrEmptyPeriod = fmt.Errorf("%w: period contained no values", ErrAlignment)
	// ErrTimeslotNotFound is returned when the first period start is not on the timeline.
	ErrTimeslotNotFound = fmt.Errorf("%w: timeslot was not found", ErrAlignment)
	// ErrInvalidTimestamp is returned for unparseable period starts.
	ErrInvalidTimestamp = fmt.Errorf("%w: invalid timestamp", ErrAlignment)

	// ErrNegativeOffset is returned when apportioning from before the timeline.
	ErrNegativeOffset = errors.New("declaration: negative offset")
	// ErrCatalogueMismatch is returned when accumulators and reference data disagree.
	ErrCatalogueMismatch = errors.New("declaration: accumulator catalogue mismatch")
)
