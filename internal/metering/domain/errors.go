package metering

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks caller-supplied data that cannot be processed.
	ErrInvalidInput = errors.New("metering: invalid input")
	// ErrInvalidPostcode is returned when an eligible point has a non-numeric postcode.
	ErrInvalidPostcode = fmt.Errorf("%w: invalid postcode", ErrInvalidInput)
	// ErrNoEligiblePoints is returned when nothing is left to declare.
	ErrNoEligiblePoints = fmt.Errorf("%w: no eligible metering points", ErrInvalidInput)
)
