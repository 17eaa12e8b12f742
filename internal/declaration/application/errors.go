package application

import "errors"

var (
	// ErrInvalidInput is returned for requests rejected before any chunk I/O.
	ErrInvalidInput = errors.New("declaration app: invalid input")
	// ErrTransport is returned when the token, meter list or a chunk retrieval fails.
	ErrTransport = errors.New("declaration app: transport failure")
	// ErrUnmappedMeter is returned when a series arrives for a meter that was never classified.
	ErrUnmappedMeter = errors.New("declaration app: unmapped metering point")
)
