package refdata

import "errors"

var (
	// ErrUnknownUnit is returned when a substance declares a unit other than g or mg.
	ErrUnknownUnit = errors.New("refdata: unknown unit")
	// ErrUnknownCategory is returned when a fuel type, connected area, substance or
	// production group is not part of the catalogue.
	ErrUnknownCategory = errors.New("refdata: unknown category")
	// ErrInvalidArea is returned for price areas outside the catalogue.
	ErrInvalidArea = errors.New("refdata: invalid price area")
	// ErrInvalidCatalogue is returned when a catalogue spec is malformed.
	ErrInvalidCatalogue = errors.New("refdata: invalid catalogue")
	// ErrEmptyReference is returned when no hourly records were supplied.
	ErrEmptyReference = errors.New("refdata: empty reference data")
	// ErrInvalidYear is returned for non-positive years.
	ErrInvalidYear = errors.New("refdata: invalid year")
	// ErrReferenceNotLoaded is returned when no snapshot exists for a year.
	ErrReferenceNotLoaded = errors.New("refdata: reference data not loaded")
)
