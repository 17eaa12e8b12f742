package declaration

// MeterStatus records how a metering point contributed to a declaration.
type MeterStatus string

const (
	StatusIncluded         MeterStatus = "included"
	StatusNotHourlySettled MeterStatus = "not_hourly_settled"
	StatusRejectedBySource MeterStatus = "rejected_by_source"
	StatusAlignmentFailed  MeterStatus = "alignment_failed"
)

// Contributes reports whether the meter's readings were apportioned.
func (s MeterStatus) Contributes() bool {
	return s == StatusIncluded
}
