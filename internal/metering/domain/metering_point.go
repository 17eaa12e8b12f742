package metering

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	refdata "energy-declaration/internal/refdata/domain"
)

const (
	// TypeConsumption is the metering point type of a consumption meter.
	TypeConsumption = "E17"
	// SettlementNet marks net-settled points, which are not declared.
	SettlementNet = "E01"
)

// FlexString decodes a JSON string or number into its textual form.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("metering: expected string or number, got %s", string(data))
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// MeteringPoint is one entry of the customer's metering point list.
type MeteringPoint struct {
	MeteringPointID  string     `json:"meteringPointId"`
	TypeOfMP         string     `json:"typeOfMP"`
	SettlementMethod string     `json:"settlementMethod,omitempty"`
	Postcode         FlexString `json:"postcode"`

	StreetName     string `json:"streetName,omitempty"`
	BuildingNumber string `json:"buildingNumber,omitempty"`
	FloorID        string `json:"floorId,omitempty"`
	RoomID         string `json:"roomId,omitempty"`
	CityName       string `json:"cityName,omitempty"`
	ConsumerCVR    string `json:"consumerCVR,omitempty"`
	ConsumerName   string `json:"firstConsumerPartyName,omitempty"`
}

// Eligible reports whether the point is a consumption meter that is not net-settled.
func (m MeteringPoint) Eligible() bool {
	return m.TypeOfMP == TypeConsumption && m.SettlementMethod != SettlementNet
}

// PostcodeNumber parses the postcode as an integer.
func (m MeteringPoint) PostcodeNumber() (int, error) {
	raw := strings.TrimSpace(string(m.Postcode))
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q for metering point %s", ErrInvalidPostcode, raw, m.MeteringPointID)
	}
	return n, nil
}

// ClassifiedPoint is an eligible metering point with its price area.
type ClassifiedPoint struct {
	ID   string
	Area refdata.PriceArea
}

// Classify keeps eligible points and assigns each a price area by postcode.
// Input order is preserved.
func Classify(points []MeteringPoint) ([]ClassifiedPoint, error) {
	out := make([]ClassifiedPoint, 0, len(points))
	for _, point := range points {
		if !point.Eligible() {
			continue
		}
		if strings.TrimSpace(point.MeteringPointID) == "" {
			return nil, fmt.Errorf("%w: eligible metering point without id", ErrInvalidInput)
		}
		postcode, err := point.PostcodeNumber()
		if err != nil {
			return nil, err
		}
		out = append(out, ClassifiedPoint{ID: point.MeteringPointID, Area: refdata.AreaForPostcode(postcode)})
	}
	return out, nil
}

// AreaIndex maps metering point IDs to their price areas.
func AreaIndex(points []ClassifiedPoint) map[string]refdata.PriceArea {
	index := make(map[string]refdata.PriceArea, len(points))
	for _, p := range points {
		index[p.ID] = p.Area
	}
	return index
}
