package metering

// Consumer identifies the legal party behind one or more metering points.
type Consumer struct {
	CVR  string `json:"cvr"`
	Name string `json:"name"`
}

// PointRow is the master data row shown for a metering point.
type PointRow struct {
	ID       string `json:"id"`
	Address  string `json:"address"`
	Postcode string `json:"postcode"`
	City     string `json:"city"`
	Eligible bool   `json:"eligible"`
}

// MasterData summarises the customer's consumers and metering points.
type MasterData struct {
	Consumers      []Consumer `json:"consumers"`
	MeteringPoints []PointRow `json:"metering_points"`
}

// FormatAddress renders street, building, floor and room the way Danish
// addresses are written: "Vej 1, 2 tv" or "Vej 1, tv" without a floor.
func FormatAddress(p MeteringPoint) string {
	address := p.StreetName
	if p.BuildingNumber != "" {
		address += " " + p.BuildingNumber
	}
	if p.FloorID != "" {
		address += ", " + p.FloorID
	}
	switch {
	case p.RoomID != "" && p.FloorID != "":
		address += " " + p.RoomID
	case p.RoomID != "":
		address += ", " + p.RoomID
	}
	return address
}

// BuildMasterData de-duplicates consumers and point rows, keeping first-seen order.
func BuildMasterData(points []MeteringPoint) MasterData {
	md := MasterData{
		Consumers:      make([]Consumer, 0),
		MeteringPoints: make([]PointRow, 0, len(points)),
	}
	seenConsumer := make(map[Consumer]bool)
	seenRow := make(map[PointRow]bool)
	for _, p := range points {
		consumer := Consumer{CVR: p.ConsumerCVR, Name: p.ConsumerName}
		if !seenConsumer[consumer] {
			seenConsumer[consumer] = true
			md.Consumers = append(md.Consumers, consumer)
		}
		row := PointRow{
			ID:       p.MeteringPointID,
			Address:  FormatAddress(p),
			Postcode: string(p.Postcode),
			City:     p.CityName,
			Eligible: p.Eligible(),
		}
		if !seenRow[row] {
			seenRow[row] = true
			md.MeteringPoints = append(md.MeteringPoints, row)
		}
	}
	return md
}
