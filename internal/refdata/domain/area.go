package refdata

// PriceArea is a Danish bidding zone.
type PriceArea string

const (
	AreaDK1 PriceArea = "DK1"
	AreaDK2 PriceArea = "DK2"
)

// postcodeBoundary splits Jutland/Funen (DK1) from Zealand and the islands (DK2).
const postcodeBoundary = 5000

// AreaForPostcode maps a Danish postcode to its price area.
func AreaForPostcode(postcode int) PriceArea {
	if postcode >= postcodeBoundary {
		return AreaDK1
	}
	return AreaDK2
}

// IsValid reports whether the area is DK1 or DK2.
func (a PriceArea) IsValid() bool {
	switch a {
	case AreaDK1, AreaDK2:
		return true
	default:
		return false
	}
}

func (a PriceArea) String() string { return string(a) }
