package refdata

import (
	"fmt"
	"strings"
)

// FuelType is a generation technology category.
type FuelType string

// ConnectedArea is a grid region energy may be sourced from.
type ConnectedArea string

// Substance is a tracked emission or residual product.
type Substance string

// Unit is the native reporting unit of a substance.
type Unit string

const (
	UnitGram      Unit = "g"
	UnitMilligram Unit = "mg"
)

// Grams converts a value in the unit to grams.
func (u Unit) Grams(value float64) (float64, error) {
	switch u {
	case UnitGram:
		return value, nil
	case UnitMilligram:
		return value / 1000, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, string(u))
	}
}

// Category groups substances for presentation.
type Category string

const (
	CategoryAir      Category = "air"
	CategoryResidual Category = "residual"
)

// IsValid reports whether the category is air or residual.
func (c Category) IsValid() bool {
	return c == CategoryAir || c == CategoryResidual
}

// FuelSpec describes one fuel type.
type FuelSpec struct {
	Name  FuelType `json:"name"`
	Color string   `json:"color"`
	Image string   `json:"image"`
	// Reference is the national declaration share in percent per price area.
	Reference map[PriceArea]float64 `json:"reference"`
	// SustainableWeight is the fraction counted as sustainable energy.
	SustainableWeight float64 `json:"sustainable_weight"`
	// ProductionGroups are the raw dataset groups folded into this fuel type.
	ProductionGroups []string `json:"production_groups,omitempty"`
}

// SubstanceSpec describes one emission substance.
type SubstanceSpec struct {
	Name     Substance `json:"name"`
	Label    string    `json:"label"`
	Unit     Unit      `json:"unit"`
	Decimals int       `json:"decimals"`
	Category Category  `json:"category"`
	// Reference is the national declaration value in g/kWh per price area.
	Reference map[PriceArea]float64 `json:"reference"`
	// Composite substances are derived at read time and never accumulated.
	Composite bool `json:"composite,omitempty"`
}

// CatalogueSpec is the unvalidated input for NewCatalogue.
type CatalogueSpec struct {
	PriceAreas     []PriceArea
	ConnectedAreas []ConnectedArea
	Fuels          []FuelSpec
	Substances     []SubstanceSpec
}

// Catalogue holds the closed, ordered enumerations every table is indexed by.
// It is immutable once built.
type Catalogue struct {
	priceAreas     []PriceArea
	connectedAreas []ConnectedArea
	fuels          []FuelSpec
	substances     []SubstanceSpec

	fuelIndex      map[FuelType]int
	connectedIndex map[ConnectedArea]int
	substanceIndex map[Substance]int
	groupIndex     map[string]FuelType
}

// NewCatalogue validates a spec and builds its indexes.
func NewCatalogue(spec CatalogueSpec) (*Catalogue, error) {
	if len(spec.PriceAreas) == 0 {
		return nil, fmt.Errorf("%w: no price areas", ErrInvalidCatalogue)
	}
	if len(spec.ConnectedAreas) == 0 {
		return nil, fmt.Errorf("%w: no connected areas", ErrInvalidCatalogue)
	}
	if len(spec.Fuels) == 0 {
		return nil, fmt.Errorf("%w: no fuel types", ErrInvalidCatalogue)
	}

	c := &Catalogue{
		fuelIndex:      make(map[FuelType]int, len(spec.Fuels)),
		connectedIndex: make(map[ConnectedArea]int, len(spec.ConnectedAreas)),
		substanceIndex: make(map[Substance]int, len(spec.Substances)),
		groupIndex:     make(map[string]FuelType),
	}

	seenArea := make(map[PriceArea]bool, len(spec.PriceAreas))
	for _, area := range spec.PriceAreas {
		if !area.IsValid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidArea, string(area))
		}
		if seenArea[area] {
			return nil, fmt.Errorf("%w: duplicate price area %s", ErrInvalidCatalogue, area)
		}
		seenArea[area] = true
		c.priceAreas = append(c.priceAreas, area)
	}

	for i, ca := range spec.ConnectedAreas {
		if strings.TrimSpace(string(ca)) == "" {
			return nil, fmt.Errorf("%w: empty connected area", ErrInvalidCatalogue)
		}
		if _, ok := c.connectedIndex[ca]; ok {
			return nil, fmt.Errorf("%w: duplicate connected area %s", ErrInvalidCatalogue, ca)
		}
		c.connectedIndex[ca] = i
		c.connectedAreas = append(c.connectedAreas, ca)
	}

	for i, fuel := range spec.Fuels {
		if strings.TrimSpace(string(fuel.Name)) == "" {
			return nil, fmt.Errorf("%w: empty fuel type", ErrInvalidCatalogue)
		}
		if _, ok := c.fuelIndex[fuel.Name]; ok {
			return nil, fmt.Errorf("%w: duplicate fuel type %s", ErrInvalidCatalogue, fuel.Name)
		}
		if fuel.SustainableWeight < 0 || fuel.SustainableWeight > 1 {
			return nil, fmt.Errorf("%w: sustainable weight of %s outside [0,1]", ErrInvalidCatalogue, fuel.Name)
		}
		c.fuelIndex[fuel.Name] = i
		// A fuel type always matches its own name.
		c.groupIndex[string(fuel.Name)] = fuel.Name
		for _, group := range fuel.ProductionGroups {
			if owner, ok := c.groupIndex[group]; ok && owner != fuel.Name {
				return nil, fmt.Errorf("%w: production group %q mapped to %s and %s", ErrInvalidCatalogue, group, owner, fuel.Name)
			}
			c.groupIndex[group] = fuel.Name
		}
		fuel.Reference = copyReference(fuel.Reference)
		fuel.ProductionGroups = append([]string(nil), fuel.ProductionGroups...)
		c.fuels = append(c.fuels, fuel)
	}

	for i, sub := range spec.Substances {
		if strings.TrimSpace(string(sub.Name)) == "" {
			return nil, fmt.Errorf("%w: empty substance", ErrInvalidCatalogue)
		}
		if _, ok := c.substanceIndex[sub.Name]; ok {
			return nil, fmt.Errorf("%w: duplicate substance %s", ErrInvalidCatalogue, sub.Name)
		}
		if _, err := sub.Unit.Grams(0); err != nil {
			return nil, fmt.Errorf("substance %s: %w", sub.Name, err)
		}
		if !sub.Category.IsValid() {
			return nil, fmt.Errorf("%w: substance %s has category %q", ErrUnknownCategory, sub.Name, string(sub.Category))
		}
		if sub.Decimals < 0 {
			return nil, fmt.Errorf("%w: negative decimals for %s", ErrInvalidCatalogue, sub.Name)
		}
		if sub.Composite && sub.Name != SubstanceCO2Eqv {
			return nil, fmt.Errorf("%w: %w: only %s can be composite, not %s", ErrInvalidCatalogue, ErrUnknownCategory, SubstanceCO2Eqv, sub.Name)
		}
		c.substanceIndex[sub.Name] = i
		sub.Reference = copyReference(sub.Reference)
		c.substances = append(c.substances, sub)
	}
	// CO2-equivalent is derived from these.
	for _, gas := range []Substance{SubstanceCO2, SubstanceCH4, SubstanceN2O} {
		if _, ok := c.substanceIndex[gas]; !ok {
			return nil, fmt.Errorf("%w: %w: missing substance %s", ErrInvalidCatalogue, ErrUnknownCategory, gas)
		}
	}

	return c, nil
}

func copyReference(in map[PriceArea]float64) map[PriceArea]float64 {
	out := make(map[PriceArea]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// PriceAreas returns the ordered price areas.
func (c *Catalogue) PriceAreas() []PriceArea {
	return append([]PriceArea(nil), c.priceAreas...)
}

// HasPriceArea reports whether the catalogue covers the area.
func (c *Catalogue) HasPriceArea(area PriceArea) bool {
	for _, a := range c.priceAreas {
		if a == area {
			return true
		}
	}
	return false
}

// ConnectedAreas returns the ordered connected areas.
func (c *Catalogue) ConnectedAreas() []ConnectedArea {
	return append([]ConnectedArea(nil), c.connectedAreas...)
}

// Fuels returns the ordered fuel specs.
func (c *Catalogue) Fuels() []FuelSpec {
	return append([]FuelSpec(nil), c.fuels...)
}

// Substances returns the ordered substance specs, composites included.
func (c *Catalogue) Substances() []SubstanceSpec {
	return append([]SubstanceSpec(nil), c.substances...)
}

// NumFuels is the number of fuel types.
func (c *Catalogue) NumFuels() int { return len(c.fuels) }

// NumConnectedAreas is the number of connected areas.
func (c *Catalogue) NumConnectedAreas() int { return len(c.connectedAreas) }

// NumSubstances is the number of substances, composites included.
func (c *Catalogue) NumSubstances() int { return len(c.substances) }

// FuelAt returns the fuel spec at index i.
func (c *Catalogue) FuelAt(i int) FuelSpec { return c.fuels[i] }

// SubstanceAt returns the substance spec at index i.
func (c *Catalogue) SubstanceAt(i int) SubstanceSpec { return c.substances[i] }

// ConnectedAreaAt returns the connected area at index i.
func (c *Catalogue) ConnectedAreaAt(i int) ConnectedArea { return c.connectedAreas[i] }

// FuelIndex returns the position of a fuel type.
func (c *Catalogue) FuelIndex(fuel FuelType) (int, error) {
	i, ok := c.fuelIndex[fuel]
	if !ok {
		return 0, fmt.Errorf("%w: fuel type %q", ErrUnknownCategory, string(fuel))
	}
	return i, nil
}

// ConnectedAreaIndex returns the position of a connected area.
func (c *Catalogue) ConnectedAreaIndex(ca ConnectedArea) (int, error) {
	i, ok := c.connectedIndex[ca]
	if !ok {
		return 0, fmt.Errorf("%w: connected area %q", ErrUnknownCategory, string(ca))
	}
	return i, nil
}

// SubstanceIndex returns the position of a substance.
func (c *Catalogue) SubstanceIndex(sub Substance) (int, error) {
	i, ok := c.substanceIndex[sub]
	if !ok {
		return 0, fmt.Errorf("%w: substance %q", ErrUnknownCategory, string(sub))
	}
	return i, nil
}

// Substance returns the spec of a substance.
func (c *Catalogue) Substance(sub Substance) (SubstanceSpec, error) {
	i, err := c.SubstanceIndex(sub)
	if err != nil {
		return SubstanceSpec{}, err
	}
	return c.substances[i], nil
}

// FuelForGroup resolves a raw production group to its fuel type.
func (c *Catalogue) FuelForGroup(group string) (FuelType, error) {
	fuel, ok := c.groupIndex[group]
	if !ok {
		return "", fmt.Errorf("%w: production group %q", ErrUnknownCategory, group)
	}
	return fuel, nil
}
