package catalogue

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	refdata "energy-declaration/internal/refdata/domain"
)

// File is the on-disk catalogue. Empty sections keep the compiled-in defaults.
type File struct {
	PriceAreas     []string         `yaml:"price_areas" toml:"price_areas"`
	ConnectedAreas []string         `yaml:"connected_areas" toml:"connected_areas"`
	Fuels          []FuelEntry      `yaml:"fuels" toml:"fuels"`
	Substances     []SubstanceEntry `yaml:"substances" toml:"substances"`
}

// FuelEntry describes one fuel type.
type FuelEntry struct {
	Name              string             `yaml:"name" toml:"name"`
	Color             string             `yaml:"color" toml:"color"`
	Image             string             `yaml:"image" toml:"image"`
	Reference         map[string]float64 `yaml:"reference" toml:"reference"`
	SustainableWeight float64            `yaml:"sustainable_weight" toml:"sustainable_weight"`
	ProductionGroups  []string           `yaml:"production_groups" toml:"production_groups"`
}

// SubstanceEntry describes one emission substance.
type SubstanceEntry struct {
	Name      string             `yaml:"name" toml:"name"`
	Label     string             `yaml:"label" toml:"label"`
	Unit      string             `yaml:"unit" toml:"unit"`
	Decimals  int                `yaml:"decimals" toml:"decimals"`
	Category  string             `yaml:"category" toml:"category"`
	Reference map[string]float64 `yaml:"reference" toml:"reference"`
	Composite bool               `yaml:"composite" toml:"composite"`
}

// Load reads a YAML or TOML catalogue, chosen by extension. An empty path
// returns the default catalogue.
func Load(path string) (*refdata.Catalogue, error) {
	if path == "" {
		return refdata.NewCatalogue(refdata.DefaultCatalogueSpec())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &file)
	case ".toml":
		err = toml.Unmarshal(data, &file)
	default:
		return nil, fmt.Errorf("catalogue: unsupported file extension %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("catalogue: parse %s: %w", path, err)
	}
	return refdata.NewCatalogue(Merge(refdata.DefaultCatalogueSpec(), file))
}

// Merge overlays the non-empty sections of file onto base.
func Merge(base refdata.CatalogueSpec, file File) refdata.CatalogueSpec {
	if len(file.PriceAreas) > 0 {
		base.PriceAreas = base.PriceAreas[:0:0]
		for _, a := range file.PriceAreas {
			base.PriceAreas = append(base.PriceAreas, refdata.PriceArea(a))
		}
	}
	if len(file.ConnectedAreas) > 0 {
		base.ConnectedAreas = base.ConnectedAreas[:0:0]
		for _, ca := range file.ConnectedAreas {
			base.ConnectedAreas = append(base.ConnectedAreas, refdata.ConnectedArea(ca))
		}
	}
	if len(file.Fuels) > 0 {
		base.Fuels = base.Fuels[:0:0]
		for _, f := range file.Fuels {
			base.Fuels = append(base.Fuels, refdata.FuelSpec{
				Name:              refdata.FuelType(f.Name),
				Color:             f.Color,
				Image:             f.Image,
				Reference:         areaMap(f.Reference),
				SustainableWeight: f.SustainableWeight,
				ProductionGroups:  f.ProductionGroups,
			})
		}
	}
	if len(file.Substances) > 0 {
		base.Substances = base.Substances[:0:0]
		for _, s := range file.Substances {
			base.Substances = append(base.Substances, refdata.SubstanceSpec{
				Name:      refdata.Substance(s.Name),
				Label:     s.Label,
				Unit:      refdata.Unit(s.Unit),
				Decimals:  s.Decimals,
				Category:  refdata.Category(s.Category),
				Reference: areaMap(s.Reference),
				Composite: s.Composite,
			})
		}
	}
	return base
}

func areaMap(in map[string]float64) map[refdata.PriceArea]float64 {
	out := make(map[refdata.PriceArea]float64, len(in))
	for k, v := range in {
		out[refdata.PriceArea(strings.ToUpper(k))] = v
	}
	return out
}
