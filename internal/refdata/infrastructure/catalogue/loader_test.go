package catalogue

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	refdata "energy-declaration/internal/refdata/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadDefault(t *testing.T) {
	cat, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cat.NumFuels() != 8 || cat.NumSubstances() != 16 {
		t.Fatalf("unexpected default catalogue: %d fuels, %d substances", cat.NumFuels(), cat.NumSubstances())
	}
}

func TestLoadYAMLOverridesConnectedAreas(t *testing.T) {
	path := writeFile(t, "catalogue.yaml", `
connected_areas: [DK1, DK2, DE]
`)
	cat, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cat.NumConnectedAreas() != 3 || cat.ConnectedAreaAt(2) != "DE" {
		t.Fatalf("unexpected connected areas: %v", cat.ConnectedAreas())
	}
	if cat.NumFuels() != 8 {
		t.Fatalf("fuels should keep defaults, got %d", cat.NumFuels())
	}
}

func TestLoadTOMLSubstances(t *testing.T) {
	path := writeFile(t, "catalogue.toml", `
[[substances]]
name = "CO2"
label = "CO2"
unit = "g"
decimals = 2
category = "air"
reference = { dk1 = 120.0, dk2 = 110.0 }

[[substances]]
name = "CH4"
unit = "mg"
category = "air"

[[substances]]
name = "N2O"
unit = "mg"
category = "air"
`)
	cat, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cat.NumSubstances() != 3 {
		t.Fatalf("expected 3 substances, got %d", cat.NumSubstances())
	}
	co2, err := cat.Substance(refdata.SubstanceCO2)
	if err != nil {
		t.Fatalf("co2: %v", err)
	}
	if co2.Reference[refdata.AreaDK1] != 120 {
		t.Fatalf("expected upper-cased area keys, got %v", co2.Reference)
	}
}

func TestLoadRejectsUnknownUnit(t *testing.T) {
	path := writeFile(t, "bad.yml", `
substances:
  - name: CO2
    unit: kg
    category: air
`)
	if _, err := Load(path); !errors.Is(err, refdata.ErrUnknownUnit) {
		t.Fatalf("expected ErrUnknownUnit, got %v", err)
	}
}

func TestLoadRejectsCompositeCO2(t *testing.T) {
	path := writeFile(t, "composite.yaml", `
substances:
  - name: CO2
    unit: g
    category: air
    composite: true
  - name: CH4
    unit: mg
    category: air
  - name: N2O
    unit: mg
    category: air
`)
	if _, err := Load(path); !errors.Is(err, refdata.ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestLoadRejectsMissingMethane(t *testing.T) {
	path := writeFile(t, "partial.toml", `
[[substances]]
name = "CO2"
unit = "g"
category = "air"

[[substances]]
name = "N2O"
unit = "mg"
category = "air"
`)
	if _, err := Load(path); !errors.Is(err, refdata.ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestLoadRejectsExtension(t *testing.T) {
	path := writeFile(t, "catalogue.json", `{}`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}
