package refdata

// Substance identifiers the derived metrics depend on.
const (
	SubstanceCO2    Substance = "CO2"
	SubstanceCH4    Substance = "CH4"
	SubstanceN2O    Substance = "N2O"
	SubstanceCO2Eqv Substance = "CO2Eqv"
)

func refs(dk1, dk2 float64) map[PriceArea]float64 {
	return map[PriceArea]float64{AreaDK1: dk1, AreaDK2: dk2}
}

// DefaultCatalogueSpec returns the Energinet declaration catalogue.
// Reference values are the national 2019 declaration figures.
func DefaultCatalogueSpec() CatalogueSpec {
	return CatalogueSpec{
		PriceAreas:     []PriceArea{AreaDK1, AreaDK2},
		ConnectedAreas: []ConnectedArea{"DK1", "DK2", "GE", "NO", "SE", "NL"},
		Fuels: []FuelSpec{
			{Name: "Vind", Color: "#00a98f", Image: "wind.png", Reference: refs(44.80, 33.40), SustainableWeight: 1, ProductionGroups: []string{"Offshore", "Onshore"}},
			{Name: "Sol", Color: "#a0ffc8", Image: "solar.png", Reference: refs(3.20, 4.00), SustainableWeight: 1, ProductionGroups: []string{"Solceller"}},
			{Name: "Vandkraft", Color: "#0a515d", Image: "hydro.png", Reference: refs(15.20, 12.20), SustainableWeight: 1, ProductionGroups: []string{"Anden VE"}},
			{Name: "Biomasse", Color: "#ffd424", Image: "biomass.png", Reference: refs(9.00, 17.20), SustainableWeight: 1, ProductionGroups: []string{"Biogas", "Træ_mm", "Halm"}},
			{Name: "Affald", Color: "#fcba03", Image: "waste.png", Reference: refs(2.70, 5.20), SustainableWeight: 0.55},
			{Name: "Naturgas", Color: "#a0c1c2", Image: "naturalgas.png", Reference: refs(7.40, 5.50)},
			{Name: "Kul og Olie", Color: "#333333", Image: "coal.png", Reference: refs(12.90, 11.00), ProductionGroups: []string{"Brunkul", "Kul", "Fuelolie", "Gasolie", "Olie"}},
			{Name: "Atomkraft", Color: "#ff6600", Image: "nuclear.png", Reference: refs(4.80, 11.50)},
		},
		Substances: []SubstanceSpec{
			{Name: SubstanceCO2, Label: "CO2 (Kuldioxid - drivhusgas)", Unit: UnitGram, Decimals: 2, Category: CategoryAir, Reference: refs(147.70741, 136.120351)},
			{Name: SubstanceCH4, Label: "CH4 (Metan - drivhusgas)", Unit: UnitMilligram, Decimals: 2, Category: CategoryAir, Reference: refs(0.1044816, 0.07020113)},
			{Name: SubstanceN2O, Label: "N2O (Lattergas - drivhusgas)", Unit: UnitMilligram, Decimals: 3, Category: CategoryAir, Reference: refs(0.002279985, 0.002915154)},
			{Name: SubstanceCO2Eqv, Label: "CO2-ækvivalenter i alt", Unit: UnitGram, Decimals: 2, Category: CategoryAir, Reference: refs(151.237091, 138.858498), Composite: true},
			{Name: "SO2", Label: "SO2 (Svovldioxid)", Unit: UnitMilligram, Decimals: 2, Category: CategoryAir, Reference: refs(0.02693083, 0.03839438)},
			{Name: "NOx", Label: "NOx (Kvælstofilte)", Unit: UnitMilligram, Decimals: 2, Category: CategoryAir, Reference: refs(0.1647971, 0.2248935)},
			{Name: "CO", Label: "CO (Kulilte)", Unit: UnitMilligram, Decimals: 2, Category: CategoryAir, Reference: refs(0.1037752, 0.1515124)},
			{Name: "NMvoc", Label: "NMVOC (Uforbrændt kulbrinter)", Unit: UnitMilligram, Decimals: 2, Category: CategoryAir, Reference: refs(0.01746065, 0.01563837)},
			{Name: "Particles", Label: "Partikler", Unit: UnitMilligram, Decimals: 2, Category: CategoryAir, Reference: refs(0.009346569, 0.01530363)},
			{Name: "CoalFlyAsh", Label: "Kulflyveaske", Unit: UnitGram, Decimals: 2, Category: CategoryResidual, Reference: refs(4.638885, 3.670074)},
			{Name: "CoalSlag", Label: "Kulslagge", Unit: UnitGram, Decimals: 2, Category: CategoryResidual, Reference: refs(0.798421, 0.631674)},
			{Name: "Desulp", Label: "Afsvovlingsprodukter (Gips)", Unit: UnitGram, Decimals: 2, Category: CategoryResidual, Reference: refs(1.686586, 1.33435)},
			{Name: "WasteSlag", Label: "Slagge (affaldsforbrænding)", Unit: UnitGram, Decimals: 2, Category: CategoryResidual, Reference: refs(4.649827, 8.68308)},
			{Name: "FuelGasWaste", Label: "RGA (røggasaffald)", Unit: UnitGram, Decimals: 2, Category: CategoryResidual, Reference: refs(0.704331, 1.315267)},
			{Name: "Bioash", Label: "Bioaske", Unit: UnitGram, Decimals: 2, Category: CategoryResidual, Reference: refs(0.740667, 1.620461)},
			{Name: "RadioactiveWaste", Label: "Radioaktivt affald (mg/kWh)", Unit: UnitGram, Decimals: 2, Category: CategoryResidual, Reference: refs(0.109743, 0.263936)},
		},
	}
}

// DefaultCatalogue builds the default catalogue. It panics only if the
// compiled-in spec is inconsistent.
func DefaultCatalogue() *Catalogue {
	c, err := NewCatalogue(DefaultCatalogueSpec())
	if err != nil {
		panic(err)
	}
	return c
}
