package http

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	declaration "energy-declaration/internal/declaration/domain"
	metering "energy-declaration/internal/metering/domain"
)

var errNilReport = errors.New("export: nil report")

func formatAmount(a declaration.Amount) string {
	return fmt.Sprintf("%.2f %s", a.Value, a.Unit)
}

func formatDecimals(v float64, decimals int) string {
	return fmt.Sprintf("%.*f", decimals, v)
}

// BuildDeclarationPDF renders the declaration as a one-document PDF.
func BuildDeclarationPDF(report *declaration.Report, md metering.MasterData) ([]byte, error) {
	if report == nil {
		return nil, errNilReport
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	// Core fonts are cp1252; labels carry Danish characters.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, fmt.Sprintf("Energy Declaration %d", report.Year))
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	for _, c := range md.Consumers {
		pdf.Cell(0, 6, tr(fmt.Sprintf("Consumer: %s (CVR %s)", c.Name, c.CVR)))
		pdf.Ln(5)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Consumption: %s", formatAmount(report.Consumption)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("CO2 total: %s", formatAmount(report.CO2Total)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("CO2 per kWh: %.2f g", report.CO2PerKWh))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Sustainable energy: %.0f %%", report.SustainablePct))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("CO2 indicator: %.1f", report.CO2Indicator))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(50, 6, "Fuel", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Consumption", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Share %", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Reference %", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, row := range report.Fuels {
		pdf.CellFormat(50, 6, tr(string(row.Fuel)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, formatAmount(row.Consumption), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.2f", row.Percent), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.2f", row.ReferencePercent), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	emissionTable := func(title string, rows []declaration.EmissionRow) {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(80, 6, title, "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, "g/kWh", "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, "Reference", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
		for _, row := range rows {
			pdf.CellFormat(80, 6, tr(row.Label), "1", 0, "L", false, 0, "")
			pdf.CellFormat(35, 6, formatDecimals(row.PerKWh, row.Decimals), "1", 0, "R", false, 0, "")
			pdf.CellFormat(35, 6, formatDecimals(row.Reference, row.Decimals), "1", 0, "R", false, 0, "")
			pdf.Ln(-1)
		}
		pdf.Ln(4)
	}
	emissionTable("Air emissions", report.AirEmissions)
	emissionTable("Residual products", report.ResidualEmissions)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(60, 6, "Metering point", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Area", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Status", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, m := range report.Meters {
		pdf.CellFormat(60, 6, m.ID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, string(m.Area), "1", 0, "C", false, 0, "")
		pdf.CellFormat(50, 6, string(m.Status), "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildDeclarationXLSX renders the declaration as a workbook with summary,
// fuels, emissions and metering point sheets.
func BuildDeclarationXLSX(report *declaration.Report, md metering.MasterData) ([]byte, error) {
	if report == nil {
		return nil, errNilReport
	}
	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "summary"
	fuelSheet := "fuels"
	emissionSheet := "emissions"
	meterSheet := "metering_points"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	for _, name := range []string{fuelSheet, emissionSheet, meterSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	_ = f.SetCellValue(summarySheet, "A1", "Energy Declaration")
	_ = f.SetCellValue(summarySheet, "A3", "Year")
	_ = f.SetCellValue(summarySheet, "B3", report.Year)
	_ = f.SetCellValue(summarySheet, "A4", "Total (kWh)")
	_ = f.SetCellValue(summarySheet, "B4", report.TotalKWh)
	_ = f.SetCellValue(summarySheet, "A5", "CO2 total ("+report.CO2Total.Unit+")")
	_ = f.SetCellValue(summarySheet, "B5", report.CO2Total.Value)
	_ = f.SetCellValue(summarySheet, "A6", "CO2 (g/kWh)")
	_ = f.SetCellValue(summarySheet, "B6", report.CO2PerKWh)
	_ = f.SetCellValue(summarySheet, "A7", "Sustainable (%)")
	_ = f.SetCellValue(summarySheet, "B7", report.SustainablePct)
	_ = f.SetCellValue(summarySheet, "A8", "CO2 indicator")
	_ = f.SetCellValue(summarySheet, "B8", report.CO2Indicator)
	row := 10
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "Consumer")
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), "CVR")
	for _, c := range md.Consumers {
		row++
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), c.Name)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), c.CVR)
	}

	_ = f.SetCellValue(fuelSheet, "A1", "Fuel")
	_ = f.SetCellValue(fuelSheet, "B1", "kWh")
	_ = f.SetCellValue(fuelSheet, "C1", "Share (%)")
	_ = f.SetCellValue(fuelSheet, "D1", "Reference (%)")
	for ci, ca := range report.ConnectedAreas {
		cell, err := excelize.CoordinatesToCellName(5+ci, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(fuelSheet, cell, string(ca.Area)+" (%)")
	}
	for i, fuel := range report.Fuels {
		r := i + 2
		_ = f.SetCellValue(fuelSheet, fmt.Sprintf("A%d", r), string(fuel.Fuel))
		_ = f.SetCellValue(fuelSheet, fmt.Sprintf("B%d", r), fuel.KWh)
		_ = f.SetCellValue(fuelSheet, fmt.Sprintf("C%d", r), fuel.Percent)
		_ = f.SetCellValue(fuelSheet, fmt.Sprintf("D%d", r), fuel.ReferencePercent)
		for ci, pct := range fuel.ConnectedPercent {
			cell, err := excelize.CoordinatesToCellName(5+ci, r)
			if err != nil {
				return nil, err
			}
			_ = f.SetCellValue(fuelSheet, cell, pct)
		}
	}

	_ = f.SetCellValue(emissionSheet, "A1", "Substance")
	_ = f.SetCellValue(emissionSheet, "B1", "Label")
	_ = f.SetCellValue(emissionSheet, "C1", "g/kWh")
	_ = f.SetCellValue(emissionSheet, "D1", "Reference g/kWh")
	_ = f.SetCellValue(emissionSheet, "E1", "Category")
	r := 1
	for _, group := range []struct {
		category string
		rows     []declaration.EmissionRow
	}{{"air", report.AirEmissions}, {"residual", report.ResidualEmissions}} {
		for _, e := range group.rows {
			r++
			_ = f.SetCellValue(emissionSheet, fmt.Sprintf("A%d", r), string(e.Substance))
			_ = f.SetCellValue(emissionSheet, fmt.Sprintf("B%d", r), e.Label)
			_ = f.SetCellValue(emissionSheet, fmt.Sprintf("C%d", r), e.PerKWh)
			_ = f.SetCellValue(emissionSheet, fmt.Sprintf("D%d", r), e.Reference)
			_ = f.SetCellValue(emissionSheet, fmt.Sprintf("E%d", r), group.category)
		}
	}

	addresses := make(map[string]metering.PointRow, len(md.MeteringPoints))
	for _, p := range md.MeteringPoints {
		addresses[p.ID] = p
	}
	_ = f.SetCellValue(meterSheet, "A1", "Metering point")
	_ = f.SetCellValue(meterSheet, "B1", "Area")
	_ = f.SetCellValue(meterSheet, "C1", "Status")
	_ = f.SetCellValue(meterSheet, "D1", "Address")
	_ = f.SetCellValue(meterSheet, "E1", "Postcode")
	_ = f.SetCellValue(meterSheet, "F1", "City")
	for i, m := range report.Meters {
		r := i + 2
		p := addresses[m.ID]
		_ = f.SetCellValue(meterSheet, fmt.Sprintf("A%d", r), m.ID)
		_ = f.SetCellValue(meterSheet, fmt.Sprintf("B%d", r), string(m.Area))
		_ = f.SetCellValue(meterSheet, fmt.Sprintf("C%d", r), string(m.Status))
		_ = f.SetCellValue(meterSheet, fmt.Sprintf("D%d", r), p.Address)
		_ = f.SetCellValue(meterSheet, fmt.Sprintf("E%d", r), p.Postcode)
		_ = f.SetCellValue(meterSheet, fmt.Sprintf("F%d", r), p.City)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
