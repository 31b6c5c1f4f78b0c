package render

import (
	"bytes"
	"context"
	"fmt"

	"github.com/tealeg/xlsx/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/spread-checker-go/internal/domain"
	"github.com/boddenberg/spread-checker-go/internal/report"
)

// Sheet names.
const (
	SheetSummary      = "Summary"
	SheetClients      = "Clients"
	SheetCalculations = "Calculations"
)

const (
	moneyFormat  = "#,##0.00"
	numberFormat = "#,##0.0"
)

// SpreadsheetExporter writes the report and its raw activity rows to an
// XLSX workbook.
type SpreadsheetExporter struct {
	logger *zap.Logger
}

// NewSpreadsheetExporter creates an exporter.
func NewSpreadsheetExporter(logger *zap.Logger) *SpreadsheetExporter {
	return &SpreadsheetExporter{logger: logger}
}

// Render implements port.DocumentRenderer.
func (e *SpreadsheetExporter) Render(ctx context.Context, doc *domain.ReportDocument) (*domain.Attachment, error) {
	_, span := tracer.Start(ctx, "Render.XLSX")
	defer span.End()
	span.SetAttributes(
		attribute.String("company.id", doc.Company.ID),
		attribute.Int("rows", len(doc.Calculations)),
	)

	if doc.Report == nil {
		return nil, fmt.Errorf("render xlsx: empty report")
	}

	f := xlsx.NewFile()
	header := xlsx.NewStyle()
	header.Font.Bold = true
	header.ApplyFont = true

	if err := writeSummary(f, header, doc); err != nil {
		return nil, err
	}
	if err := writeClients(f, header, doc.Report.Clients); err != nil {
		return nil, err
	}
	if err := writeCalculations(f, header, doc.Calculations); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}

	e.logger.Debug("xlsx rendered",
		zap.String("company_id", doc.Company.ID),
		zap.Int("clients", len(doc.Report.Clients)),
		zap.Int("calculations", len(doc.Calculations)),
		zap.Int("bytes", buf.Len()),
	)

	return &domain.Attachment{
		Filename:    filename("spread-checker-export", doc, "xlsx"),
		ContentType: contentTypeXLSX,
		Data:        buf.Bytes(),
	}, nil
}

func writeSummary(f *xlsx.File, header *xlsx.Style, doc *domain.ReportDocument) error {
	sheet, err := f.AddSheet(SheetSummary)
	if err != nil {
		return fmt.Errorf("render xlsx: %w", err)
	}
	s := doc.Report.Summary

	headerRow(sheet, header, "Company", doc.Company.Name)
	labelRow(sheet, "Period").AddCell().SetString(report.Label(doc.Period))
	labelRow(sheet, "Clients").AddCell().SetInt(s.TotalClients)
	labelRow(sheet, "Calculations").AddCell().SetInt(s.TotalCalculations)
	labelRow(sheet, "Combined monthly savings").AddCell().SetFloatWithFormat(s.CombinedMonthlySavings, moneyFormat)
	labelRow(sheet, "Combined annual savings").AddCell().SetFloatWithFormat(s.CombinedAnnualSavings, moneyFormat)

	sheet.AddRow()
	headerRow(sheet, header, "Currency pair", "Calculations")
	for _, p := range sortedPairs(s.CurrencyPairDistribution) {
		labelRow(sheet, p.Pair).AddCell().SetInt(p.Count)
	}
	return nil
}

func writeClients(f *xlsx.File, header *xlsx.Style, clients []domain.ClientReport) error {
	sheet, err := f.AddSheet(SheetClients)
	if err != nil {
		return fmt.Errorf("render xlsx: %w", err)
	}

	headerRow(sheet, header,
		"Client", "Broker", "Calculations", "Trades per year", "Trades per month",
		"Avg trade value", "Avg saving per trade", "Combined annual savings",
		"Avg saving %", "Avg PIPs", "Monthly trade volume",
	)
	for _, c := range clients {
		st := c.Stats
		row := sheet.AddRow()
		row.AddCell().SetString(c.ClientName)
		row.AddCell().SetString(c.Broker)
		row.AddCell().SetInt(st.TotalCalculations)
		row.AddCell().SetFloatWithFormat(st.TradesPerYear, numberFormat)
		row.AddCell().SetFloatWithFormat(st.TradesPerMonth, numberFormat)
		row.AddCell().SetFloatWithFormat(st.AvgTradeValue, moneyFormat)
		row.AddCell().SetFloatWithFormat(st.AvgSavingsPerTrade, moneyFormat)
		row.AddCell().SetFloatWithFormat(st.CombinedAnnualSavings, moneyFormat)
		row.AddCell().SetFloatWithFormat(st.AvgPercentageSavings, moneyFormat)
		row.AddCell().SetFloatWithFormat(st.AvgPips, numberFormat)
		row.AddCell().SetFloatWithFormat(st.MonthlyTradeVolume, moneyFormat)
	}
	return nil
}

func writeCalculations(f *xlsx.File, header *xlsx.Style, rows []domain.Calculation) error {
	sheet, err := f.AddSheet(SheetCalculations)
	if err != nil {
		return fmt.Errorf("render xlsx: %w", err)
	}

	headerRow(sheet, header,
		"Created at", "Client", "Broker", "Currency pair", "Amount",
		"Saving per trade", "Annual savings", "Saving %", "PIPs", "Trades per year",
	)
	for _, c := range rows {
		row := sheet.AddRow()
		row.AddCell().SetDateTime(c.CreatedAt.UTC())
		row.AddCell().SetString(c.ClientName)
		row.AddCell().SetString(c.Broker)
		row.AddCell().SetString(c.CurrencyPair)
		optionalFloat(row, firstNonNil(c.AmountToBuy, c.Amount), moneyFormat)
		optionalFloat(row, c.SavingsPerTrade, moneyFormat)
		optionalFloat(row, c.AnnualSavings, moneyFormat)
		optionalFloat(row, c.PercentageSavings, moneyFormat)
		optionalFloat(row, firstNonNil(c.PaymentAmount, c.PipsDifference), numberFormat)
		optionalFloat(row, c.TradesPerYear, numberFormat)
	}
	return nil
}

func headerRow(sheet *xlsx.Sheet, style *xlsx.Style, titles ...string) {
	row := sheet.AddRow()
	for _, t := range titles {
		cell := row.AddCell()
		cell.SetString(t)
		cell.SetStyle(style)
	}
}

func labelRow(sheet *xlsx.Sheet, label string) *xlsx.Row {
	row := sheet.AddRow()
	row.AddCell().SetString(label)
	return row
}

func optionalFloat(row *xlsx.Row, v *float64, format string) {
	cell := row.AddCell()
	if v != nil {
		cell.SetFloatWithFormat(*v, format)
	}
}

func firstNonNil(vs ...*float64) *float64 {
	for _, v := range vs {
		if v != nil {
			return v
		}
	}
	return nil
}
