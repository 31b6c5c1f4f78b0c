package render

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/go-pdf/fpdf"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/spread-checker-go/internal/domain"
	"github.com/boddenberg/spread-checker-go/internal/report"
)

var tracer = otel.Tracer("render")

// Brand colours.
var (
	brandR, brandG, brandB = 17, 94, 89
	mutedR, mutedG, mutedB = 110, 110, 110
)

// PDFRenderer renders the monthly report: one cover summary page plus one
// page per client.
type PDFRenderer struct {
	brand  string
	logger *zap.Logger
}

// NewPDFRenderer creates a renderer that prints brand in headers.
func NewPDFRenderer(brand string, logger *zap.Logger) *PDFRenderer {
	return &PDFRenderer{brand: brand, logger: logger}
}

// Render implements port.DocumentRenderer.
func (r *PDFRenderer) Render(ctx context.Context, doc *domain.ReportDocument) (*domain.Attachment, error) {
	_, span := tracer.Start(ctx, "Render.PDF")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", doc.Company.ID))

	if doc.Report == nil {
		return nil, fmt.Errorf("render pdf: empty report")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(r.brand+" report: "+doc.Company.Name), false)
	pdf.SetCreator(r.brand, false)
	pdf.SetMargins(18, 20, 18)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-14)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(mutedR, mutedG, mutedB)
		pdf.CellFormat(0, 6, tr(r.brand+"  |  "+doc.Company.Name), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, "Page "+strconv.Itoa(pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	r.coverPage(pdf, tr, doc)
	for _, c := range doc.Report.Clients {
		r.clientPage(pdf, tr, doc, c)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}

	r.logger.Debug("pdf rendered",
		zap.String("company_id", doc.Company.ID),
		zap.Int("pages", pdf.PageCount()),
		zap.Int("bytes", buf.Len()),
	)

	return &domain.Attachment{
		Filename:    filename("spread-checker-report", doc, "pdf"),
		ContentType: contentTypePDF,
		Data:        buf.Bytes(),
	}, nil
}

func (r *PDFRenderer) coverPage(pdf *fpdf.Fpdf, tr func(string) string, doc *domain.ReportDocument) {
	s := doc.Report.Summary
	pdf.AddPage()

	pdf.SetFillColor(brandR, brandG, brandB)
	pdf.Rect(0, 0, 210, 38, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetXY(18, 12)
	pdf.CellFormat(0, 10, tr(r.brand), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.SetX(18)
	pdf.CellFormat(0, 7, tr("Client savings report  |  "+report.Label(doc.Period)), "", 1, "L", false, 0, "")

	pdf.SetY(50)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 9, tr(doc.Company.Name), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(mutedR, mutedG, mutedB)
	pdf.CellFormat(0, 6, "Generated "+doc.GeneratedAt.UTC().Format("2 Jan 2006 15:04 MST"), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	sectionHeading(pdf, tr, "Summary")
	keyValueRow(pdf, tr, "Clients", strconv.Itoa(s.TotalClients))
	keyValueRow(pdf, tr, "Calculations", strconv.Itoa(s.TotalCalculations))
	keyValueRow(pdf, tr, "Combined monthly savings", money(s.CombinedMonthlySavings))
	keyValueRow(pdf, tr, "Combined annual savings", money(s.CombinedAnnualSavings))
	pdf.Ln(6)

	pairs := sortedPairs(s.CurrencyPairDistribution)
	if len(pairs) == 0 {
		return
	}
	sectionHeading(pdf, tr, "Currency pairs")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 242, 241)
	pdf.CellFormat(90, 7, "Pair", "B", 0, "L", true, 0, "")
	pdf.CellFormat(40, 7, "Calculations", "B", 1, "R", true, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, p := range pairs {
		pdf.CellFormat(90, 7, tr(p.Pair), "", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, strconv.Itoa(p.Count), "", 1, "R", false, 0, "")
	}
}

func (r *PDFRenderer) clientPage(pdf *fpdf.Fpdf, tr func(string) string, doc *domain.ReportDocument, c domain.ClientReport) {
	st := c.Stats
	pdf.AddPage()

	pdf.SetTextColor(brandR, brandG, brandB)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(c.ClientName), "", 1, "L", false, 0, "")
	pdf.SetTextColor(mutedR, mutedG, mutedB)
	pdf.SetFont("Helvetica", "", 10)
	broker := c.Broker
	if broker == "" {
		broker = "Unassigned"
	}
	pdf.CellFormat(0, 6, tr("Broker: "+broker+"  |  "+report.Label(doc.Period)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	sectionHeading(pdf, tr, "Activity")
	keyValueRow(pdf, tr, "Calculations", strconv.Itoa(st.TotalCalculations))
	keyValueRow(pdf, tr, "Trades per year", number(st.TradesPerYear))
	keyValueRow(pdf, tr, "Trades per month", number(st.TradesPerMonth))
	keyValueRow(pdf, tr, "Average trade value", money(st.AvgTradeValue))
	keyValueRow(pdf, tr, "Monthly trade volume", money(st.MonthlyTradeVolume))
	pdf.Ln(4)

	sectionHeading(pdf, tr, "Savings")
	keyValueRow(pdf, tr, "Average saving per trade", money(st.AvgSavingsPerTrade))
	keyValueRow(pdf, tr, "Combined annual savings", money(st.CombinedAnnualSavings))
	keyValueRow(pdf, tr, "Average saving", fmt.Sprintf("%.2f%%", st.AvgPercentageSavings))
	keyValueRow(pdf, tr, "Average PIPs", number(st.AvgPips))
	pdf.Ln(4)

	if pairs := sortedPairs(st.CurrencyPairs); len(pairs) > 0 {
		sectionHeading(pdf, tr, "Currency pairs")
		pdf.SetFont("Helvetica", "", 10)
		for _, p := range pairs {
			pdf.CellFormat(90, 6, tr(p.Pair), "", 0, "L", false, 0, "")
			pdf.CellFormat(40, 6, strconv.Itoa(p.Count), "", 1, "R", false, 0, "")
		}
	}
}

func sectionHeading(pdf *fpdf.Fpdf, tr func(string) string, title string) {
	pdf.SetTextColor(brandR, brandG, brandB)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, tr(title), "B", 1, "L", false, 0, "")
	pdf.Ln(2)
	pdf.SetTextColor(0, 0, 0)
}

func keyValueRow(pdf *fpdf.Fpdf, tr func(string) string, key, value string) {
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(90, 7, tr(key), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(60, 7, tr(value), "", 1, "R", false, 0, "")
}
