package service

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/boddenberg/spread-checker-go/internal/domain"
	"github.com/boddenberg/spread-checker-go/internal/report"
)

// topClientsInEmail bounds the client table in the email body; the
// attachments carry the full list.
const topClientsInEmail = 5

var gbp = message.NewPrinter(language.BritishEnglish)

var emailFuncs = map[string]any{
	"money": func(v float64) string { return gbp.Sprintf("£%.2f", v) },
	"count": func(v int) string { return gbp.Sprintf("%d", v) },
}

var reportHTML = htmltemplate.Must(htmltemplate.New("report").Funcs(emailFuncs).Parse(`<html>
<body style="font-family: Arial, sans-serif; line-height: 1.5; color: #1f2933;">
<p>Hi {{.Name}},</p>
<p>Here is the {{.Brand}} client savings report for <strong>{{.Company}}</strong> covering {{.Period}}.</p>
<table cellpadding="6" style="border-collapse: collapse;">
<tr><td>Clients</td><td><strong>{{count .Summary.TotalClients}}</strong></td></tr>
<tr><td>Calculations</td><td><strong>{{count .Summary.TotalCalculations}}</strong></td></tr>
<tr><td>Combined monthly savings</td><td><strong>{{money .Summary.CombinedMonthlySavings}}</strong></td></tr>
<tr><td>Combined annual savings</td><td><strong>{{money .Summary.CombinedAnnualSavings}}</strong></td></tr>
</table>
{{if .TopClients}}<p>Most active clients:</p>
<table cellpadding="6" style="border-collapse: collapse;">
<tr><th align="left">Client</th><th align="right">Calculations</th><th align="right">Annual savings</th></tr>
{{range .TopClients}}<tr><td>{{.ClientName}}</td><td align="right">{{count .Stats.TotalCalculations}}</td><td align="right">{{money .Stats.CombinedAnnualSavings}}</td></tr>
{{end}}</table>{{end}}
<p>The full report (PDF) and the spreadsheet export are attached.</p>
<p>Thanks,<br>The {{.Brand}} team</p>
</body>
</html>`))

var reportText = texttemplate.Must(texttemplate.New("report").Funcs(emailFuncs).Parse(`Hi {{.Name}},

Here is the {{.Brand}} client savings report for {{.Company}} covering {{.Period}}.

Clients: {{count .Summary.TotalClients}}
Calculations: {{count .Summary.TotalCalculations}}
Combined monthly savings: {{money .Summary.CombinedMonthlySavings}}
Combined annual savings: {{money .Summary.CombinedAnnualSavings}}
{{if .TopClients}}
Most active clients:
{{range .TopClients}}- {{.ClientName}}: {{count .Stats.TotalCalculations}} calculations, {{money .Stats.CombinedAnnualSavings}} annual savings
{{end}}{{end}}
The full report (PDF) and the spreadsheet export are attached.

Thanks,
The {{.Brand}} team
`))

type emailView struct {
	Brand      string
	Name       string
	Company    string
	Period     string
	Summary    domain.ReportSummary
	TopClients []domain.ClientReport
}

// composeReportEmail builds the message for one admin.
func composeReportEmail(brand string, admin domain.User, doc *domain.ReportDocument, attachments []domain.Attachment) (*domain.ReportEmail, error) {
	name := strings.TrimSpace(admin.DisplayName)
	if name == "" {
		name = "there"
	}
	top := doc.Report.Clients
	if len(top) > topClientsInEmail {
		top = top[:topClientsInEmail]
	}
	view := emailView{
		Brand:      brand,
		Name:       name,
		Company:    doc.Company.Name,
		Period:     report.Label(doc.Period),
		Summary:    doc.Report.Summary,
		TopClients: top,
	}

	var html, text bytes.Buffer
	if err := reportHTML.Execute(&html, view); err != nil {
		return nil, fmt.Errorf("compose html: %w", err)
	}
	if err := reportText.Execute(&text, view); err != nil {
		return nil, fmt.Errorf("compose text: %w", err)
	}

	return &domain.ReportEmail{
		To:          admin.Email,
		ToName:      strings.TrimSpace(admin.DisplayName),
		Subject:     fmt.Sprintf("%s report for %s: %s", brand, doc.Company.Name, view.Period),
		Text:        text.String(),
		HTML:        html.String(),
		Attachments: attachments,
	}, nil
}
