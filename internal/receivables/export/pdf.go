package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/odyssey-erp/receivables/internal/receivables"
)

// DashboardPayload is the data printed on the dashboard PDF.
type DashboardPayload struct {
	Range     string
	Dashboard receivables.Dashboard
}

// PDFExporter renders HTML through a Gotenberg instance.
type PDFExporter struct {
	Endpoint string
	Client   *http.Client
}

// RenderDashboard sends the dashboard as HTML to Gotenberg and returns the PDF bytes.
func (p *PDFExporter) RenderDashboard(ctx context.Context, payload DashboardPayload) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("pdf exporter not initialised")
	}
	endpoint := strings.TrimRight(p.Endpoint, "/")
	if endpoint == "" {
		return nil, fmt.Errorf("gotenberg endpoint required")
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(part, buildHTML(payload)); err != nil {
		return nil, err
	}
	if err := writer.WriteField("landscape", "true"); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/forms/chromium/convert/html", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("gotenberg response %d: %s", resp.StatusCode, string(data))
	}
	return io.ReadAll(resp.Body)
}

// Ping checks that the Gotenberg instance answers its health endpoint.
func (p *PDFExporter) Ping(ctx context.Context) error {
	if p == nil || p.Endpoint == "" {
		return fmt.Errorf("gotenberg endpoint required")
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(p.Endpoint, "/")+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("gotenberg returned status %d", resp.StatusCode)
	}
	return nil
}

var amountPrinter = message.NewPrinter(language.English)

func formatAmount(v float64) string {
	return amountPrinter.Sprintf("%.2f", v)
}

func buildHTML(payload DashboardPayload) string {
	d := payload.Dashboard
	var b strings.Builder
	b.WriteString("<html><head><meta charset=\"utf-8\"><style>")
	b.WriteString("body{font-family:sans-serif;margin:24px;}h1{font-size:20px;}h2{font-size:16px;}table{width:100%;border-collapse:collapse;margin-bottom:16px;}th,td{border:1px solid #ddd;padding:6px;text-align:right;}th{background:#f5f5f5;}.label{text-align:left;}")
	b.WriteString("</style></head><body>")
	b.WriteString("<h1>Accounts Receivable</h1>")
	b.WriteString("<p>As of " + templateEscape(d.AsOf))
	if payload.Range != "" {
		b.WriteString(" &middot; " + templateEscape(payload.Range))
	}
	b.WriteString("</p>")

	b.WriteString("<section><h2>Summary</h2><table><tbody>")
	writeRow(&b, "Open invoices", fmt.Sprintf("%d", d.TotalInvoices))
	writeRow(&b, "Overdue amount", formatAmount(d.OverdueAmount))
	writeRow(&b, "Current amount", formatAmount(d.CurrentAmount))
	writeRow(&b, "Average days overdue", formatAmount(d.AvgOverdueDays))
	b.WriteString("</tbody></table></section>")

	if len(d.Aging) > 0 {
		b.WriteString("<section><h2>Aging</h2><table><thead><tr><th class=\"label\">Bucket</th><th>Amount</th></tr></thead><tbody>")
		for _, bucket := range d.Aging {
			writeRow(&b, bucket.Bucket, formatAmount(bucket.Amount))
		}
		b.WriteString("</tbody></table></section>")
	}

	writeRanking(&b, "Top overdue clients", "Client", d.Top10)
	writeRanking(&b, "Condition", "Condition", d.Condition)
	writeRanking(&b, "Document types", "Type", d.DocumentTypes)

	if len(d.DelinquencySeries) > 0 {
		b.WriteString("<section><h2>Delinquency ratio</h2><table><thead><tr><th class=\"label\">Month</th><th>%</th></tr></thead><tbody>")
		for _, point := range d.DelinquencySeries {
			writeRow(&b, point.Month, formatAmount(point.Ratio))
		}
		b.WriteString("</tbody></table></section>")
	}

	b.WriteString("</body></html>")
	return b.String()
}

func writeRanking(b *strings.Builder, title, column string, r receivables.RankingResult) {
	if r.Len() == 0 {
		return
	}
	b.WriteString("<section><h2>" + templateEscape(title) + "</h2><table><thead><tr><th class=\"label\">")
	b.WriteString(templateEscape(column))
	b.WriteString("</th><th>Amount</th></tr></thead><tbody>")
	for i, label := range r.Labels {
		writeRow(b, label, formatAmount(r.Values[i]))
	}
	b.WriteString("</tbody></table></section>")
}

func writeRow(b *strings.Builder, label, value string) {
	b.WriteString("<tr><td class=\"label\">")
	b.WriteString(templateEscape(label))
	b.WriteString("</td><td>")
	b.WriteString(value)
	b.WriteString("</td></tr>")
}

func templateEscape(v string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&#39;",
	)
	return replacer.Replace(v)
}
