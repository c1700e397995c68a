package utils

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"permit-processing-backend/db/models"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// PermitFormData holds all data for the permit certificate template.
type PermitFormData struct {
	PermitNumber   string
	PermitType     string
	ReferenceNo    string
	ApplicantName  string
	IssuedDate     string
	SubmissionDate string
	TotalAmount    string
	AmountPaid     string
	IssuedByName   string
	PrintDate      string
}

const permitFormTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.PermitType}} Permit {{.PermitNumber}}</title>
<style>
  body { font-family: Georgia, serif; margin: 40px; color: #1a1a1a; }
  .header { text-align: center; border-bottom: 3px double #1a1a1a; padding-bottom: 16px; }
  .header h1 { margin: 4px 0; font-size: 22px; text-transform: uppercase; letter-spacing: 2px; }
  .header h2 { margin: 4px 0; font-size: 16px; font-weight: normal; }
  .permit-no { text-align: center; font-size: 20px; font-weight: bold; margin: 24px 0; }
  table { width: 100%; border-collapse: collapse; margin: 16px 0; }
  td { padding: 8px 4px; border-bottom: 1px solid #ccc; font-size: 14px; }
  td.label { width: 40%; font-weight: bold; }
  .notice { font-size: 11px; margin-top: 32px; font-style: italic; }
  .signature { margin-top: 64px; width: 45%; border-top: 1px solid #1a1a1a; padding-top: 4px; font-size: 13px; }
  .footer { margin-top: 24px; font-size: 10px; color: #666; text-align: right; }
</style>
</head>
<body>
  <div class="header">
    <h1>Office of the Municipal Mayor</h1>
    <h2>{{.PermitType}} Permit</h2>
  </div>

  <div class="permit-no">Permit No. {{.PermitNumber}}</div>

  <table>
    <tr><td class="label">Application Reference</td><td>{{.ReferenceNo}}</td></tr>
    <tr><td class="label">Applicant</td><td>{{.ApplicantName}}</td></tr>
    <tr><td class="label">Date of Application</td><td>{{.SubmissionDate}}</td></tr>
    <tr><td class="label">Date Issued</td><td>{{.IssuedDate}}</td></tr>
    <tr><td class="label">Total Fees Assessed</td><td>{{.TotalAmount}}</td></tr>
    <tr><td class="label">Amount Paid</td><td>{{.AmountPaid}}</td></tr>
  </table>

  <p class="notice">
    This permit is issued subject to the provisions of the applicable municipal
    ordinances and the National Building Code. It must be displayed conspicuously
    at the project site and presented to inspecting officers on demand.
  </p>

  <div class="signature">{{.IssuedByName}}<br>Authorized Signatory</div>

  <div class="footer">Printed {{.PrintDate}}</div>
</body>
</html>`

// GeneratePermitForm renders the issued permit as a PDF certificate and
// returns the relative path it was written to. The application must already
// carry a permit number.
func GeneratePermitForm(application models.Application, issuedBy string, filename string) (string, error) {
	if application.PermitNumber == nil {
		return "", fmt.Errorf("application %s has no permit number", application.ReferenceNo)
	}

	data := preparePermitFormData(application, issuedBy)

	htmlContent, err := renderPermitFormHTML(data)
	if err != nil {
		return "", fmt.Errorf("failed to render permit form: %w", err)
	}

	var pdfBuffer bytes.Buffer
	if err := renderPermitFormPDF(htmlContent, &pdfBuffer); err != nil {
		return "", fmt.Errorf("failed to generate PDF: %w", err)
	}

	dirPath := "./public/permits"
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return "", err
	}

	fullPath := filepath.Join(dirPath, filename)
	if err := os.WriteFile(fullPath, pdfBuffer.Bytes(), 0644); err != nil {
		return "", err
	}

	return "public/permits/" + filename, nil
}

func preparePermitFormData(application models.Application, issuedBy string) PermitFormData {
	permitType := "Building"
	if application.ApplicationType == models.OccupancyApplication {
		permitType = "Occupancy"
	}

	issuedDate := ""
	if application.PermitIssuedAt != nil {
		issuedDate = application.PermitIssuedAt.Format("January 2, 2006")
	}

	amountPaid := "N/A"
	if application.AmountPaid != nil {
		amountPaid = "PHP " + application.AmountPaid.StringFixed(2)
	}

	return PermitFormData{
		PermitNumber:   *application.PermitNumber,
		PermitType:     permitType,
		ReferenceNo:    application.ReferenceNo,
		ApplicantName:  application.Applicant.FullName(),
		IssuedDate:     issuedDate,
		SubmissionDate: application.SubmissionDate.Format("January 2, 2006"),
		TotalAmount:    "PHP " + application.TotalAmountDue.StringFixed(2),
		AmountPaid:     amountPaid,
		IssuedByName:   issuedBy,
		PrintDate:      time.Now().Format("January 2, 2006 15:04"),
	}
}

func renderPermitFormHTML(data PermitFormData) (string, error) {
	tmpl, err := template.New("permit").Parse(permitFormTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// renderPermitFormPDF prints the HTML to an A4 portrait PDF through headless
// Chrome. The HTML is served from an ephemeral local listener because
// chromedp needs a navigable URL.
func renderPermitFormPDF(htmlContent string, w io.Writer) error {
	ctx, cancel := chromedp.NewContext(context.Background())
	defer cancel()

	ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(htmlContent))
	})

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to start local server: %w", err)
	}
	defer listener.Close()

	server := &http.Server{Handler: mux}
	go server.Serve(listener)
	defer server.Close()

	url := fmt.Sprintf("http://%s/", listener.Addr().String())

	var buf []byte
	err = chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithMarginTop(0.4).
				WithMarginBottom(0.4).
				WithMarginLeft(0.4).
				WithMarginRight(0.4).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return fmt.Errorf("chromedp run failed: %w", err)
	}

	_, err = w.Write(buf)
	return err
}
