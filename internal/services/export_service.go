package services

import (
	"bytes"
	"context"
	"embed"
	"encoding/csv"
	"fmt"
	"html/template"
	"path/filepath"
	"strings"
	"time"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/sjperalta/coachpay-api/internal/models"
	"github.com/sjperalta/coachpay-api/internal/repository"
	"github.com/sjperalta/coachpay-api/pkg/logger"
	"github.com/xuri/excelize/v2"
)

//go:embed templates/reports/*.html
var reportTemplates embed.FS

// Export formats
const (
	ExportFormatXLSX = "xlsx"
	ExportFormatPDF  = "pdf"
	ExportFormatCSV  = "csv"
)

// ExportFile is a generated document ready to be streamed
type ExportFile struct {
	Data        []byte
	Filename    string
	ContentType string
	ArchivePath string
}

// Archiver keeps a copy of issued documents
type Archiver interface {
	SaveBytes(data []byte, filename string, subDir string) (string, error)
	Exists(relativePath string) bool
	Read(relativePath string) ([]byte, error)
}

const certificateArchiveDir = "certificates"

type ExportService struct {
	tdsSvc    *TDSService
	payeeRepo repository.PayeeRepository
	archive   Archiver
	deductor  string
	now       func() time.Time
}

func NewExportService(tdsSvc *TDSService, payeeRepo repository.PayeeRepository, archive Archiver, deductor string) *ExportService {
	return &ExportService{tdsSvc: tdsSvc, payeeRepo: payeeRepo, archive: archive, deductor: deductor, now: time.Now}
}

// ExportTDS renders the fiscal year's TDS register in the requested format
func (s *ExportService) ExportTDS(ctx context.Context, fiscalYear, format string) (*ExportFile, error) {
	if fiscalYear == "" {
		fiscalYear = models.FiscalYearOf(s.now())
	}
	entries, err := s.tdsSvc.ListByFiscalYear(ctx, fiscalYear)
	if err != nil {
		return nil, err
	}
	summary, err := BuildTDSSummary(fiscalYear, entries)
	if err != nil {
		return nil, err
	}

	base := fmt.Sprintf("tds_register_%s_%s", fiscalYear, s.now().Format("2006-01-02"))
	switch format {
	case ExportFormatXLSX, "":
		data, err := buildTDSWorkbook(summary, entries)
		if err != nil {
			return nil, err
		}
		return &ExportFile{Data: data, Filename: base + ".xlsx", ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"}, nil
	case ExportFormatPDF:
		data, err := buildTDSPDF(summary)
		if err != nil {
			return nil, err
		}
		return &ExportFile{Data: data, Filename: base + ".pdf", ContentType: "application/pdf"}, nil
	case ExportFormatCSV:
		data, err := buildTDSCSV(entries)
		if err != nil {
			return nil, err
		}
		return &ExportFile{Data: data, Filename: base + ".csv", ContentType: "text/csv"}, nil
	default:
		return nil, validationError("format must be xlsx, pdf or csv")
	}
}

var registerHeader = []string{
	"Entry ID", "Payee ID", "Payee", "PAN", "Quarter", "Deducted At",
	"Gross", "Rate %", "TDS", "Deposited", "Challan", "Deposit Date", "Settlement",
}

func registerRow(e *models.TDSLedgerEntry) []interface{} {
	name, pan := "", ""
	if e.Payee != nil {
		name = e.Payee.Name
		pan = e.Payee.MaskedPAN()
	}
	challan, depositDate := "", ""
	if e.ChallanNumber != nil {
		challan = *e.ChallanNumber
	}
	if e.DepositDate != nil {
		depositDate = e.DepositDate.Format("2006-01-02")
	}
	deposited := "no"
	if e.Deposited {
		deposited = "yes"
	}
	return []interface{}{
		e.ID, e.PayeeID, name, pan, e.Quarter, e.DeductedAt.In(models.IST).Format("2006-01-02"),
		e.GrossAmount.InexactFloat64(), e.TDSRatePercent.InexactFloat64(), e.TDSAmount.InexactFloat64(),
		deposited, challan, depositDate, e.SettlementID,
	}
}

func buildTDSWorkbook(summary *TDSSummary, entries []models.TDSLedgerEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	titleStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})

	sheet := "Summary"
	_ = f.SetSheetName("Sheet1", sheet)
	_ = f.SetCellValue(sheet, "A1", "TDS Register "+summary.FiscalYear)
	_ = f.SetCellStyle(sheet, "A1", "A1", titleStyle)

	_ = f.SetSheetRow(sheet, "A3", &[]interface{}{"Quarter", "Entries", "Deducted", "Deposited", "Pending", "Due Date", "Status"})
	_ = f.SetCellStyle(sheet, "A3", "G3", headerStyle)
	for i, q := range summary.Quarters {
		cell, _ := excelize.CoordinatesToCellName(1, 4+i)
		_ = f.SetSheetRow(sheet, cell, &[]interface{}{
			q.Quarter, q.EntryCount, q.Deducted.InexactFloat64(), q.Deposited.InexactFloat64(),
			q.Pending.InexactFloat64(), q.DueDate, q.Status,
		})
	}
	totalRow := 4 + len(summary.Quarters)
	cell, _ := excelize.CoordinatesToCellName(1, totalRow)
	_ = f.SetSheetRow(sheet, cell, &[]interface{}{
		"Total", len(entries), summary.Totals.Deducted.InexactFloat64(),
		summary.Totals.Deposited.InexactFloat64(), summary.Totals.Pending.InexactFloat64(),
	})

	payees := "Payees"
	_, _ = f.NewSheet(payees)
	_ = f.SetSheetRow(payees, "A1", &[]interface{}{"Payee ID", "Name", "PAN", "Entries", "Gross", "Deducted", "Deposited", "Pending"})
	_ = f.SetCellStyle(payees, "A1", "H1", headerStyle)
	for i, p := range summary.Payees {
		cell, _ := excelize.CoordinatesToCellName(1, 2+i)
		_ = f.SetSheetRow(payees, cell, &[]interface{}{
			p.PayeeID, p.Name, p.MaskedPAN, p.EntryCount, p.Gross.InexactFloat64(),
			p.Deducted.InexactFloat64(), p.Deposited.InexactFloat64(), p.Pending.InexactFloat64(),
		})
	}

	register := "Entries"
	_, _ = f.NewSheet(register)
	header := make([]interface{}, len(registerHeader))
	for i, h := range registerHeader {
		header[i] = h
	}
	_ = f.SetSheetRow(register, "A1", &header)
	_ = f.SetCellStyle(register, "A1", "M1", headerStyle)
	for i := range entries {
		cell, _ := excelize.CoordinatesToCellName(1, 2+i)
		row := registerRow(&entries[i])
		_ = f.SetSheetRow(register, cell, &row)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func buildTDSCSV(entries []models.TDSLedgerEntry) ([]byte, error) {
	buf := new(bytes.Buffer)
	writer := csv.NewWriter(buf)

	_ = writer.Write(registerHeader)
	for i := range entries {
		row := registerRow(&entries[i])
		record := make([]string, len(row))
		for j, v := range row {
			record[j] = fmt.Sprint(v)
		}
		// money columns keep their exact decimal text
		record[6] = entries[i].GrossAmount.StringFixed(2)
		record[7] = entries[i].TDSRatePercent.StringFixed(2)
		record[8] = entries[i].TDSAmount.StringFixed(2)
		_ = writer.Write(record)
	}
	writer.Flush()
	return buf.Bytes(), writer.Error()
}

func buildTDSPDF(summary *TDSSummary) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "TDS Summary "+summary.FiscalYear)
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 10)
	for _, h := range []string{"Quarter", "Entries", "Deducted", "Deposited", "Pending", "Due", "Status"} {
		pdf.CellFormat(26, 8, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, q := range summary.Quarters {
		pdf.CellFormat(26, 8, q.Quarter, "1", 0, "", false, 0, "")
		pdf.CellFormat(26, 8, fmt.Sprintf("%d", q.EntryCount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(26, 8, q.Deducted.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(26, 8, q.Deposited.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(26, 8, q.Pending.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(26, 8, q.DueDate, "1", 0, "", false, 0, "")
		pdf.CellFormat(26, 8, q.Status, "1", 0, "", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 10, "Payees")
	pdf.Ln(10)
	pdf.SetFont("Arial", "B", 10)
	for _, h := range []string{"ID", "Name", "PAN", "Gross", "Deducted", "Pending"} {
		pdf.CellFormat(30, 8, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, p := range summary.Payees {
		pdf.CellFormat(30, 8, fmt.Sprintf("%d", p.PayeeID), "1", 0, "", false, 0, "")
		pdf.CellFormat(30, 8, truncate(p.Name, 18), "1", 0, "", false, 0, "")
		pdf.CellFormat(30, 8, p.MaskedPAN, "1", 0, "", false, 0, "")
		pdf.CellFormat(30, 8, p.Gross.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, p.Deducted.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, p.Pending.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(60, 8, fmt.Sprintf("Total deducted: %s  Deposited: %s  Pending: %s",
		summary.Totals.Deducted.StringFixed(2), summary.Totals.Deposited.StringFixed(2), summary.Totals.Pending.StringFixed(2)))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "."
}

type certificateRow struct {
	Quarter      string
	PaidOn       string
	SettlementID string
	Gross        string
	Rate         string
	TDS          string
	Challan      string
	DepositedOn  string
}

// GenerateCertificatePDF renders a payee's TDS certificate for a fiscal year (or one quarter)
func (s *ExportService) GenerateCertificatePDF(ctx context.Context, payeeID uint, fiscalYear, quarter string) (*ExportFile, error) {
	payee, err := s.payeeRepo.FindByID(ctx, payeeID)
	if err != nil {
		return nil, err
	}
	entries, err := s.tdsSvc.CertificateEntries(ctx, payeeID, fiscalYear, quarter)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no TDS deducted for payee %d in %s %s", ErrNotFound, payeeID, fiscalYear, quarter)
	}

	html, err := s.renderCertificate(payee, fiscalYear, quarter, entries)
	if err != nil {
		return nil, err
	}
	buf, err := htmlToPDF(html)
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("tds_certificate_%d_%s", payeeID, fiscalYear)
	if quarter != "" {
		name += "_" + quarter
	}
	file := &ExportFile{Data: buf.Bytes(), Filename: name + ".pdf", ContentType: "application/pdf"}

	// issued certificates are kept for audit; a failed copy does not block the download
	if s.archive != nil {
		path, err := s.archive.SaveBytes(file.Data, file.Filename, certificateArchiveDir)
		if err != nil {
			logger.Warn("[Exports] Failed to archive certificate", "payee_id", payeeID, "error", err)
		} else {
			file.ArchivePath = path
		}
	}
	return file, nil
}

func (s *ExportService) renderCertificate(payee *models.Payee, fiscalYear, quarter string, entries []models.TDSLedgerEntry) ([]byte, error) {
	totalGross, totalTDS := decimal.Zero, decimal.Zero
	pending := false
	rows := make([]certificateRow, 0, len(entries))
	for _, e := range entries {
		totalGross = totalGross.Add(e.GrossAmount)
		totalTDS = totalTDS.Add(e.TDSAmount)
		row := certificateRow{
			Quarter:      e.Quarter,
			PaidOn:       e.DeductedAt.In(models.IST).Format("02/01/2006"),
			SettlementID: e.SettlementID,
			Gross:        e.GrossAmount.StringFixed(2),
			Rate:         e.TDSRatePercent.StringFixed(2),
			TDS:          e.TDSAmount.StringFixed(2),
		}
		if e.ChallanNumber != nil {
			row.Challan = *e.ChallanNumber
		}
		if e.DepositDate != nil {
			row.DepositedOn = e.DepositDate.Format("02/01/2006")
		}
		if !e.Deposited {
			pending = true
		}
		rows = append(rows, row)
	}

	data := map[string]interface{}{
		"FiscalYear":    fiscalYear,
		"Quarter":       quarter,
		"IssuedAt":      s.now().In(models.IST).Format("02/01/2006"),
		"PayeeName":     payee.Name,
		"MaskedPAN":     payee.MaskedPAN(),
		"Deductor":      s.deductor,
		"Rows":          rows,
		"TotalGross":    totalGross.StringFixed(2),
		"TotalTDS":      totalTDS.StringFixed(2),
		"TotalTDSWords": AmountToWords(totalTDS),
		"Pending":       pending,
	}

	tmpl, err := template.ParseFS(reportTemplates, "templates/reports/tds_certificate.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.Bytes(), nil
}

// htmlToPDF converts rendered HTML with wkhtmltopdf
func htmlToPDF(html []byte) (*bytes.Buffer, error) {
	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create pdf generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.Grayscale.Set(false)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader(html))
	page.EnableLocalFileAccess.Set(true)
	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create pdf: %w", err)
	}
	return pdfg.Buffer(), nil
}

// ArchivedCertificate returns a previously issued certificate exactly as it was sent
func (s *ExportService) ArchivedCertificate(relativePath string) (*ExportFile, error) {
	relativePath = filepath.Clean(relativePath)
	if !strings.HasPrefix(filepath.ToSlash(relativePath), certificateArchiveDir+"/") || filepath.Ext(relativePath) != ".pdf" {
		return nil, validationError("path must point to an archived certificate")
	}
	if s.archive == nil || !s.archive.Exists(relativePath) {
		return nil, fmt.Errorf("%w: archived certificate %s", ErrNotFound, relativePath)
	}
	data, err := s.archive.Read(relativePath)
	if err != nil {
		return nil, fmt.Errorf("read archived certificate: %w", err)
	}
	return &ExportFile{
		Data:        data,
		Filename:    filepath.Base(relativePath),
		ContentType: "application/pdf",
		ArchivePath: relativePath,
	}, nil
}
