package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/coachpay-api/internal/services"
)

type TDSHandler struct {
	tdsService    *services.TDSService
	exportService *services.ExportService
}

func NewTDSHandler(tdsService *services.TDSService, exportService *services.ExportService) *TDSHandler {
	return &TDSHandler{tdsService: tdsService, exportService: exportService}
}

// queryParam accepts both camelCase and snake_case spellings
func queryParam(c *gin.Context, camel, snake string) string {
	if val := c.Query(camel); val != "" {
		return val
	}
	return c.Query(snake)
}

// @Summary TDS Summary
// @Description Quarter and payee TDS totals of a fiscal year (current one by default)
// @Tags TDS
// @Produce json
// @Param fiscalYear query string false "Fiscal year, e.g. 2025-26"
// @Param payeeId query int false "Restrict to one payee"
// @Success 200 {object} services.TDSSummary
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /tds-summary [get]
func (h *TDSHandler) Summary(c *gin.Context) {
	payeeID, ok := parseOptionalUint(queryParam(c, "payeeId", "payee_id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payeeId"})
		return
	}

	summary, err := h.tdsService.GetSummary(c.Request.Context(), queryParam(c, "fiscalYear", "fiscal_year"), payeeID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// @Summary Mark TDS Deposited
// @Description Record a challan deposit for a quarter's undeposited entries. Accepts a flat body or one nested under "tds".
// @Tags TDS
// @Accept json
// @Produce json
// @Param request body services.MarkDepositedInput true "Deposit"
// @Success 200 {object} services.MarkDepositedResult
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /tds/mark-deposited [post]
func (h *TDSHandler) MarkDeposited(c *gin.Context) {
	var input services.MarkDepositedInput
	if err := BindNestedOrFlat(c, "tds", &input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.tdsService.MarkDeposited(c.Request.Context(), actorFrom(c), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// @Summary Export TDS Register
// @Description Download the fiscal year's TDS register
// @Tags TDS
// @Produce application/octet-stream
// @Param fiscalYear query string false "Fiscal year, e.g. 2025-26"
// @Param format query string false "xlsx, pdf or csv" default(xlsx)
// @Success 200 {file} file
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /tds/export [get]
func (h *TDSHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", services.ExportFormatXLSX)
	file, err := h.exportService.ExportTDS(c.Request.Context(), queryParam(c, "fiscalYear", "fiscal_year"), format)
	if err != nil {
		respondError(c, err)
		return
	}
	sendFile(c, file)
}

// @Summary TDS Certificate
// @Description Download a payee's TDS certificate for a fiscal year or one quarter
// @Tags TDS
// @Produce application/pdf
// @Param payee_id path int true "Payee ID"
// @Param fiscalYear query string true "Fiscal year, e.g. 2025-26"
// @Param quarter query string false "Q1..Q4"
// @Success 200 {file} file
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /tds/certificates/{payee_id} [get]
func (h *TDSHandler) Certificate(c *gin.Context) {
	payeeID, ok := parseID(c, "payee_id")
	if !ok {
		return
	}
	fiscalYear := queryParam(c, "fiscalYear", "fiscal_year")
	if fiscalYear == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fiscalYear is required"})
		return
	}

	file, err := h.exportService.GenerateCertificatePDF(c.Request.Context(), payeeID, fiscalYear, c.Query("quarter"))
	if err != nil {
		respondError(c, err)
		return
	}
	sendFile(c, file)
}

// @Summary Archived TDS Certificate
// @Description Re-download a certificate exactly as issued, by the path returned in X-Archive-Path
// @Tags TDS
// @Produce application/pdf
// @Param path query string true "Archive path"
// @Success 200 {file} file
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /tds/archive [get]
func (h *TDSHandler) Archived(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	file, err := h.exportService.ArchivedCertificate(path)
	if err != nil {
		respondError(c, err)
		return
	}
	sendFile(c, file)
}

func sendFile(c *gin.Context, file *services.ExportFile) {
	if file.ArchivePath != "" {
		c.Header("X-Archive-Path", filepath.ToSlash(file.ArchivePath))
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
