package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/schoolhub-io/schoolhub-api/internal/service"
	"github.com/schoolhub-io/schoolhub-api/pkg/response"
)

// ExportHandler streams roster exports as file downloads.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs a new ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Teachers godoc
// @Summary Export the teacher roster
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "Export format, csv or pdf" default(csv)
// @Param link query bool false "Return a signed download link instead of the file"
// @Success 200 {file} file
// @Router /exports/teachers [get]
func (h *ExportHandler) Teachers(c *gin.Context) {
	result, err := h.exports.TeacherRoster(c.Request.Context(), callerScope(c), exportFormat(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.deliver(c, result)
}

// Students godoc
// @Summary Export the student roster
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "Export format, csv or pdf" default(csv)
// @Param link query bool false "Return a signed download link instead of the file"
// @Success 200 {file} file
// @Router /exports/students [get]
func (h *ExportHandler) Students(c *gin.Context) {
	result, err := h.exports.StudentRoster(c.Request.Context(), callerScope(c), exportFormat(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.deliver(c, result)
}

// Download godoc
// @Summary Download an archived export through a signed link
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Router /exports/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	result, err := h.exports.Fetch(strings.TrimSpace(c.Query("token")))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.stream(c, result)
}

// deliver streams the export directly or, when link=true, archives it
// and returns a signed download link instead.
func (h *ExportHandler) deliver(c *gin.Context, result *service.ExportResult) {
	if c.Query("link") == "true" {
		link, err := h.exports.Link(result)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, link, nil)
		return
	}
	h.stream(c, result)
}

func (h *ExportHandler) stream(c *gin.Context, result *service.ExportResult) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}

func exportFormat(c *gin.Context) service.ExportFormat {
	format := strings.ToLower(strings.TrimSpace(c.Query("format")))
	if format == "" {
		format = string(service.ExportFormatCSV)
	}
	return service.ExportFormat(format)
}
