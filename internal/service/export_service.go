package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/schoolhub-io/schoolhub-api/internal/models"
	appErrors "github.com/schoolhub-io/schoolhub-api/pkg/errors"
	"github.com/schoolhub-io/schoolhub-api/pkg/export"
	"github.com/schoolhub-io/schoolhub-api/pkg/storage"
)

// ExportFormat selects the rendered output type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// exportPageSize bounds roster exports to a single large page.
const exportPageSize = 1000

type exportTeacherSource interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
}

type exportStudentSource interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportResult carries a rendered roster ready to stream to the client.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportLink points at an archived roster reachable through a signed
// token instead of an authenticated session.
type ExportLink struct {
	Token     string    `json:"token"`
	Filename  string    `json:"filename"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExportService renders teacher and student rosters. The caller's
// scope applies, so exports never widen what a role can list.
type ExportService struct {
	teachers exportTeacherSource
	students exportStudentSource
	csv      csvRenderer
	pdf      pdfRenderer
	archive  *storage.Archive
	signer   *storage.TokenSigner
	logger   *zap.Logger
}

// NewExportService constructs an ExportService. Archive and signer are
// optional; without them signed download links are unavailable.
func NewExportService(teachers exportTeacherSource, students exportStudentSource, csv csvRenderer, pdf pdfRenderer, archive *storage.Archive, signer *storage.TokenSigner, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{teachers: teachers, students: students, csv: csv, pdf: pdf, archive: archive, signer: signer, logger: logger}
}

// TeacherRoster renders the teacher roster visible to the caller.
func (s *ExportService) TeacherRoster(ctx context.Context, scope models.Scope, format ExportFormat) (*ExportResult, error) {
	teachers, _, err := s.teachers.List(ctx, models.TeacherFilter{Page: 1, PageSize: exportPageSize, Scope: scope})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers for export")
	}

	dataset := export.Dataset{
		Headers: []string{"username", "name", "surname", "email", "phone", "address", "sex", "birthday"},
	}
	for _, t := range teachers {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"username": t.Username,
			"name":     t.Name,
			"surname":  t.Surname,
			"email":    stringOrEmpty(t.Email),
			"phone":    stringOrEmpty(t.Phone),
			"address":  t.Address,
			"sex":      t.Sex,
			"birthday": t.Birthday.Format("2006-01-02"),
		})
	}
	return s.render(dataset, "Teacher Roster", "teachers", format)
}

// StudentRoster renders the student roster visible to the caller.
func (s *ExportService) StudentRoster(ctx context.Context, scope models.Scope, format ExportFormat) (*ExportResult, error) {
	students, _, err := s.students.List(ctx, models.StudentFilter{Page: 1, PageSize: exportPageSize, Scope: scope})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students for export")
	}

	dataset := export.Dataset{
		Headers: []string{"username", "name", "surname", "class", "sex", "birthday"},
	}
	for _, st := range students {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"username": st.Username,
			"name":     st.Name,
			"surname":  st.Surname,
			"class":    st.ClassName,
			"sex":      st.Sex,
			"birthday": st.Birthday.Format("2006-01-02"),
		})
	}
	return s.render(dataset, "Student Roster", "students", format)
}

func (s *ExportService) render(dataset export.Dataset, title, entity string, format ExportFormat) (*ExportResult, error) {
	timestamp := time.Now().UTC().Format("20060102-150405")
	switch format {
	case ExportFormatCSV:
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("%s-%s.csv", entity, timestamp),
			ContentType: "text/csv",
			Payload:     payload,
		}, nil
	case ExportFormatPDF:
		payload, err := s.pdf.Render(dataset, title+" ("+strconv.Itoa(len(dataset.Rows))+" rows)")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("%s-%s.pdf", entity, timestamp),
			ContentType: "application/pdf",
			Payload:     payload,
		}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
}

// Link archives the rendered roster and issues a signed download token.
func (s *ExportService) Link(result *ExportResult) (*ExportLink, error) {
	if s.archive == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "download links are not enabled")
	}
	if err := s.archive.Put(result.Filename, result.Payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive export")
	}
	token, expiresAt, err := s.signer.Issue(result.Filename)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	return &ExportLink{Token: token, Filename: result.Filename, ExpiresAt: expiresAt}, nil
}

// Fetch resolves a signed token back into the archived roster.
func (s *ExportService) Fetch(token string) (*ExportResult, error) {
	if s.archive == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "download links are not enabled")
	}
	filename, _, err := s.signer.Verify(token)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "download link is invalid or expired")
	}
	payload, err := s.archive.Get(filename)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "archived export no longer exists")
	}
	contentType := "text/csv"
	if strings.HasSuffix(filename, ".pdf") {
		contentType = "application/pdf"
	}
	return &ExportResult{Filename: filename, ContentType: contentType, Payload: payload}, nil
}

func stringOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}
