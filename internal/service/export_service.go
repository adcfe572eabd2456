package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/genplan/genplan-web/internal/dto"
	appErrors "github.com/genplan/genplan-web/pkg/errors"
	"github.com/genplan/genplan-web/pkg/export"
	"github.com/genplan/genplan-web/pkg/sharelink"
	"github.com/genplan/genplan-web/pkg/timetable"
)

const (
	FormatCSV = "csv"
	FormatPDF = "pdf"

	timeColumn = "Waktu"
)

type gridProvider interface {
	Grid(ctx context.Context, token string, query dto.TimetableQuery) (*dto.GridResponse, bool, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
}

// ExportFile is a rendered timetable download.
type ExportFile struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"content"`
}

// ExportService renders timetable grids as CSV or PDF and issues share links.
type ExportService struct {
	timetable gridProvider
	cache     *CacheService
	signer    *sharelink.Signer
	csv       csvRenderer
	pdf       pdfRenderer
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(grids gridProvider, cache *CacheService, signer *sharelink.Signer, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		timetable: grids,
		cache:     cache,
		signer:    signer,
		csv:       csv,
		pdf:       pdf,
		validator: validator.New(),
		logger:    logger,
		cfg:       cfg,
	}
}

// Export renders the requested grid in the requested format (CSV by default).
func (s *ExportService) Export(ctx context.Context, token string, query dto.ExportQuery) (*ExportFile, error) {
	if query.Format == "" {
		query.Format = FormatCSV
	}
	query.Format = strings.ToLower(query.Format)
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export query")
	}

	resp, _, err := s.timetable.Grid(ctx, token, query.TimetableQuery)
	if err != nil {
		return nil, err
	}
	return s.render(resp.Grid, query.Format)
}

// CreateShareLink renders the export now and returns a signed link that serves
// it without authentication until the link expires.
func (s *ExportService) CreateShareLink(ctx context.Context, token string, req dto.ShareLinkRequest) (*dto.ShareLinkResponse, error) {
	req.Format = strings.ToLower(req.Format)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid share link payload")
	}
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "share links are not configured")
	}

	file, err := s.Export(ctx, token, dto.ExportQuery{
		TimetableQuery: dto.TimetableQuery{Day: req.Day, Building: req.Building},
		Format:         req.Format,
	})
	if err != nil {
		return nil, err
	}

	claims := sharelink.Claims{ID: uuid.NewString(), Day: req.Day, Building: req.Building, Format: req.Format}
	signed, expiresAt, err := s.signer.Sign(claims)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign share link")
	}
	if err := s.cache.Set(ctx, shareCacheKey(claims.ID), file, s.signer.TTL()); err != nil {
		s.logger.Warn("share link export not cached", zap.String("share_id", claims.ID), zap.Error(err))
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return &dto.ShareLinkResponse{
		URL:       fmt.Sprintf("%s/timetable/shared/%s", prefix, signed),
		Token:     signed,
		ExpiresAt: expiresAt,
	}, nil
}

// OpenShared resolves a share token to its export. When the rendered file is no
// longer cached the grid is rendered again without caller credentials.
func (s *ExportService) OpenShared(ctx context.Context, token string) (*ExportFile, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "share links are not configured")
	}
	claims, _, err := s.signer.Verify(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "share link invalid or expired")
	}

	var cached ExportFile
	if hit, err := s.cache.Get(ctx, shareCacheKey(claims.ID), &cached); err == nil && hit {
		return &cached, nil
	}

	return s.Export(ctx, "", dto.ExportQuery{
		TimetableQuery: dto.TimetableQuery{Day: claims.Day, Building: claims.Building},
		Format:         claims.Format,
	})
}

func (s *ExportService) render(grid *timetable.Grid, format string) (*ExportFile, error) {
	dataset := gridDataset(grid)
	var (
		payload     []byte
		contentType string
		err         error
	)
	switch format {
	case FormatCSV:
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv; charset=utf-8"
	case FormatPDF:
		payload, err = s.pdf.Render(dataset, gridTitle(grid))
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %s", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportFile{
		Filename:    buildFilename(grid, format),
		ContentType: contentType,
		Content:     payload,
	}, nil
}

// gridDataset flattens a grid into one row per time row and one column per room.
func gridDataset(grid *timetable.Grid) export.Dataset {
	headers := make([]string, 0, len(grid.Columns)+1)
	headers = append(headers, timeColumn)
	for _, room := range grid.Columns {
		headers = append(headers, room.ID.String())
	}

	data := export.Dataset{
		Headers: headers,
		Rows:    make([]map[string]string, 0, len(grid.Rows)),
		Tones:   make(map[int]map[string]export.Tone),
	}
	for i, row := range grid.Rows {
		record := map[string]string{timeColumn: row.Label}
		for _, cell := range row.Cells {
			if len(cell.Schedules) == 0 {
				continue
			}
			record[cell.RoomID] = cellText(cell)
			if tone := cellTone(cell.Category); tone != export.ToneNone {
				if data.Tones[i] == nil {
					data.Tones[i] = make(map[string]export.Tone)
				}
				data.Tones[i][cell.RoomID] = tone
			}
		}
		data.Rows = append(data.Rows, record)
	}
	return data
}

func cellText(cell timetable.Cell) string {
	labels := make([]string, len(cell.Schedules))
	for i, schedule := range cell.Schedules {
		labels[i] = schedule.Label()
	}
	text := strings.Join(labels, ", ")
	switch cell.Category {
	case timetable.CategorySubstitute:
		text += " [Pengganti]"
	case timetable.CategoryConflictWithReason:
		text += fmt.Sprintf(" [Konflik: %s]", cell.Representative.ConflictReason())
	case timetable.CategoryConflictUnexplained:
		text += " [Konflik]"
	}
	return text
}

func cellTone(category timetable.Category) export.Tone {
	switch category {
	case timetable.CategorySubstitute:
		return export.ToneInfo
	case timetable.CategoryConflictUnexplained:
		return export.ToneWarning
	case timetable.CategoryConflictWithReason:
		return export.ToneDanger
	default:
		return export.ToneNone
	}
}

func gridTitle(grid *timetable.Grid) string {
	building := "Semua Gedung"
	if grid.Building != "" && grid.Building != timetable.AllBuildings {
		building = "Gedung " + grid.Building
	}
	return fmt.Sprintf("Jadwal %s - %s", grid.Day, building)
}

func buildFilename(grid *timetable.Grid, format string) string {
	building := grid.Building
	if building == "" {
		building = timetable.AllBuildings
	}
	return fmt.Sprintf("jadwal_%s_%s.%s", sanitizeFilename(grid.Day), sanitizeFilename(building), format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := strings.ToLower(replacer.Replace(raw))
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func shareCacheKey(id string) string {
	return "timetable:share:" + id
}
