package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/miescuela/backend/internal/domain/report"
	"github.com/miescuela/backend/internal/domain/shared"
	"github.com/miescuela/backend/internal/infrastructure/logger"
	"github.com/miescuela/backend/internal/infrastructure/printing"
	"github.com/miescuela/backend/internal/infrastructure/telemetry"
)

// HeaderSource provides the letterhead image shared by all exports
type HeaderSource interface {
	Resolve(ctx context.Context) (*printing.HeaderAsset, error)
}

// CanvasFactory creates the drawing surface of one document
type CanvasFactory func(geometry report.PageGeometry, opts printing.CanvasOptions) printing.Canvas

// ExportServiceConfig contains the collaborators and layout settings of an
// ExportService
type ExportServiceConfig struct {
	// Geometry is the page size and margins. Default: A4 portrait, 15mm margins
	Geometry report.PageGeometry
	// Institution is printed on the letterhead. Default: MiEscuela 4.0
	Institution string
	// Locale formats entry dates. Default: es-AR
	Locale string
	// HeaderMode selects the pages the header image is stamped on
	HeaderMode report.HeaderMode
	// FontFamily is the PDF core font used for text. Default: Helvetica
	FontFamily string
	// LineHeightFactor converts font size to line height. Default: 0.35
	LineHeightFactor float64
	// EntryReserve is the FixedReserve distance of structured reports
	EntryReserve float64
	// Creator is written to the PDF metadata
	Creator string

	// Header resolves the letterhead image; nil exports without one
	Header HeaderSource
	// Storage receives finished documents (required)
	Storage printing.PDFStorage
	// Generator writes narratives for GenerateAndExportNarrative
	Generator report.TextGenerator
	// Metrics records export metrics; nil disables them
	Metrics *telemetry.ReportMetrics
	// NewCanvas overrides the fpdf canvas
	NewCanvas CanvasFactory
	// FontMetrics measures text for wrapping. Default: core fonts of FontFamily
	FontMetrics printing.FontMetrics
	// Now returns the document timestamp. Default: time.Now
	Now    func() time.Time
	Logger *zap.Logger
}

// RenderedReport is a laid out and serialized report that has not been stored
type RenderedReport struct {
	Kind     report.Kind
	Filename string
	Document *printing.Document
	PDF      []byte
	Stats    AssemblyStats
	// HeaderImage is true when the letterhead image was drawn
	HeaderImage bool
}

// ExportService builds student reports and saves them. Each export owns its
// document; the service itself is safe for concurrent use.
type ExportService struct {
	geometry    report.PageGeometry
	institution string
	headerMode  report.HeaderMode
	fontFamily  string
	creator     string
	measurer    *printing.Measurer
	structured  *StructuredAssembler
	narrative   *NarrativeAssembler

	header    HeaderSource
	storage   printing.PDFStorage
	generator report.TextGenerator
	metrics   *telemetry.ReportMetrics
	newCanvas CanvasFactory
	validate  *validator.Validate
	now       func() time.Time
	logger    *zap.Logger
}

// NewExportService creates a new ExportService
func NewExportService(cfg *ExportServiceConfig) (*ExportService, error) {
	if cfg == nil || cfg.Storage == nil {
		return nil, errors.New("report storage is required")
	}

	geometry := cfg.Geometry
	if geometry.Width == 0 || geometry.Height == 0 {
		geometry = report.DefaultPageGeometry()
	}

	institution := cfg.Institution
	if institution == "" {
		institution = "MiEscuela 4.0"
	}

	locale := cfg.Locale
	if locale == "" {
		locale = "es-AR"
	}
	dates, err := report.NewDateFormatter(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid report locale %q: %w", locale, err)
	}

	headerMode := cfg.HeaderMode
	if !headerMode.IsValid() {
		headerMode = report.HeaderModeFirstPage
	}
	if headerMode == report.HeaderModeEveryPage && geometry.Margins.Top < printing.HeaderClearance() {
		return nil, fmt.Errorf("top margin %.1fmm overlaps the header image; %q needs at least %.0fmm",
			geometry.Margins.Top, headerMode, printing.HeaderClearance())
	}

	family := cfg.FontFamily
	if family == "" {
		family = printing.DefaultFontFamily
	}

	metrics := cfg.FontMetrics
	if metrics == nil {
		metrics = printing.NewCoreFontMetrics(family)
	}

	newCanvas := cfg.NewCanvas
	if newCanvas == nil {
		newCanvas = func(g report.PageGeometry, opts printing.CanvasOptions) printing.Canvas {
			return printing.NewFpdfCanvas(g, opts)
		}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	letterhead := Letterhead{Institution: institution}

	return &ExportService{
		geometry:    geometry,
		institution: institution,
		headerMode:  headerMode,
		fontFamily:  family,
		creator:     cfg.Creator,
		measurer:    printing.NewMeasurer(metrics, cfg.LineHeightFactor),
		structured: &StructuredAssembler{
			Letterhead: letterhead,
			Dates:      dates,
			Reserve:    cfg.EntryReserve,
		},
		narrative: &NarrativeAssembler{Letterhead: letterhead},
		header:    cfg.Header,
		storage:   cfg.Storage,
		generator: cfg.Generator,
		metrics:   cfg.Metrics,
		newCanvas: newCanvas,
		validate:  newValidator(),
		now:       now,
		logger:    log,
	}, nil
}

// =============================================================================
// Export Operations
// =============================================================================

// ExportEntries builds the structured report of a student's dated entries
// and stores it
func (s *ExportService) ExportEntries(ctx context.Context, req ExportEntriesRequest) (*ExportResponse, error) {
	rctx, err := s.entriesRequestContext(req)
	if err != nil {
		return nil, err
	}
	return s.export(ctx, "export_entries", s.structured, rctx)
}

// ExportNarrative builds the free-text report of req.Text and stores it
func (s *ExportService) ExportNarrative(ctx context.Context, req ExportNarrativeRequest) (*ExportResponse, error) {
	rctx, err := s.narrativeRequestContext(req)
	if err != nil {
		return nil, err
	}
	return s.export(ctx, "export_narrative", s.narrative, rctx)
}

// GenerateAndExportNarrative asks the text generator for a narrative about
// the given entries, then exports it as a free-text report
func (s *ExportService) GenerateAndExportNarrative(ctx context.Context, req GenerateNarrativeRequest) (*ExportResponse, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}
	if s.generator == nil {
		return nil, shared.NewDomainError("GENERATION_UNAVAILABLE", "Narrative generation is not configured")
	}

	gctx := report.NewGenerationContext(
		req.Course.toDomain(),
		req.Student.toDomain(),
		req.Subject.toDomain(),
		toEntries(req.Entries),
	)

	ctx, span := telemetry.StartServiceSpan(ctx, "report_export", "generate_narrative",
		telemetry.WithAttribute(telemetry.SpanAttrEntries, len(gctx.Entries)))
	text, err := s.generator.Generate(ctx, report.BuildNarrativePrompt(gctx))
	if err != nil {
		telemetry.RecordError(span, err)
		span.End()
		s.logger.Error("narrative generation failed", zap.Error(err))
		return nil, fmt.Errorf("failed to generate narrative: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		span.End()
		return nil, shared.NewDomainError("EMPTY_NARRATIVE", "The generated narrative is empty")
	}
	telemetry.SetOK(span)
	span.End()

	resp, err := s.export(ctx, "export_narrative", s.narrative, gctx.WithText(text))
	if err != nil {
		return nil, err
	}
	resp.Text = text
	return resp, nil
}

// Preview lays out and serializes a report without storing it
func (s *ExportService) Preview(ctx context.Context, kind report.Kind, rctx report.Context) (*RenderedReport, error) {
	asm, err := s.assemblerFor(kind)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, s.logger, asm, rctx)
}

// PreviewEntries lays out the structured report of req without storing it
func (s *ExportService) PreviewEntries(ctx context.Context, req ExportEntriesRequest) (*RenderedReport, error) {
	rctx, err := s.entriesRequestContext(req)
	if err != nil {
		return nil, err
	}
	return s.Preview(ctx, report.KindPedagogicalEntries, rctx)
}

// PreviewNarrative lays out the free-text report of req without storing it
func (s *ExportService) PreviewNarrative(ctx context.Context, req ExportNarrativeRequest) (*RenderedReport, error) {
	rctx, err := s.narrativeRequestContext(req)
	if err != nil {
		return nil, err
	}
	return s.Preview(ctx, report.KindGeneratedNarrative, rctx)
}

// =============================================================================
// Internals
// =============================================================================

func (s *ExportService) entriesRequestContext(req ExportEntriesRequest) (report.Context, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return report.Context{}, err
	}
	return report.NewEntriesContext(
		req.Course.toDomain(),
		req.Student.toDomain(),
		req.Subject.toDomain(),
		toEntries(req.Entries),
	)
}

func (s *ExportService) narrativeRequestContext(req ExportNarrativeRequest) (report.Context, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return report.Context{}, err
	}
	return report.NewNarrativeContext(
		req.Course.toDomain(),
		req.Student.toDomain(),
		req.Subject.toDomain(),
		req.Text,
	), nil
}

func (s *ExportService) assemblerFor(kind report.Kind) (Assembler, error) {
	switch kind {
	case report.KindPedagogicalEntries:
		return s.structured, nil
	case report.KindGeneratedNarrative:
		return s.narrative, nil
	default:
		return nil, shared.NewDomainError("INVALID_INPUT", "Unknown report kind: "+kind.String())
	}
}

// export renders a report and stores it. Storage is the last step: a failed
// or cancelled generation never reaches it.
func (s *ExportService) export(ctx context.Context, method string, asm Assembler, rctx report.Context) (*ExportResponse, error) {
	start := time.Now()
	kind := asm.Kind()
	exportID := uuid.New().String()

	ctx, span := telemetry.StartServiceSpan(ctx, "report_export", method,
		telemetry.WithAttribute(telemetry.SpanAttrExportID, exportID),
		telemetry.WithAttribute(telemetry.SpanAttrReportKind, kind.String()))
	defer span.End()

	ctx, log := logger.WithExportID(ctx, s.logger, exportID)
	log = logger.WithTraceContext(ctx, log)

	rendered, err := s.render(ctx, log, asm, rctx)
	if err != nil {
		s.fail(ctx, span, log, kind, start, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrFilename, rendered.Filename,
		telemetry.SpanAttrEntries, rendered.Stats.Entries,
		telemetry.SpanAttrParagraphs, rendered.Stats.Paragraphs,
		telemetry.SpanAttrPages, rendered.Document.PageCount(),
		telemetry.SpanAttrBytes, len(rendered.PDF),
		telemetry.SpanAttrHeaderImage, rendered.HeaderImage,
	)

	stored, err := s.storage.Store(ctx, &printing.StoreRequest{
		Filename: rendered.Filename,
		PDFData:  rendered.PDF,
		StoredAt: s.now(),
	})
	if err != nil {
		s.fail(ctx, span, log, kind, start, err)
		return nil, fmt.Errorf("failed to store report: %w", err)
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrStorageKey, stored.Key)
	telemetry.SetOK(span)

	pages := rendered.Document.PageCount()
	s.metrics.RecordDocument(ctx, kind.String(), pages, stored.Size)
	s.metrics.RecordExport(ctx, kind.String(), time.Since(start), nil)

	log.Info("report exported",
		zap.String("kind", kind.String()),
		zap.String("filename", rendered.Filename),
		zap.String("key", stored.Key),
		zap.Int("pages", pages),
		zap.Int64("size", stored.Size),
		zap.Bool("header_image", rendered.HeaderImage),
		zap.Duration("duration", time.Since(start)))

	return &ExportResponse{
		ExportID:    exportID,
		Kind:        kind.String(),
		Filename:    rendered.Filename,
		StorageKey:  stored.Key,
		URL:         stored.URL,
		Size:        stored.Size,
		Pages:       pages,
		HeaderImage: rendered.HeaderImage,
	}, nil
}

// render lays out one document. A panic during assembly is recovered into a
// GenerationAbortError; the partial document is dropped.
func (s *ExportService) render(ctx context.Context, log *zap.Logger, asm Assembler, rctx report.Context) (rendered *RenderedReport, err error) {
	kind := asm.Kind()

	defer func() {
		if r := recover(); r != nil {
			rendered = nil
			err = printing.NewGenerationAbortError(
				fmt.Sprintf("unexpected failure while assembling %s", kind),
				fmt.Errorf("panic: %v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, printing.NewGenerationAbortError("export cancelled", err)
	}

	created := s.now()
	canvas := s.newCanvas(s.geometry, printing.CanvasOptions{
		FontFamily: s.fontFamily,
		Title:      kind.Title(),
		Author:     s.institution,
		Creator:    s.creator,
		CreatedAt:  created,
	})
	builder := printing.NewBuilder(s.geometry, s.measurer, canvas, log)

	headerRequested := s.embedHeader(ctx, log, builder, kind)

	stats, err := asm.Assemble(builder, rctx)
	if err != nil {
		var renderErr *printing.RenderError
		if errors.As(err, &renderErr) {
			return nil, err
		}
		return nil, printing.NewGenerationAbortError(
			fmt.Sprintf("failed to assemble %s", kind), err)
	}

	// the document is discarded when the caller gave up during assembly
	if err := ctx.Err(); err != nil {
		return nil, printing.NewGenerationAbortError("export cancelled", err)
	}

	var buf bytes.Buffer
	if err := builder.Output(&buf); err != nil {
		return nil, err
	}

	doc := builder.Document()
	drawn := len(doc.Pages) > 0 && len(doc.Pages[0].Images) > 0
	if headerRequested && !drawn {
		s.metrics.RecordHeaderFailure(ctx, kind.String())
	}

	return &RenderedReport{
		Kind:        kind,
		Filename:    report.FilenameFor(kind, rctx),
		Document:    doc,
		PDF:         buf.Bytes(),
		Stats:       *stats,
		HeaderImage: drawn,
	}, nil
}

// embedHeader resolves the letterhead image and hands it to the builder.
// A missing image is logged and counted; the export goes on without it.
// It returns true when an image was handed to the builder.
func (s *ExportService) embedHeader(ctx context.Context, log *zap.Logger, b *printing.Builder, kind report.Kind) bool {
	if s.header == nil {
		return false
	}

	asset, err := s.header.Resolve(ctx)
	if err != nil {
		log.Warn("header image unavailable, continuing without it", zap.Error(err))
		telemetry.AddEvent(telemetry.SpanFromContext(ctx), "header_image_unavailable",
			telemetry.SpanAttrErrorCode, errorCode(err))
		s.metrics.RecordHeaderFailure(ctx, kind.String())
		return false
	}

	b.EmbedHeader(asset, s.headerMode)
	return true
}

// fail records a failed export on the span, the log and the metrics
func (s *ExportService) fail(ctx context.Context, span trace.Span, log *zap.Logger, kind report.Kind, start time.Time, err error) {
	code := errorCode(err)
	telemetry.RecordError(span, err)
	telemetry.SetAttribute(span, telemetry.SpanAttrErrorCode, code)
	s.metrics.RecordExport(ctx, kind.String(), time.Since(start), err, telemetry.AttrErrorCode.String(code))

	log.Error("report export failed, nothing was saved",
		zap.String("kind", kind.String()),
		zap.String("error_code", code),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err))
}

// errorCode extracts the code of a render or domain error
func errorCode(err error) string {
	var renderErr *printing.RenderError
	if errors.As(err, &renderErr) {
		return renderErr.Code
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "CANCELLED"
	}
	return "UNKNOWN"
}
