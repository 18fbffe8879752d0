package printing

import (
	"io"
	"math"

	"go.uber.org/zap"

	"github.com/miescuela/backend/internal/domain/report"
)

// Fixed cursor advances of the single-line primitives, in millimeters
const (
	HeadingAdvance  = 7.0
	KeyValueAdvance = 5.0
)

// Line is a single line of text written with WriteLine
type Line struct {
	Text  string
	Style Style
	// Indent is the horizontal offset from the left margin
	Indent float64
	// Advance is how far the cursor moves after the line
	Advance float64
}

// Builder lays out one document: it owns the vertical cursor, decides page
// breaks and forwards every placement to a Canvas.
//
// The cursor only moves down within a page and never passes the content
// bottom (page height minus bottom margin). A Builder is used by a single
// goroutine for the lifetime of one document.
type Builder struct {
	geometry report.PageGeometry
	measurer *Measurer
	canvas   Canvas
	logger   *zap.Logger

	doc    *Document
	cursor float64

	header     *HeaderAsset
	headerMode report.HeaderMode
}

// NewBuilder creates a builder. No page exists until the first write or
// NewPage call.
func NewBuilder(geometry report.PageGeometry, measurer *Measurer, canvas Canvas, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		geometry:   geometry,
		measurer:   measurer,
		canvas:     canvas,
		logger:     logger,
		doc:        &Document{Geometry: geometry},
		cursor:     geometry.Margins.Top,
		headerMode: report.HeaderModeFirstPage,
	}
}

// Geometry returns the page geometry
func (b *Builder) Geometry() report.PageGeometry {
	return b.geometry
}

// Measurer returns the measurer used for wrapping
func (b *Builder) Measurer() *Measurer {
	return b.measurer
}

// Document returns the layout record built so far
func (b *Builder) Document() *Document {
	return b.doc
}

// Cursor returns the current vertical position
func (b *Builder) Cursor() float64 {
	return b.cursor
}

// PageNumber returns the 1-based number of the current page, 0 before the
// first page
func (b *Builder) PageNumber() int {
	return len(b.doc.Pages)
}

// ContentWidth is the width available to wrapped text
func (b *Builder) ContentWidth() float64 {
	return b.geometry.UsableWidth()
}

// NewPage appends a page and moves the cursor to the top margin
func (b *Builder) NewPage() {
	b.canvas.AddPage()
	page := &Page{Number: len(b.doc.Pages) + 1}
	b.doc.Pages = append(b.doc.Pages, page)
	b.cursor = b.geometry.Margins.Top

	if b.header != nil && (b.headerMode == report.HeaderModeEveryPage || page.Number == 1) {
		b.stampHeader()
	}
}

// EnsureSpace starts a new page when a block of the given height does not fit
// between the cursor and the content bottom. It returns true when a page was
// added. An empty page is never abandoned: a block taller than the usable
// height stays on the page it starts on.
func (b *Builder) EnsureSpace(height float64) bool {
	if b.PageNumber() == 0 {
		b.NewPage()
		return true
	}
	if b.cursor+height <= b.geometry.ContentBottom() || b.atPageTop() {
		return false
	}
	b.NewPage()
	return true
}

// FitsWithin reports whether the cursor is still above limit. Callers use it
// to break pages with a fixed reserve instead of a measured height.
func (b *Builder) FitsWithin(limit float64) bool {
	return b.cursor <= limit
}

// Space moves the cursor down by dy, stopping at the content bottom.
// Negative values are ignored.
func (b *Builder) Space(dy float64) {
	b.ensureStarted()
	if dy <= 0 || math.IsNaN(dy) {
		return
	}
	b.cursor = math.Min(b.cursor+dy, b.geometry.ContentBottom())
}

// WriteLine writes one line of text at the cursor and advances by
// line.Advance
func (b *Builder) WriteLine(line Line) {
	b.writeSingle(BlockLine, line.Text, line.Style, line.Indent, line.Advance)
}

// WriteHeading writes one line and advances by HeadingAdvance
func (b *Builder) WriteHeading(text string, style Style) {
	b.writeSingle(BlockHeading, text, style, 0, HeadingAdvance)
}

// WriteKeyValue writes "key: value" and advances by KeyValueAdvance
func (b *Builder) WriteKeyValue(key, value string, style Style) {
	b.writeSingle(BlockKeyValue, key+": "+value, style, 0, KeyValueAdvance)
}

// WriteParagraph wraps text to the content width and writes it at the cursor.
// The cursor advances by the measured height of the block, then by gap.
//
// A paragraph that fits on a page is never split. A paragraph taller than the
// usable height starts on a fresh page and flows line by line across as many
// pages as needed; every chunk after the first is marked Continued.
//
// It returns the number of lines written. Whitespace-only text writes nothing
// but still advances by gap.
func (b *Builder) WriteParagraph(text string, style Style, gap float64) (int, error) {
	m, err := b.measurer.Measure(text, style, b.ContentWidth())
	if err != nil {
		return 0, err
	}
	if len(m.Lines) == 0 {
		b.Space(gap)
		return 0, nil
	}

	if m.Height <= b.geometry.UsableHeight() {
		b.EnsureSpace(m.Height)
		b.place(BlockParagraph, m.Lines, style, 0, m.Height, false)
	} else {
		b.flow(m.Lines, style)
	}

	b.Space(gap)
	return len(m.Lines), nil
}

// EmbedHeader sets the letterhead image. With HeaderModeFirstPage it is drawn
// on the first page only; with HeaderModeEveryPage on every page. A nil asset
// or a drawing failure is logged and the document continues without it.
func (b *Builder) EmbedHeader(asset *HeaderAsset, mode report.HeaderMode) {
	if asset == nil {
		b.logger.Warn("header image unavailable, continuing without it")
		return
	}
	if !mode.IsValid() {
		mode = report.HeaderModeFirstPage
	}
	b.header = asset
	b.headerMode = mode

	n := b.PageNumber()
	if n > 0 && (mode == report.HeaderModeEveryPage || n == 1) {
		b.stampHeader()
	}
}

// Output serializes the document. An empty document still has one page.
func (b *Builder) Output(w io.Writer) error {
	b.ensureStarted()
	return b.canvas.Render(w)
}

func (b *Builder) ensureStarted() {
	if b.PageNumber() == 0 {
		b.NewPage()
	}
}

func (b *Builder) atPageTop() bool {
	page := b.doc.currentPage()
	return page != nil && len(page.Blocks) == 0 && b.cursor <= b.geometry.Margins.Top
}

func (b *Builder) writeSingle(kind BlockKind, text string, style Style, indent, advance float64) {
	if advance < 0 || math.IsNaN(advance) {
		advance = 0
	}
	b.EnsureSpace(advance)
	b.place(kind, []string{text}, style, indent, advance, false)
}

// flow writes lines across pages, filling each page before breaking
func (b *Builder) flow(lines []string, style Style) {
	lineHeight := b.measurer.LineHeight(style.Size)
	if !b.atPageTop() {
		b.NewPage()
	}

	continued := false
	for len(lines) > 0 {
		available := b.geometry.ContentBottom() - b.cursor
		n := int(math.Floor(available/lineHeight + 1e-9))
		if n < 1 {
			n = 1
		}
		if n > len(lines) {
			n = len(lines)
		}

		b.place(BlockParagraph, lines[:n], style, 0, b.measurer.HeightOf(n, style.Size), continued)
		lines = lines[n:]
		continued = true

		if len(lines) > 0 {
			b.NewPage()
		}
	}
}

// place draws lines at the cursor and records the block
func (b *Builder) place(kind BlockKind, lines []string, style Style, indent, height float64, continued bool) {
	x := b.geometry.Margins.Left + indent
	lineHeight := b.measurer.LineHeight(style.Size)
	for i, line := range lines {
		if line == "" {
			continue
		}
		b.canvas.DrawText(x, b.cursor+float64(i)*lineHeight, line, style)
	}

	page := b.doc.currentPage()
	page.Blocks = append(page.Blocks, Block{
		Kind:      kind,
		Lines:     append([]string(nil), lines...),
		X:         x,
		Y:         b.cursor,
		Height:    height,
		Style:     style,
		Continued: continued,
	})

	b.cursor = math.Min(b.cursor+height, b.geometry.ContentBottom())
}

func (b *Builder) stampHeader() {
	if err := b.canvas.DrawImage(b.header, HeaderImageArea); err != nil {
		b.logger.Warn("failed to draw header image, continuing without it",
			zap.String("image", b.header.Name),
			zap.Error(err))
		b.header = nil
		return
	}
	page := b.doc.currentPage()
	page.Images = append(page.Images, ImagePlacement{Name: b.header.Name, Area: HeaderImageArea})
}
