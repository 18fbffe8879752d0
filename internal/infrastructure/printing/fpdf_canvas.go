package printing

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/miescuela/backend/internal/domain/report"
)

// DefaultFontFamily is the core PDF font used for report text
const DefaultFontFamily = "Helvetica"

// coreFontFamilies are the font families built into every PDF reader
var coreFontFamilies = map[string]bool{
	"courier":   true,
	"helvetica": true,
	"arial":     true,
	"times":     true,
}

// IsCoreFontFamily reports whether family can be used without embedding a font
func IsCoreFontFamily(family string) bool {
	return coreFontFamilies[strings.ToLower(family)]
}

// CanvasOptions contains document-level settings for a FpdfCanvas
type CanvasOptions struct {
	FontFamily string
	Title      string
	Author     string
	Creator    string
	// CreatedAt pins the document creation date. Zero means now.
	CreatedAt time.Time
}

// FpdfCanvas draws report documents with github.com/go-pdf/fpdf.
// A FpdfCanvas belongs to a single document and is not safe for concurrent use.
type FpdfCanvas struct {
	pdf        *fpdf.Fpdf
	family     string
	translate  func(string) string
	registered map[string]bool
}

// NewFpdfCanvas creates a canvas for one document with the given page geometry.
// Automatic page breaks are disabled: pagination is decided by the Builder.
func NewFpdfCanvas(geometry report.PageGeometry, opts CanvasOptions) *FpdfCanvas {
	family := opts.FontFamily
	if family == "" {
		family = DefaultFontFamily
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: geometry.Width, Ht: geometry.Height},
	})
	pdf.SetMargins(geometry.Margins.Left, geometry.Margins.Top, geometry.Margins.Right)
	pdf.SetAutoPageBreak(false, geometry.Margins.Bottom)
	pdf.SetCatalogSort(true)

	if opts.Title != "" {
		pdf.SetTitle(opts.Title, true)
	}
	if opts.Author != "" {
		pdf.SetAuthor(opts.Author, true)
	}
	if opts.Creator != "" {
		pdf.SetCreator(opts.Creator, true)
	}
	if !opts.CreatedAt.IsZero() {
		pdf.SetCreationDate(opts.CreatedAt)
		pdf.SetModificationDate(opts.CreatedAt)
	}

	return &FpdfCanvas{
		pdf:        pdf,
		family:     family,
		translate:  pdf.UnicodeTranslatorFromDescriptor(""),
		registered: make(map[string]bool),
	}
}

// AddPage appends a page
func (c *FpdfCanvas) AddPage() {
	c.pdf.AddPage()
}

// DrawText draws one line of text with its baseline at y
func (c *FpdfCanvas) DrawText(x, y float64, text string, style Style) {
	c.pdf.SetFont(c.family, string(style.Font), style.Size)
	c.pdf.Text(x, y, c.translate(text))
}

// DrawImage draws a header asset. A failure leaves the canvas usable.
func (c *FpdfCanvas) DrawImage(asset *HeaderAsset, area Rect) error {
	if asset == nil {
		return NewAssetLoadError("no image to draw", nil)
	}

	options := fpdf.ImageOptions{ImageType: asset.Type}
	if !c.registered[asset.Name] {
		c.pdf.RegisterImageOptionsReader(asset.Name, options, bytes.NewReader(asset.Data))
		if err := c.pdf.Error(); err != nil {
			c.pdf.ClearError()
			return NewAssetLoadError("failed to register header image", err)
		}
		c.registered[asset.Name] = true
	}

	c.pdf.ImageOptions(asset.Name, area.X, area.Y, area.W, area.H, false, options, 0, "")
	if err := c.pdf.Error(); err != nil {
		c.pdf.ClearError()
		return NewAssetLoadError("failed to draw header image", err)
	}
	return nil
}

// PageCount returns the number of pages added so far
func (c *FpdfCanvas) PageCount() int {
	return c.pdf.PageCount()
}

// Render serializes the document as PDF
func (c *FpdfCanvas) Render(w io.Writer) error {
	if err := c.pdf.Output(w); err != nil {
		return NewRenderError(ErrCodeRenderFailed, "failed to serialize PDF", err)
	}
	return nil
}

// CoreFontMetrics measures text with the metrics of the PDF core fonts.
// It uses the same font family and character translation as FpdfCanvas, so a
// measured width is the rendered width.
type CoreFontMetrics struct {
	mu        sync.Mutex
	pdf       *fpdf.Fpdf
	family    string
	translate func(string) string
}

// NewCoreFontMetrics creates metrics for a core font family
func NewCoreFontMetrics(family string) *CoreFontMetrics {
	if family == "" {
		family = DefaultFontFamily
	}
	pdf := fpdf.New("P", "mm", "A4", "")
	return &CoreFontMetrics{
		pdf:       pdf,
		family:    family,
		translate: pdf.UnicodeTranslatorFromDescriptor(""),
	}
}

// TextWidth returns the width of text in millimeters
func (m *CoreFontMetrics) TextWidth(text string, style Style) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pdf.SetFont(m.family, string(style.Font), style.Size)
	return m.pdf.GetStringWidth(m.translate(text))
}
