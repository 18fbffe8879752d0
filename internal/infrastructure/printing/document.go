package printing

import (
	"github.com/miescuela/backend/internal/domain/report"
)

// BlockKind identifies the primitive that produced a block
type BlockKind string

const (
	BlockHeading   BlockKind = "heading"
	BlockParagraph BlockKind = "paragraph"
	BlockKeyValue  BlockKind = "key_value"
	BlockLine      BlockKind = "line"
)

// Block is a run of text placed on a page.
// Y is the cursor position where the block starts (the baseline of its first
// line) and Height is how far the block advanced the cursor.
type Block struct {
	Kind      BlockKind
	Lines     []string
	X         float64
	Y         float64
	Height    float64
	Style     Style
	Continued bool
}

// Bottom is the cursor position after the block
func (b Block) Bottom() float64 {
	return b.Y + b.Height
}

// ImagePlacement records an image drawn on a page
type ImagePlacement struct {
	Name string
	Area Rect
}

// Page is the layout record of one page
type Page struct {
	Number int
	Blocks []Block
	Images []ImagePlacement
}

// Document is the layout record of a generated report: every block and image
// placed, page by page, in write order. It mirrors what was drawn on the
// canvas and is used to inspect the layout without parsing the PDF.
type Document struct {
	Geometry report.PageGeometry
	Pages    []*Page
}

// PageCount returns the number of pages
func (d *Document) PageCount() int {
	return len(d.Pages)
}

// Blocks returns every block of the document in write order
func (d *Document) Blocks() []Block {
	var blocks []Block
	for _, p := range d.Pages {
		blocks = append(blocks, p.Blocks...)
	}
	return blocks
}

// Lines returns every text line of the document in write order
func (d *Document) Lines() []string {
	var lines []string
	for _, p := range d.Pages {
		for _, b := range p.Blocks {
			lines = append(lines, b.Lines...)
		}
	}
	return lines
}

func (d *Document) currentPage() *Page {
	if len(d.Pages) == 0 {
		return nil
	}
	return d.Pages[len(d.Pages)-1]
}
