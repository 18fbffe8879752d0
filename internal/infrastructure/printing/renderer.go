package printing

import (
	"io"
)

// FontStyle is the weight/slant of a font, using the PDF core font style letters
type FontStyle string

const (
	FontRegular    FontStyle = ""
	FontBold       FontStyle = "B"
	FontItalic     FontStyle = "I"
	FontBoldItalic FontStyle = "BI"
)

// Style is the font size (in points) and font style of a piece of text.
// Every write call takes an explicit Style; there is no persistent font state.
type Style struct {
	Size float64
	Font FontStyle
}

// Regular returns a regular style of the given size
func Regular(size float64) Style {
	return Style{Size: size, Font: FontRegular}
}

// Bold returns a bold style of the given size
func Bold(size float64) Style {
	return Style{Size: size, Font: FontBold}
}

// Rect is an area on the page in millimeters
type Rect struct {
	X float64
	Y float64
	W float64
	H float64
}

// FontMetrics measures rendered text width.
// Implementations must be safe for concurrent use and deterministic.
type FontMetrics interface {
	// TextWidth returns the width of text in millimeters
	TextWidth(text string, style Style) float64
}

// Canvas is the drawing backend the Builder writes to.
// Coordinates are millimeters from the top-left corner of the page; text is
// positioned by its baseline.
type Canvas interface {
	// AddPage appends a page and makes it current
	AddPage()
	// DrawText draws a single line of text
	DrawText(x, y float64, text string, style Style)
	// DrawImage draws an image asset into the given area
	DrawImage(asset *HeaderAsset, area Rect) error
	// Render serializes the document
	Render(w io.Writer) error
}
