package printing

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// DefaultLineHeightFactor converts a font size in points into a line height
// in millimeters: height = lines * size * factor.
const DefaultLineHeightFactor = 0.35

// Measurer wraps text to a column width and computes block heights.
// It is stateless apart from its font metrics and safe for concurrent use.
type Measurer struct {
	metrics          FontMetrics
	lineHeightFactor float64
}

// NewMeasurer creates a Measurer. A non-positive factor selects
// DefaultLineHeightFactor.
func NewMeasurer(metrics FontMetrics, lineHeightFactor float64) *Measurer {
	if lineHeightFactor <= 0 || math.IsNaN(lineHeightFactor) || math.IsInf(lineHeightFactor, 0) {
		lineHeightFactor = DefaultLineHeightFactor
	}
	return &Measurer{
		metrics:          metrics,
		lineHeightFactor: lineHeightFactor,
	}
}

// LineHeightFactor returns the factor used by HeightOf
func (m *Measurer) LineHeightFactor() float64 {
	return m.lineHeightFactor
}

// TextWidth returns the rendered width of a single line of text
func (m *Measurer) TextWidth(text string, style Style) float64 {
	return m.metrics.TextWidth(text, style)
}

// LineHeight returns the height of one line at the given font size
func (m *Measurer) LineHeight(fontSize float64) float64 {
	return fontSize * m.lineHeightFactor
}

// HeightOf returns the height of a block of lineCount lines
func (m *Measurer) HeightOf(lineCount int, fontSize float64) float64 {
	if lineCount <= 0 {
		return 0
	}
	return float64(lineCount) * m.LineHeight(fontSize)
}

// Wrap splits text into lines that each render no wider than maxWidth.
//
// Hard line breaks in the input are kept. Interior blank lines are kept as
// empty strings so paragraph spacing survives in the rendered block; joining
// the lines with spaces therefore reproduces the words, not the whitespace.
// Leading and trailing blank lines are dropped. Runs of
// whitespace inside a line collapse to a single space. A word wider than
// maxWidth is broken between characters.
//
// Wrap is deterministic: the same text, style and width always produce the
// same lines.
func (m *Measurer) Wrap(text string, style Style, maxWidth float64) ([]string, error) {
	if err := validateMeasureInput(text, style, maxWidth); err != nil {
		return nil, err
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var lines []string
	for _, raw := range strings.Split(text, "\n") {
		words := strings.Fields(raw)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		lines = append(lines, m.wrapWords(words, style, maxWidth)...)
	}

	return trimBlankLines(lines), nil
}

// Measurement is the result of measuring a block of text
type Measurement struct {
	Lines  []string
	Height float64
}

// Measure wraps text and computes the height of the resulting block
func (m *Measurer) Measure(text string, style Style, maxWidth float64) (Measurement, error) {
	lines, err := m.Wrap(text, style, maxWidth)
	if err != nil {
		return Measurement{}, err
	}
	return Measurement{
		Lines:  lines,
		Height: m.HeightOf(len(lines), style.Size),
	}, nil
}

func (m *Measurer) wrapWords(words []string, style Style, maxWidth float64) []string {
	var lines []string
	current := ""

	for _, word := range words {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if m.metrics.TextWidth(candidate, style) <= maxWidth {
			current = candidate
			continue
		}

		if current != "" {
			lines = append(lines, current)
			current = ""
		}

		if m.metrics.TextWidth(word, style) <= maxWidth {
			current = word
			continue
		}

		pieces := m.breakWord(word, style, maxWidth)
		lines = append(lines, pieces[:len(pieces)-1]...)
		current = pieces[len(pieces)-1]
	}

	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

// breakWord splits a word wider than maxWidth into pieces that fit.
// A single character wider than maxWidth becomes a piece on its own.
func (m *Measurer) breakWord(word string, style Style, maxWidth float64) []string {
	var pieces []string
	var piece strings.Builder

	for _, r := range word {
		next := piece.String() + string(r)
		if piece.Len() > 0 && m.metrics.TextWidth(next, style) > maxWidth {
			pieces = append(pieces, piece.String())
			piece.Reset()
		}
		piece.WriteRune(r)
	}
	if piece.Len() > 0 {
		pieces = append(pieces, piece.String())
	}
	return pieces
}

func trimBlankLines(lines []string) []string {
	start, end := 0, len(lines)
	for start < end && lines[start] == "" {
		start++
	}
	for end > start && lines[end-1] == "" {
		end--
	}
	if start == end {
		return []string{}
	}
	return lines[start:end]
}

func validateMeasureInput(text string, style Style, maxWidth float64) error {
	if !utf8.ValidString(text) {
		return NewMeasurementError("text is not valid UTF-8", nil)
	}
	if !isPositiveFinite(style.Size) {
		return NewMeasurementError(fmt.Sprintf("invalid font size: %v", style.Size), nil)
	}
	if !isPositiveFinite(maxWidth) {
		return NewMeasurementError(fmt.Sprintf("invalid column width: %v", maxWidth), nil)
	}
	return nil
}

func isPositiveFinite(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
