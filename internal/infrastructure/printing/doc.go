// Package printing lays out paginated report documents and renders them to PDF.
//
// This package contains:
// - Measurer, which wraps text to a column width and computes block heights
// - Builder, which owns the vertical cursor and decides page breaks
// - Canvas, the drawing backend, with FpdfCanvas built on go-pdf/fpdf
// - AssetResolver, which loads and caches the letterhead image
// - PDFStorage, with FileSystemStorage for local disk
//
// Example usage:
//
//	geometry := report.DefaultPageGeometry()
//	measurer := NewMeasurer(NewCoreFontMetrics(DefaultFontFamily), DefaultLineHeightFactor)
//	builder := NewBuilder(geometry, measurer, NewFpdfCanvas(geometry, CanvasOptions{}), logger)
//
//	builder.WriteHeading("Fecha: 12/03/2024", Bold(14))
//	if _, err := builder.WriteParagraph(body, Regular(12), 5); err != nil {
//	    return err
//	}
//
//	var buf bytes.Buffer
//	if err := builder.Output(&buf); err != nil {
//	    return err
//	}
package printing
