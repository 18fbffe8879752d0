// Package report assembles pedagogical student reports on top of the
// printing layout engine and exports them to storage.
package report

import (
	"github.com/miescuela/backend/internal/domain/report"
	"github.com/miescuela/backend/internal/infrastructure/printing"
)

// PageBreakPolicy names how an assembler decides to start a new page
type PageBreakPolicy string

const (
	// FixedReserve breaks before a block when the cursor has passed a fixed
	// reserve above the content bottom, whatever the block's real height.
	FixedReserve PageBreakPolicy = "fixed_reserve"
	// MeasuredHeight breaks before a block when its measured height does not
	// fit below the cursor.
	MeasuredHeight PageBreakPolicy = "measured_height"
)

// Letterhead positions, in millimeters. The text sits right of the logo.
const (
	letterheadTop  = 20.0
	letterheadLeft = 40.0

	institutionAdvance = 7.0
	titleAdvance       = 13.0
	metadataGap        = 5.0
)

// Font sizes shared by both report kinds
const (
	institutionSize = 16.0
	titleSize       = 12.0
	metadataSize    = 12.0
	bodySize        = 12.0
)

// Assembler lays out one kind of report using only Builder primitives
type Assembler interface {
	// Kind is the report kind the assembler produces
	Kind() report.Kind
	// Policy is the page-break policy used for content blocks
	Policy() PageBreakPolicy
	// Assemble writes the whole report for rctx
	Assemble(b *printing.Builder, rctx report.Context) (*AssemblyStats, error)
}

// AssemblyStats counts what an assembler wrote
type AssemblyStats struct {
	Entries    int
	Paragraphs int
	Lines      int
}

// Letterhead writes the institutional heading and the report metadata
type Letterhead struct {
	Institution string
}

// Write prints the institution name and kind title next to the logo, then
// one line per present metadata field, then a gap before the content
func (l Letterhead) Write(b *printing.Builder, kind report.Kind, rctx report.Context) {
	b.Space(letterheadTop - b.Cursor())

	indent := letterheadLeft - b.Geometry().Margins.Left
	b.WriteLine(printing.Line{
		Text:    l.Institution,
		Style:   printing.Regular(institutionSize),
		Indent:  indent,
		Advance: institutionAdvance,
	})
	b.WriteLine(printing.Line{
		Text:    kind.Title(),
		Style:   printing.Regular(titleSize),
		Indent:  indent,
		Advance: titleAdvance,
	})

	meta := printing.Regular(metadataSize)
	if rctx.HasStudent() {
		b.WriteKeyValue("Alumno", rctx.Student.FullName(), meta)
	}
	if rctx.HasCourse() {
		b.WriteKeyValue("Curso", rctx.Course.Name, meta)
	}
	if rctx.HasSubject() {
		b.WriteKeyValue("Materia", rctx.Subject.Name, meta)
	}

	b.Space(metadataGap)
}
