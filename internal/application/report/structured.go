package report

import (
	"strings"

	"github.com/miescuela/backend/internal/domain/report"
	"github.com/miescuela/backend/internal/infrastructure/printing"
)

// DefaultEntryReserve is the space that must remain below the cursor for an
// entry to start on the current page, in millimeters
const DefaultEntryReserve = 40.0

const (
	entryHeadingSize     = 14.0
	entryAttributionSize = 10.0
	entryBodyGap         = 5.0
	entryGap             = 10.0
)

// StructuredAssembler lays out dated pedagogical entries. Each entry is a
// bold date heading, the wrapped body and the advisor attribution.
type StructuredAssembler struct {
	Letterhead Letterhead
	Dates      report.DateFormatter
	// Reserve is the FixedReserve distance above the content bottom
	Reserve float64
}

// Kind returns KindPedagogicalEntries
func (a *StructuredAssembler) Kind() report.Kind {
	return report.KindPedagogicalEntries
}

// Policy returns FixedReserve
func (a *StructuredAssembler) Policy() PageBreakPolicy {
	return FixedReserve
}

// Assemble writes the letterhead followed by every entry in order
func (a *StructuredAssembler) Assemble(b *printing.Builder, rctx report.Context) (*AssemblyStats, error) {
	a.Letterhead.Write(b, a.Kind(), rctx)

	reserve := a.Reserve
	if reserve <= 0 {
		reserve = DefaultEntryReserve
	}
	limit := b.Geometry().ContentBottom() - reserve

	stats := &AssemblyStats{}
	for _, entry := range rctx.Entries {
		if !b.FitsWithin(limit) {
			b.NewPage()
		}

		b.WriteHeading(a.heading(entry, rctx), printing.Bold(entryHeadingSize))

		lines, err := b.WriteParagraph(entry.Body, printing.Regular(bodySize), entryBodyGap)
		if err != nil {
			return stats, err
		}

		b.WriteLine(printing.Line{
			Text:    "Asesor pedagógico: " + strings.TrimSpace(entry.Author),
			Style:   printing.Regular(entryAttributionSize),
			Advance: entryGap,
		})

		stats.Entries++
		stats.Lines += lines + 2
	}
	return stats, nil
}

// heading is "Fecha: <date>", followed by the entry's subject when the report
// spans several subjects
func (a *StructuredAssembler) heading(entry report.Entry, rctx report.Context) string {
	heading := "Fecha: " + a.Dates.Format(entry.Date)
	if !rctx.HasSubject() {
		if label := strings.TrimSpace(entry.SubjectLabel); label != "" {
			heading += " - " + label
		}
	}
	return heading
}
