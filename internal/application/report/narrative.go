package report

import (
	"github.com/miescuela/backend/internal/domain/report"
	"github.com/miescuela/backend/internal/infrastructure/printing"
)

const paragraphGap = 8.0

// NarrativeAssembler lays out free text split into paragraphs. Every
// paragraph is measured before it is written and moves to the next page
// whole when it does not fit.
type NarrativeAssembler struct {
	Letterhead Letterhead
}

// Kind returns KindGeneratedNarrative
func (a *NarrativeAssembler) Kind() report.Kind {
	return report.KindGeneratedNarrative
}

// Policy returns MeasuredHeight
func (a *NarrativeAssembler) Policy() PageBreakPolicy {
	return MeasuredHeight
}

// Assemble writes the letterhead followed by the paragraphs of rctx.Text
func (a *NarrativeAssembler) Assemble(b *printing.Builder, rctx report.Context) (*AssemblyStats, error) {
	a.Letterhead.Write(b, a.Kind(), rctx)

	stats := &AssemblyStats{}
	for _, p := range SplitParagraphs(rctx.Text) {
		lines, err := b.WriteParagraph(p, printing.Regular(bodySize), paragraphGap)
		if err != nil {
			return stats, err
		}
		stats.Paragraphs++
		stats.Lines += lines
	}
	return stats, nil
}
