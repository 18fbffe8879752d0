package report

import (
	"math"

	"github.com/miescuela/backend/internal/domain/shared"
)

// Margins represents the page margins in millimeters
type Margins struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// NewMargins creates a new Margins value object
func NewMargins(top, right, bottom, left float64) (Margins, error) {
	for _, v := range []float64{top, right, bottom, left} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Margins{}, shared.NewDomainError("INVALID_MARGINS", "Margins must be finite numbers")
		}
		if v < 0 {
			return Margins{}, shared.NewDomainError("INVALID_MARGINS", "Margins cannot be negative")
		}
		if v > 100 {
			return Margins{}, shared.NewDomainError("INVALID_MARGINS", "Margins cannot exceed 100mm")
		}
	}
	return Margins{
		Top:    top,
		Right:  right,
		Bottom: bottom,
		Left:   left,
	}, nil
}

// DefaultMargins returns the 15mm margins used for student reports
func DefaultMargins() Margins {
	return Margins{
		Top:    15,
		Right:  15,
		Bottom: 15,
		Left:   15,
	}
}

// IsZero returns true if all margins are zero
func (m Margins) IsZero() bool {
	return m.Top == 0 && m.Right == 0 && m.Bottom == 0 && m.Left == 0
}

// PageGeometry is the fixed page size and margins of a document.
// All values are in millimeters.
type PageGeometry struct {
	Width   float64
	Height  float64
	Margins Margins
}

// NewPageGeometry builds the geometry for a paper size and orientation.
// The usable area left by the margins must be positive in both directions.
func NewPageGeometry(size PaperSize, orientation Orientation, margins Margins) (PageGeometry, error) {
	if !size.IsValid() {
		return PageGeometry{}, shared.NewDomainError("INVALID_PAPER_SIZE", "Invalid paper size: "+size.String())
	}
	if orientation == "" {
		orientation = OrientationPortrait
	}
	if !orientation.IsValid() {
		return PageGeometry{}, shared.NewDomainError("INVALID_ORIENTATION", "Invalid orientation: "+orientation.String())
	}

	w, h := size.Dimensions()
	if orientation == OrientationLandscape {
		w, h = h, w
	}

	g := PageGeometry{Width: w, Height: h, Margins: margins}
	if g.UsableWidth() <= 0 || g.UsableHeight() <= 0 {
		return PageGeometry{}, shared.NewDomainError("INVALID_MARGINS", "Margins leave no usable area on the page")
	}
	return g, nil
}

// DefaultPageGeometry returns A4 portrait with the default margins
func DefaultPageGeometry() PageGeometry {
	return PageGeometry{Width: 210, Height: 297, Margins: DefaultMargins()}
}

// UsableWidth is the page width minus the left and right margins
func (g PageGeometry) UsableWidth() float64 {
	return g.Width - g.Margins.Left - g.Margins.Right
}

// UsableHeight is the page height minus the top and bottom margins
func (g PageGeometry) UsableHeight() float64 {
	return g.Height - g.Margins.Top - g.Margins.Bottom
}

// ContentBottom is the lowest vertical position content may reach
func (g PageGeometry) ContentBottom() float64 {
	return g.Height - g.Margins.Bottom
}
