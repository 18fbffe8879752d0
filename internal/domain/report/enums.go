package report

// Kind identifies the kind of report being exported. Its value is the
// leading segment of the exported filename.
type Kind string

const (
	// KindPedagogicalEntries is the structured report built from dated entries
	KindPedagogicalEntries Kind = "Reporte_Informes_Pedagogicos"
	// KindGeneratedNarrative is the free-text report built from generated prose
	KindGeneratedNarrative Kind = "Informe_Pedagogico_IA"
)

// IsValid checks if the Kind is a valid value
func (k Kind) IsValid() bool {
	switch k {
	case KindPedagogicalEntries, KindGeneratedNarrative:
		return true
	}
	return false
}

// String returns the string representation of Kind
func (k Kind) String() string {
	return string(k)
}

// Title returns the printed title of the report kind
func (k Kind) Title() string {
	switch k {
	case KindPedagogicalEntries:
		return "Reporte de Calificaciones"
	case KindGeneratedNarrative:
		return "Informe Pedagógico (IA)"
	default:
		return string(k)
	}
}

// PaperSize represents the paper size for printing
type PaperSize string

const (
	PaperSizeA4     PaperSize = "A4"     // 210mm x 297mm
	PaperSizeA5     PaperSize = "A5"     // 148mm x 210mm
	PaperSizeLetter PaperSize = "LETTER" // 215.9mm x 279.4mm
	PaperSizeLegal  PaperSize = "LEGAL"  // 215.9mm x 355.6mm
)

// IsValid checks if the PaperSize is a valid value
func (p PaperSize) IsValid() bool {
	switch p {
	case PaperSizeA4, PaperSizeA5, PaperSizeLetter, PaperSizeLegal:
		return true
	}
	return false
}

// String returns the string representation of PaperSize
func (p PaperSize) String() string {
	return string(p)
}

// Dimensions returns the portrait paper dimensions in millimeters (width, height)
func (p PaperSize) Dimensions() (width, height float64) {
	switch p {
	case PaperSizeA4:
		return 210, 297
	case PaperSizeA5:
		return 148, 210
	case PaperSizeLetter:
		return 215.9, 279.4
	case PaperSizeLegal:
		return 215.9, 355.6
	default:
		return 210, 297 // Default to A4
	}
}

// AllPaperSizes returns all valid PaperSize values
func AllPaperSizes() []PaperSize {
	return []PaperSize{PaperSizeA4, PaperSizeA5, PaperSizeLetter, PaperSizeLegal}
}

// Orientation represents the page orientation
type Orientation string

const (
	OrientationPortrait  Orientation = "PORTRAIT"
	OrientationLandscape Orientation = "LANDSCAPE"
)

// IsValid checks if the Orientation is a valid value
func (o Orientation) IsValid() bool {
	return o == OrientationPortrait || o == OrientationLandscape
}

// String returns the string representation of Orientation
func (o Orientation) String() string {
	return string(o)
}

// HeaderMode states where the institutional header image is stamped.
type HeaderMode string

const (
	// HeaderModeFirstPage stamps the header once, on the first page only.
	HeaderModeFirstPage HeaderMode = "first_page"
	// HeaderModeEveryPage stamps the header on every page as a letterhead.
	HeaderModeEveryPage HeaderMode = "every_page"
)

// IsValid checks if the HeaderMode is a valid value
func (m HeaderMode) IsValid() bool {
	return m == HeaderModeFirstPage || m == HeaderModeEveryPage
}

// String returns the string representation of HeaderMode
func (m HeaderMode) String() string {
	return string(m)
}
