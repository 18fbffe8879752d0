package report

import (
	"strings"
	"time"

	"golang.org/x/text/language"
)

// isoLayout is used when the locale has no known numeric date layout
const isoLayout = "2006-01-02"

var (
	dateLocales = []language.Tag{
		language.Spanish,
		language.AmericanEnglish,
		language.BritishEnglish,
		language.German,
		language.French,
		language.Portuguese,
	}
	dateLayouts = []string{
		"02/01/2006",
		"01/02/2006",
		"02/01/2006",
		"02.01.2006",
		"02/01/2006",
		"02/01/2006",
	}
	dateMatcher = language.NewMatcher(dateLocales)

	inputLayouts = []string{isoLayout, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"}
)

// DateFormatter renders entry dates in a locale's numeric date layout
type DateFormatter struct {
	tag    language.Tag
	layout string
}

// NewDateFormatter creates a formatter for a BCP 47 locale such as "es-AR".
// Unknown locales fall back to ISO dates; malformed tags are an error.
func NewDateFormatter(locale string) (DateFormatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return DateFormatter{}, err
	}

	_, idx, confidence := dateMatcher.Match(tag)
	layout := isoLayout
	if confidence != language.No {
		layout = dateLayouts[idx]
	}
	return DateFormatter{tag: tag, layout: layout}, nil
}

// Locale returns the locale the formatter was built for
func (f DateFormatter) Locale() language.Tag {
	return f.tag
}

// Format renders an ISO date (or RFC 3339 timestamp) in the locale layout.
// Values that cannot be parsed are returned unchanged.
func (f DateFormatter) Format(raw string) string {
	value := strings.TrimSpace(raw)
	layout := f.layout
	if layout == "" {
		layout = isoLayout
	}
	for _, in := range inputLayouts {
		if t, err := time.Parse(in, value); err == nil {
			return t.Format(layout)
		}
	}
	return value
}
