package report

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// FileExtension is appended to every exported report filename
const FileExtension = ".pdf"

// BuildFilename derives the save name of an exported report from its metadata.
//
// Present fields are joined with underscores in a fixed order: kind, student
// ("Alumno_<Surname>_<GivenName>"), course ("Curso_<Name>") and subject
// ("Materia_<Name>" with whitespace runs replaced by underscores). Absent
// fields are omitted rather than replaced by placeholders, so the result never
// contains an empty segment.
func BuildFilename(kind string, student *Student, course *Course, subject *Subject) string {
	parts := make([]string, 0, 4)

	if k := cleanSegment(kind); k != "" {
		parts = append(parts, k)
	}

	if student != nil {
		names := make([]string, 0, 2)
		if s := cleanSegment(student.Surname); s != "" {
			names = append(names, s)
		}
		if g := cleanSegment(student.GivenName); g != "" {
			names = append(names, g)
		}
		if len(names) > 0 {
			parts = append(parts, "Alumno_"+strings.Join(names, "_"))
		}
	}

	if course != nil {
		if c := cleanSegment(course.Name); c != "" {
			parts = append(parts, "Curso_"+c)
		}
	}

	if subject != nil {
		if s := cleanSegment(subject.Name); s != "" {
			parts = append(parts, "Materia_"+strings.Join(strings.Fields(s), "_"))
		}
	}

	return strings.Join(parts, "_") + FileExtension
}

// FilenameFor builds the save name of a report of the given kind
func FilenameFor(kind Kind, ctx Context) string {
	return BuildFilename(kind.String(), ctx.Student, ctx.Course, ctx.Subject)
}

// cleanSegment trims a filename segment, normalizes it to NFC and replaces
// path separators so a segment can never escape its directory.
func cleanSegment(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	return strings.NewReplacer("/", "-", "\\", "-").Replace(s)
}
