// Package report contains the Report bounded context.
// This context describes the student reports the school exports as printable
// documents: the report context (course, student, subject and its dated
// pedagogical entries or a generated narrative), paper geometry, and the
// deterministic filename an exported report is saved under.
package report
