package report

import (
	"github.com/miescuela/backend/internal/domain/report"
)

// =============================================================================
// Request DTOs
// =============================================================================

// CourseDTO identifies a course
type CourseDTO struct {
	Name string `json:"name" validate:"required,max=100"`
}

// StudentDTO identifies a student; at least one name part is required
type StudentDTO struct {
	Surname   string `json:"surname" validate:"required_without=GivenName,max=100"`
	GivenName string `json:"given_name" validate:"required_without=Surname,max=100"`
}

// SubjectDTO restricts a report to one subject
type SubjectDTO struct {
	Name string `json:"name" validate:"required,max=100"`
}

// EntryDTO is one dated pedagogical intervention
type EntryDTO struct {
	Date         string `json:"date" validate:"max=40"`
	Author       string `json:"author" validate:"max=200"`
	Body         string `json:"body" validate:"max=20000"`
	SubjectLabel string `json:"subject_label" validate:"max=100"`
}

// ExportEntriesRequest asks for a structured report of dated entries
type ExportEntriesRequest struct {
	Course  *CourseDTO  `json:"course" validate:"required"`
	Student *StudentDTO `json:"student" validate:"required"`
	Subject *SubjectDTO `json:"subject" validate:"omitempty"`
	Entries []EntryDTO  `json:"entries" validate:"max=500,dive"`
}

// ExportNarrativeRequest asks for a free-text report of the given text
type ExportNarrativeRequest struct {
	Course  *CourseDTO  `json:"course" validate:"omitempty"`
	Student *StudentDTO `json:"student" validate:"omitempty"`
	Subject *SubjectDTO `json:"subject" validate:"omitempty"`
	Text    string      `json:"text" validate:"required,max=100000"`
}

// GenerateNarrativeRequest asks for a narrative to be generated from entries
// and exported as a free-text report
type GenerateNarrativeRequest struct {
	Course  *CourseDTO  `json:"course" validate:"omitempty"`
	Student *StudentDTO `json:"student" validate:"omitempty"`
	Subject *SubjectDTO `json:"subject" validate:"omitempty"`
	Entries []EntryDTO  `json:"entries" validate:"required,min=1,max=500,dive"`
}

// =============================================================================
// Response DTOs
// =============================================================================

// ExportResponse describes a stored report
type ExportResponse struct {
	ExportID    string `json:"export_id"`
	Kind        string `json:"kind"`
	Filename    string `json:"filename"`
	StorageKey  string `json:"storage_key"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	Pages       int    `json:"pages"`
	HeaderImage bool   `json:"header_image"`
	// Text is the generated narrative, set by GenerateAndExportNarrative
	Text string `json:"text,omitempty"`
}

// =============================================================================
// Conversions
// =============================================================================

func (d *CourseDTO) toDomain() *report.Course {
	if d == nil {
		return nil
	}
	return &report.Course{Name: d.Name}
}

func (d *StudentDTO) toDomain() *report.Student {
	if d == nil {
		return nil
	}
	return &report.Student{Surname: d.Surname, GivenName: d.GivenName}
}

func (d *SubjectDTO) toDomain() *report.Subject {
	if d == nil {
		return nil
	}
	return &report.Subject{Name: d.Name}
}

func toEntries(dtos []EntryDTO) []report.Entry {
	entries := make([]report.Entry, len(dtos))
	for i, d := range dtos {
		entries[i] = report.Entry{
			Date:         d.Date,
			Author:       d.Author,
			Body:         d.Body,
			SubjectLabel: d.SubjectLabel,
		}
	}
	return entries
}
