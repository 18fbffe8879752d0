package report

import (
	"strings"

	"github.com/miescuela/backend/internal/domain/shared"
)

// Course is the course (grade and division) a student attends
type Course struct {
	Name string `json:"name"`
}

// Student identifies the student a report is about
type Student struct {
	Surname   string `json:"surname"`
	GivenName string `json:"given_name"`
}

// FullName returns "Surname GivenName" with absent parts omitted
func (s Student) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(s.Surname) + " " + strings.TrimSpace(s.GivenName))
}

// Subject is the school subject a report is restricted to
type Subject struct {
	Name string `json:"name"`
}

// Entry is one dated pedagogical intervention written by an advisor
type Entry struct {
	Date         string `json:"date"`
	Author       string `json:"author"`
	Body         string `json:"body"`
	SubjectLabel string `json:"subject_label,omitempty"`
}

// Context carries the metadata and content of one report export.
// A Context is built once per export and never modified afterwards;
// constructors copy their slice arguments.
type Context struct {
	Course  *Course
	Student *Student
	Subject *Subject
	Entries []Entry
	Text    string
}

// NewEntriesContext creates the context of a structured report.
// Course and student are required; subject is optional.
func NewEntriesContext(course *Course, student *Student, subject *Subject, entries []Entry) (Context, error) {
	if course == nil || strings.TrimSpace(course.Name) == "" {
		return Context{}, shared.NewDomainError("INVALID_COURSE", "Course is required for an entries report")
	}
	if student == nil || student.FullName() == "" {
		return Context{}, shared.NewDomainError("INVALID_STUDENT", "Student is required for an entries report")
	}

	copied := make([]Entry, len(entries))
	copy(copied, entries)

	return Context{
		Course:  cloneCourse(course),
		Student: cloneStudent(student),
		Subject: cloneSubject(subject),
		Entries: copied,
	}, nil
}

// NewNarrativeContext creates the context of a free-text report.
// Every metadata field is optional.
func NewNarrativeContext(course *Course, student *Student, subject *Subject, text string) Context {
	return Context{
		Course:  cloneCourse(course),
		Student: cloneStudent(student),
		Subject: cloneSubject(subject),
		Text:    text,
	}
}

// NewGenerationContext creates the context a narrative is generated from.
// Every metadata field is optional.
func NewGenerationContext(course *Course, student *Student, subject *Subject, entries []Entry) Context {
	copied := make([]Entry, len(entries))
	copy(copied, entries)

	return Context{
		Course:  cloneCourse(course),
		Student: cloneStudent(student),
		Subject: cloneSubject(subject),
		Entries: copied,
	}
}

// WithText returns a free-text copy of the context carrying text.
// Entries are dropped; the receiver is left untouched.
func (c Context) WithText(text string) Context {
	return NewNarrativeContext(c.Course, c.Student, c.Subject, text)
}

// HasSubject reports whether the report is restricted to a single subject
func (c Context) HasSubject() bool {
	return c.Subject != nil && strings.TrimSpace(c.Subject.Name) != ""
}

// HasStudent reports whether a student with a printable name is present
func (c Context) HasStudent() bool {
	return c.Student != nil && c.Student.FullName() != ""
}

// HasCourse reports whether a course with a printable name is present
func (c Context) HasCourse() bool {
	return c.Course != nil && strings.TrimSpace(c.Course.Name) != ""
}

func cloneCourse(c *Course) *Course {
	if c == nil {
		return nil
	}
	v := *c
	return &v
}

func cloneStudent(s *Student) *Student {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneSubject(s *Subject) *Subject {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
