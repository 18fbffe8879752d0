package report

import (
	"context"
	"fmt"
	"strings"
)

// NarrativePrompt is the instruction pair sent to a text generator to obtain
// a pedagogical narrative for a student.
type NarrativePrompt struct {
	System string
	User   string
	// Meta is forwarded to generators that accept structured context
	Meta NarrativeMeta
}

// NarrativeMeta is the structured context forwarded with a prompt
type NarrativeMeta struct {
	Course  *Course  `json:"course,omitempty"`
	Student *Student `json:"student,omitempty"`
	Subject *Subject `json:"subject,omitempty"`
}

// TextGenerator produces free-form report text from a prompt.
// The returned text is opaque: it is only split into paragraphs.
type TextGenerator interface {
	Generate(ctx context.Context, prompt NarrativePrompt) (string, error)
}

const narrativeSystemPrompt = `Eres un asesor pedagógico senior. Redacta un informe pedagógico claro, breve (300-500 palabras), en español neutro, con:
- Introducción con datos contextuales (curso, alumno, materia si aplica)
- Síntesis de intervenciones relevantes (fechas y foco)
- Conclusiones claves sobre cada intervención
- Observaciones sobre avances y dificultades
- Recomendaciones concretas (3-5 bullet points)
- Cierre con próximos pasos y responsables`

// BuildNarrativePrompt summarizes the entries of a report context into the
// prompt used to generate its narrative.
func BuildNarrativePrompt(ctx Context) NarrativePrompt {
	var summary strings.Builder
	for i, e := range ctx.Entries {
		if i > 0 {
			summary.WriteByte('\n')
		}
		line := fmt.Sprintf("- [%d] %s • %s • %s: %s", i+1, e.Date, e.SubjectLabel, e.Author, e.Body)
		summary.WriteString(strings.TrimSpace(line))
	}
	interventions := summary.String()
	if interventions == "" {
		interventions = "(sin registros)"
	}

	course := "N/D"
	if ctx.HasCourse() {
		course = ctx.Course.Name
	}
	student := "N/D"
	if ctx.HasStudent() {
		student = ctx.Student.FullName()
	}
	subject := "General"
	if ctx.HasSubject() {
		subject = ctx.Subject.Name
	}

	user := fmt.Sprintf(`Genera el informe a partir de estas intervenciones de asesores.
Contexto:
- Curso: %s
- Alumno: %s
- Materia: %s

Intervenciones:
%s

Formatea con subtítulos en mayúsculas (Introducción, Síntesis, Observaciones, Recomendaciones, Cierre).`,
		course, student, subject, interventions)

	return NarrativePrompt{
		System: narrativeSystemPrompt,
		User:   user,
		Meta: NarrativeMeta{
			Course:  ctx.Course,
			Student: ctx.Student,
			Subject: ctx.Subject,
		},
	}
}
