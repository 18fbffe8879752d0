package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildFilename(t *testing.T) {
	student := &Student{Surname: "Gomez", GivenName: "Ana"}
	course := &Course{Name: "5A"}
	subject := &Subject{Name: "Lengua y Literatura"}

	tests := []struct {
		name    string
		kind    string
		student *Student
		course  *Course
		subject *Subject
		want    string
	}{
		{
			name:    "all fields present",
			kind:    "Informe",
			student: student,
			course:  course,
			subject: subject,
			want:    "Informe_Alumno_Gomez_Ana_Curso_5A_Materia_Lengua_y_Literatura.pdf",
		},
		{
			name:    "subject omitted",
			kind:    "Informe",
			student: student,
			course:  course,
			want:    "Informe_Alumno_Gomez_Ana_Curso_5A.pdf",
		},
		{
			name:    "student omitted",
			kind:    "Informe",
			course:  course,
			subject: subject,
			want:    "Informe_Curso_5A_Materia_Lengua_y_Literatura.pdf",
		},
		{
			name: "only kind",
			kind: "Informe",
			want: "Informe.pdf",
		},
		{
			name:    "empty subject name is treated as absent",
			kind:    "Informe",
			student: student,
			course:  course,
			subject: &Subject{Name: "   "},
			want:    "Informe_Alumno_Gomez_Ana_Curso_5A.pdf",
		},
		{
			name:    "subject whitespace runs collapse to one underscore",
			kind:    "Informe",
			student: student,
			course:  course,
			subject: &Subject{Name: " Ciencias \t Naturales\n"},
			want:    "Informe_Alumno_Gomez_Ana_Curso_5A_Materia_Ciencias_Naturales.pdf",
		},
		{
			name:    "missing given name leaves no empty segment",
			kind:    "Informe",
			student: &Student{Surname: "Gomez"},
			course:  course,
			want:    "Informe_Alumno_Gomez_Curso_5A.pdf",
		},
		{
			name:    "path separators are neutralized",
			kind:    "Informe",
			student: student,
			course:  &Course{Name: "5/A"},
			want:    "Informe_Alumno_Gomez_Ana_Curso_5-A.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildFilename(tt.kind, tt.student, tt.course, tt.subject)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "__")
			assert.True(t, strings.HasSuffix(got, FileExtension))
		})
	}
}

func TestBuildFilename_IsDeterministic(t *testing.T) {
	student := &Student{Surname: "Pérez", GivenName: "Juan"}
	course := &Course{Name: "3B"}

	first := BuildFilename(KindPedagogicalEntries.String(), student, course, nil)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, BuildFilename(KindPedagogicalEntries.String(), student, course, nil))
	}
	assert.Equal(t, "Reporte_Informes_Pedagogicos_Alumno_Pérez_Juan_Curso_3B.pdf", first)
}

func TestBuildFilename_NormalizesToNFC(t *testing.T) {
	// "Pe" + combining acute accent + "rez"
	decomposed := &Student{Surname: "Pe\u0301rez", GivenName: "Juan"}
	composed := &Student{Surname: "P\u00e9rez", GivenName: "Juan"}

	assert.Equal(t,
		BuildFilename("Informe", composed, nil, nil),
		BuildFilename("Informe", decomposed, nil, nil))
}

func TestFilenameFor(t *testing.T) {
	ctx := NewNarrativeContext(&Course{Name: "5A"}, nil, &Subject{Name: "Historia"}, "texto")

	assert.Equal(t, "Informe_Pedagogico_IA_Curso_5A_Materia_Historia.pdf",
		FilenameFor(KindGeneratedNarrative, ctx))
}
