package report

import (
	"errors"
	"testing"

	"github.com/miescuela/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntriesContext(t *testing.T) {
	course := &Course{Name: "5A"}
	student := &Student{Surname: "Gomez", GivenName: "Ana"}

	t.Run("requires course", func(t *testing.T) {
		_, err := NewEntriesContext(nil, student, nil, nil)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, "INVALID_COURSE", domainErr.Code)
	})

	t.Run("requires student", func(t *testing.T) {
		_, err := NewEntriesContext(course, &Student{}, nil, nil)
		require.Error(t, err)
	})

	t.Run("copies its inputs", func(t *testing.T) {
		entries := []Entry{{Date: "2024-05-10", Author: "Lic. Ruiz", Body: "Buen avance"}}
		ctx, err := NewEntriesContext(course, student, nil, entries)
		require.NoError(t, err)

		entries[0].Body = "changed"
		course.Name = "changed"

		assert.Equal(t, "Buen avance", ctx.Entries[0].Body)
		assert.Equal(t, "5A", ctx.Course.Name)
		assert.False(t, ctx.HasSubject())
	})
}

func TestNewNarrativeContext(t *testing.T) {
	ctx := NewNarrativeContext(nil, nil, &Subject{Name: " "}, "texto")

	assert.False(t, ctx.HasCourse())
	assert.False(t, ctx.HasStudent())
	assert.False(t, ctx.HasSubject())
	assert.Equal(t, "texto", ctx.Text)
}

func TestStudent_FullName(t *testing.T) {
	assert.Equal(t, "Gomez Ana", Student{Surname: "Gomez", GivenName: "Ana"}.FullName())
	assert.Equal(t, "Ana", Student{GivenName: " Ana "}.FullName())
	assert.Equal(t, "", Student{}.FullName())
}

func TestNewGenerationContext_WithText(t *testing.T) {
	entries := []Entry{{Date: "2024-05-10", Author: "Lic. Ruiz", Body: "Buen avance"}}
	gen := NewGenerationContext(nil, &Student{Surname: "Gomez", GivenName: "Ana"}, nil, entries)

	entries[0].Body = "changed"
	require.Len(t, gen.Entries, 1)
	assert.Equal(t, "Buen avance", gen.Entries[0].Body)
	assert.False(t, gen.HasCourse())

	narrative := gen.WithText("INTRODUCCIÓN")
	assert.Equal(t, "INTRODUCCIÓN", narrative.Text)
	assert.Empty(t, narrative.Entries)
	assert.Equal(t, "Gomez Ana", narrative.Student.FullName())
	assert.NotSame(t, gen.Student, narrative.Student)
	assert.Empty(t, gen.Text)
}
