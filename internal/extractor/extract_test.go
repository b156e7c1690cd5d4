package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const coursePageFixture = `<!DOCTYPE html><html><head><title>Curso</title></head><body>
<div id="__next"></div>
<script>self.__next_f.push([0])</script>
<script>self.__next_f.push([1,"b:[0,0,0,{\"slug\":\"x\",\"content\":{\"content\":{\"title\":\"Course X\",\"slug\":\"x\",\"structure\":[{\"type\":\"MODULE\",\"data\":{\"id\":1,\"uuid\":\"u1\",\"title\":\"Mod 1\",\"structure\":[{\"type\":\"LESSON\",\"data\":{\"id\":10,\"uuid\":\"u10\",\"title\":\"Lesson A\",\"type\":4}}]}}]}}}]"])</script>
</body></html>`

// A payload carrying a literal "])" inside a string value defeats every
// primary framing and is only recovered by the script-by-script pass.
const trickyPageFixture = `<html><body>
<script>self.__next_f.push([1,"b:[0,0,0,{\"slug\":\"y\",\"content\":{\"content\":{\"title\":\"Closing ]) bracket\",\"slug\":\"y\",\"structure\":[]}}}]"])</script>
</body></html>`

const scalarPageFixture = `<html><body>
<script>self.__next_f.push([1,"[5,6,7]"])</script>
</body></html>`

func TestExtractCourseFixture(t *testing.T) {
	candidates := Extract(coursePageFixture)
	require.NotEmpty(t, candidates)

	record, ok := FindCourseRecord(candidates)
	require.True(t, ok)

	course := Simplify(record)
	assert.Equal(t, "Course X", course.Title)
	assert.Equal(t, "x", course.Slug)
	require.Len(t, course.Modules, 1)

	mod := course.Modules[0]
	assert.Equal(t, 1, mod.ID)
	assert.Equal(t, "u1", mod.UUID)
	assert.Equal(t, "Mod 1", mod.Title)
	require.Len(t, mod.Lessons, 1)

	lesson := mod.Lessons[0]
	assert.Equal(t, 10, lesson.ID)
	assert.Equal(t, "u10", lesson.UUID)
	assert.Equal(t, "Lesson A", lesson.Title)
	assert.Equal(t, 4, lesson.Type)
	assert.Equal(t, "ACTIVE", lesson.Status)
}

func TestExtractIsDeterministic(t *testing.T) {
	first, ok := FindCourseRecord(Extract(coursePageFixture))
	require.True(t, ok)

	second, ok := FindCourseRecord(Extract(coursePageFixture))
	require.True(t, ok)

	assert.Equal(t, first, second)
}

func TestExtractManualFallback(t *testing.T) {
	require.Empty(t, extractPrimary(trickyPageFixture))

	candidates := Extract(trickyPageFixture)
	require.NotEmpty(t, candidates)

	record, ok := FindCourseRecord(candidates)
	require.True(t, ok)

	course := Simplify(record)
	assert.Equal(t, "Closing ]) bracket", course.Title)
	assert.Empty(t, course.Modules)
}

func TestExtractFlattensArrays(t *testing.T) {
	candidates := Extract(scalarPageFixture)
	assert.Equal(t, []any{5.0, 6.0, 7.0}, candidates)

	_, ok := FindCourseRecord(candidates)
	assert.False(t, ok)
}

func TestExtractNothing(t *testing.T) {
	assert.Empty(t, Extract("<html><body><p>no data here</p></body></html>"))
}

func TestFindCourseRecord(t *testing.T) {
	course := map[string]any{"slug": "a", "content": map[string]any{}}
	nested := map[string]any{
		"content": map[string]any{
			"content": map[string]any{"title": "B"},
		},
	}

	tests := []struct {
		name       string
		candidates []any
		want       map[string]any
		found      bool
	}{
		{"top level slug and content", []any{1.0, "noise", course}, course, true},
		{"nested content content", []any{nested}, nested, true},
		{"slug without content", []any{map[string]any{"slug": "a"}}, nil, false},
		{"content without inner markers", []any{map[string]any{"content": map[string]any{"content": map[string]any{"x": 1.0}}}}, nil, false},
		{"first match wins", []any{nested, course}, nested, true},
		{"no candidates", nil, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FindCourseRecord(tt.candidates)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
