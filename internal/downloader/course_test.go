package downloader

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A trimmed course page. The payload carries the usual streaming-render
// escaping, so decoding it exercises the same path as production pages.
const coursePageHTML = `<!DOCTYPE html>
<html><body>
<script>self.__next_f.push([1,"a:warmup"])</script>
<script>self.__next_f.push([1,"b:[\"$\",\"$L16\",null,{\"content\":{\"content\":{\"title\":\"Curso de Go\",\"slug\":\"curso-de-go\",\"structure\":[{\"type\":\"MODULE\",\"data\":{\"id\":1,\"uuid\":\"mod-1\",\"title\":\"Introdução\",\"structure\":[{\"type\":\"LESSON\",\"data\":{\"id\":10,\"uuid\":\"les-1\",\"title\":\"Boas-vindas\",\"type\":1,\"status\":\"ACTIVE\"}},{\"type\":\"LESSON\",\"data\":{\"id\":11,\"uuid\":\"les-2\",\"title\":\"Vídeo no Vimeo\",\"type\":7,\"status\":\"ACTIVE\"}}]}}]}}}]"])</script>
</body></html>`

func TestFetchCourseData(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(coursePageHTML))
	}))
	defer server.Close()

	d := newTestDownloader(t, server.URL)
	course := Course{Name: "Curso de Go", URL: server.URL + "/curso/curso-de-go", Slug: "curso-de-go"}

	data, err := d.fetchCourseData(course)
	require.NoError(t, err)
	assert.Equal(t, "Curso de Go", data.Title)
	require.Len(t, data.Modules, 1)
	assert.Equal(t, "Introdução", data.Modules[0].Title)
	require.Len(t, data.Modules[0].Lessons, 2)
	assert.Equal(t, "les-2", data.Modules[0].Lessons[1].UUID)
	assert.Equal(t, 7, data.Modules[0].Lessons[1].Type)

	// Second call must come from the cache.
	_, err = d.fetchCourseData(course)
	require.NoError(t, err)
	assert.Equal(t, 1, hits)
}

func TestFetchCourseDataNoRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>Página sem dados.</p></body></html>"))
	}))
	defer server.Close()

	d := newTestDownloader(t, server.URL)

	_, err := d.fetchCourseData(Course{Name: "Vazio", URL: server.URL + "/curso/vazio", Slug: "vazio"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no course data found")
}

func TestDownloadStateRoundTrip(t *testing.T) {
	d := newTestDownloader(t, "https://cursos.example.com.br")

	_, err := d.loadDownloadState("meu-curso")
	assert.Error(t, err)

	state := &DownloadState{Completed: map[string]bool{"les-1": true}}
	require.NoError(t, d.saveDownloadState("meu-curso", state))

	loaded, err := d.loadDownloadState("meu-curso")
	require.NoError(t, err)
	assert.True(t, loaded.Completed["les-1"])
	assert.False(t, loaded.LastSync.IsZero())
}

func TestDownloadCourseSkipsFinishedAndUnsupported(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(coursePageHTML))
	}))
	defer server.Close()

	d := newTestDownloader(t, server.URL)

	// les-1 has an unsupported type and les-2 is already on disk, so the
	// queue stays empty and no lesson endpoint is ever called.
	require.NoError(t, d.saveDownloadState("curso-de-go", &DownloadState{
		Completed: map[string]bool{"les-2": true},
	}))

	course := Course{Name: "Curso de Go", URL: server.URL + "/curso/curso-de-go", Slug: "curso-de-go"}
	require.NoError(t, d.DownloadCourse(course))

	assert.DirExists(t, filepath.Join(d.BasePath, "Curso de Go"))
	assert.NoDirExists(t, filepath.Join(d.BasePath, "Curso de Go", "1. Introdução"))
}
