package downloader

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchWatchData(t *testing.T) {
	lessons := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bff/aulas/les-uuid-1/watch", r.URL.Path)
		assert.Equal(t, "Bearer tok-abc", r.Header.Get("Authorization"))
		assert.Equal(t, "pk-test-123", r.Header.Get("api_key"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"videoId": "987654321",
			"description": "<p>Olá</p>",
			"complementaries": [
				{"id": 1, "title": "Guia.pdf", "file": {"url": "https://cdn.example.com/guia.pdf"}}
			]
		}`))
	}))
	defer lessons.Close()

	d := newTestDownloader(t, "https://cursos.example.com.br")
	d.LessonsAPI = lessons.URL
	d.APIKey = "pk-test-123"
	d.Auth = &Auth{AccessToken: "tok-abc"}

	watch, err := d.fetchWatchData("les-uuid-1")
	require.NoError(t, err)
	assert.Equal(t, "987654321", watch.VideoId)
	assert.Equal(t, "<p>Olá</p>", watch.Description)
	require.Len(t, watch.Complementaries, 1)
	assert.Equal(t, "Guia.pdf", watch.Complementaries[0].Title)
	assert.Equal(t, "https://cdn.example.com/guia.pdf", watch.Complementaries[0].File.URL)
}

func TestDownloadAttachment(t *testing.T) {
	payload := []byte("conteúdo do anexo")
	lessons := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/lessons-complementaries/download", r.URL.Path)
		assert.Equal(t, "Guia.pdf", r.URL.Query().Get("fileName"))
		assert.Equal(t, "https://cdn.example.com/guia.pdf", r.URL.Query().Get("fileUrl"))
		assert.Equal(t, "pk-test-123", r.URL.Query().Get("api_key"))
		w.Write(payload)
	}))
	defer lessons.Close()

	d := newTestDownloader(t, "https://cursos.example.com.br")
	d.LessonsAPI = lessons.URL
	d.APIKey = "pk-test-123"

	outputDir := t.TempDir()
	attachment := Complementary{Id: 1, Title: "Guia.pdf"}
	attachment.File.URL = "https://cdn.example.com/guia.pdf"

	require.NoError(t, d.downloadAttachment(outputDir, attachment))

	data, err := os.ReadFile(filepath.Join(outputDir, "Guia.pdf"))
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestDownloadAttachmentSanitizesName(t *testing.T) {
	lessons := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer lessons.Close()

	d := newTestDownloader(t, "https://cursos.example.com.br")
	d.LessonsAPI = lessons.URL

	outputDir := t.TempDir()
	attachment := Complementary{Id: 2, Title: "../../etc/passwd"}
	attachment.File.URL = "https://cdn.example.com/x"

	require.NoError(t, d.downloadAttachment(outputDir, attachment))

	// The attachment title must never escape the lesson directory.
	entries, err := os.ReadDir(outputDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, strings.ContainsAny(entries[0].Name(), `/\`))
}

func TestSaveDescription(t *testing.T) {
	d := newTestDownloader(t, "https://cursos.example.com.br")
	outputDir := t.TempDir()

	require.NoError(t, d.saveDescription(outputDir, "<p>Olá <strong>mundo</strong></p>"))

	data, err := os.ReadFile(filepath.Join(outputDir, "Descrição.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Olá **mundo**")
}

func TestDownloadLessonVideoUnsupportedType(t *testing.T) {
	d := newTestDownloader(t, "https://cursos.example.com.br")

	err := d.downloadLessonVideo(t.TempDir(), 9, "whatever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported lesson type 9")
}
