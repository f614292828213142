package distribute

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"NewsletterBuilder/internal/config"
)

func writeArtifact(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTelegramSenderDistribute(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendDocument", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "42", r.FormValue("chat_id"))
		assert.Equal(t, "Morning Brief", r.FormValue("caption"))

		file, header, err := r.FormFile("document")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "newsletter-2025-03-10.txt", header.Filename)
		raw, _ := io.ReadAll(file)
		assert.Equal(t, "hello", string(raw))

		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":777}}`))
	}))
	defer server.Close()

	sender, err := NewTelegramSender(config.TelegramConfig{BotToken: "TOKEN", ChatID: "42"}, "Morning Brief", server.Client())
	require.NoError(t, err)
	sender.apiBase = server.URL

	id, err := sender.Distribute(context.Background(), writeArtifact(t, "newsletter-2025-03-10.txt", "hello"))
	require.NoError(t, err)
	assert.Equal(t, "777", id)
}

func TestTelegramSenderErrors(t *testing.T) {
	t.Parallel()

	_, err := NewTelegramSender(config.TelegramConfig{BotToken: "x"}, "", nil)
	require.Error(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer server.Close()

	sender, err := NewTelegramSender(config.TelegramConfig{BotToken: "T", ChatID: "1"}, "", server.Client())
	require.NoError(t, err)
	sender.apiBase = server.URL

	_, err = sender.Distribute(context.Background(), writeArtifact(t, "a.txt", "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")

	_, err = sender.Distribute(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}

func TestDriveUploaderDistribute(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.Contains(r.URL.Path, "/files"), r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		body := string(raw)
		assert.Contains(t, body, `"name":"newsletter-2025-03-10.epub"`)
		assert.Contains(t, body, `"parents":["folder-9"]`)
		assert.Contains(t, body, "application/epub+zip")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"file-1"}`))
	}))
	defer server.Close()

	uploader, err := NewDriveUploader(context.Background(), "folder-9",
		option.WithEndpoint(server.URL+"/"),
		option.WithHTTPClient(server.Client()),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	assert.Equal(t, "gdrive", uploader.Name())

	id, err := uploader.Distribute(context.Background(), writeArtifact(t, "newsletter-2025-03-10.epub", "PK"))
	require.NoError(t, err)
	assert.Equal(t, "file-1", id)
}

func TestContentType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "application/epub+zip", contentType("a/b.EPUB"))
	assert.Equal(t, "text/plain; charset=utf-8", contentType("b.txt"))
	assert.Equal(t, "application/octet-stream", contentType("c"))
}
