package dom

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<html><body><form><label for="email">Email</label><input id="email"></form></body></html>`

func compress(t *testing.T, encoding string, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	switch encoding {
	case "gzip":
		w := gzip.NewWriter(&buf)
		_, err := w.Write([]byte(data))
		require.NoError(t, err)
		require.NoError(t, w.Close())
	case "br":
		w := brotli.NewWriter(&buf)
		_, err := w.Write([]byte(data))
		require.NoError(t, err)
		require.NoError(t, w.Close())
	case "deflate":
		w := zlib.NewWriter(&buf)
		_, err := w.Write([]byte(data))
		require.NoError(t, err)
		require.NoError(t, w.Close())
	default:
		buf.WriteString(data)
	}
	return buf.Bytes()
}

func TestLoadFromURL(t *testing.T) {
	for _, enc := range []string{"", "gzip", "br", "deflate"} {
		t.Run("encoding="+enc, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Contains(t, r.Header.Get("Accept-Encoding"), "br")
				if enc != "" {
					w.Header().Set("Content-Encoding", enc)
				}
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				_, _ = w.Write(compress(t, enc, samplePage))
			}))
			defer srv.Close()

			m, err := Load(context.Background(), srv.URL, srv.Client())
			require.NoError(t, err)
			assert.NotNil(t, ElementByID(m.Root(), "email"))
		})
	}
}

func TestLoadRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Load(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(samplePage), 0o600))

	m, err := Load(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, "Email", TextContent(LabelFor(m.Root(), "email")))

	_, err = Load(context.Background(), filepath.Join(t.TempDir(), "missing.html"), nil)
	assert.Error(t, err)
}
