package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpload(t *testing.T) {
	var gotName, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		b, _ := io.ReadAll(f)
		gotName, gotBody = hdr.Filename, string(b)
		_ = json.NewEncoder(w).Encode(map[string]string{"url": "https://files.local/" + hdr.Filename})
	}))
	defer srv.Close()

	c := New(srv.URL, 1024, 0)
	url, err := c.Upload(context.Background(), "docs/logo.png", strings.NewReader("PNG..."))
	require.NoError(t, err)
	assert.Equal(t, "https://files.local/logo.png", url)
	assert.Equal(t, "logo.png", gotName)
	assert.Equal(t, "PNG...", gotBody)
}

func TestUploadErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/nourl" {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"disk full"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, 4, 0).Upload(context.Background(), "a.txt", strings.NewReader("12345"))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = New(srv.URL, 4, 0).Upload(context.Background(), "a.txt", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = New(srv.URL, 0, 0).Upload(context.Background(), "a.txt", strings.NewReader("1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	_, err = New(srv.URL+"/nourl", 0, 0).Upload(context.Background(), "a.txt", strings.NewReader("1"))
	assert.ErrorIs(t, err, ErrNoURL)
}
