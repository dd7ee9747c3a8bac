package gzippedhttp

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipString(t *testing.T, input string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	_, err := gzipWriter.Write([]byte(input))
	require.NoError(t, err)
	require.NoError(t, gzipWriter.Close())
	return buf.Bytes()
}

func TestGzipResponse(t *testing.T) {
	handler := GzipResponse(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"essay not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"essays":[]}`))
	}))

	t.Run("compresses successful responses", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.Header.Set("Accept-Encoding", "gzip")
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "gzip", recorder.Header().Get("Content-Encoding"))

		reader, err := gzip.NewReader(recorder.Body)
		require.NoError(t, err)
		body, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, `{"essays":[]}`, string(body))
	})

	t.Run("error responses stay plain", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/missing", nil)
		request.Header.Set("Accept-Encoding", "gzip")
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusNotFound, recorder.Code)
		assert.Empty(t, recorder.Header().Get("Content-Encoding"))
		assert.Equal(t, `{"error":"essay not found"}`, recorder.Body.String())
	})

	t.Run("clients without gzip get plain bodies", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Empty(t, recorder.Header().Get("Content-Encoding"))
		assert.Equal(t, `{"essays":[]}`, recorder.Body.String())
	})
}

func TestUngzipRequest(t *testing.T) {
	handler := UngzipRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		_, _ = w.Write(body)
	}))

	t.Run("decompresses gzip bodies", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(gzipString(t, `{"title":"t"}`)))
		request.Header.Set("Content-Encoding", "gzip")
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)

		assert.Equal(t, `{"title":"t"}`, recorder.Body.String())
	})

	t.Run("rejects broken gzip", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("not gzip"))
		request.Header.Set("Content-Encoding", "gzip")
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("plain bodies pass through", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("plain")))

		assert.Equal(t, "plain", recorder.Body.String())
	})
}
