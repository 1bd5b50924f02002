package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("loud", "json", nil)
	require.Error(t, err)
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := New("info", "xml", nil)
	require.Error(t, err)
}

func TestNewTextFormat(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("warn", "text", &buf)
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestRequestLoggerWritesJSONEntry(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("info", "json", &buf)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(&StructuredLogger{Logger: log}))
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		FromRequest(r, log).Info("inside handler")
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var inside, done map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &inside))
	require.NoError(t, json.Unmarshal(lines[1], &done))

	assert.Equal(t, "inside handler", inside["msg"])
	assert.NotEmpty(t, inside["req_id"])
	assert.Equal(t, "request complete", done["msg"])
	assert.Equal(t, float64(http.StatusTeapot), done["resp_status"])
	assert.Equal(t, "GET", done["method"])
}

func TestFromRequestFallback(t *testing.T) {
	fallback := logrus.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, logrus.FieldLogger(fallback), FromRequest(req, fallback))
}
