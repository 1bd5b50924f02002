package logger

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// StructuredLogger plugs logrus into chi's middleware.RequestLogger.
type StructuredLogger struct {
	Logger *logrus.Logger
}

// NewLogEntry implements middleware.LogFormatter.
func (l *StructuredLogger) NewLogEntry(r *http.Request) middleware.LogEntry {
	fields := logrus.Fields{
		"method":      r.Method,
		"uri":         r.RequestURI,
		"remote_addr": r.RemoteAddr,
	}
	if reqID := middleware.GetReqID(r.Context()); reqID != "" {
		fields["req_id"] = reqID
	}
	return &StructuredLoggerEntry{Logger: l.Logger.WithFields(fields)}
}

type StructuredLoggerEntry struct {
	Logger logrus.FieldLogger
}

func (e *StructuredLoggerEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	e.Logger.WithFields(logrus.Fields{
		"resp_status":       status,
		"resp_bytes_length": bytes,
		"resp_elapsed_ms":   float64(elapsed.Nanoseconds()) / 1e6,
	}).Info("request complete")
}

func (e *StructuredLoggerEntry) Panic(v interface{}, stack []byte) {
	e.Logger.WithFields(logrus.Fields{
		"panic": fmt.Sprintf("%+v", v),
		"stack": string(stack),
	}).Error("request panicked")
}

// FromRequest returns the request-scoped entry, falling back to fallback when
// the request did not pass through the request logger.
func FromRequest(r *http.Request, fallback logrus.FieldLogger) logrus.FieldLogger {
	if entry, ok := middleware.GetLogEntry(r).(*StructuredLoggerEntry); ok {
		return entry.Logger
	}
	return fallback
}
