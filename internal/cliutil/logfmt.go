package cliutil

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/example/deskd/internal/engine"
)

// LogRecord represents a structured log event ready for JSON encoding.
type LogRecord struct {
	Timestamp time.Time `json:"ts"`
	SessionID int64     `json:"session_id"`
	Event     string    `json:"event"`
	Status    string    `json:"status,omitempty"`
	Level     string    `json:"level"`
	Message   string    `json:"msg"`
}

// NewLogRecord converts an engine event into a structured log record. The
// message passes through secret redaction so command lines containing
// credentials do not leak into the daemon log.
func NewLogRecord(event engine.Event) LogRecord {
	level := event.Level
	if level == "" {
		level = "info"
	}
	return LogRecord{
		Timestamp: event.Timestamp,
		SessionID: event.SessionID,
		Event:     string(event.Type),
		Status:    string(event.Status),
		Level:     level,
		Message:   RedactSecrets(event.Message),
	}
}

// EncodeLogEvent encodes a log event to JSON, reporting errors to stderr if needed.
func EncodeLogEvent(enc *json.Encoder, stderr io.Writer, event engine.Event) {
	if enc == nil {
		return
	}
	record := NewLogRecord(event)
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	if err := enc.Encode(&record); err != nil {
		fmt.Fprintf(stderr, "error: encode log: %v\n", err)
	}
}
