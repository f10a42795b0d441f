package cliutil

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/example/deskd/internal/engine"
	"github.com/example/deskd/internal/session"
)

func TestNewLogRecord(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	record := NewLogRecord(engine.Event{
		Timestamp: ts,
		SessionID: 12,
		Type:      engine.EventTypeExit,
		Status:    session.StatusCompleted,
		Message:   "exit_code=0",
		Level:     "info",
	})

	if record.Timestamp != ts {
		t.Fatalf("Timestamp = %v, want %v", record.Timestamp, ts)
	}
	if record.SessionID != 12 || record.Event != "exit" || record.Status != "completed" {
		t.Fatalf("record = %+v", record)
	}
	if record.Message != "exit_code=0" {
		t.Fatalf("Message = %q", record.Message)
	}
}

func TestNewLogRecordDefaultsLevel(t *testing.T) {
	record := NewLogRecord(engine.Event{SessionID: 1, Type: engine.EventTypeStart})
	if record.Level != "info" {
		t.Fatalf("Level = %q, want info", record.Level)
	}
}

func TestNewLogRecordRedactsCommandLine(t *testing.T) {
	record := NewLogRecord(engine.Event{
		SessionID: 3,
		Type:      engine.EventTypeStart,
		Message:   `export API_KEY=hunter2 && curl -H "x: ${SECRET_TOKEN}" api`,
	})
	if strings.Contains(record.Message, "hunter2") {
		t.Fatalf("secret value leaked: %q", record.Message)
	}
	if strings.Contains(record.Message, "SECRET_TOKEN") {
		t.Fatalf("template variable leaked: %q", record.Message)
	}
	if !strings.Contains(record.Message, "[redacted]") {
		t.Fatalf("no redaction marker in %q", record.Message)
	}
}

func TestEncodeLogEvent(t *testing.T) {
	var out, errOut bytes.Buffer
	enc := json.NewEncoder(&out)

	EncodeLogEvent(enc, &errOut, engine.Event{
		SessionID: 5,
		Type:      engine.EventTypeTerminated,
		Status:    session.StatusTerminated,
		Message:   "force terminated",
		Level:     "warn",
	})

	if errOut.Len() != 0 {
		t.Fatalf("stderr output: %q", errOut.String())
	}
	var decoded map[string]any
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("decode encoded record: %v", err)
	}
	if decoded["event"] != "terminated" || decoded["level"] != "warn" {
		t.Fatalf("decoded = %v", decoded)
	}
	if decoded["ts"] == "" || decoded["ts"] == nil {
		t.Fatal("encoded record missing timestamp")
	}
	if decoded["session_id"] != float64(5) {
		t.Fatalf("session_id = %v, want 5", decoded["session_id"])
	}
}

func TestRedactSecrets(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain text untouched",
			input: "echo hello",
			want:  "echo hello",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "template variable",
			input: "curl ${UPSTREAM_SECRET}",
			want:  "curl ${[redacted]}",
		},
		{
			name:  "password assignment",
			input: "PASSWORD=swordfish run",
			want:  "PASSWORD=[redacted] run",
		},
		{
			name:  "quoted token",
			input: `TOKEN: "abc123"`,
			want:  `TOKEN: "[redacted]"`,
		},
		{
			name:  "aws key",
			input: "AWS_SECRET_ACCESS_KEY=wJalrXUtnFEMI deploy",
			want:  "AWS_SECRET_ACCESS_KEY=[redacted] deploy",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := RedactSecrets(tc.input); got != tc.want {
				t.Fatalf("RedactSecrets(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}
