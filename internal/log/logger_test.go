package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	return m
}

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Format: "json", Output: &buf, Component: ComponentStorage})

	l.WithComponent(ComponentBill).Info("bill created", FieldBillID, 7)

	m := decodeLine(t, &buf)
	if m[FieldComponent] != ComponentBill {
		t.Fatalf("expected component %q, got %v", ComponentBill, m[FieldComponent])
	}
	if m[FieldBillID] != float64(7) {
		t.Fatalf("expected bill_id 7, got %v", m[FieldBillID])
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelWarn, Format: "json", Output: &buf})
	l.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}
}

func TestMiddlewareAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Level: slog.LevelInfo, Format: "json", Output: &buf})

	h := Middleware(base, func(*http.Request) string { return "req_abc" })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).InfoContext(r.Context(), "inside")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	m := decodeLine(t, &buf)
	if m[FieldRequestID] != "req_abc" {
		t.Fatalf("expected request id in log, got %v", m)
	}
}

func TestFromContextFallback(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Fatalf("expected fallback logger")
	}
}

func TestFieldsBuilder(t *testing.T) {
	f := NewFields().
		WithOperation(OpCreate).
		WithBill(3, "2024-03-01", "Ravi", "Adai", 2, 20).
		WithError(errors.New("boom"), ErrorTypeDatabase)
	if f[FieldOperation] != OpCreate || f[FieldBillID] != int64(3) || f[FieldErrorType] != ErrorTypeDatabase {
		t.Fatalf("unexpected fields %v", f)
	}
	if len(f.ToSlice()) != len(f)*2 {
		t.Fatalf("ToSlice length mismatch")
	}
	if _, ok := NewFields().WithError(nil, ErrorTypeDatabase)[FieldError]; ok {
		t.Fatalf("nil error must not be recorded")
	}
}

func TestStatusLevel(t *testing.T) {
	if StatusLevel(200) != slog.LevelInfo || StatusLevel(404) != slog.LevelWarn || StatusLevel(503) != slog.LevelError {
		t.Fatalf("unexpected status levels")
	}
}
