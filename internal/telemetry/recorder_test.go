package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
)

// freshInstruments makes initInstruments re-run against the current (noop)
// global MeterProvider during tests.
func freshInstruments(t *testing.T) {
	t.Helper()
	resetInstruments()
	t.Cleanup(resetInstruments)
}

// --- helper functions ---

func TestStatusStr(t *testing.T) {
	if got := statusStr(nil); got != "ok" {
		t.Errorf("statusStr(nil) = %q, want \"ok\"", got)
	}
	if got := statusStr(errors.New("boom")); got != "error" {
		t.Errorf("statusStr(err) = %q, want \"error\"", got)
	}
}

func TestTruncateOutput(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"short", "hello", 10, "hello"},
		{"exact", "abcde", 5, "abcde"},
		{"long", "abcdefghij", 5, "abcde…"},
		{"empty", "", 10, ""},
		{"multibyte boundary", "ééé", 3, "é…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateOutput(tt.in, tt.limit); got != tt.want {
				t.Errorf("truncateOutput(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
			}
		})
	}
}

func TestSeverity(t *testing.T) {
	if got := severity(nil); got != otellog.SeverityInfo {
		t.Errorf("severity(nil) = %v, want SeverityInfo", got)
	}
	if got := severity(errors.New("err")); got != otellog.SeverityError {
		t.Errorf("severity(err) = %v, want SeverityError", got)
	}
}

func TestErrKV(t *testing.T) {
	if kv := errKV(nil); kv.Value.AsString() != "" {
		t.Errorf("errKV(nil) value = %q, want empty", kv.Value.AsString())
	}
	if kv := errKV(errors.New("test error")); kv.Value.AsString() != "test error" {
		t.Errorf("errKV(err) value = %q, want %q", kv.Value.AsString(), "test error")
	}
}

func TestEnabled(t *testing.T) {
	t.Setenv(EnvMetricsURL, "")
	t.Setenv(EnvLogsURL, "")
	if Enabled() {
		t.Error("Enabled() = true with no endpoints set")
	}
	t.Setenv(EnvLogsURL, "http://localhost:4318/v1/logs")
	if !Enabled() {
		t.Error("Enabled() = false with logs endpoint set")
	}
}

func TestInit_NoEndpoints(t *testing.T) {
	t.Setenv(EnvMetricsURL, "")
	t.Setenv(EnvLogsURL, "")
	shutdown, err := Init(context.Background(), "dev")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

// --- Record* functions (noop providers, must not panic) ---

func TestRecordCheck(t *testing.T) {
	freshInstruments(t)
	ctx := context.Background()

	RecordCheck(ctx, "filesystem", "folders", 3, 0, 5*time.Millisecond, nil)
	RecordCheck(ctx, "filesystem", "files", 2, 1, time.Millisecond, nil)
	RecordCheck(ctx, "database", "mysql-version", 1, 1, 0, errors.New("no connection"))
}

func TestRecordRun(t *testing.T) {
	freshInstruments(t)
	ctx := context.Background()

	RecordRun(ctx, 10, 1, 0)
	RecordRun(ctx, 0, 0, 2)
	RecordRun(ctx, 0, 0, 0)
}

func TestRecordProbe(t *testing.T) {
	freshInstruments(t)
	ctx := context.Background()

	RecordProbe(ctx, "http://shop.example.com/app/etc/local.xml", 403, nil)
	RecordProbe(ctx, "http://unreachable.invalid/app/etc/local.xml", 0, errors.New("dial tcp: no such host"))
}

func TestRecordQuery(t *testing.T) {
	freshInstruments(t)
	ctx := context.Background()

	RecordQuery(ctx, "version", nil)
	RecordQuery(ctx, "engines", errors.New("connection refused"))
}

func TestRecordCommand(t *testing.T) {
	freshInstruments(t)
	ctx := context.Background()

	RecordCommand(ctx, "php", []string{"-m"}, 12*time.Millisecond, nil, []byte("[PHP Modules]\ncore\n"), "")
	RecordCommand(ctx, "php", nil, 0, errors.New("exit status 1"), nil, "fatal")
}

func TestRecordCommand_TruncatesLongOutput(t *testing.T) {
	freshInstruments(t)
	t.Setenv("SYSCHECK_LOG_COMMAND_OUTPUT", "true")

	bigStdout := make([]byte, maxStdoutLog+100)
	bigStderr := string(make([]byte, maxStderrLog+100))
	RecordCommand(context.Background(), "php", []string{"-m"}, time.Millisecond, nil, bigStdout, bigStderr)
}
