package telemetry

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterRecorderName = "github.com/magerun-tools/syscheck"
	loggerName        = "syscheck"
)

// recorderInstruments holds all lazy-initialized OTel metric instruments.
type recorderInstruments struct {
	checkTotal    metric.Int64Counter
	findingsTotal metric.Int64Counter
	runTotal      metric.Int64Counter
	probeTotal    metric.Int64Counter
	commandTotal  metric.Int64Counter
	queryTotal    metric.Int64Counter

	checkDurationHist   metric.Float64Histogram
	commandDurationHist metric.Float64Histogram
}

var (
	instMu   sync.Mutex
	instOnce sync.Once
	inst     recorderInstruments
)

// resetInstruments makes the next Record* call re-register instruments
// against the current global MeterProvider.
func resetInstruments() {
	instMu.Lock()
	instOnce = sync.Once{}
	instMu.Unlock()
}

// initInstruments registers all recorder metric instruments against the
// current global MeterProvider. Called lazily on first use.
func initInstruments() {
	instMu.Lock()
	defer instMu.Unlock()
	instOnce.Do(func() {
		m := otel.GetMeterProvider().Meter(meterRecorderName)

		inst.checkTotal, _ = m.Int64Counter("syscheck.checks.total",
			metric.WithDescription("Total check executions"),
		)
		inst.findingsTotal, _ = m.Int64Counter("syscheck.findings.total",
			metric.WithDescription("Total findings produced, by severity"),
		)
		inst.runTotal, _ = m.Int64Counter("syscheck.runs.total",
			metric.WithDescription("Total completed runs"),
		)
		inst.probeTotal, _ = m.Int64Counter("syscheck.probes.total",
			metric.WithDescription("Total HTTP exposure probes"),
		)
		inst.commandTotal, _ = m.Int64Counter("syscheck.commands.total",
			metric.WithDescription("Total external command invocations"),
		)
		inst.queryTotal, _ = m.Int64Counter("syscheck.db.queries.total",
			metric.WithDescription("Total database queries"),
		)

		inst.checkDurationHist, _ = m.Float64Histogram("syscheck.check.duration_ms",
			metric.WithDescription("Check execution time in milliseconds"),
			metric.WithUnit("ms"),
		)
		inst.commandDurationHist, _ = m.Float64Histogram("syscheck.command.duration_ms",
			metric.WithDescription("External command round-trip latency in milliseconds"),
			metric.WithUnit("ms"),
		)
	})
}

// statusStr returns "ok" or "error" depending on whether err is nil.
func statusStr(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// emit sends an OTel log event with the given body and key-value attributes.
func emit(ctx context.Context, body string, sev otellog.Severity, attrs ...otellog.KeyValue) {
	logger := global.GetLoggerProvider().Logger(loggerName)
	var r otellog.Record
	r.SetBody(otellog.StringValue(body))
	r.SetSeverity(sev)
	r.AddAttributes(attrs...)
	logger.Emit(ctx, r)
}

// errKV returns a log KeyValue with the error message, or empty string if nil.
func errKV(err error) otellog.KeyValue {
	if err != nil {
		return otellog.String("error", err.Error())
	}
	return otellog.String("error", "")
}

// severity returns SeverityInfo on success, SeverityError on failure.
func severity(err error) otellog.Severity {
	if err != nil {
		return otellog.SeverityError
	}
	return otellog.SeverityInfo
}

const (
	// maxStdoutLog is the maximum number of bytes of stdout captured in logs.
	maxStdoutLog = 2048
	// maxStderrLog is the maximum number of bytes of stderr captured in logs.
	maxStderrLog = 1024
)

// truncateOutput trims s to limit bytes and appends "…" when truncated.
// Avoids splitting multi-byte UTF-8 characters at the boundary.
func truncateOutput(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	truncated := s[:limit]
	for len(truncated) > 0 && !utf8.ValidString(truncated) {
		truncated = truncated[:len(truncated)-1]
	}
	return truncated + "…"
}

// RecordCheck records one check execution (metrics + log event). A check
// that returned an error is logged at error severity; a check that only
// produced error findings is logged at warn.
func RecordCheck(ctx context.Context, group, check string, findings, failed int, elapsed time.Duration, err error) {
	initInstruments()
	status := statusStr(err)
	attrs := metric.WithAttributes(
		attribute.String("group", group),
		attribute.String("check", check),
		attribute.String("status", status),
	)
	inst.checkTotal.Add(ctx, 1, attrs)
	inst.checkDurationHist.Record(ctx, float64(elapsed.Milliseconds()), attrs)

	sev := severity(err)
	if err == nil && failed > 0 {
		sev = otellog.SeverityWarn
	}
	emit(ctx, "check.finished", sev,
		otellog.String("group", group),
		otellog.String("check", check),
		otellog.Int("findings", findings),
		otellog.Int("failed", failed),
		otellog.Float64("duration_ms", float64(elapsed.Milliseconds())),
		otellog.String("status", status),
		errKV(err),
	)
}

// RecordRun records a completed run with its severity counts.
func RecordRun(ctx context.Context, passed, warned, failed int) {
	initInstruments()
	ok := failed == 0
	inst.runTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool("ok", ok)),
	)
	for sev, n := range map[string]int{"ok": passed, "warning": warned, "error": failed} {
		if n > 0 {
			inst.findingsTotal.Add(ctx, int64(n),
				metric.WithAttributes(attribute.String("severity", sev)),
			)
		}
	}
	logSev := otellog.SeverityInfo
	if !ok {
		logSev = otellog.SeverityWarn
	}
	emit(ctx, "run.finished", logSev,
		otellog.Int("passed", passed),
		otellog.Int("warned", warned),
		otellog.Int("failed", failed),
		otellog.Bool("ok", ok),
	)
}

// RecordProbe records an HTTP exposure probe. status is 0 when no response
// was received.
func RecordProbe(ctx context.Context, url string, status int, err error) {
	initInstruments()
	inst.probeTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.Int("http_status", status),
			attribute.String("status", statusStr(err)),
		),
	)
	emit(ctx, "probe.http", otellog.SeverityInfo,
		otellog.String("url", url),
		otellog.Int("http_status", status),
		errKV(err),
	)
}

// RecordQuery records a database query. query is a short label, not SQL
// text with values.
func RecordQuery(ctx context.Context, query string, err error) {
	initInstruments()
	status := statusStr(err)
	inst.queryTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("query", query),
			attribute.String("status", status),
		),
	)
	emit(ctx, "db.query", severity(err),
		otellog.String("query", query),
		otellog.String("status", status),
		errKV(err),
	)
}

// RecordCommand records an external command invocation with duration.
// stdout and stderr are only included in the log event when
// SYSCHECK_LOG_COMMAND_OUTPUT=true.
func RecordCommand(ctx context.Context, name string, args []string, elapsed time.Duration, err error, stdout []byte, stderr string) {
	initInstruments()
	status := statusStr(err)
	attrs := metric.WithAttributes(
		attribute.String("command", name),
		attribute.String("status", status),
	)
	inst.commandTotal.Add(ctx, 1, attrs)
	inst.commandDurationHist.Record(ctx, float64(elapsed.Milliseconds()), attrs)
	kvs := []otellog.KeyValue{
		otellog.String("command", name),
		otellog.String("args", strings.Join(args, " ")),
		otellog.Float64("duration_ms", float64(elapsed.Milliseconds())),
		otellog.String("status", status),
		errKV(err),
	}
	if os.Getenv("SYSCHECK_LOG_COMMAND_OUTPUT") == "true" {
		kvs = append(kvs,
			otellog.String("stdout", truncateOutput(string(stdout), maxStdoutLog)),
			otellog.String("stderr", truncateOutput(stderr, maxStderrLog)),
		)
	}
	emit(ctx, "command.exec", severity(err), kvs...)
}
