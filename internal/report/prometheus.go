package report

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/magerun-tools/syscheck/internal/doctor"
)

// Registry builds a Prometheus registry describing r:
//
//	syscheck_findings{group,check,severity}  findings per check and severity
//	syscheck_run_ok                          1 when no finding is an error
//	syscheck_last_run_timestamp_seconds      when the run finished
func Registry(r *doctor.Report, finished time.Time) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()

	findings := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "syscheck_findings",
			Help: "Number of findings by group, check and severity in the last run.",
		},
		[]string{"group", "check", "severity"},
	)
	runOK := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "syscheck_run_ok",
		Help: "1 if the last run had no error findings, 0 otherwise.",
	})
	lastRun := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "syscheck_last_run_timestamp_seconds",
		Help: "Unix time the last run finished.",
	})
	for _, c := range []prometheus.Collector{findings, runOK, lastRun} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering metric: %w", err)
		}
	}

	for _, f := range r.Findings {
		findings.WithLabelValues(f.Group, f.Check, f.Severity.String()).Inc()
	}
	if r.OK {
		runOK.Set(1)
	}
	lastRun.Set(float64(finished.Unix()))
	return reg, nil
}

// WriteTextfile writes the metrics for r to path in the Prometheus text
// format. The file is replaced atomically.
func WriteTextfile(path string, r *doctor.Report, finished time.Time) error {
	reg, err := Registry(r, finished)
	if err != nil {
		return err
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("writing metrics file: %w", err)
	}
	return nil
}
