package doctor

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/magerun-tools/syscheck/internal/telemetry"
)

// Report is the terminal artifact of a run.
type Report struct {
	// Sections lists the groups in execution order.
	Sections []Section `json:"sections"`
	// Findings holds every finding, grouped by group in execution order.
	Findings []Finding `json:"findings"`
	// Counts maps each severity to the number of findings with it.
	Counts map[Severity]int `json:"counts"`
	// OK is true when no finding has SeverityError.
	OK bool `json:"ok"`
}

// Section identifies one group in a report.
type Section struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// Passed returns the number of ok findings.
func (r *Report) Passed() int { return r.Counts[SeverityOK] }

// Warned returns the number of warning findings.
func (r *Report) Warned() int { return r.Counts[SeverityWarning] }

// Failed returns the number of error findings.
func (r *Report) Failed() int { return r.Counts[SeverityError] }

// Worst returns the highest severity in the report.
func (r *Report) Worst() Severity {
	switch {
	case r.Counts[SeverityError] > 0:
		return SeverityError
	case r.Counts[SeverityWarning] > 0:
		return SeverityWarning
	}
	return SeverityOK
}

// CheckObserver is notified after each check completes. With Parallel set
// it may be called from several goroutines at once.
type CheckObserver func(group, check string, findings []Finding, elapsed time.Duration, err error)

// Doctor runs registered check groups against a CheckContext.
type Doctor struct {
	cc     *CheckContext
	groups []Group

	// Parallel runs groups concurrently. Checks inside a group still run
	// in order, and findings are merged in group order.
	Parallel bool
	// Observer, if set, receives each completed check.
	Observer CheckObserver
}

// New creates a Doctor for cc with the given groups in run order. It fails
// before any check executes when cc is incomplete.
func New(cc *CheckContext, groups ...Group) (*Doctor, error) {
	if cc == nil {
		return nil, fmt.Errorf("%w: nil check context", ErrMissingConfig)
	}
	if cc.RequiredFolders == nil {
		return nil, fmt.Errorf("%w: no required folders list", ErrMissingConfig)
	}
	d := &Doctor{cc: cc}
	for _, g := range groups {
		if err := d.Register(g); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Register appends a group to the run order. Group names must be unique.
func (d *Doctor) Register(g Group) error {
	if g.Name == "" {
		return fmt.Errorf("registering group: empty name")
	}
	for _, existing := range d.groups {
		if existing.Name == g.Name {
			return fmt.Errorf("group already registered: %s", g.Name)
		}
	}
	d.groups = append(d.groups, g)
	return nil
}

// Groups returns the registered groups in run order.
func (d *Doctor) Groups() []Group {
	out := make([]Group, len(d.groups))
	copy(out, d.groups)
	return out
}

// Run executes every group and returns the assembled report. A failing
// check never aborts the run: its error becomes an error finding and the
// next check runs.
func (d *Doctor) Run(ctx context.Context) *Report {
	results := make([][]Finding, len(d.groups))
	if d.Parallel {
		var eg errgroup.Group
		for i, g := range d.groups {
			eg.Go(func() error {
				results[i] = d.runGroup(ctx, g)
				return nil
			})
		}
		_ = eg.Wait() // runGroup never returns an error
	} else {
		for i, g := range d.groups {
			results[i] = d.runGroup(ctx, g)
		}
	}

	r := &Report{
		Counts: map[Severity]int{SeverityOK: 0, SeverityWarning: 0, SeverityError: 0},
	}
	for i, g := range d.groups {
		r.Sections = append(r.Sections, Section{Name: g.Name, Title: g.title()})
		for _, f := range results[i] {
			r.Findings = append(r.Findings, f)
			r.Counts[f.Severity]++
		}
	}
	r.OK = r.Counts[SeverityError] == 0
	telemetry.RecordRun(ctx, r.Passed(), r.Warned(), r.Failed())
	return r
}

func (d *Doctor) runGroup(ctx context.Context, g Group) []Finding {
	var out []Finding
	for _, c := range g.Checks {
		out = append(out, d.runCheck(ctx, g.Name, c)...)
	}
	return out
}

func (d *Doctor) runCheck(ctx context.Context, group string, c Check) []Finding {
	start := time.Now()
	findings, err := safeRun(ctx, d.cc, c)
	elapsed := time.Since(start)

	out := make([]Finding, 0, len(findings)+1)
	for _, f := range findings {
		f.Group = group
		f.Check = c.Name()
		out = append(out, f)
	}
	if err != nil {
		out = append(out, Finding{
			Group:    group,
			Check:    c.Name(),
			Severity: SeverityError,
			Subject:  c.Name(),
			Detail:   fmt.Sprintf("check %s/%s failed: %v", group, c.Name(), err),
		})
	}

	var failed int
	for _, f := range out {
		if f.Severity == SeverityError {
			failed++
		}
	}
	telemetry.RecordCheck(ctx, group, c.Name(), len(out), failed, elapsed, err)
	if d.Observer != nil {
		d.Observer(group, c.Name(), out, elapsed, err)
	}
	return out
}

// safeRun calls c.Run, converting a panic into an error.
func safeRun(ctx context.Context, cc *CheckContext, c Check) (findings []Finding, err error) {
	defer func() {
		if p := recover(); p != nil {
			findings = nil
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return c.Run(ctx, cc)
}
