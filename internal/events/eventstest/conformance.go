// Package eventstest provides a conformance test suite for events.Provider
// implementations. Each implementation's test file calls RunProviderTests
// with its own factory function.
package eventstest

import (
	"sync"
	"testing"
	"time"

	"github.com/magerun-tools/syscheck/internal/events"
)

// RunProviderTests runs the core conformance suite against a Provider implementation.
// The newProvider function must return a fresh, empty provider and a cleanup closure.
func RunProviderTests(t *testing.T, newProvider func(t *testing.T) (events.Provider, func())) {
	t.Helper()

	t.Run("RecordAndListRoundTrip", func(t *testing.T) {
		p, cleanup := newProvider(t)
		defer cleanup()

		p.Record(events.Event{
			Type:       events.CheckFinished,
			Run:        "run-1",
			Root:       "/srv/shop",
			Group:      "filesystem",
			Check:      "folders",
			Findings:   4,
			Failed:     1,
			DurationMS: 3,
		})

		got, err := p.List(events.Filter{})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("List returned %d events, want 1", len(got))
		}
		e := got[0]
		if e.Type != events.CheckFinished || e.Run != "run-1" || e.Root != "/srv/shop" {
			t.Errorf("identity fields = %+v", e)
		}
		if e.Group != "filesystem" || e.Check != "folders" {
			t.Errorf("Group/Check = %q/%q, want filesystem/folders", e.Group, e.Check)
		}
		if e.Findings != 4 || e.Failed != 1 || e.DurationMS != 3 {
			t.Errorf("counters = %d/%d/%d, want 4/1/3", e.Findings, e.Failed, e.DurationMS)
		}
	})

	t.Run("RecordAutoFillsSeqAndTs", func(t *testing.T) {
		p, cleanup := newProvider(t)
		defer cleanup()

		before := time.Now().Add(-time.Second)
		p.Record(events.Event{Type: events.RunStarted, Run: "r"})
		p.Record(events.Event{Type: events.RunFinished, Run: "r"})

		got, err := p.List(events.Filter{})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("List returned %d events, want 2", len(got))
		}
		if got[0].Seq == 0 || got[1].Seq <= got[0].Seq {
			t.Errorf("Seq not monotonically increasing: %d, %d", got[0].Seq, got[1].Seq)
		}
		if got[0].Ts.Before(before) {
			t.Errorf("Ts = %v, want auto-filled near now", got[0].Ts)
		}
	})

	t.Run("RecordPreservesExplicitTimestamp", func(t *testing.T) {
		p, cleanup := newProvider(t)
		defer cleanup()

		ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		p.Record(events.Event{Type: events.RunStarted, Run: "r", Ts: ts})
		got, err := p.List(events.Filter{})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if !got[0].Ts.Equal(ts) {
			t.Errorf("Ts = %v, want %v", got[0].Ts, ts)
		}
	})

	t.Run("ListFilters", func(t *testing.T) {
		p, cleanup := newProvider(t)
		defer cleanup()

		old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
		p.Record(events.Event{Type: events.RunStarted, Run: "a", Ts: old})
		p.Record(events.Event{Type: events.RunFinished, Run: "a", Ts: old})
		p.Record(events.Event{Type: events.RunStarted, Run: "b"})
		p.Record(events.Event{Type: events.RunFinished, Run: "b"})

		tests := []struct {
			name   string
			filter events.Filter
			want   int
		}{
			{"none", events.Filter{}, 4},
			{"type", events.Filter{Type: events.RunStarted}, 2},
			{"run", events.Filter{Run: "b"}, 2},
			{"since", events.Filter{Since: old.Add(time.Hour)}, 2},
			{"after seq", events.Filter{AfterSeq: 3}, 1},
			{"combined", events.Filter{Type: events.RunFinished, Run: "a"}, 1},
			{"no match", events.Filter{Run: "zzz"}, 0},
		}
		for _, tt := range tests {
			got, err := p.List(tt.filter)
			if err != nil {
				t.Fatalf("%s: List: %v", tt.name, err)
			}
			if len(got) != tt.want {
				t.Errorf("%s: got %d events, want %d", tt.name, len(got), tt.want)
			}
		}
	})

	t.Run("LatestSeq", func(t *testing.T) {
		p, cleanup := newProvider(t)
		defer cleanup()

		seq, err := p.LatestSeq()
		if err != nil || seq != 0 {
			t.Fatalf("LatestSeq on empty = %d, %v; want 0, nil", seq, err)
		}
		for range 3 {
			p.Record(events.Event{Type: events.CheckFinished, Run: "r"})
		}
		seq, err = p.LatestSeq()
		if err != nil {
			t.Fatalf("LatestSeq: %v", err)
		}
		if seq != 3 {
			t.Errorf("LatestSeq = %d, want 3", seq)
		}
	})
}

// RunConcurrencyTests verifies that concurrent Record calls produce unique,
// gap-free sequence numbers.
func RunConcurrencyTests(t *testing.T, newProvider func(t *testing.T) (events.Provider, func())) {
	t.Helper()

	t.Run("ConcurrentRecord", func(t *testing.T) {
		p, cleanup := newProvider(t)
		defer cleanup()

		const n = 50
		var wg sync.WaitGroup
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				p.Record(events.Event{Type: events.CheckFinished, Run: "r"})
			}()
		}
		wg.Wait()

		got, err := p.List(events.Filter{})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != n {
			t.Fatalf("List returned %d events, want %d", len(got), n)
		}
		seen := make(map[uint64]bool, n)
		for _, e := range got {
			if seen[e.Seq] {
				t.Errorf("duplicate Seq %d", e.Seq)
			}
			seen[e.Seq] = true
		}
		for i := uint64(1); i <= n; i++ {
			if !seen[i] {
				t.Errorf("missing Seq %d", i)
			}
		}
	})
}
