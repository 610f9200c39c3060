package measure

import (
	"fmt"
	"io"
	"sort"
	"time"
)

// A PerformanceTimer accumulates named elapsed-time sections. The
// clock is injectable so simulated runs can time against virtual time
// instead of the wall clock. Not safe for concurrent use.
type PerformanceTimer struct {
	now     func() float64
	started map[string]float64
	totals  map[string]float64
}

// NewPerformanceTimer creates a timer reading from now, which reports
// the current time in seconds. A nil now uses the wall clock.
func NewPerformanceTimer(now func() float64) *PerformanceTimer {
	if now == nil {
		start := time.Now()
		now = func() float64 {
			return time.Since(start).Seconds()
		}
	}
	return &PerformanceTimer{
		now:     now,
		started: map[string]float64{},
		totals:  map[string]float64{},
	}
}

// Start begins (or restarts) timing the named section.
func (p *PerformanceTimer) Start(name string) {
	p.started[name] = p.now()
}

// Stop ends the named section, adds the elapsed time to its total, and
// returns the elapsed time. Stopping a section that was never started
// records nothing and returns zero.
func (p *PerformanceTimer) Stop(name string) float64 {
	start, ok := p.started[name]
	if !ok {
		return 0
	}
	delete(p.started, name)
	elapsed := p.now() - start
	p.totals[name] += elapsed
	return elapsed
}

// Elapsed returns the accumulated time of the named section in
// seconds, not counting a currently running interval.
func (p *PerformanceTimer) Elapsed(name string) float64 {
	return p.totals[name]
}

// Reset discards all sections and running intervals.
func (p *PerformanceTimer) Reset() {
	p.started = map[string]float64{}
	p.totals = map[string]float64{}
}

// AllTimings returns a copy of the accumulated totals by section name.
// Reading the timings does not change them.
func (p *PerformanceTimer) AllTimings() map[string]float64 {
	res := make(map[string]float64, len(p.totals))
	for name, total := range p.totals {
		res[name] = total
	}
	return res
}

// WriteTimings writes every section's total to w, sorted by name.
func (p *PerformanceTimer) WriteTimings(w io.Writer) error {
	names := make([]string, 0, len(p.totals))
	for name := range p.totals {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := fmt.Fprintf(w, "%s: %.6f s\n", name, p.totals[name]); err != nil {
			return err
		}
	}
	return nil
}
