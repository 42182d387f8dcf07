// Package profile implements a scene-scoped timing/counter profiler, kept
// as an explicit value passed into Scene.Tick rather than a package
// global, per REDESIGN FLAGS' mandate against global mutable profiling
// state.
package profile

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
)

// Profiler accumulates named scope timings and counters across a run.
// Grounded on the teacher's voxelrt/rt/app/profiler.go Profiler struct.
type Profiler struct {
	scopes     map[string]time.Duration
	startTimes map[string]time.Time
	counts     map[string]int
	order      []string
}

// New returns an empty profiler.
func New() *Profiler {
	return &Profiler{
		scopes:     make(map[string]time.Duration),
		startTimes: make(map[string]time.Time),
		counts:     make(map[string]int),
	}
}

// BeginScope marks the start of a named timing scope.
func (p *Profiler) BeginScope(name string) {
	p.startTimes[name] = time.Now()
	for _, n := range p.order {
		if n == name {
			return
		}
	}
	p.order = append(p.order, name)
}

// EndScope records the elapsed time since the matching BeginScope.
func (p *Profiler) EndScope(name string) {
	if start, ok := p.startTimes[name]; ok {
		p.scopes[name] = time.Since(start)
	}
}

// SetCount records a named integer counter (e.g. dirty chunks, bodies
// spawned) for the current tick.
func (p *Profiler) SetCount(name string, count int) {
	p.counts[name] = count
}

// Reset zeroes all scope timings while preserving display order.
func (p *Profiler) Reset() {
	for k := range p.scopes {
		p.scopes[k] = 0
	}
}

// GetStatsString renders timings and counters as a human-readable report.
func (p *Profiler) GetStatsString() string {
	var sb strings.Builder

	sb.WriteString("Timings (CPU):\n")
	for _, name := range p.order {
		ms := float64(p.scopes[name].Microseconds()) / 1000.0
		sb.WriteString(fmt.Sprintf("  %-15s: %.2f ms\n", name, ms))
	}

	sb.WriteString("\nStats:\n")
	keys := make([]string, 0, len(p.counts))
	for k := range p.counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("  %-15s: %d\n", k, p.counts[k]))
	}

	return sb.String()
}

// profileRow is the CSV row shape written by WriteCSV.
type profileRow struct {
	Name  string  `csv:"name"`
	AvgMs float64 `csv:"avg_ms"`
	Count int     `csv:"count"`
}

// WriteCSV marshals the current scope timings and counters to path via
// gocsv, per spec.md §6's --profile-csv knob.
func (p *Profiler) WriteCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("profile: creating %s: %w", path, err)
	}
	defer f.Close()

	rows := make([]profileRow, 0, len(p.order)+len(p.counts))
	for _, name := range p.order {
		rows = append(rows, profileRow{
			Name:  name,
			AvgMs: float64(p.scopes[name].Microseconds()) / 1000.0,
		})
	}
	keys := make([]string, 0, len(p.counts))
	for k := range p.counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rows = append(rows, profileRow{Name: k, Count: p.counts[k]})
	}
	return gocsv.Marshal(rows, f)
}
