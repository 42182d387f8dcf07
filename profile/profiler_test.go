package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestBeginEndScope(t *testing.T) {
	p := New()
	p.BeginScope("tick")
	time.Sleep(time.Millisecond)
	p.EndScope("tick")

	if _, ok := p.scopes["tick"]; !ok {
		t.Fatalf("expected scope %q to be recorded", "tick")
	}
	if p.scopes["tick"] <= 0 {
		t.Fatalf("expected positive duration, got %v", p.scopes["tick"])
	}
}

func TestBeginScopePreservesOrder(t *testing.T) {
	p := New()
	p.BeginScope("b")
	p.BeginScope("a")
	p.BeginScope("b")
	if len(p.order) != 2 || p.order[0] != "b" || p.order[1] != "a" {
		t.Fatalf("expected insertion order [b a], got %v", p.order)
	}
}

func TestResetKeepsOrderZerosDurations(t *testing.T) {
	p := New()
	p.BeginScope("x")
	p.EndScope("x")
	p.Reset()
	if p.scopes["x"] != 0 {
		t.Fatalf("expected reset scope to be zero, got %v", p.scopes["x"])
	}
	if len(p.order) != 1 {
		t.Fatalf("expected order to survive reset")
	}
}

func TestGetStatsStringIncludesCounters(t *testing.T) {
	p := New()
	p.SetCount("dirty_chunks", 3)
	s := p.GetStatsString()
	if !strings.Contains(s, "dirty_chunks") || !strings.Contains(s, "3") {
		t.Fatalf("expected stats string to mention counter, got %q", s)
	}
}

func TestWriteCSV(t *testing.T) {
	p := New()
	p.BeginScope("integrate")
	p.EndScope("integrate")
	p.SetCount("bodies", 2)

	path := filepath.Join(t.TempDir(), "profile.csv")
	if err := p.WriteCSV(path); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading csv: %v", err)
	}
	if !strings.Contains(string(data), "integrate") || !strings.Contains(string(data), "bodies") {
		t.Fatalf("expected csv to contain both rows, got %q", string(data))
	}
}
