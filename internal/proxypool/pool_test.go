package proxypool

import "testing"

func TestAcquireReturnsDirectWhenEmpty(t *testing.T) {
	p := New(nil, "http", PolicyRoundRobin)
	id, direct := p.Acquire()
	if !direct || id != DirectSentinel {
		t.Fatalf("Acquire() = (%q, %v), want direct sentinel", id, direct)
	}
}

func TestAcquireRoundRobinCyclesEntries(t *testing.T) {
	p := New([]string{"a", "b", "c"}, "http", PolicyRoundRobin)
	var seen []string
	for i := 0; i < 6; i++ {
		id, direct := p.Acquire()
		if direct {
			t.Fatalf("unexpected direct sentinel at iteration %d", i)
		}
		seen = append(seen, id)
	}
	want := []string{"a", "b", "c", "a", "b", "c"}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("seen[%d] = %q, want %q", i, seen[i], want[i])
		}
	}
}

func TestReportFailureBlacklistsAfterThreshold(t *testing.T) {
	p := New([]string{"a"}, "http", PolicyRoundRobin)
	for i := 0; i < blacklistThreshold-1; i++ {
		p.ReportFailure("a", "transient")
	}
	if _, direct := p.Acquire(); direct {
		t.Fatal("entry blacklisted too early")
	}
	p.ReportFailure("a", "blocked")
	if _, direct := p.Acquire(); !direct {
		t.Fatal("entry should be blacklisted after reaching the threshold")
	}
}

func TestReportSuccessResetsConsecutiveFailures(t *testing.T) {
	p := New([]string{"a"}, "http", PolicyRoundRobin)
	for i := 0; i < blacklistThreshold-1; i++ {
		p.ReportFailure("a", "transient")
	}
	p.ReportSuccess("a")
	e := p.byID["a"]
	if e.consecutiveFailures != 0 {
		t.Errorf("consecutiveFailures = %d, want 0 after success", e.consecutiveFailures)
	}
}

func TestAcquireLeastUsedPrefersUnderusedEntry(t *testing.T) {
	p := New([]string{"a", "b"}, "http", PolicyLeastUsed)
	p.Acquire() // a
	p.Acquire() // b
	p.Acquire() // a again (tie, picks first)
	id, _ := p.Acquire()
	if id != "b" {
		t.Errorf("Acquire() = %q, want b (least used)", id)
	}
}

func TestStatsCountsEligibleAndBlacklisted(t *testing.T) {
	p := New([]string{"a", "b"}, "http", PolicyRoundRobin)
	for i := 0; i < blacklistThreshold; i++ {
		p.ReportFailure("a", "blocked")
	}
	stats := p.Stats()
	if stats.Total != 2 {
		t.Errorf("Total = %d, want 2", stats.Total)
	}
	if stats.Blacklisted != 1 {
		t.Errorf("Blacklisted = %d, want 1", stats.Blacklisted)
	}
	if stats.Eligible != 1 {
		t.Errorf("Eligible = %d, want 1", stats.Eligible)
	}
	if stats.LastFailureReasons["a"] != "blocked" {
		t.Errorf("LastFailureReasons[a] = %q, want blocked", stats.LastFailureReasons["a"])
	}
}

func TestDirectEndpointReportsAreNoOps(t *testing.T) {
	p := New([]string{"a"}, "http", PolicyRoundRobin)
	p.ReportFailure(DirectSentinel, "transient")
	p.ReportSuccess(DirectSentinel)
	if p.Stats().Blacklisted != 0 {
		t.Error("reports against the direct sentinel must not affect real entries")
	}
}
