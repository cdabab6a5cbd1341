// ABOUTME: Tests for the markdown progress report
// ABOUTME: Checks the profile section, walk table, and trigger counts

package storage

import (
	"strings"
	"testing"
)

func TestProgressReport(t *testing.T) {
	s := testStore(t)
	owner := testOwner(t, s)
	seedDataset(t, s, owner)

	data, err := ProgressReport(s, owner)
	if err != nil {
		t.Fatalf("failed to build report: %v", err)
	}
	report := string(data)

	if !strings.Contains(report, "Rex") {
		t.Error("report is missing the active profile name")
	}
	if !strings.Contains(report, "dogs") {
		t.Error("report is missing the trigger type count")
	}
	if !strings.Contains(report, "|") {
		t.Error("report has no markdown tables")
	}
}

func TestProgressReport_EmptyDatabase(t *testing.T) {
	s := testStore(t)
	owner := testOwner(t, s)

	data, err := ProgressReport(s, owner)
	if err != nil {
		t.Fatalf("failed to build report for empty database: %v", err)
	}
	if len(data) == 0 {
		t.Error("empty database should still produce a report")
	}
}
