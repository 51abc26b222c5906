package simulate

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestRunProducesYearlyReports(t *testing.T) {
	var out bytes.Buffer
	cfg := Config{Years: 2, Seed: 1, CityName: "Testopolis"}

	if err := run(context.Background(), cfg, &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	report := out.String()
	if !strings.Contains(report, "year 1:") {
		t.Fatalf("expected a year 1 report, got:\n%s", report)
	}
	if !strings.Contains(report, "year 2:") {
		t.Fatalf("expected a year 2 report, got:\n%s", report)
	}
	if !strings.Contains(report, "final: year=2") {
		t.Fatalf("expected a final summary for year 2, got:\n%s", report)
	}
}

func TestRunRejectsNonPositiveYears(t *testing.T) {
	if err := run(context.Background(), Config{Years: 0}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for zero years")
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := run(ctx, Config{Years: 1, Seed: 1}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
