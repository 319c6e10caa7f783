package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/trendhome-fenster/api/internal/domain"
)

type stubHealthRepository struct {
	report domain.SystemHealthReport
	err    error
}

func (s stubHealthRepository) Collect(context.Context) (domain.SystemHealthReport, error) {
	return s.report, s.err
}

func TestSystemServiceHealthReport(t *testing.T) {
	started := time.Date(2025, time.September, 1, 6, 0, 0, 0, time.UTC)
	now := started.Add(90 * time.Minute)

	svc, err := NewSystemService(SystemServiceDeps{
		HealthRepository: stubHealthRepository{report: domain.SystemHealthReport{
			Checks: map[string]domain.SystemHealthCheck{
				"firestore": {Status: domain.HealthStatusOK},
				"redis":     {Status: domain.HealthStatusDegraded},
			},
		}},
		Clock: func() time.Time { return now },
		Build: BuildInfo{Version: "1.4.0", CommitSHA: "abc123", Environment: "staging", StartedAt: started},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report, err := svc.HealthReport(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Version != "1.4.0" || report.CommitSHA != "abc123" || report.Environment != "staging" {
		t.Fatalf("expected build info, got %+v", report)
	}
	if report.Uptime != 90*time.Minute {
		t.Fatalf("unexpected uptime %v", report.Uptime)
	}
	if report.Status != domain.HealthStatusDegraded {
		t.Fatalf("expected degraded status, got %s", report.Status)
	}
	if !report.GeneratedAt.Equal(now) {
		t.Fatalf("expected generated at to default to now")
	}
}

func TestSystemServiceHealthReportErrors(t *testing.T) {
	if _, err := NewSystemService(SystemServiceDeps{}); err == nil {
		t.Fatalf("expected error without repository")
	}

	boom := errors.New("collect failed")
	svc, _ := NewSystemService(SystemServiceDeps{HealthRepository: stubHealthRepository{err: boom}})
	if _, err := svc.HealthReport(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected collect error, got %v", err)
	}
}

func TestDeriveStatus(t *testing.T) {
	checks := map[string]domain.SystemHealthCheck{
		"firestore": {Status: domain.HealthStatusError},
		"redis":     {Status: domain.HealthStatusDegraded},
	}
	if got := deriveStatus(checks); got != domain.HealthStatusError {
		t.Fatalf("expected error to dominate, got %s", got)
	}
	if got := deriveStatus(nil); got != domain.HealthStatusOK {
		t.Fatalf("expected ok without checks, got %s", got)
	}
}
