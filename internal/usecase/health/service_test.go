package health

import (
	"context"
	"errors"
	"testing"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(context.Context) error { return f.err }

func TestCheck(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus Status
		wantCheck  CheckResult
	}{
		{"backend up", nil, Healthy, CheckOK},
		{"backend down", errors.New("connection refused"), Degraded, CheckError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(&fakePinger{err: tt.pingErr})
			report := svc.Check(context.Background())
			if report.Status != tt.wantStatus {
				t.Errorf("status: got %q, want %q", report.Status, tt.wantStatus)
			}
			if report.Checks["backend"] != tt.wantCheck {
				t.Errorf("backend check: got %q, want %q", report.Checks["backend"], tt.wantCheck)
			}
		})
	}
}
