package entities

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ResultCode
	}{
		{"nil", nil, ResultOK},
		{"not found", fmt.Errorf("pid 4: %w", ErrNotFound), ResultNotFound},
		{"permission", fmt.Errorf("pid 4: %w", ErrPermissionDenied), ResultPermissionDenied},
		{"closed", fmt.Errorf("pid 4: %w", ErrChannelClosed), ResultChannelError},
		{"timeout", fmt.Errorf("pid 4: %w", ErrRequestTimeout), ResultChannelError},
		{"helper failure", fmt.Errorf("pid 4: %w", ErrHelperFailure), ResultChannelError},
		{"other", context.Canceled, ResultIOError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeFor(tt.err); got != tt.want {
				t.Errorf("CodeFor() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestErrorFor_RoundTrip(t *testing.T) {
	for _, code := range []ResultCode{ResultNotFound, ResultPermissionDenied, ResultChannelError} {
		err := ErrorFor(code)
		if got := CodeFor(err); got != code {
			t.Errorf("CodeFor(ErrorFor(%s)) = %s", code, got)
		}
	}
	if ErrorFor(ResultOK) != nil {
		t.Error("ErrorFor(ok) should be nil")
	}
	if !errors.Is(ErrorFor("bogus"), ErrHelperFailure) {
		t.Error("unknown codes should map to ErrHelperFailure")
	}
}

func TestTask_AddDiagnostic(t *testing.T) {
	task := NewTask(300, "/usr/sbin/secretd")
	task.AddDiagnostic(NewDiagnostic(OpFileList, fmt.Errorf("denied: %w", ErrPermissionDenied)))

	if !task.Partial {
		t.Error("task with a diagnostic must be partial")
	}
	d := task.Diagnostics[0]
	if d.PID != 300 || d.Operation != OpFileList || d.Code != ResultPermissionDenied {
		t.Errorf("diagnostic = %+v", d)
	}
	if task.Name() != "secretd" {
		t.Errorf("Name() = %q, want secretd", task.Name())
	}
}
