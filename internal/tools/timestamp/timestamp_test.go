package timestamp

import (
	"context"
	"testing"
	"time"
)

var fixedNow = time.Date(2026, 8, 30, 15, 4, 5, 0, time.UTC)

func TestExecute_Formats(t *testing.T) {
	t.Parallel()
	tool := newWithClock(func() time.Time { return fixedNow })

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"default", map[string]any{}, "2026-08-30 15:04:05"},
		{"explicit default", map[string]any{"format": "default"}, "2026-08-30 15:04:05"},
		{"iso", map[string]any{"format": "iso"}, "2026-08-30T15:04:05Z"},
		{"unix", map[string]any{"format": "unix"}, "1788102245"},
		{"case insensitive", map[string]any{"format": "ISO"}, "2026-08-30T15:04:05Z"},
		{"unknown falls back", map[string]any{"format": "martian"}, "2026-08-30 15:04:05"},
		{"non-string format falls back", map[string]any{"format": 42}, "2026-08-30 15:04:05"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tool.Execute(context.Background(), tt.args)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSpec(t *testing.T) {
	t.Parallel()
	spec := New().Spec()
	if spec.Name != Name {
		t.Errorf("name = %q", spec.Name)
	}
	if p, ok := spec.Parameters["format"]; !ok || p.Required {
		t.Errorf("format parameter should exist and be optional, got %+v", spec.Parameters)
	}
}
