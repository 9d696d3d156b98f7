package load

import (
	"os"
	"path/filepath"
	"testing"
)

func TestProcSampler_Sample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loadavg")
	if err := os.WriteFile(path, []byte("2.35 1.80 1.42 3/512 12345\n"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	p := &ProcSampler{Path: path}
	sample, err := p.Sample()
	if err != nil {
		t.Fatalf("Sample() error: %v", err)
	}

	if sample.Load1 != 2.35 {
		t.Errorf("Load1 = %v, want 2.35", sample.Load1)
	}
	if sample.CPUCount <= 0 {
		t.Errorf("CPUCount = %d, want > 0", sample.CPUCount)
	}
	if sample.SampledAt.IsZero() {
		t.Error("SampledAt should be set")
	}
}

func TestProcSampler_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		missing bool
	}{
		{"missing file", "", true},
		{"empty file", "", false},
		{"garbage first field", "not-a-number 1.0 1.0\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "loadavg")
			if !tt.missing {
				if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
					t.Fatalf("failed to write fixture: %v", err)
				}
			}

			p := &ProcSampler{Path: path}
			if _, err := p.Sample(); err == nil {
				t.Error("expected error")
			}
		})
	}
}
