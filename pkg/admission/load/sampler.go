package load

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Sample is a read-only snapshot of host load. It is recomputed per check
// and never persisted.
type Sample struct {
	// Load1 is the 1-minute load average.
	Load1 float64

	// CPUCount is the number of logical CPUs available to the process.
	CPUCount int

	// SampledAt is when the sample was taken.
	SampledAt time.Time
}

// Ratio returns the load average normalized by CPU count.
func (s Sample) Ratio() float64 {
	if s.CPUCount <= 0 {
		return 0
	}
	return s.Load1 / float64(s.CPUCount)
}

// Sampler supplies load samples. Implementations must be safe for
// concurrent use.
type Sampler interface {
	Sample() (Sample, error)
}

// ProcSampler reads the 1-minute load average from /proc/loadavg.
// This is Linux-specific; on other platforms construct the engine with a
// custom Sampler.
type ProcSampler struct {
	// Path overrides the loadavg file location, for tests.
	Path string
}

// NewProcSampler creates a sampler backed by /proc/loadavg.
func NewProcSampler() *ProcSampler {
	return &ProcSampler{Path: "/proc/loadavg"}
}

// Sample reads the current 1-minute load average and CPU count.
func (p *ProcSampler) Sample() (Sample, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return Sample{}, fmt.Errorf("failed to read load average: %w", err)
	}

	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return Sample{}, fmt.Errorf("malformed loadavg %q", string(data))
	}

	load1, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Sample{}, fmt.Errorf("malformed loadavg %q: %w", fields[0], err)
	}

	return Sample{
		Load1:     load1,
		CPUCount:  runtime.NumCPU(),
		SampledAt: time.Now(),
	}, nil
}

// FixedSampler returns a constant sample. Intended for tests and for
// platforms without /proc.
type FixedSampler struct {
	Load1    float64
	CPUCount int
}

// Sample returns the fixed values.
func (f FixedSampler) Sample() (Sample, error) {
	return Sample{Load1: f.Load1, CPUCount: f.CPUCount, SampledAt: time.Now()}, nil
}
