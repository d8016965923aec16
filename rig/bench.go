package rig

import (
	"sync"
	"time"

	"github.com/CodedInternet/gorig/rig/errors"
)

// BenchData is the live state of the test bench. Time is experiment time in
// milliseconds; it only advances inside a control tick and only while
// Running is true.
type BenchData struct {
	Time    uint32 `json:"time"`
	Running bool   `json:"running"`
}

// TrajectoryDescriptor defines a time-bounded linear ramp between two
// values. Immutable for the duration of a run.
type TrajectoryDescriptor struct {
	StartTime  uint32  `json:"start_time"`
	EndTime    uint32  `json:"end_time"`
	StartValue float64 `json:"start_value"`
	EndValue   float64 `json:"end_value"`
}

func (d TrajectoryDescriptor) Validate() error {
	if d.StartTime > d.EndTime {
		return errors.DescriptorError{Start: d.StartTime, End: d.EndTime}
	}
	return nil
}

// RunSummary captures a finished run for the run log.
type RunSummary struct {
	StartedAt  time.Time
	Duration   uint32 // bench ms at the point the run ended
	Descriptor TrajectoryDescriptor
	LastOutput float64
}

// Bench owns the bench and trajectory state shared between the control tick
// and the frame dispatch path. All access goes through the mutex; nothing
// here blocks on I/O so the lock is never held for long.
type Bench struct {
	mu         sync.Mutex
	data       BenchData
	descriptor TrajectoryDescriptor
	output     float64
	startedAt  time.Time
}

func NewBench() *Bench {
	return new(Bench)
}

// Advance moves experiment time forward by one scheduler period. Only the
// control tick calls this.
func (b *Bench) Advance(periodMS uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data.Running {
		b.data.Time += periodMS
	}
}

func (b *Bench) Time() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data.Time
}

func (b *Bench) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data.Running
}

// Start begins a fresh run: time is rewound to zero so the descriptor is
// evaluated from the start of its ramp.
func (b *Bench) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data.Time = 0
	b.data.Running = true
	b.startedAt = time.Now()
}

// Stop halts the run and returns a summary for the run log. Stopping an
// idle bench is a no-op and reports wasRunning false so the caller does not
// log a run that never happened.
func (b *Bench) Stop() (s RunSummary, wasRunning bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	wasRunning = b.data.Running
	s = RunSummary{
		StartedAt:  b.startedAt,
		Duration:   b.data.Time,
		Descriptor: b.descriptor,
		LastOutput: b.output,
	}
	b.data.Running = false
	return
}

// Reset returns the bench to its initial state (time zero, not running,
// descriptor cleared) and reports the run that was interrupted, if any.
func (b *Bench) Reset() (s RunSummary, wasRunning bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	wasRunning = b.data.Running
	s = RunSummary{
		StartedAt:  b.startedAt,
		Duration:   b.data.Time,
		Descriptor: b.descriptor,
		LastOutput: b.output,
	}
	b.data = BenchData{}
	b.descriptor = TrajectoryDescriptor{}
	b.output = 0
	return
}

// SetDescriptor installs a new trajectory. Invalid descriptors never replace
// the active one.
func (b *Bench) SetDescriptor(d TrajectoryDescriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.descriptor = d
	return nil
}

func (b *Bench) Descriptor() TrajectoryDescriptor {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.descriptor
}

func (b *Bench) SetOutput(v float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.output = v
}

func (b *Bench) Output() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.output
}

// Snapshot returns a consistent copy of the bench state for telemetry and
// the status API.
func (b *Bench) Snapshot() (data BenchData, d TrajectoryDescriptor, output float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data, b.descriptor, b.output
}
