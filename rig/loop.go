package rig

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Boundary is what the control tick needs from the frame transport. The
// tick never blocks on network I/O; every method here is queue or state
// work only.
type Boundary interface {
	// HandleFrames drains and dispatches all pending inbound frames.
	HandleFrames()
	// Running reports whether the current session authorizes control
	// activity.
	Running() bool
	// SendTelemetry enqueues an outbound telemetry frame.
	SendTelemetry(timeMS uint32, output, sensor float64)
	// LastActivity is the bench time of the last valid inbound frame.
	LastActivity() uint32
	// Reset tears down the current experiment state.
	Reset()
}

// Loop is the control step orchestrator. One Tick per scheduler period:
// consume inbound frames, advance experiment time, compute the commanded
// value, publish telemetry, then run the keepalive check against the
// post-increment time.
type Loop struct {
	bench     *Bench
	source    ValueSource
	boundary  Boundary
	keepalive Keepalive
	periodMS  uint32
	sensor    Sensor    // optional; echoed in telemetry when present
	indicator Indicator // optional status lamp

	mu      sync.Mutex
	faulted bool
	fault   error
}

func NewLoop(bench *Bench, source ValueSource, boundary Boundary, keepalive Keepalive, periodMS uint32) *Loop {
	return &Loop{
		bench:     bench,
		source:    source,
		boundary:  boundary,
		keepalive: keepalive,
		periodMS:  periodMS,
	}
}

// AttachSensor includes the raw sensor reading in outbound telemetry.
func (l *Loop) AttachSensor(s Sensor) {
	l.sensor = s
}

// Indicator is the rig status lamp.
type Indicator interface {
	SetIndicator(on bool)
}

// AttachIndicator lights the status lamp while a run is active.
func (l *Loop) AttachIndicator(ind Indicator) {
	l.indicator = ind
}

// Fault returns the terminal error, if the loop has faulted.
func (l *Loop) Fault() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fault
}

// Tick runs one control step. Never reentered; the scheduler guarantees a
// single invocation in flight.
func (l *Loop) Tick() {
	l.boundary.HandleFrames()

	faulted := l.isFaulted()
	if l.indicator != nil {
		l.indicator.SetIndicator(!faulted && l.boundary.Running())
	}
	if faulted || !l.boundary.Running() {
		return
	}

	l.bench.Advance(l.periodMS)
	now := l.bench.Time()

	out, err := l.source.Output(now)
	if err != nil {
		// terminal: halt actuation rather than command a bad value
		l.enterFault(err)
		l.boundary.Reset()
		return
	}
	l.bench.SetOutput(out)

	sensor := out
	if l.sensor != nil {
		if v, err := l.sensor.Read(); err == nil {
			sensor = v
		}
	}
	l.boundary.SendTelemetry(now, out, sensor)

	if l.keepalive.Expired(now, l.boundary.LastActivity()) {
		logrus.WithFields(logrus.Fields{
			"time":          now,
			"last_activity": l.boundary.LastActivity(),
			"timeout":       l.keepalive.TimeoutMS,
		}).Warn("keepalive expired, resetting experiment")
		l.boundary.Reset()
	}
}

func (l *Loop) isFaulted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.faulted
}

func (l *Loop) enterFault(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.faulted = true
	l.fault = err
	logrus.WithError(err).Error("control loop faulted, actuation halted")
}
