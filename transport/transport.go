package transport

import (
	"io"
	"sync"

	"github.com/Masterminds/semver"
	"github.com/sirupsen/logrus"

	"github.com/CodedInternet/gorig/rig"
	rigerrors "github.com/CodedInternet/gorig/rig/errors"
)

const (
	// acceptable peer protocol versions for the FID_VERSION handshake
	PROTOCOL_VERSION = "~1.0.0"
)

// TelemetrySample is the decoded per-tick telemetry, fanned out to
// websocket clients and the run log.
type TelemetrySample struct {
	Time   uint32  `json:"time"`
	Output float64 `json:"output"`
	Sensor float64 `json:"sensor"`
}

// Transport owns the two frame queues and the session bookkeeping between
// the network side and the control loop. The loop only ever touches it
// through the rig.Boundary methods, all of which are queue and state work;
// no call here blocks on the wire.
type Transport struct {
	in  *Queue
	out *Queue

	bench *rig.Bench

	mu           sync.Mutex
	lastActivity uint32
	peerVersion  string
	peerRejected bool
	conn         io.Closer

	// OnRunEnd is invoked with a summary whenever a run stops, for the
	// run log. Optional.
	OnRunEnd func(rig.RunSummary)
	// OnTelemetry is invoked for every outbound sample. Optional.
	OnTelemetry func(TelemetrySample)
}

func NewTransport(bench *rig.Bench) *Transport {
	return &Transport{
		in:    NewQueue(),
		out:   NewQueue(),
		bench: bench,
	}
}

// Inbound is the queue the network reader produces into.
func (t *Transport) Inbound() *Queue { return t.in }

// Outbound is the queue the network writer consumes from.
func (t *Transport) Outbound() *Queue { return t.out }

// BindConn attaches the current connection so Reset can drop it. Passing
// nil detaches.
func (t *Transport) BindConn(c io.Closer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conn = c
}

// HandleFrames drains the inbound queue, dispatching every pending command
// in arrival order. Called once per control tick.
func (t *Transport) HandleFrames() {
	for {
		f, ok := t.in.Pop()
		if !ok {
			return
		}
		t.dispatch(f)
	}
}

func (t *Transport) dispatch(f Frame) {
	switch f.ID {
	case FID_EXPERIMENT:
		run, err := decodeExperiment(f.Payload)
		if err != nil {
			logrus.WithError(err).Warn("dropping malformed experiment frame")
			return
		}
		if run {
			if t.rejected() {
				logrus.WithField("version", t.PeerVersion()).
					Error("refusing to start experiment for incompatible peer")
				return
			}
			t.bench.Start()
			logrus.Info("experiment started")
		} else {
			summary, wasRunning := t.bench.Stop()
			if !wasRunning {
				// idle or duplicated stop: nothing to record
				logrus.Debug("ignoring stop frame, no experiment running")
				return
			}
			t.recordRun(summary)
			logrus.WithField("duration_ms", summary.Duration).Info("experiment stopped")
		}

	case FID_TRAJECTORY:
		d, err := decodeTrajectory(f.Payload)
		if err != nil {
			// configuration error: the bad descriptor must never
			// replace the active one
			logrus.WithError(err).Warn("rejecting trajectory descriptor")
			return
		}
		if err = t.bench.SetDescriptor(d); err != nil {
			logrus.WithError(err).Warn("rejecting trajectory descriptor")
			return
		}

	case FID_VERSION:
		version, err := decodeVersion(f.Payload)
		if err != nil {
			logrus.WithError(err).Warn("dropping malformed version frame")
			return
		}
		t.checkVersion(version)

	default:
		logrus.WithField("id", f.ID).Debug("ignoring unexpected inbound frame")
		return
	}

	// any valid inbound frame counts as peer activity
	t.stampActivity()
}

// checkVersion gates the session on a compatible peer library.
func (t *Transport) checkVersion(version string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.peerVersion = version
	t.peerRejected = true

	v, err := semver.NewVersion(version)
	if err != nil {
		logrus.WithField("version", version).Warn("peer version is not a semver")
		return
	}

	constraint, err := semver.NewConstraint(PROTOCOL_VERSION)
	if err != nil {
		panic(err) // malformed constant
	}

	if !constraint.Check(v) {
		verr := rigerrors.VersionError{Got: version, Want: PROTOCOL_VERSION}
		logrus.WithError(verr).Error("peer protocol version rejected")
		return
	}

	t.peerRejected = false
}

func (t *Transport) rejected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peerRejected
}

// PeerVersion returns the last version the peer announced.
func (t *Transport) PeerVersion() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peerVersion
}

func (t *Transport) stampActivity() {
	now := t.bench.Time()
	t.mu.Lock()
	t.lastActivity = now
	t.mu.Unlock()
}

// LastActivity is the bench time of the last valid inbound frame.
func (t *Transport) LastActivity() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastActivity
}

// Running reports whether the session currently authorizes control
// activity.
func (t *Transport) Running() bool {
	return t.bench.Running()
}

// SendTelemetry enqueues one outbound telemetry frame and feeds the fan-out
// hook.
func (t *Transport) SendTelemetry(timeMS uint32, output, sensor float64) {
	t.out.Push(NewTelemetryFrame(timeMS, output, sensor))
	if t.OnTelemetry != nil {
		t.OnTelemetry(TelemetrySample{Time: timeMS, Output: output, Sensor: sensor})
	}
}

// Reset tears down the experiment: bench state is cleared, pending frames
// are dropped and the current connection, if any, is closed.
func (t *Transport) Reset() {
	summary, wasRunning := t.bench.Reset()
	if wasRunning {
		t.recordRun(summary)
	}

	if n := t.in.Drain(); n > 0 {
		logrus.WithField("frames", n).Debug("dropped pending inbound frames on reset")
	}
	t.out.Drain()

	t.mu.Lock()
	t.lastActivity = 0
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

func (t *Transport) recordRun(s rig.RunSummary) {
	if t.OnRunEnd != nil {
		t.OnRunEnd(s)
	}
}
