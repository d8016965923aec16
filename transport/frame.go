package transport

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/CodedInternet/gorig/rig"
)

// Frame ids understood by the transport. Everything else on the wire is
// rejected at the decode boundary; the control loop never sees raw bytes.
const (
	FID_EXPERIMENT uint8 = 1  // 1 byte: run/stop flag
	FID_VERSION    uint8 = 2  // 8 bytes: NUL padded ASCII semver
	FID_TELEMETRY  uint8 = 10 // uint32 time + float64 output + float64 sensor
	FID_TRAJECTORY uint8 = 11 // uint32 start, uint32 end, float64 startValue, float64 endValue
)

// payload sizes are fixed per id so the reader never has to guess
var payloadLen = map[uint8]int{
	FID_EXPERIMENT: 1,
	FID_VERSION:    8,
	FID_TELEMETRY:  20,
	FID_TRAJECTORY: 24,
}

// Frame is one opaque unit of exchange. Immutable once enqueued.
type Frame struct {
	ID      uint8
	Payload []byte
}

// ReadFrame decodes a single frame off the wire: one id byte followed by
// the id's fixed payload.
func ReadFrame(r io.Reader) (f Frame, err error) {
	var id [1]byte
	if _, err = io.ReadFull(r, id[:]); err != nil {
		return
	}

	n, ok := payloadLen[id[0]]
	if !ok {
		err = fmt.Errorf("unknown frame id %d", id[0])
		return
	}

	f.ID = id[0]
	f.Payload = make([]byte, n)
	_, err = io.ReadFull(r, f.Payload)
	return
}

// WriteFrame encodes a frame onto the wire.
func WriteFrame(w io.Writer, f Frame) error {
	if want, ok := payloadLen[f.ID]; !ok || want != len(f.Payload) {
		return fmt.Errorf("malformed frame id %d len %d", f.ID, len(f.Payload))
	}
	if _, err := w.Write([]byte{f.ID}); err != nil {
		return err
	}
	_, err := w.Write(f.Payload)
	return err
}

// NewTelemetryFrame packs the per-tick sample sent back to the client.
func NewTelemetryFrame(timeMS uint32, output, sensor float64) Frame {
	p := make([]byte, payloadLen[FID_TELEMETRY])
	binary.BigEndian.PutUint32(p[0:], timeMS)
	binary.BigEndian.PutUint64(p[4:], math.Float64bits(output))
	binary.BigEndian.PutUint64(p[12:], math.Float64bits(sensor))
	return Frame{ID: FID_TELEMETRY, Payload: p}
}

// NewTrajectoryFrame packs a descriptor command frame.
func NewTrajectoryFrame(d rig.TrajectoryDescriptor) Frame {
	p := make([]byte, payloadLen[FID_TRAJECTORY])
	binary.BigEndian.PutUint32(p[0:], d.StartTime)
	binary.BigEndian.PutUint32(p[4:], d.EndTime)
	binary.BigEndian.PutUint64(p[8:], math.Float64bits(d.StartValue))
	binary.BigEndian.PutUint64(p[16:], math.Float64bits(d.EndValue))
	return Frame{ID: FID_TRAJECTORY, Payload: p}
}

// NewExperimentFrame packs a run/stop command frame.
func NewExperimentFrame(run bool) Frame {
	p := []byte{0}
	if run {
		p[0] = 1
	}
	return Frame{ID: FID_EXPERIMENT, Payload: p}
}

// NewVersionFrame packs the peer protocol version handshake.
func NewVersionFrame(version string) Frame {
	p := make([]byte, payloadLen[FID_VERSION])
	copy(p, version)
	return Frame{ID: FID_VERSION, Payload: p}
}

func decodeTrajectory(p []byte) (d rig.TrajectoryDescriptor, err error) {
	if len(p) != payloadLen[FID_TRAJECTORY] {
		err = fmt.Errorf("trajectory frame payload is %d bytes", len(p))
		return
	}
	d.StartTime = binary.BigEndian.Uint32(p[0:])
	d.EndTime = binary.BigEndian.Uint32(p[4:])
	d.StartValue = math.Float64frombits(binary.BigEndian.Uint64(p[8:]))
	d.EndValue = math.Float64frombits(binary.BigEndian.Uint64(p[16:]))
	err = d.Validate()
	return
}

func decodeExperiment(p []byte) (run bool, err error) {
	if len(p) != payloadLen[FID_EXPERIMENT] {
		err = fmt.Errorf("experiment frame payload is %d bytes", len(p))
		return
	}
	return p[0] != 0, nil
}

func decodeVersion(p []byte) (version string, err error) {
	if len(p) != payloadLen[FID_VERSION] {
		err = fmt.Errorf("version frame payload is %d bytes", len(p))
		return
	}
	return string(bytes.TrimRight(p, "\x00")), nil
}

// DecodeTelemetry unpacks a telemetry frame; test rigs and the websocket
// conductor both consume this.
func DecodeTelemetry(f Frame) (timeMS uint32, output, sensor float64, err error) {
	if f.ID != FID_TELEMETRY || len(f.Payload) != payloadLen[FID_TELEMETRY] {
		err = fmt.Errorf("not a telemetry frame")
		return
	}
	timeMS = binary.BigEndian.Uint32(f.Payload[0:])
	output = math.Float64frombits(binary.BigEndian.Uint64(f.Payload[4:]))
	sensor = math.Float64frombits(binary.BigEndian.Uint64(f.Payload[12:]))
	return
}
