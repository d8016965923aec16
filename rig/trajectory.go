package rig

// ValueSource produces the commanded output value for a given experiment
// time. The two variants are selected by config at startup, never switched
// mid-run.
type ValueSource interface {
	Output(timeMS uint32) (float64, error)
}

// Trajectory computes a linear ramp from the bench's active descriptor:
// hold at StartValue before StartTime, slope/intercept interpolation inside
// the window, hold at EndValue after EndTime.
type Trajectory struct {
	bench *Bench
}

func NewTrajectory(bench *Bench) *Trajectory {
	return &Trajectory{bench: bench}
}

func (t *Trajectory) Output(timeMS uint32) (float64, error) {
	return Interpolate(t.bench.Descriptor(), timeMS), nil
}

// Interpolate is the pure ramp computation. Safe for concurrent use; the
// descriptor is passed by value.
func Interpolate(d TrajectoryDescriptor, timeMS uint32) float64 {
	if timeMS < d.StartTime {
		return d.StartValue
	}
	if timeMS < d.EndTime {
		// slope/intercept form, matching the rig controller firmware
		m := (d.EndValue - d.StartValue) / float64(d.EndTime-d.StartTime)
		n := d.EndValue - m*float64(d.EndTime)
		return m*float64(timeMS) + n
	}
	// also covers the degenerate StartTime == EndTime descriptor, which
	// must never reach the division above
	return d.EndValue
}

// Sensor is the calibrated position input the follower variant tracks.
type Sensor interface {
	Read() (float64, error)
}

// SensorFollower ignores the trajectory descriptor and commands whatever
// the position sensor currently reports.
type SensorFollower struct {
	sensor Sensor
}

func NewSensorFollower(sensor Sensor) *SensorFollower {
	return &SensorFollower{sensor: sensor}
}

func (f *SensorFollower) Output(_ uint32) (float64, error) {
	return f.sensor.Read()
}
