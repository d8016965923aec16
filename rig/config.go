package rig

import "fmt"

const (
	ModeTrajectory = "trajectory"
	ModeFollower   = "follower"

	// defaults per variant
	trajectoryPeriodMS    = 1000
	followerPeriodMS      = 100
	followerKeepaliveMS   = 500
	trajectoryKeepaliveMS = 0
)

// ChannelConfig is the affine calibration for one sensor channel: raw ADC
// counts between Low and High map onto Span (mm), centred, plus Offset.
type ChannelConfig struct {
	Low    float64 `yaml:"low"`
	High   float64 `yaml:"high"`
	Span   float64 `yaml:"span"`
	Offset float64 `yaml:"offset"`
}

// RigConfig is the yaml rig description loaded at startup. KeepaliveMS is a
// pointer so an explicit 0 (feature disabled) is distinguishable from the
// key being absent.
type RigConfig struct {
	Version     int
	Mode        string
	PeriodMS    uint32  `yaml:"period_ms"`
	KeepaliveMS *uint32 `yaml:"keepalive_ms"`
	Port        int
	Channels    []ChannelConfig `yaml:"channels,flow"`
}

// ApplyDefaults fills the variant defaults for anything the file left out.
// Trajectory mode runs at whole-second cadence with keepalive off; follower
// mode matches the firmware cadence.
func (c *RigConfig) ApplyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeTrajectory
	}
	if c.PeriodMS == 0 {
		switch c.Mode {
		case ModeFollower:
			c.PeriodMS = followerPeriodMS
		default:
			c.PeriodMS = trajectoryPeriodMS
		}
	}
	if c.KeepaliveMS == nil {
		ka := new(uint32)
		if c.Mode == ModeFollower {
			*ka = followerKeepaliveMS
		} else {
			*ka = trajectoryKeepaliveMS
		}
		c.KeepaliveMS = ka
	}
}

// Keepalive returns the supervisor configured for this rig.
func (c *RigConfig) Keepalive() Keepalive {
	if c.KeepaliveMS == nil {
		return Keepalive{}
	}
	return Keepalive{TimeoutMS: *c.KeepaliveMS}
}

func (c *RigConfig) Validate() error {
	switch c.Version {
	case 1:
		// current layout
	default:
		return fmt.Errorf("unable to work with version %d", c.Version)
	}

	switch c.Mode {
	case ModeTrajectory, ModeFollower:
	default:
		return fmt.Errorf("unknown mode '%s'", c.Mode)
	}

	if c.Mode == ModeFollower && len(c.Channels) == 0 {
		return fmt.Errorf("follower mode requires at least one sensor channel")
	}

	return nil
}
