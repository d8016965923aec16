package rig

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"gopkg.in/yaml.v2"
)

const testYaml = `
version: 1
mode: follower
port: 50007
channels:
- {low: 278, high: 691, span: 186, offset: 2}
- {low: 258, high: 718, span: 246, offset: 6}
`

func TestConfigParsing(t *testing.T) {
	var config RigConfig

	Convey("parsing is successful", t, func() {
		err := yaml.Unmarshal([]byte(testYaml), &config)
		So(err, ShouldBeNil)

		Convey("channel calibrations are set", func() {
			So(config.Channels, ShouldHaveLength, 2)
			So(config.Channels[1], ShouldResemble, ChannelConfig{Low: 258, High: 718, Span: 246, Offset: 6})
		})

		Convey("follower defaults kick in", func() {
			config.ApplyDefaults()
			So(config.PeriodMS, ShouldEqual, 100)
			So(*config.KeepaliveMS, ShouldEqual, 500)
			So(config.Validate(), ShouldBeNil)
			So(config.Keepalive().TimeoutMS, ShouldEqual, 500)
		})
	})

	Convey("trajectory defaults", t, func() {
		c := RigConfig{Version: 1}
		c.ApplyDefaults()
		So(c.Mode, ShouldEqual, ModeTrajectory)
		So(c.PeriodMS, ShouldEqual, 1000)
		So(*c.KeepaliveMS, ShouldEqual, 0)
		So(c.Validate(), ShouldBeNil)
	})

	Convey("an explicit zero keepalive stays disabled", t, func() {
		ka := new(uint32)
		c := RigConfig{Version: 1, Mode: ModeFollower, KeepaliveMS: ka,
			Channels: []ChannelConfig{{Low: 0, High: 1023, Span: 100}}}
		c.ApplyDefaults()
		So(*c.KeepaliveMS, ShouldEqual, 0)
		So(c.Keepalive().TimeoutMS, ShouldEqual, 0)
	})

	Convey("validation rejects broken configs", t, func() {
		Convey("unknown version", func() {
			c := RigConfig{Version: 9}
			c.ApplyDefaults()
			So(c.Validate(), ShouldNotBeNil)
		})

		Convey("unknown mode", func() {
			c := RigConfig{Version: 1, Mode: "banana"}
			So(c.Validate(), ShouldNotBeNil)
		})

		Convey("follower without channels", func() {
			c := RigConfig{Version: 1, Mode: ModeFollower}
			c.ApplyDefaults()
			So(c.Validate(), ShouldNotBeNil)
		})
	})
}
