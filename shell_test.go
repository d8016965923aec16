package main

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/CodedInternet/gorig/rig"
)

func TestParseTrajectoryArgs(t *testing.T) {
	Convey("well formed arguments build a descriptor", t, func() {
		d, err := parseTrajectoryArgs([]string{"500", "1000", "-2", "10"})
		So(err, ShouldBeNil)
		So(d, ShouldResemble, rig.TrajectoryDescriptor{
			StartTime:  500,
			EndTime:    1000,
			StartValue: -2,
			EndValue:   10,
		})
	})

	Convey("a malformed number is reported, never silently zeroed", t, func() {
		for _, args := range [][]string{
			{"a", "1000", "0", "10"},
			{"0", "b", "0", "10"},
			{"0", "1000", "c", "10"},
			{"0", "1000", "0", "d"},
		} {
			_, err := parseTrajectoryArgs(args)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "bad ")
		}
	})

	Convey("wrong arity is an error", t, func() {
		_, err := parseTrajectoryArgs([]string{"0", "1000"})
		So(err, ShouldNotBeNil)
	})

	Convey("a start after the end never parses into a descriptor", t, func() {
		_, err := parseTrajectoryArgs([]string{"2000", "1000", "0", "10"})
		So(err, ShouldNotBeNil)
	})
}
