package rig

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestKeepalive(t *testing.T) {
	Convey("zero timeout disables the supervisor entirely", t, func() {
		k := Keepalive{TimeoutMS: 0}
		So(k.Expired(1<<30, 0), ShouldBeFalse)
	})

	Convey("expiry is strict and lands after the threshold, not on it", t, func() {
		k := Keepalive{TimeoutMS: 500}

		// activity at t=1000, 100ms cadence
		So(k.Expired(1400, 1000), ShouldBeFalse)
		So(k.Expired(1500, 1000), ShouldBeFalse) // exactly the threshold
		So(k.Expired(1600, 1000), ShouldBeTrue)  // first tick past it
	})

	Convey("fresh activity rearms the supervisor", t, func() {
		k := Keepalive{TimeoutMS: 500}
		So(k.Expired(1600, 1000), ShouldBeTrue)
		So(k.Expired(1600, 1200), ShouldBeFalse)
	})
}
