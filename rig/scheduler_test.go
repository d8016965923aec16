package rig

import (
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestScheduler(t *testing.T) {
	Convey("fires a task at its cadence", t, func() {
		var ticks int64
		s := NewScheduler()
		s.AddTask("fast", 5*time.Millisecond, func() {
			atomic.AddInt64(&ticks, 1)
		})
		s.Start()
		time.Sleep(60 * time.Millisecond)
		s.Stop()

		So(atomic.LoadInt64(&ticks), ShouldBeGreaterThan, 2)
	})

	Convey("never reenters a slow task, skipping instead", t, func() {
		var inflight, maxInflight, ticks int64
		s := NewScheduler()
		s.AddTask("slow", 5*time.Millisecond, func() {
			n := atomic.AddInt64(&inflight, 1)
			if n > atomic.LoadInt64(&maxInflight) {
				atomic.StoreInt64(&maxInflight, n)
			}
			time.Sleep(25 * time.Millisecond)
			atomic.AddInt64(&ticks, 1)
			atomic.AddInt64(&inflight, -1)
		})
		s.Start()
		time.Sleep(120 * time.Millisecond)
		s.Stop()

		So(atomic.LoadInt64(&maxInflight), ShouldEqual, 1)
		So(s.Skipped("slow"), ShouldBeGreaterThan, 0)

		// completed bodies never exceed the firings that ran
		So(uint64(atomic.LoadInt64(&ticks)), ShouldBeLessThanOrEqualTo, s.Fired("slow"))
	})

	Convey("no tick body runs once Stop has returned", t, func() {
		var ticks int64
		s := NewScheduler()
		s.AddTask("stopped", time.Millisecond, func() {
			atomic.AddInt64(&ticks, 1)
		})
		s.Start()
		time.Sleep(10 * time.Millisecond)
		s.Stop()

		after := atomic.LoadInt64(&ticks)
		time.Sleep(20 * time.Millisecond)
		So(atomic.LoadInt64(&ticks), ShouldEqual, after)
	})

	Convey("a pending fire never starts a tick once teardown has begun", t, func() {
		for i := 0; i < 100; i++ {
			var stopping int32
			var late int64
			s := NewScheduler()
			s.AddTask("teardown", time.Millisecond, func() {
				if atomic.LoadInt32(&stopping) == 1 {
					atomic.AddInt64(&late, 1)
				}
			})
			s.Start()
			time.Sleep(3 * time.Millisecond)
			atomic.StoreInt32(&stopping, 1)
			s.Stop()
			So(atomic.LoadInt64(&late), ShouldEqual, 0)
		}
	})

	Convey("adding a task after start is a programming error", t, func() {
		s := NewScheduler()
		s.Start()
		So(func() { s.AddTask("late", time.Second, func() {}) }, ShouldPanic)
		s.Stop()
	})
}
