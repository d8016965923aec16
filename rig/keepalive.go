package rig

// Keepalive supervises inbound liveness. TimeoutMS of zero disables the
// check entirely; otherwise a run is considered stalled once the bench
// clock passes lastActivity + TimeoutMS.
//
// Both timestamps are in bench time, so the check is pure data: no wall
// clock, no I/O, safe inside the tick.
type Keepalive struct {
	TimeoutMS uint32
}

// Expired reports whether the peer has been silent past the timeout. The
// comparison is strict and uses the post-increment tick time, so the reset
// lands on the first tick after the threshold is crossed, never before.
func (k Keepalive) Expired(timeMS, lastActivityMS uint32) bool {
	if k.TimeoutMS == 0 {
		return false
	}
	return timeMS > lastActivityMS+k.TimeoutMS
}
