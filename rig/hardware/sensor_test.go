package hardware

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/CodedInternet/gorig/rig"
)

type mockADC struct {
	raw   uint16
	err   error
	reads int
}

func (a *mockADC) Read() (uint16, error) {
	a.reads++
	return a.raw, a.err
}

type mockPin struct {
	high bool
	sets int
}

func (p *mockPin) Set(high bool) {
	p.high = high
	p.sets++
}

func createTestBoard(adc *mockADC) (*SensorBoard, *mockPin, *mockPin, *mockPin) {
	selA := new(mockPin)
	selB := new(mockPin)
	led := new(mockPin)

	channels := []Channel{
		{
			Cal:     rig.ChannelConfig{Low: 278, High: 691, Span: 186, Offset: 2},
			SelectA: true,
			SelectB: false,
		},
		{
			Cal:      rig.ChannelConfig{Low: 258, High: 718, Span: 246, Offset: 6},
			SelectA:  false,
			SelectB:  true,
			Reversed: true,
		},
	}

	return NewSensorBoard(adc, selA, selB, led, channels), selA, selB, led
}

func TestSensorBoard(t *testing.T) {
	Convey("calibration maps raw counts to meters", t, func() {
		adc := &mockADC{raw: 278}
		board, _, _, _ := createTestBoard(adc)

		Convey("low end of the range", func() {
			v, err := board.ReadChannel(0)
			So(err, ShouldBeNil)
			So(v, ShouldAlmostEqual, -0.091, 1e-9) // -span/2 + offset, in m
		})

		Convey("high end of the range", func() {
			adc.raw = 691
			v, err := board.ReadChannel(0)
			So(err, ShouldBeNil)
			So(v, ShouldAlmostEqual, 0.095, 1e-9)
		})

		Convey("reversed channel runs the slope the other way", func() {
			adc.raw = 258
			v, err := board.ReadChannel(1)
			So(err, ShouldBeNil)
			So(v, ShouldAlmostEqual, 0.129, 1e-9)
		})
	})

	Convey("selecting a channel drives the select lines", t, func() {
		board, selA, selB, _ := createTestBoard(&mockADC{})

		board.Select(0)
		So(selA.high, ShouldBeTrue)
		So(selB.high, ShouldBeFalse)

		board.Select(1)
		So(selA.high, ShouldBeFalse)
		So(selB.high, ShouldBeTrue)

		Convey("out of range channels are ignored", func() {
			before := selA.sets
			board.Select(7)
			So(selA.sets, ShouldEqual, before)
		})
	})

	Convey("Read uses the selected channel", t, func() {
		adc := &mockADC{raw: 691}
		board, _, _, _ := createTestBoard(adc)

		board.Select(0)
		v, err := board.Read()
		So(err, ShouldBeNil)
		So(v, ShouldAlmostEqual, 0.095, 1e-9)
	})

	Convey("ADC failures surface as sensor errors", t, func() {
		adc := &mockADC{err: errors.New("bus stuck")}
		board, _, _, _ := createTestBoard(adc)

		_, err := board.Read()
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "sensor channel 0")
	})

	Convey("indicator drives the led pin", t, func() {
		board, _, _, led := createTestBoard(&mockADC{})

		board.SetIndicator(true)
		So(led.high, ShouldBeTrue)
		board.SetIndicator(false)
		So(led.high, ShouldBeFalse)
	})
}

func TestSimADC(t *testing.T) {
	Convey("stays inside the 10 bit range and keeps moving", t, func() {
		adc := NewSimADC(0.05)
		prev, _ := adc.Read()
		changed := false
		for i := 0; i < 100; i++ {
			v, err := adc.Read()
			So(err, ShouldBeNil)
			So(v, ShouldBeLessThanOrEqualTo, 1023)
			if v != prev {
				changed = true
			}
			prev = v
		}
		So(changed, ShouldBeTrue)
	})
}
