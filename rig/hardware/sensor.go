package hardware

import (
	"math"
	"sync"

	"github.com/CodedInternet/gorig/rig"
	rigerrors "github.com/CodedInternet/gorig/rig/errors"
)

// Pin is a single output line (channel select, status indicator).
type Pin interface {
	Set(high bool)
}

// ADC reads the shared analog input the channels are multiplexed onto.
type ADC interface {
	Read() (uint16, error)
}

// Channel pairs the calibration for one axis with the select-line states
// that route it onto the ADC.
type Channel struct {
	Cal      rig.ChannelConfig
	SelectA  bool // state for the first select line
	SelectB  bool // state for the second select line
	Reversed bool // calibration slope runs high to low
}

// SensorBoard reads the rig position sensors. Read applies the fixed affine
// calibration and returns the measurement in meters, matching the firmware:
//
//	span*(raw-low)/(high-low) - span/2 + offset, scaled by 0.001
type SensorBoard struct {
	adc      ADC
	selectA  Pin
	selectB  Pin
	led      Pin
	channels []Channel

	mu      sync.Mutex
	current int
}

func NewSensorBoard(adc ADC, selectA, selectB, led Pin, channels []Channel) *SensorBoard {
	return &SensorBoard{
		adc:      adc,
		selectA:  selectA,
		selectB:  selectB,
		led:      led,
		channels: channels,
	}
}

// Select routes the given channel onto the ADC input.
func (sb *SensorBoard) Select(channel int) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.selectUnlocked(channel)
}

func (sb *SensorBoard) selectUnlocked(channel int) {
	if channel < 0 || channel >= len(sb.channels) {
		return
	}
	ch := sb.channels[channel]
	sb.selectA.Set(ch.SelectA)
	sb.selectB.Set(ch.SelectB)
	sb.current = channel
}

// SetIndicator drives the status LED.
func (sb *SensorBoard) SetIndicator(on bool) {
	sb.led.Set(on)
}

// Read returns the calibrated measurement of the currently selected
// channel.
func (sb *SensorBoard) Read() (float64, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.read(sb.current)
}

// ReadChannel selects and reads a specific channel.
func (sb *SensorBoard) ReadChannel(channel int) (float64, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.selectUnlocked(channel)
	return sb.read(channel)
}

func (sb *SensorBoard) read(channel int) (float64, error) {
	raw, err := sb.adc.Read()
	if err != nil {
		return 0, rigerrors.SensorError{Channel: channel, Cause: err}
	}

	cal := sb.channels[channel].Cal
	v := cal.Span*(float64(raw)-cal.Low)/(cal.High-cal.Low) - cal.Span/2 + cal.Offset
	if sb.channels[channel].Reversed {
		v = -v + 2*cal.Offset
	}
	return v * 0.001, nil // mm -> m
}

// SimADC is a stand-in analog input for running without the bench attached
// (-sim flag). It sweeps a triangle wave across the full ADC range.
type SimADC struct {
	mu   sync.Mutex
	step float64
	t    float64
}

func NewSimADC(step float64) *SimADC {
	if step <= 0 {
		step = 0.01
	}
	return &SimADC{step: step}
}

func (s *SimADC) Read() (uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t += s.step
	// triangle in [0, 1]
	frac := s.t - math.Floor(s.t)
	if frac > 0.5 {
		frac = 1 - frac
	}
	return uint16(frac * 2 * 1023), nil
}

// NopPin satisfies Pin where a line is not wired (sim mode).
type NopPin struct{}

func (NopPin) Set(bool) {}
