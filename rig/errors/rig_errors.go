package errors

import "fmt"

type DescriptorError struct {
	Start, End uint32
}

func (err DescriptorError) Error() string {
	return fmt.Sprintf("invalid trajectory descriptor; start time %d is after end time %d", err.Start, err.End)
}

type VersionError struct {
	Got, Want string
}

func (err VersionError) Error() string {
	if len(err.Got) == 0 {
		err.Got = "UNKOWN"
	}
	return fmt.Sprintf("incompatible peer; recieved version %s - require %s", err.Got, err.Want)
}

type SensorError struct {
	Channel int
	Cause   error
}

func (err SensorError) Error() string {
	return fmt.Sprintf("sensor channel %d read failed: %v", err.Channel, err.Cause)
}
