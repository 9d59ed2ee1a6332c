package logalign

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig marks configuration problems detected before any file work.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrSensorMissing means a configured inertial sensor never appeared in the log.
	ErrSensorMissing = errors.New("configured sensor has no samples")
	// ErrTooFewSamples means a sensor has fewer than two distinct timestamps.
	ErrTooFewSamples = errors.New("sensor has fewer than two samples")
	// ErrEmptyWindow means the configured sensors do not overlap in time.
	ErrEmptyWindow = errors.New("empty resampling window")
)

// SensorError attaches the offending sensor to a per-file failure.
type SensorError struct {
	Kind SensorKind
	Err  error
}

func (e *SensorError) Error() string {
	return fmt.Sprintf("sensor %s: %v", e.Kind, e.Err)
}

func (e *SensorError) Unwrap() error {
	return e.Err
}
