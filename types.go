package logalign

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// SensorKind names one stream in a device log (second tab-separated column).
type SensorKind string

const (
	Accelerometer   SensorKind = "ACC"
	Gravity         SensorKind = "GRAV"
	Gyroscope       SensorKind = "GYRO"
	Magnetometer    SensorKind = "MAG"
	RotationVector  SensorKind = "ROTV"
	GameRotationVec SensorKind = "GROTV"

	BLE  SensorKind = "BLE"
	WiFi SensorKind = "WIFI"
)

var inertialWidths = map[SensorKind]int{
	Accelerometer:   3,
	Gravity:         3,
	Gyroscope:       3,
	Magnetometer:    3,
	RotationVector:  4,
	GameRotationVec: 4,
}

var vectorAxes = []string{"x", "y", "z", "w"}

// ParseSensorKind maps a configured name onto an inertial sensor kind.
func ParseSensorKind(name string) (SensorKind, error) {
	k := SensorKind(strings.ToUpper(strings.TrimSpace(name)))
	if _, ok := inertialWidths[k]; !ok {
		return "", fmt.Errorf("%w: unknown inertial sensor %q", ErrInvalidConfig, name)
	}
	return k, nil
}

// Inertial reports whether k is a continuously sampled motion sensor.
func (k SensorKind) Inertial() bool {
	_, ok := inertialWidths[k]
	return ok
}

// Width is the number of value channels per sample: 3 for vectors, 4 for
// rotation vectors (x, y, z, scalar). Radio kinds have width 0.
func (k SensorKind) Width() int {
	return inertialWidths[k]
}

// Columns returns the value column names of k, e.g. acc_x, acc_y, acc_z.
func (k SensorKind) Columns() []string {
	prefix := strings.ToLower(string(k))
	out := make([]string, 0, k.Width())
	for i := 0; i < k.Width(); i++ {
		out = append(out, prefix+"_"+vectorAxes[i])
	}
	return out
}

// Config is passed explicitly to every stage of the per-file pipeline.
type Config struct {
	// InertialSensors lists the sensors to extract, in output column order.
	InertialSensors []SensorKind
	EnableBLE       bool
	EnableWiFi      bool
	// FrequencyHz is the resampling rate of the aligned inertial table.
	FrequencyHz float64
	// Location used for human-readable timestamps; nil means time.Local.
	Location *time.Location
}

// Validate checks the configuration before any file is touched.
func (c Config) Validate() error {
	if math.IsNaN(c.FrequencyHz) || math.IsInf(c.FrequencyHz, 0) || c.FrequencyHz <= 0 {
		return fmt.Errorf("%w: frequency must be positive, got %v", ErrInvalidConfig, c.FrequencyHz)
	}
	seen := make(map[SensorKind]struct{}, len(c.InertialSensors))
	for _, k := range c.InertialSensors {
		if !k.Inertial() {
			return fmt.Errorf("%w: unknown inertial sensor %q", ErrInvalidConfig, k)
		}
		if _, ok := seen[k]; ok {
			return fmt.Errorf("%w: sensor %s configured twice", ErrInvalidConfig, k)
		}
		seen[k] = struct{}{}
	}
	return nil
}

// SensorTag is the lower-cased first letter of each configured sensor, in order.
func (c Config) SensorTag() string {
	var b strings.Builder
	for _, k := range c.InertialSensors {
		if k == "" {
			continue
		}
		b.WriteString(strings.ToLower(string(k[:1])))
	}
	return b.String()
}

// TimeLocation is the zone used for human-readable timestamps.
func (c Config) TimeLocation() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// InertialSample is one decoded inertial row: a timestamp in seconds since
// the Unix epoch and Width() channel values.
type InertialSample struct {
	Timestamp float64
	Values    []float64
}

// InertialSeries holds the samples of one sensor in log order.
type InertialSeries struct {
	Kind    SensorKind
	Samples []InertialSample
}

// RadioObservation is one BLE advertisement or one access point of a WiFi scan.
type RadioObservation struct {
	Timestamp  float64
	Identifier string
	RSSI       int8
}

// AlignedTable is the uniformly resampled inertial output.
type AlignedTable struct {
	Sensors     []SensorKind
	Columns     []string
	FrequencyHz float64
	Start       float64
	Stop        float64
	Timestamps  []float64
	// Values has one row per timestamp with Width() interpolated values.
	Values [][]float64
	// DuplicatesDropped counts raw samples discarded because another sample
	// of the same sensor carried the same timestamp.
	DuplicatesDropped int
}

// Width is the number of value columns per row.
func (t *AlignedTable) Width() int {
	return len(t.Columns)
}

// Len is the number of grid rows.
func (t *AlignedTable) Len() int {
	return len(t.Timestamps)
}

// RadioTable is the columnar, non-resampled form of one radio stream.
// All slices share the same length and the input order.
type RadioTable struct {
	Kind        SensorKind
	Unix        []float64
	Times       []time.Time
	Identifiers []string
	RSSI        []int8
}

// Len is the number of observations.
func (t *RadioTable) Len() int {
	return len(t.Unix)
}
