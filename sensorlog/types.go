package sensorlog

import (
	logalign "github.com/lucasjlepore/logalign"
)

// maxRowWarnings caps per-row warning lines; later problems are only counted.
const maxRowWarnings = 20

// Stats counts what a single pass over a log saw.
type Stats struct {
	Rows          int `json:"rows"`
	InertialRows  int `json:"inertial_rows"`
	BLERows       int `json:"ble_rows"`
	WiFiRows      int `json:"wifi_rows"`
	IgnoredRows   int `json:"ignored_rows"`
	MalformedRows int `json:"malformed_rows"`
	MalformedBLE  int `json:"malformed_ble"`
	MalformedWiFi int `json:"malformed_wifi"`
}

// Log is the per-source content of one device log.
type Log struct {
	// Inertial has one series per configured sensor, in configured order.
	Inertial []logalign.InertialSeries
	BLE      []logalign.RadioObservation
	WiFi     []logalign.RadioObservation
	Stats    Stats
	Warnings []string
}
