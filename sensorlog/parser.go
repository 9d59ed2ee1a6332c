package sensorlog

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	logalign "github.com/lucasjlepore/logalign"
)

// Parse reads a tab-separated device log in a single forward pass.
//
// Each line is timestamp<TAB>kind<TAB>payload. Rows of configured inertial
// sensors become samples; BLE and WIFI rows become radio observations when
// enabled. Bad rows and bad radio records are skipped and counted, never
// returned as errors; only a failing reader is.
func Parse(r io.Reader, cfg logalign.Config) (*Log, error) {
	p := &rowParser{cfg: cfg, out: &Log{}}
	p.index = make(map[logalign.SensorKind]int, len(cfg.InertialSensors))
	for _, k := range cfg.InertialSensors {
		p.index[k] = len(p.out.Inertial)
		p.out.Inertial = append(p.out.Inertial, logalign.InertialSeries{Kind: k})
	}

	sc := bufio.NewScanner(r)
	buf := make([]byte, 0, 1024*1024)
	sc.Buffer(buf, 16*1024*1024)

	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		p.out.Stats.Rows++
		p.parseRow(line, text)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if p.suppressed > 0 {
		p.out.Warnings = append(p.out.Warnings, fmt.Sprintf("%d further row warnings suppressed", p.suppressed))
	}
	return p.out, nil
}

type rowParser struct {
	cfg        logalign.Config
	index      map[logalign.SensorKind]int
	out        *Log
	warned     int
	suppressed int
}

func (p *rowParser) parseRow(line int, text string) {
	fields := strings.Split(text, "\t")
	// A known kind decides whether the row is wanted before its shape is checked.
	if len(fields) >= 2 && !p.wanted(logalign.SensorKind(fields[1])) {
		p.out.Stats.IgnoredRows++
		return
	}
	if len(fields) < 3 {
		p.out.Stats.MalformedRows++
		p.warnf("line %d: expected 3 tab-separated fields, got %d", line, len(fields))
		return
	}
	kind := logalign.SensorKind(fields[1])
	payload := fields[2]
	idx, inertial := p.index[kind]

	ts, err := parseTimestamp(fields[0])
	if err != nil {
		p.out.Stats.MalformedRows++
		p.warnf("line %d: %v", line, err)
		return
	}

	switch {
	case inertial:
		p.parseInertial(line, ts, idx, kind, payload)
	case kind == logalign.BLE:
		p.parseBLE(line, ts, payload)
	default:
		p.parseWiFi(line, ts, payload)
	}
}

// parseInertial drops the leading accuracy field and keeps Width() values.
func (p *rowParser) parseInertial(line int, ts float64, idx int, kind logalign.SensorKind, payload string) {
	width := kind.Width()
	parts := strings.Split(payload, ",")
	if len(parts) < width+1 {
		p.out.Stats.MalformedRows++
		p.warnf("line %d: %s payload has %d values, want %d", line, kind, len(parts)-1, width)
		return
	}
	values := make([]float64, width)
	for i := range values {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i+1]), 64)
		if err != nil {
			p.out.Stats.MalformedRows++
			p.warnf("line %d: %s value %d: %v", line, kind, i, err)
			return
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			p.out.Stats.MalformedRows++
			p.warnf("line %d: %s value %d is not finite", line, kind, i)
			return
		}
		values[i] = v
	}
	p.out.Stats.InertialRows++
	series := &p.out.Inertial[idx]
	series.Samples = append(series.Samples, logalign.InertialSample{Timestamp: ts, Values: values})
}

func (p *rowParser) parseBLE(line int, ts float64, payload string) {
	p.out.Stats.BLERows++
	parts := strings.Split(payload, ",")
	if len(parts) < 2 {
		p.out.Stats.MalformedBLE++
		p.warnf("line %d: malformed ble record %q", line, payload)
		return
	}
	rssi, err := parseRSSI(parts[1])
	if err != nil {
		p.out.Stats.MalformedBLE++
		p.warnf("line %d: ble rssi: %v", line, err)
		return
	}
	p.out.BLE = append(p.out.BLE, logalign.RadioObservation{
		Timestamp:  ts,
		Identifier: strings.ToLower(strings.TrimSpace(parts[0])),
		RSSI:       rssi,
	})
}

// parseWiFi splits a scan into ssid|bssid|rssi records; the bssid is the
// device identifier.
func (p *rowParser) parseWiFi(line int, ts float64, payload string) {
	p.out.Stats.WiFiRows++
	if strings.TrimSpace(payload) == "" {
		return
	}
	for _, rec := range strings.Split(payload, ",") {
		parts := strings.Split(rec, "|")
		if len(parts) != 3 {
			p.out.Stats.MalformedWiFi++
			p.warnf("line %d: malformed wifi record %q", line, rec)
			continue
		}
		rssi, err := parseRSSI(parts[2])
		if err != nil {
			p.out.Stats.MalformedWiFi++
			p.warnf("line %d: wifi rssi: %v", line, err)
			continue
		}
		p.out.WiFi = append(p.out.WiFi, logalign.RadioObservation{
			Timestamp:  ts,
			Identifier: strings.ToLower(strings.TrimSpace(parts[1])),
			RSSI:       rssi,
		})
	}
}

// wanted reports whether rows of kind are extracted under the configuration.
func (p *rowParser) wanted(kind logalign.SensorKind) bool {
	if _, ok := p.index[kind]; ok {
		return true
	}
	return (kind == logalign.BLE && p.cfg.EnableBLE) || (kind == logalign.WiFi && p.cfg.EnableWiFi)
}

func (p *rowParser) warnf(format string, args ...any) {
	if p.warned >= maxRowWarnings {
		p.suppressed++
		return
	}
	p.warned++
	p.out.Warnings = append(p.out.Warnings, fmt.Sprintf(format, args...))
}

func parseTimestamp(s string) (float64, error) {
	ts, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("timestamp: %w", err)
	}
	if math.IsNaN(ts) || math.IsInf(ts, 0) {
		return 0, fmt.Errorf("timestamp %q is not finite", s)
	}
	return ts, nil
}

// parseRSSI accepts signed byte-range integers (-128..127).
func parseRSSI(s string) (int8, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 8)
	if err != nil {
		return 0, err
	}
	return int8(v), nil
}
