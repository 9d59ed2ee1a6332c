package sensorlog

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	logalign "github.com/lucasjlepore/logalign"
)

const sampleLog = "1700000000.000\tACC\t3,0.1,0.2,9.8\n" +
	"1700000000.010\tGYRO\t3,0.01,0.02,0.03\n" +
	"1700000000.012\tROTV\t3,0.1,0.2,0.3,0.9,0.5\n" +
	"1700000000.015\tBLE\tAA:BB:CC:DD:EE:FF,-67\n" +
	"1700000000.020\tWIFI\tlab|00:11:22:33:44:55|-40,guest|00:11:22:33:44:66|-71\n" +
	"1700000000.020\tMAG\t3,10,20,30\n" +
	"1700000000.030\tACC\t3,0.2,0.3,9.7\r\n" +
	"\n"

func testConfig() logalign.Config {
	return logalign.Config{
		InertialSensors: []logalign.SensorKind{logalign.Accelerometer, logalign.Gyroscope, logalign.RotationVector},
		EnableBLE:       true,
		EnableWiFi:      true,
		FrequencyHz:     100,
	}
}

func TestParseSplitsSources(t *testing.T) {
	out, err := Parse(strings.NewReader(sampleLog), testConfig())
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if len(out.Inertial) != 3 {
		t.Fatalf("expected 3 series, got %d", len(out.Inertial))
	}
	acc := out.Inertial[0]
	want := []logalign.InertialSample{
		{Timestamp: 1700000000.000, Values: []float64{0.1, 0.2, 9.8}},
		{Timestamp: 1700000000.030, Values: []float64{0.2, 0.3, 9.7}},
	}
	if diff := cmp.Diff(want, acc.Samples); diff != "" {
		t.Fatalf("acc samples mismatch (-want +got):\n%s", diff)
	}
	rotv := out.Inertial[2]
	if diff := cmp.Diff([]float64{0.1, 0.2, 0.3, 0.9}, rotv.Samples[0].Values); diff != "" {
		t.Fatalf("rotv values mismatch (-want +got):\n%s", diff)
	}
	for _, s := range out.Inertial {
		if s.Kind == logalign.Magnetometer {
			t.Fatalf("unconfigured sensor should have no series")
		}
	}

	wantBLE := []logalign.RadioObservation{{Timestamp: 1700000000.015, Identifier: "aa:bb:cc:dd:ee:ff", RSSI: -67}}
	if diff := cmp.Diff(wantBLE, out.BLE); diff != "" {
		t.Fatalf("ble mismatch (-want +got):\n%s", diff)
	}
	wantWiFi := []logalign.RadioObservation{
		{Timestamp: 1700000000.020, Identifier: "00:11:22:33:44:55", RSSI: -40},
		{Timestamp: 1700000000.020, Identifier: "00:11:22:33:44:66", RSSI: -71},
	}
	if diff := cmp.Diff(wantWiFi, out.WiFi); diff != "" {
		t.Fatalf("wifi mismatch (-want +got):\n%s", diff)
	}

	wantStats := Stats{Rows: 7, InertialRows: 4, BLERows: 1, WiFiRows: 1, IgnoredRows: 1}
	if diff := cmp.Diff(wantStats, out.Stats); diff != "" {
		t.Fatalf("stats mismatch (-want +got):\n%s", diff)
	}
	if len(out.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", out.Warnings)
	}
}

func TestParseSkipsMalformedWiFiRecord(t *testing.T) {
	log := "10.0\tWIFI\ta|00:00:00:00:00:01|-50,b|00:00:00:00:00:02|-51,ssid|bssid,c|00:00:00:00:00:03|-52\n"

	out, err := Parse(strings.NewReader(log), testConfig())
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(out.WiFi) != 3 {
		t.Fatalf("expected 3 wifi observations, got %d", len(out.WiFi))
	}
	if out.Stats.MalformedWiFi != 1 {
		t.Fatalf("expected skip count 1, got %d", out.Stats.MalformedWiFi)
	}
	ids := []string{out.WiFi[0].Identifier, out.WiFi[1].Identifier, out.WiFi[2].Identifier}
	if diff := cmp.Diff([]string{"00:00:00:00:00:01", "00:00:00:00:00:02", "00:00:00:00:00:03"}, ids); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if len(out.Warnings) != 1 || !strings.Contains(out.Warnings[0], "malformed wifi record") {
		t.Fatalf("expected one malformed wifi warning, got %v", out.Warnings)
	}
}

func TestParseEmptyWiFiScan(t *testing.T) {
	out, err := Parse(strings.NewReader("10.0\tWIFI\t\n"), testConfig())
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(out.WiFi) != 0 || out.Stats.MalformedWiFi != 0 || out.Stats.WiFiRows != 1 {
		t.Fatalf("unexpected result for empty scan: %+v", out.Stats)
	}
}

func TestParseRowFailuresAreLocal(t *testing.T) {
	log := strings.Join([]string{
		"1.0\tACC\t3,1,2,3",
		"not-a-time\tACC\t3,1,2,3",
		"2.0\tACC\t3,1,2",
		"3.0\tACC\t3,1,x,3",
		"4.0\tACC",
		"NaN\tGYRO\t3,1,1,1",
		"5.0\tBLE\tAA:BB",
		"6.0\tBLE\tAA:BB,-300",
		"7.0\tWIFI\tx|y|loud",
		"8.0\tACC\t3,4,5,6",
		"9.0\tACC\t3,1,NaN,3",
		"10.0\tGYRO\t3,Inf,0,0",
		"11.0\tMAG",
	}, "\n")

	out, err := Parse(strings.NewReader(log), testConfig())
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if n := len(out.Inertial[0].Samples); n != 2 {
		t.Fatalf("expected 2 valid acc samples, got %d", n)
	}
	want := Stats{
		Rows:          13,
		InertialRows:  2,
		BLERows:       2,
		WiFiRows:      1,
		IgnoredRows:   1,
		MalformedRows: 7,
		MalformedBLE:  2,
		MalformedWiFi: 1,
	}
	if diff := cmp.Diff(want, out.Stats); diff != "" {
		t.Fatalf("stats mismatch (-want +got):\n%s", diff)
	}
	if len(out.Warnings) != 10 {
		t.Fatalf("expected 10 warnings, got %d: %v", len(out.Warnings), out.Warnings)
	}
	if !strings.HasPrefix(out.Warnings[0], "line 2:") {
		t.Fatalf("expected line number in warning, got %q", out.Warnings[0])
	}
	for _, s := range out.Inertial {
		for _, smp := range s.Samples {
			for _, v := range smp.Values {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Fatalf("non-finite value kept in %s: %v", s.Kind, smp)
				}
			}
		}
	}
}

func TestParseDisabledRadioIsIgnored(t *testing.T) {
	cfg := testConfig()
	cfg.EnableBLE = false
	cfg.EnableWiFi = false

	out, err := Parse(strings.NewReader(sampleLog), cfg)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if out.BLE != nil || out.WiFi != nil {
		t.Fatalf("expected no radio observations")
	}
	if out.Stats.IgnoredRows != 3 {
		t.Fatalf("expected 3 ignored rows, got %d", out.Stats.IgnoredRows)
	}
}

func TestParseCapsWarnings(t *testing.T) {
	var b strings.Builder
	for i := 0; i < maxRowWarnings+5; i++ {
		fmt.Fprintf(&b, "%d\tACC\t3,1\n", i)
	}

	out, err := Parse(strings.NewReader(b.String()), testConfig())
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if out.Stats.MalformedRows != maxRowWarnings+5 {
		t.Fatalf("expected every bad row counted, got %d", out.Stats.MalformedRows)
	}
	if len(out.Warnings) != maxRowWarnings+1 {
		t.Fatalf("expected %d warnings, got %d", maxRowWarnings+1, len(out.Warnings))
	}
	if last := out.Warnings[len(out.Warnings)-1]; last != "5 further row warnings suppressed" {
		t.Fatalf("unexpected trailing warning %q", last)
	}
}
