package pipeline

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	logalign "github.com/lucasjlepore/logalign"
	"github.com/lucasjlepore/logalign/sensorlog"
)

// buildDataset parses one log and runs the resampler and radio normalizer.
func buildDataset(data []byte, sourceName, label string, cfg logalign.Config) (*Dataset, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	parsed, err := sensorlog.Parse(bytes.NewReader(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parse log: %w", err)
	}

	ds := &Dataset{
		RunID:      uuid.NewString(),
		SourceName: sourceName,
		Label:      label,
		Config:     cfg,
		Stats:      parsed.Stats,
	}

	if len(cfg.InertialSensors) > 0 {
		table, err := logalign.Resample(parsed.Inertial, cfg.FrequencyHz)
		if err != nil {
			return nil, fmt.Errorf("resample inertial: %w", err)
		}
		ds.Inertial = table
	}
	loc := cfg.TimeLocation()
	if cfg.EnableBLE {
		ds.BLE = logalign.NormalizeRadio(logalign.BLE, parsed.BLE, loc)
	}
	if cfg.EnableWiFi {
		ds.WiFi = logalign.NormalizeRadio(logalign.WiFi, parsed.WiFi, loc)
	}

	if n := parsed.Stats.MalformedRows; n > 0 {
		ds.Warnings = append(ds.Warnings, fmt.Sprintf("skipped %d malformed rows", n))
	}
	if n := parsed.Stats.MalformedBLE; n > 0 {
		ds.Warnings = append(ds.Warnings, fmt.Sprintf("skipped %d malformed ble rows", n))
	}
	if n := parsed.Stats.MalformedWiFi; n > 0 {
		ds.Warnings = append(ds.Warnings, fmt.Sprintf("skipped %d malformed wifi records", n))
	}
	if ds.Inertial != nil && ds.Inertial.DuplicatesDropped > 0 {
		ds.Warnings = append(ds.Warnings, fmt.Sprintf("dropped %d inertial samples with duplicate timestamps", ds.Inertial.DuplicatesDropped))
	}
	ds.Warnings = append(ds.Warnings, parsed.Warnings...)
	return ds, nil
}

// artifactStem is the log base name plus the optional label.
func artifactStem(sourceName, label string) string {
	base := filepath.Base(sourceName)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if label = strings.TrimSpace(label); label != "" {
		stem += "_" + label
	}
	return stem
}

type artifactPaths struct {
	inertial []string
	ble      []string
	wifi     []string
	manifest string
}

func (p artifactPaths) all() []string {
	out := make([]string, 0, len(p.inertial)+len(p.ble)+len(p.wifi))
	out = append(out, p.inertial...)
	out = append(out, p.ble...)
	out = append(out, p.wifi...)
	return out
}

func formatExtensions(format string) []string {
	switch format {
	case FormatCSV:
		return []string{"csv"}
	case FormatParquet:
		return []string{"parquet"}
	default:
		return []string{"csv", "parquet"}
	}
}

func normalizeFormat(format string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(format))
	if f == "" {
		f = FormatBoth
	}
	if f != FormatCSV && f != FormatParquet && f != FormatBoth {
		return "", fmt.Errorf("unsupported format %q (expected csv|parquet|both)", format)
	}
	return f, nil
}

// emitDataset writes every table of ds plus its manifest through e.
func emitDataset(e emitter, ds *Dataset, format, stem string, source sourceInfo) (artifactPaths, Manifest, error) {
	var paths artifactPaths
	loc := ds.Config.TimeLocation()

	for _, ext := range formatExtensions(format) {
		if ds.Inertial != nil {
			rel := path.Join("inertial", stem+"_inertial_"+ds.Config.SensorTag()+"."+ext)
			if err := emitInertial(e, rel, ext, ds.Inertial, loc); err != nil {
				return paths, Manifest{}, fmt.Errorf("write %s: %w", rel, err)
			}
			paths.inertial = append(paths.inertial, rel)
		}
		for _, table := range []*logalign.RadioTable{ds.BLE, ds.WiFi} {
			if table == nil {
				continue
			}
			dir := strings.ToLower(string(table.Kind))
			rel := path.Join(dir, stem+"_"+dir+"."+ext)
			if err := emitRadio(e, rel, ext, table); err != nil {
				return paths, Manifest{}, fmt.Errorf("write %s: %w", rel, err)
			}
			if table.Kind == logalign.BLE {
				paths.ble = append(paths.ble, rel)
			} else {
				paths.wifi = append(paths.wifi, rel)
			}
		}
	}

	manifest := buildManifest(ds, format, source, paths.all())
	paths.manifest = path.Join("manifest", stem+"_manifest.json")
	if err := e.json(paths.manifest, manifest); err != nil {
		return paths, manifest, fmt.Errorf("write %s: %w", paths.manifest, err)
	}
	return paths, manifest, nil
}

type sourceInfo struct {
	path string
	name string
	data []byte
}

func buildManifest(ds *Dataset, format string, source sourceInfo, files []string) Manifest {
	sum := sha256.Sum256(source.data)
	loc := ds.Config.TimeLocation()
	sensors := make([]string, 0, len(ds.Config.InertialSensors))
	for _, k := range ds.Config.InertialSensors {
		sensors = append(sensors, string(k))
	}

	m := Manifest{
		FormatVersion:   ManifestFormatVersion,
		RunID:           ds.RunID,
		GeneratedAt:     time.Now().UTC(),
		SourceFile:      source.path,
		SourceFileName:  source.name,
		SourceSHA256:    hex.EncodeToString(sum[:]),
		SourceSizeBytes: int64(len(source.data)),
		Label:           ds.Label,
		Config: ConfigEcho{
			InertialSensors: sensors,
			EnableBLE:       ds.Config.EnableBLE,
			EnableWiFi:      ds.Config.EnableWiFi,
			FrequencyHz:     ds.Config.FrequencyHz,
			Timezone:        loc.String(),
			Format:          format,
		},
		ParserStats: ds.Stats,
		Files:       files,
		Warnings:    ds.Warnings,
	}
	if t := ds.Inertial; t != nil {
		m.Window = &WindowInfo{
			Start:      t.Start,
			Stop:       t.Stop,
			StartLocal: logalign.FormatTimestamp(logalign.UnixToTime(t.Start, loc)),
			StopLocal:  logalign.FormatTimestamp(logalign.UnixToTime(t.Stop, loc)),
		}
		m.Columns = t.Columns
		m.InertialRows = t.Len()
		m.DuplicatesDropped = t.DuplicatesDropped
		m.Channels = logalign.Summarize(t)
	}
	if ds.BLE != nil {
		m.BLERows = ds.BLE.Len()
	}
	if ds.WiFi != nil {
		m.WiFiRows = ds.WiFi.Len()
	}
	return m
}
