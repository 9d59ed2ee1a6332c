package pipeline

import (
	"context"
	"time"

	logalign "github.com/lucasjlepore/logalign"
	"github.com/lucasjlepore/logalign/sensorlog"
)

// ManifestFormatVersion identifies the manifest schema.
const ManifestFormatVersion = "logalign_v1"

// Output formats for the inertial and radio tables.
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
	FormatBoth    = "both"
)

// Options configures one per-file run.
type Options struct {
	LogPath string
	OutDir  string
	Label   string
	Format  string // csv|parquet|both
	Config  logalign.Config
	// Sink, when set, receives the dataset after the artifacts are written.
	Sink Sink
}

// BytesOptions configures an in-memory run.
type BytesOptions struct {
	SourceFileName string
	LogData        []byte
	Label          string
	Format         string
	Config         logalign.Config
	Sink           Sink
}

// Result returns generated output paths.
type Result struct {
	RunID         string   `json:"run_id"`
	OutputDir     string   `json:"output_dir"`
	ManifestPath  string   `json:"manifest_path"`
	InertialPaths []string `json:"inertial_paths,omitempty"`
	BLEPaths      []string `json:"ble_paths,omitempty"`
	WiFiPaths     []string `json:"wifi_paths,omitempty"`
	InertialRows  int      `json:"inertial_rows"`
	BLERows       int      `json:"ble_rows"`
	WiFiRows      int      `json:"wifi_rows"`
	Warnings      []string `json:"warnings,omitempty"`
}

// BytesResult holds in-memory artifacts keyed by their relative output path.
type BytesResult struct {
	Manifest Manifest          `json:"manifest"`
	Files    map[string][]byte `json:"-"`
	Warnings []string          `json:"warnings,omitempty"`
}

// Dataset is everything one log produced, handed to a Sink.
type Dataset struct {
	RunID      string
	SourceName string
	Label      string
	Config     logalign.Config
	Inertial   *logalign.AlignedTable
	BLE        *logalign.RadioTable
	WiFi       *logalign.RadioTable
	Stats      sensorlog.Stats
	Warnings   []string
}

// Sink persists a dataset somewhere other than the output directory.
type Sink interface {
	Save(ctx context.Context, ds *Dataset) error
}

// Manifest describes one formatted log.
type Manifest struct {
	FormatVersion     string                    `json:"format_version"`
	RunID             string                    `json:"run_id"`
	GeneratedAt       time.Time                 `json:"generated_at"`
	SourceFile        string                    `json:"source_file,omitempty"`
	SourceFileName    string                    `json:"source_file_name"`
	SourceSHA256      string                    `json:"source_sha256"`
	SourceSizeBytes   int64                     `json:"source_size_bytes"`
	Label             string                    `json:"label,omitempty"`
	Config            ConfigEcho                `json:"config"`
	Window            *WindowInfo               `json:"window,omitempty"`
	Columns           []string                  `json:"columns,omitempty"`
	InertialRows      int                       `json:"inertial_rows"`
	BLERows           int                       `json:"ble_rows"`
	WiFiRows          int                       `json:"wifi_rows"`
	DuplicatesDropped int                       `json:"duplicates_dropped"`
	ParserStats       sensorlog.Stats           `json:"parser_stats"`
	Channels          []logalign.ChannelSummary `json:"channels,omitempty"`
	Files             []string                  `json:"files"`
	Warnings          []string                  `json:"warnings,omitempty"`
}

// ConfigEcho records the settings a log was formatted with.
type ConfigEcho struct {
	InertialSensors []string `json:"inertial_sensors"`
	EnableBLE       bool     `json:"enable_ble"`
	EnableWiFi      bool     `json:"enable_wifi"`
	FrequencyHz     float64  `json:"frequency_hz"`
	Timezone        string   `json:"timezone"`
	Format          string   `json:"format"`
}

// WindowInfo is the common resampling window.
type WindowInfo struct {
	Start      float64 `json:"start"`
	Stop       float64 `json:"stop"`
	StartLocal string  `json:"start_local"`
	StopLocal  string  `json:"stop_local"`
}

// BatchOptions configures a run over several logs.
type BatchOptions struct {
	// SrcFile and SrcDir are mutually exclusive; with neither set every
	// *.log file in DefaultDir is formatted.
	SrcFile    string
	SrcDir     string
	DefaultDir string
	OutDir     string
	Label      string
	Format     string
	Config     logalign.Config
	// Jobs bounds concurrent files; <= 0 uses runtime.NumCPU().
	Jobs int
	Sink Sink
	// OnResult is called from worker goroutines as each file finishes.
	OnResult func(FileResult)
}

// FileResult is the outcome of one file in a batch.
type FileResult struct {
	Path   string
	Result *Result
	Err    error
}

// BatchResult aggregates per-file outcomes in input order.
type BatchResult struct {
	Files     []FileResult
	Succeeded int
	Failed    int
}
