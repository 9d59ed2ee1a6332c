package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	logalign "github.com/lucasjlepore/logalign"
)

//go:embed default.yaml
var defaultYAML []byte

const defaultPort = 8080

// File is the yaml configuration document.
type File struct {
	InertialSensors []string `yaml:"inertial_sensors"`
	EnableBLE       bool     `yaml:"enable_ble"`
	EnableWiFi      bool     `yaml:"enable_wifi"`
	Freq            float64  `yaml:"freq"`
	Format          string   `yaml:"format"`
	Jobs            int      `yaml:"jobs"`
	Label           string   `yaml:"label"`
	Timezone        string   `yaml:"timezone"`
}

// Config is a loaded configuration file plus environment settings.
type Config struct {
	File
	// Source is the file the settings came from; empty for built-in defaults.
	Source      string
	DatabaseURL string
	Port        int
}

// Default returns the built-in configuration (config/default.yaml).
func Default() File {
	var f File
	if err := yaml.Unmarshal(defaultYAML, &f); err != nil {
		panic(fmt.Sprintf("parse built-in default config: %v", err))
	}
	return f
}

// LoadFile reads a yaml configuration; keys it omits keep their defaults.
func LoadFile(path string) (File, error) {
	f := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parse config: %w", err)
	}
	return f, nil
}

// Load reads path (or the defaults when path is empty), then applies
// environment overrides, optionally from a .env file.
func Load(path string) (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{File: Default(), Port: defaultPort}
	if strings.TrimSpace(path) != "" {
		f, err := LoadFile(path)
		if err != nil {
			return cfg, err
		}
		cfg.File = f
		cfg.Source = path
	}

	if v := strings.TrimSpace(os.Getenv("LOGALIGN_FREQ")); v != "" {
		freq, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid LOGALIGN_FREQ: %w", err)
		}
		cfg.Freq = freq
	}
	if v := strings.TrimSpace(os.Getenv("LOGALIGN_JOBS")); v != "" {
		jobs, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid LOGALIGN_JOBS: %w", err)
		}
		cfg.Jobs = jobs
	}
	if v := strings.TrimSpace(os.Getenv("LOGALIGN_FORMAT")); v != "" {
		cfg.Format = v
	}
	if v, ok := os.LookupEnv("LOGALIGN_TIMEZONE"); ok {
		cfg.Timezone = strings.TrimSpace(v)
	}
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 {
			return cfg, fmt.Errorf("invalid PORT: %s", v)
		}
		cfg.Port = port
	}

	if _, err := cfg.Align(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Align converts the file settings into the value passed to every stage.
func (f File) Align() (logalign.Config, error) {
	out := logalign.Config{
		EnableBLE:   f.EnableBLE,
		EnableWiFi:  f.EnableWiFi,
		FrequencyHz: f.Freq,
	}
	for _, name := range f.InertialSensors {
		k, err := logalign.ParseSensorKind(name)
		if err != nil {
			return out, err
		}
		out.InertialSensors = append(out.InertialSensors, k)
	}
	if tz := strings.TrimSpace(f.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return out, fmt.Errorf("%w: timezone %q: %v", logalign.ErrInvalidConfig, tz, err)
		}
		out.Location = loc
	}
	if err := out.Validate(); err != nil {
		return out, err
	}
	return out, nil
}

// ListenAddr is the HTTP listen address for the server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}
