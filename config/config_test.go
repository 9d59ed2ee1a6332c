package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	logalign "github.com/lucasjlepore/logalign"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conf.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	f := Default()
	if diff := cmp.Diff([]string{"ACC", "GYRO", "MAG", "ROTV"}, f.InertialSensors); diff != "" {
		t.Fatalf("default sensors mismatch (-want +got):\n%s", diff)
	}
	if f.Freq != 100 || !f.EnableBLE || !f.EnableWiFi || f.Format != "both" {
		t.Fatalf("unexpected defaults: %+v", f)
	}
}

func TestLoadFileKeepsDefaultsForMissingKeys(t *testing.T) {
	path := writeConfig(t, "inertial_sensors: [ACC, ROTV]\nfreq: 50\nenable_wifi: false\n")

	f, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	align, err := f.Align()
	if err != nil {
		t.Fatalf("Align error: %v", err)
	}
	want := []logalign.SensorKind{logalign.Accelerometer, logalign.RotationVector}
	if diff := cmp.Diff(want, align.InertialSensors); diff != "" {
		t.Fatalf("sensors mismatch (-want +got):\n%s", diff)
	}
	if align.FrequencyHz != 50 || align.EnableWiFi || !align.EnableBLE {
		t.Fatalf("unexpected align config: %+v", align)
	}
	if f.Format != "both" {
		t.Fatalf("expected default format to survive, got %q", f.Format)
	}
}

func TestLoadAppliesEnvironment(t *testing.T) {
	path := writeConfig(t, "freq: 20\n")
	t.Setenv("LOGALIGN_FREQ", "25.5")
	t.Setenv("LOGALIGN_JOBS", "3")
	t.Setenv("LOGALIGN_FORMAT", "csv")
	t.Setenv("LOGALIGN_TIMEZONE", "UTC")
	t.Setenv("DATABASE_URL", "postgres://localhost/logalign")
	t.Setenv("PORT", "9090")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Freq != 25.5 || cfg.Jobs != 3 || cfg.Format != "csv" || cfg.Source != path {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.DatabaseURL != "postgres://localhost/logalign" || cfg.ListenAddr() != ":9090" {
		t.Fatalf("unexpected environment settings: %+v", cfg)
	}
	align, err := cfg.Align()
	if err != nil {
		t.Fatalf("Align error: %v", err)
	}
	if align.Location == nil || align.Location.String() != "UTC" {
		t.Fatalf("expected UTC location, got %v", align.Location)
	}
}

func TestLoadRejectsBadInput(t *testing.T) {
	t.Run("bad env frequency", func(t *testing.T) {
		t.Setenv("LOGALIGN_FREQ", "fast")
		if _, err := Load(""); err == nil {
			t.Fatal("expected error")
		}
	})
	t.Run("unknown sensor", func(t *testing.T) {
		path := writeConfig(t, "inertial_sensors: [ACC, LIDAR]\n")
		_, err := Load(path)
		if !errors.Is(err, logalign.ErrInvalidConfig) {
			t.Fatalf("expected ErrInvalidConfig, got %v", err)
		}
	})
	t.Run("negative frequency", func(t *testing.T) {
		path := writeConfig(t, "freq: -1\n")
		if _, err := Load(path); !errors.Is(err, logalign.ErrInvalidConfig) {
			t.Fatalf("expected ErrInvalidConfig, got %v", err)
		}
	})
	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Fatal("expected error")
		}
	})
	t.Run("bad yaml", func(t *testing.T) {
		path := writeConfig(t, "inertial_sensors: {\n")
		if _, err := LoadFile(path); err == nil {
			t.Fatal("expected error")
		}
	})
}
