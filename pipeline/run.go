package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Run formats one sensor log and writes its tables and manifest below OutDir.
// Nothing is written when the log fails fatally.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if strings.TrimSpace(opts.LogPath) == "" {
		return nil, fmt.Errorf("log path is required")
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	format, err := normalizeFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(opts.LogPath)
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	ds, err := buildDataset(data, filepath.Base(opts.LogPath), opts.Label, opts.Config)
	if err != nil {
		return nil, err
	}

	outDir, err := filepath.Abs(opts.OutDir)
	if err != nil {
		return nil, fmt.Errorf("resolve output directory: %w", err)
	}
	if err := ensureOutputDir(outDir); err != nil {
		return nil, err
	}

	srcPath, err := filepath.Abs(opts.LogPath)
	if err != nil {
		srcPath = opts.LogPath
	}
	stem := artifactStem(opts.LogPath, opts.Label)
	paths, _, err := emitDataset(diskEmitter{root: outDir}, ds, format, stem, sourceInfo{
		path: srcPath,
		name: filepath.Base(opts.LogPath),
		data: data,
	})
	if err != nil {
		return nil, err
	}

	if opts.Sink != nil {
		if err := opts.Sink.Save(ctx, ds); err != nil {
			return nil, fmt.Errorf("save dataset: %w", err)
		}
	}

	abs := func(rels []string) []string {
		if len(rels) == 0 {
			return nil
		}
		out := make([]string, len(rels))
		for i, rel := range rels {
			out[i] = filepath.Join(outDir, filepath.FromSlash(rel))
		}
		return out
	}
	res := &Result{
		RunID:         ds.RunID,
		OutputDir:     outDir,
		ManifestPath:  filepath.Join(outDir, filepath.FromSlash(paths.manifest)),
		InertialPaths: abs(paths.inertial),
		BLEPaths:      abs(paths.ble),
		WiFiPaths:     abs(paths.wifi),
		Warnings:      ds.Warnings,
	}
	if ds.Inertial != nil {
		res.InertialRows = ds.Inertial.Len()
	}
	if ds.BLE != nil {
		res.BLERows = ds.BLE.Len()
	}
	if ds.WiFi != nil {
		res.WiFiRows = ds.WiFi.Len()
	}
	return res, nil
}

func ensureOutputDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case err == nil && !info.IsDir():
		return fmt.Errorf("output path %s exists and is not a directory", dir)
	case err == nil:
		return nil
	case os.IsNotExist(err):
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("stat output directory: %w", err)
	}
}
