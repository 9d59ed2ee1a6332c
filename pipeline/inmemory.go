package pipeline

import (
	"context"
	"fmt"
	"strings"
)

// RunBytes formats a log held in memory and returns every artifact keyed by
// its relative output path.
func RunBytes(ctx context.Context, opts BytesOptions) (*BytesResult, error) {
	if len(opts.LogData) == 0 {
		return nil, fmt.Errorf("log data is required")
	}
	format, err := normalizeFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(opts.SourceFileName)
	if name == "" {
		name = "upload.log"
	}

	ds, err := buildDataset(opts.LogData, name, opts.Label, opts.Config)
	if err != nil {
		return nil, err
	}

	mem := memEmitter{files: make(map[string][]byte)}
	_, manifest, err := emitDataset(mem, ds, format, artifactStem(name, opts.Label), sourceInfo{
		name: name,
		data: opts.LogData,
	})
	if err != nil {
		return nil, err
	}
	if opts.Sink != nil {
		if err := opts.Sink.Save(ctx, ds); err != nil {
			return nil, fmt.Errorf("save dataset: %w", err)
		}
	}
	return &BytesResult{
		Manifest: manifest,
		Files:    mem.files,
		Warnings: ds.Warnings,
	}, nil
}
