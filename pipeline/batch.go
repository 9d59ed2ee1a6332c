package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	logalign "github.com/lucasjlepore/logalign"
)

// ResolveInputs lists the logs a batch should format. srcFile and srcDir are
// mutually exclusive; with neither set every *.log in defaultDir is used.
func ResolveInputs(srcFile, srcDir, defaultDir string) ([]string, error) {
	srcFile = strings.TrimSpace(srcFile)
	srcDir = strings.TrimSpace(srcDir)
	if srcFile != "" && srcDir != "" {
		return nil, fmt.Errorf("%w: source file and source directory are mutually exclusive", logalign.ErrInvalidConfig)
	}
	if srcFile != "" {
		if _, err := os.Stat(srcFile); err != nil {
			return nil, fmt.Errorf("source file: %w", err)
		}
		return []string{srcFile}, nil
	}

	dir := srcDir
	if dir == "" {
		dir = defaultDir
	}
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("%w: no source file or directory given", logalign.ErrInvalidConfig)
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.log"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no .log files found in %s", dir)
	}
	sort.Strings(matches)
	return matches, nil
}

// Batch formats every resolved log with bounded concurrency. A failing file
// is recorded in its FileResult and does not stop the others.
func Batch(ctx context.Context, opts BatchOptions) (*BatchResult, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	format, err := normalizeFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	inputs, err := ResolveInputs(opts.SrcFile, opts.SrcDir, opts.DefaultDir)
	if err != nil {
		return nil, err
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	results := make([]FileResult, len(inputs))
	var g errgroup.Group
	g.SetLimit(jobs)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			fr := FileResult{Path: in}
			defer func() {
				if r := recover(); r != nil {
					fr.Result = nil
					fr.Err = fmt.Errorf("panic formatting %s: %v", in, r)
				}
				results[i] = fr
				if opts.OnResult != nil {
					opts.OnResult(fr)
				}
			}()
			if err := ctx.Err(); err != nil {
				fr.Err = err
				return nil
			}
			fr.Result, fr.Err = Run(ctx, Options{
				LogPath: in,
				OutDir:  opts.OutDir,
				Label:   opts.Label,
				Format:  format,
				Config:  opts.Config,
				Sink:    opts.Sink,
			})
			return nil
		})
	}
	_ = g.Wait()

	out := &BatchResult{Files: results}
	for _, fr := range results {
		if fr.Err != nil {
			out.Failed++
		} else {
			out.Succeeded++
		}
	}
	return out, nil
}
