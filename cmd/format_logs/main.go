package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/lucasjlepore/logalign/config"
	"github.com/lucasjlepore/logalign/pipeline"
	"github.com/lucasjlepore/logalign/store"
)

func main() {
	var (
		confFile string
		label    string
		srcFile  = flag.String("src_file", "", "Format a single log file")
		srcDir   = flag.String("src_dir", "", "Format every *.log in this directory")
		tgtDir   = flag.String("tgt_dir", "formatted", "Output directory")
		format   = flag.String("format", "", "Table format: csv|parquet|both (default from config)")
		jobs     = flag.Int("jobs", -1, "Concurrent files; 0 uses every CPU (default from config)")
	)
	flag.StringVar(&confFile, "conf_file", "", "Path to a yaml config file")
	flag.StringVar(&confFile, "c", "", "Shorthand for --conf_file")
	flag.StringVar(&label, "label", "", "Label appended to output file names")
	flag.StringVar(&label, "l", "", "Shorthand for --label")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-c conf.yaml] [--src_file a.log | --src_dir raw/] [--tgt_dir formatted/] [-l label] [--format csv|parquet|both] [--jobs N]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() > 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(confFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(2)
	}
	align, err := cfg.Align()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(2)
	}
	if strings.TrimSpace(*format) == "" {
		*format = cfg.Format
	}
	if *jobs < 0 {
		*jobs = cfg.Jobs
	}
	if strings.TrimSpace(label) == "" {
		label = cfg.Label
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var sink pipeline.Sink
	if cfg.DatabaseURL != "" {
		st, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db connection error: %v", err)
		}
		defer st.Close()
		if err := st.EnsureSchema(ctx); err != nil {
			log.Fatalf("db schema error: %v", err)
		}
		sink = st
	}

	res, err := pipeline.Batch(ctx, pipeline.BatchOptions{
		SrcFile:    *srcFile,
		SrcDir:     *srcDir,
		DefaultDir: "raw",
		OutDir:     *tgtDir,
		Label:      label,
		Format:     *format,
		Config:     align,
		Jobs:       *jobs,
		Sink:       sink,
		OnResult:   logResult,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "format_logs failed: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("format_logs complete\n")
	fmt.Printf("Output dir:   %s\n", *tgtDir)
	fmt.Printf("Succeeded:    %d\n", res.Succeeded)
	fmt.Printf("Failed:       %d\n", res.Failed)
	if res.Failed > 0 {
		os.Exit(1)
	}
}

func logResult(fr pipeline.FileResult) {
	if fr.Err != nil {
		log.Printf("%s: failed: %v", fr.Path, fr.Err)
		return
	}
	r := fr.Result
	log.Printf("%s: %d inertial rows, %d ble rows, %d wifi rows", fr.Path, r.InertialRows, r.BLERows, r.WiFiRows)
	for _, p := range r.InertialPaths {
		log.Printf("  written to %s", p)
	}
	for _, p := range r.BLEPaths {
		log.Printf("  written to %s", p)
	}
	for _, p := range r.WiFiPaths {
		log.Printf("  written to %s", p)
	}
	for _, w := range r.Warnings {
		log.Printf("  warning: %s", w)
	}
}
