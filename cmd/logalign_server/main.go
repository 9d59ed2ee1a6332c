package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/lucasjlepore/logalign/config"
	"github.com/lucasjlepore/logalign/pipeline"
	"github.com/lucasjlepore/logalign/server"
	"github.com/lucasjlepore/logalign/store"
)

func main() {
	confFile := flag.String("c", "", "Path to a yaml config file")
	flag.Parse()

	cfg, err := config.Load(*confFile)
	if err != nil {
		log.Fatalf("config error: %v", err)
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

	srv, err := server.New(cfg, sink)
	if err != nil {
		log.Fatalf("server config error: %v", err)
	}
	log.Printf("logalign API listening on %s", cfg.ListenAddr())

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
