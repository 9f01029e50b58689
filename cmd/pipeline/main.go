// Command pipeline runs the full MIDI ingestion pipeline: discover files
// under -source, import/sanitize/split/analyze them, and optionally
// rename and export, while serving live progress over HTTP.
//
// Modeled after the teacher's main.go: a small flag/env-driven setup
// followed by a single blocking run, with a gin server for the one
// read surface this command exposes.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/dojevou/midi-pipeline/internal/config"
	"github.com/dojevou/midi-pipeline/internal/pipeline"
	"github.com/dojevou/midi-pipeline/internal/progress"
	"github.com/dojevou/midi-pipeline/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("pipeline: %v", err)
	}
}

func run() error {
	cfg, err := config.Parse(os.Args[1:], runtime.NumCPU(), systemMemoryBytes(), detectStorageClass())
	if err != nil {
		return err
	}

	tuning := config.DeriveTuning(cfg)
	log.Printf("tuning: concurrency=%d pool_max=%d pool_min=%d batch=%d",
		tuning.TargetConcurrency, tuning.PoolMaxConns, tuning.PoolMinConns, tuning.BatchSize)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.DatabaseURL, tuning)
	if err != nil {
		return err
	}
	defer db.Close()

	orch := pipeline.NewOrchestrator(cfg, db)

	srv := progress.NewServer(cfg.ProgressAddr, orch)
	go func() {
		log.Printf("progress: listening on %s", cfg.ProgressAddr)
		if err := srv.ListenAndServe(); err != nil {
			log.Printf("progress: server error: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	return orch.Run(ctx)
}

// systemMemoryBytes reads /proc/meminfo the way a Linux-hosted pipeline
// would size its connection pool and concurrency against, falling back
// to a conservative 4 GiB when the platform doesn't expose it.
func systemMemoryBytes() uint64 {
	const fallback = 4 << 30

	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return fallback
	}
	var kb uint64
	for _, line := range splitLines(data) {
		if n, ok := parseMemTotal(line); ok {
			kb = n
			break
		}
	}
	if kb == 0 {
		return fallback
	}
	return kb * 1024
}

func splitLines(data []byte) []string {
	lines := []string{}
	start := 0
	for i, b := range data {
		if b == '\n' {
			lines = append(lines, string(data[start:i]))
			start = i + 1
		}
	}
	return lines
}

func parseMemTotal(line string) (uint64, bool) {
	const prefix = "MemTotal:"
	if len(line) <= len(prefix) || line[:len(prefix)] != prefix {
		return 0, false
	}
	var n uint64
	field := line[len(prefix):]
	i := 0
	for i < len(field) && field[i] == ' ' {
		i++
	}
	for i < len(field) && field[i] >= '0' && field[i] <= '9' {
		n = n*10 + uint64(field[i]-'0')
		i++
	}
	return n, n > 0
}

// detectStorageClass has no portable stdlib signal for rotational vs.
// solid-state disks; it always reports SSD, the common case for pipeline
// hosts. No flag or environment variable overrides it.
func detectStorageClass() config.StorageClass {
	return config.StorageSSD
}
