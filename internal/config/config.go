// Package config parses CLI/environment configuration for the pipeline
// and derives the concurrency and DB-pool tuning spec §4.8 requires from
// the host's CPU count, memory and storage class — generalizing the
// teacher's CORS_ORIGINS/PORT env-var reads in main.go into a fuller
// options struct.
package config

import (
	"flag"
	"fmt"
	"os"
)

// StorageClass is the disk type backing the source/output trees, which
// bounds how much concurrent I/O the pipeline should issue.
type StorageClass int

const (
	StorageHDD StorageClass = iota
	StorageSSD
)

// StageWorkerDefaults are the default worker-pool sizes per stage, spec
// §4.7 step 1 ("I/O-bound vs CPU-bound" bias).
var StageWorkerDefaults = struct {
	Import, Sanitize, Split, Analyze, Rename, Export int
}{
	Import:   16,
	Sanitize: 32,
	Split:    16,
	Analyze:  24,
	Rename:   32,
	Export:   8,
}

// Config is the fully resolved set of pipeline options.
type Config struct {
	SourcePath string
	EnableRename bool
	EnableExport bool
	ExportTargetPath string
	ExportDialect string

	Workers struct {
		Import, Sanitize, Split, Analyze, Rename, Export int
	}

	QueueCapacity int

	CPUCores     int
	MemoryBytes  uint64
	Storage      StorageClass
	DatabaseURL  string

	ProgressAddr string
}

// Parse builds a Config from command-line flags, falling back to
// environment variables the way the teacher's main.go resolves
// CORS_ORIGINS/PORT, and finally to the computed defaults.
func Parse(args []string, cpuCores int, memoryBytes uint64, storage StorageClass) (*Config, error) {
	fs := flag.NewFlagSet("pipeline", flag.ContinueOnError)
	source := fs.String("source", "", "root path to scan for MIDI files and archives")
	enableRename := fs.Bool("rename", false, "enable stage 5 (rename)")
	enableExport := fs.Bool("export", false, "enable stage 6 (export)")
	exportTarget := fs.String("export-target", "", "destination tree for stage 6")
	exportDialect := fs.String("export-dialect", "mpc-one", "export dialect: mpc-one, akai-force, both")
	queueCap := fs.Int("queue-capacity", 8192, "bounded queue capacity between stages")
	progressAddr := fs.String("progress-addr", envOr("PIPELINE_PROGRESS_ADDR", ":8090"), "address the progress HTTP server listens on")
	dbURL := fs.String("database-url", envOr("DATABASE_URL", ""), "PostgreSQL connection string")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *source == "" {
		return nil, fmt.Errorf("config: -source is required")
	}

	c := &Config{
		SourcePath:       *source,
		EnableRename:     *enableRename,
		EnableExport:     *enableExport,
		ExportTargetPath: *exportTarget,
		ExportDialect:    *exportDialect,
		QueueCapacity:    *queueCap,
		CPUCores:         cpuCores,
		MemoryBytes:      memoryBytes,
		Storage:          storage,
		DatabaseURL:      *dbURL,
		ProgressAddr:     *progressAddr,
	}

	c.Workers.Import = StageWorkerDefaults.Import
	c.Workers.Sanitize = StageWorkerDefaults.Sanitize
	c.Workers.Split = StageWorkerDefaults.Split
	c.Workers.Analyze = StageWorkerDefaults.Analyze
	c.Workers.Rename = StageWorkerDefaults.Rename
	c.Workers.Export = StageWorkerDefaults.Export

	return c, nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

