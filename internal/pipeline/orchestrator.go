package pipeline

import (
	"context"
	"log"
	"time"

	"github.com/dojevou/midi-pipeline/internal/config"
	"github.com/dojevou/midi-pipeline/internal/exportdialect"
	"github.com/dojevou/midi-pipeline/internal/store"
)

// Orchestrator is C7: it discovers files, spawns every enabled stage's
// worker pool wired to its queues, reports progress periodically, and
// sequences shutdown upstream-to-downstream, per spec §4.7.
type Orchestrator struct {
	cfg *config.Config
	db  *store.Pool

	importStage   *ImportStage
	sanitizeStage *SanitizeStage
	splitStage    *SplitStage
	analyzeStage  *AnalyzeStage
	renameStage   *RenameStage
	exportStage   *ExportStage

	toSanitize *Queue[FileRef]
	toSplit    *Queue[FileRef]
	toAnalyze  *Queue[FileRef]
	toRename   *Queue[AnalyzedRef]
	toExport   *Queue[AnalyzedRef]

	totalDiscovered int
}

// NewOrchestrator wires every queue and stage for cfg. Stages 5 and 6 are
// only constructed when cfg enables them.
func NewOrchestrator(cfg *config.Config, db *store.Pool) *Orchestrator {
	o := &Orchestrator{cfg: cfg, db: db}

	o.toSanitize = NewQueue[FileRef](cfg.QueueCapacity)
	o.toSplit = NewQueue[FileRef](cfg.QueueCapacity)
	o.toAnalyze = NewQueue[FileRef](cfg.QueueCapacity)

	o.importStage = NewImportStage(cfg.Workers.Import, db, o.toSanitize)
	o.sanitizeStage = NewSanitizeStage(cfg.Workers.Sanitize, db, o.toSanitize, o.toSplit)
	o.splitStage = NewSplitStage(cfg.Workers.Split, db, o.toSplit, o.toAnalyze)

	o.toRename = NewQueue[AnalyzedRef](cfg.QueueCapacity)
	o.analyzeStage = NewAnalyzeStage(cfg.Workers.Analyze, db, o.toAnalyze, o.toRename)

	if cfg.EnableExport {
		o.toExport = NewQueue[AnalyzedRef](cfg.QueueCapacity)
		o.renameStage = NewRenameStage(cfg.Workers.Rename, db, o.toRename, o.toExport)
		dialect := exportdialect.Dialect(cfg.ExportDialect)
		o.exportStage = NewExportStage(cfg.Workers.Export, o.toExport, cfg.ExportTargetPath, dialect)
	} else if cfg.EnableRename {
		o.toExport = NewQueue[AnalyzedRef](0)
		o.renameStage = NewRenameStage(cfg.Workers.Rename, db, o.toRename, o.toExport)
	}

	return o
}

// Run executes the full pipeline: synchronous discovery, then every
// enabled stage concurrently, reporting progress every 5 seconds until
// completion, per spec §4.7 steps 2-5.
func (o *Orchestrator) Run(ctx context.Context) error {
	paths, err := Discover(o.cfg.SourcePath)
	if err != nil {
		return err
	}
	o.totalDiscovered = len(paths)
	log.Printf("orchestrator: discovered %d MIDI files under %s", o.totalDiscovered, o.cfg.SourcePath)

	pathCh := make(chan string, len(paths))
	for _, p := range paths {
		pathCh <- p
	}
	close(pathCh)

	done := make(chan struct{})
	go func() {
		defer close(done)
		o.importStage.Run(ctx, pathCh)
	}()

	sanitizeDone := make(chan struct{})
	go func() { defer close(sanitizeDone); o.sanitizeStage.Run(ctx) }()

	splitDone := make(chan struct{})
	go func() { defer close(splitDone); o.splitStage.Run(ctx) }()

	analyzeDone := make(chan struct{})
	go func() { defer close(analyzeDone); o.analyzeStage.Run(ctx) }()

	var renameDone, exportDone chan struct{}
	if o.renameStage != nil {
		renameDone = make(chan struct{})
		go func() { defer close(renameDone); o.renameStage.Run(ctx) }()
	} else {
		go drainAnalyzed(o.toRename)
	}
	if o.exportStage != nil {
		exportDone = make(chan struct{})
		go func() { defer close(exportDone); o.exportStage.Run(ctx) }()
	} else if o.toExport != nil {
		go drainAnalyzed(o.toExport)
	}

	stopProgress := make(chan struct{})
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		o.reportProgress(ctx, stopProgress)
	}()

	<-done
	<-sanitizeDone
	<-splitDone
	<-analyzeDone
	if renameDone != nil {
		<-renameDone
	}
	if exportDone != nil {
		<-exportDone
	}
	close(stopProgress)
	<-progressDone

	log.Printf("orchestrator: done. discovered=%d analyzed=%d", o.totalDiscovered, o.analyzeStage.Processed())
	return nil
}

// drainAnalyzed discards AnalyzedRef values on a queue whose downstream
// stage is disabled, so upstream stages never block pushing to it.
func drainAnalyzed(q *Queue[AnalyzedRef]) {
	for {
		_, ok := q.Pop(context.Background())
		if !ok {
			return
		}
	}
}

// reportProgress logs a progress line every 5 seconds until stopCh closes,
// and once more when it does, per spec §4.7 step 4. Each line carries the
// overall percentage (analyzed over discovered), the processed counts of
// the import, sanitize, split and analyze stages, and the depths of the
// sanitize, split and analyze queues; the full per-stage percentage
// document is served by Snapshot.
func (o *Orchestrator) reportProgress(ctx context.Context, stopCh <-chan struct{}) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			o.logProgress()
		case <-stopCh:
			o.logProgress()
			return
		case <-ctx.Done():
			return
		}
	}
}

func (o *Orchestrator) logProgress() {
	overall := 0.0
	if o.totalDiscovered > 0 {
		overall = 100 * float64(o.analyzeStage.Processed()) / float64(o.totalDiscovered)
	}
	log.Printf("progress: overall=%.1f%% import=%d sanitize=%d split=%d analyze=%d queued(sanitize=%d split=%d analyze=%d)",
		overall,
		o.importStage.Processed(), o.sanitizeStage.Processed(), o.splitStage.Processed(), o.analyzeStage.Processed(),
		o.toSanitize.Len(), o.toSplit.Len(), o.toAnalyze.Len())
}
