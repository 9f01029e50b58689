package pipeline

// Snapshot is the progress document spec §6 exposes over HTTP:
// overall completion, each stage's own completion, and the number of
// items currently sitting in the inter-stage queues.
type Snapshot struct {
	OverallPct float64
	StagePct   [6]float64
	StageNames [6]string
	TotalQueued int
}

// Snapshot computes the current progress document from the live stage
// counters and queue depths. Safe to call concurrently with Run.
func (o *Orchestrator) Snapshot() Snapshot {
	total := float64(o.totalDiscovered)
	pct := func(processed uint64) float64 {
		if total == 0 {
			return 100
		}
		v := 100 * float64(processed) / total
		if v > 100 {
			v = 100
		}
		return v
	}

	s := Snapshot{
		StageNames: [6]string{"import", "sanitize", "split", "analyze", "rename", "export"},
	}
	s.StagePct[0] = pct(o.importStage.Processed())
	s.StagePct[1] = pct(o.sanitizeStage.Processed())
	s.StagePct[2] = pct(o.splitStage.Processed())
	s.StagePct[3] = pct(o.analyzeStage.Processed())
	if o.renameStage != nil {
		s.StagePct[4] = pct(o.renameStage.Processed())
	} else {
		s.StagePct[4] = 100
	}
	if o.exportStage != nil {
		s.StagePct[5] = pct(o.exportStage.Processed())
	} else {
		s.StagePct[5] = 100
	}

	s.OverallPct = pct(o.analyzeStage.Processed())
	s.TotalQueued = o.toSanitize.Len() + o.toSplit.Len() + o.toAnalyze.Len()
	if o.toRename != nil {
		s.TotalQueued += o.toRename.Len()
	}
	if o.toExport != nil {
		s.TotalQueued += o.toExport.Len()
	}
	return s
}
