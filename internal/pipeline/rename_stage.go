package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/dojevou/midi-pipeline/internal/analysis"
	"github.com/dojevou/midi-pipeline/internal/sanitize"
	"github.com/dojevou/midi-pipeline/internal/store"
)

// RenameStage is stage 5, optional (spec §4.5.5): derive a deterministic
// filename from the analyzed metadata and atomically rename the file on
// disk.
type RenameStage struct {
	*Stage
	db  *store.Pool
	in  *Queue[AnalyzedRef]
	out *Queue[AnalyzedRef]
}

func NewRenameStage(workers int, db *store.Pool, in, out *Queue[AnalyzedRef]) *RenameStage {
	return &RenameStage{Stage: NewStage("rename", workers), db: db, in: in, out: out}
}

func (s *RenameStage) Run(ctx context.Context) {
	s.Start()
	defer s.Stop()

	done := make(chan struct{}, s.Workers)
	for i := 0; i < s.Workers; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			s.worker(ctx)
		}()
	}
	for i := 0; i < s.Workers; i++ {
		<-done
	}
	s.out.Close()
}

func (s *RenameStage) worker(ctx context.Context) {
	for {
		ref, ok := s.in.Pop(ctx)
		if !ok {
			return
		}
		s.renameOne(ctx, ref)
	}
}

func (s *RenameStage) renameOne(ctx context.Context, ref AnalyzedRef) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("rename: recovered panic on %s: %v", ref.Filepath, r)
		}
	}()

	target := sanitize.Filename(deriveTemplate(ref.Metadata, ref.ID) + ".mid")
	dir := filepath.Dir(ref.Filepath)
	finalPath := uniquePath(filepath.Join(dir, target))
	tempPath := finalPath + ".tmp"

	if err := os.Rename(ref.Filepath, tempPath); err != nil {
		log.Printf("rename: staging %s: %v", ref.Filepath, err)
		return
	}
	if dirFile, err := os.Open(dir); err == nil {
		dirFile.Sync()
		dirFile.Close()
	}
	if err := os.Rename(tempPath, finalPath); err != nil {
		log.Printf("rename: finalizing %s: %v", tempPath, err)
		return
	}

	if err := store.WithRetry(ctx, 0, func(ctx context.Context) error {
		return s.db.UpdateFilename(ctx, ref.ID, filepath.Base(finalPath))
	}); err != nil {
		log.Printf("rename: updating DB for %s: %v", finalPath, store.UserMessage(err))
	}

	ref.Filepath = finalPath
	ref.Filename = filepath.Base(finalPath)
	if err := s.out.Push(ctx, ref); err != nil {
		return
	}
	s.IncProcessed()
}

// deriveTemplate renders {CATEGORY}_{TIMESIG}_{BPM}BPM_{KEY}_{ID} from the
// analyzed metadata, per spec §4.5.5. PACK/LAYER tokens from the spec's
// illustrative template are omitted here: nothing in this pipeline's
// schema populates a pack/layer concept, so only the fields this
// metadata actually carries are templated.
func deriveTemplate(m analysis.Metadata, fileID int64) string {
	category := m.Genre
	if category == "" {
		category = "unknown"
	}
	timeSig := fmt.Sprintf("%dx%d", m.TimeSigNumerator, m.TimeSigDenom)
	bpm := "unk"
	if m.BPM != nil {
		bpm = fmt.Sprintf("%d", int(*m.BPM+0.5))
	}
	key := "unk"
	if m.KeyTonic != nil {
		key = *m.KeyTonic
		if m.KeyIsMinor {
			key += "m"
		}
	}
	return fmt.Sprintf("%s_%s_%sBPM_%s_%d", category, timeSig, bpm, key, fileID)
}

// uniquePath appends a _NNN suffix counter until the path does not
// already exist, per spec §4.5.5's conflict-resolution rule.
func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	base := path[:len(path)-len(ext)]
	for n := 1; n < 1000; n++ {
		candidate := fmt.Sprintf("%s_%03d%s", base, n, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
	return path
}
