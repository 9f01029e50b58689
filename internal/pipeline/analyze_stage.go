package pipeline

import (
	"context"
	"log"
	"os"

	"github.com/dojevou/midi-pipeline/internal/analysis"
	"github.com/dojevou/midi-pipeline/internal/midi"
	"github.com/dojevou/midi-pipeline/internal/store"
)

// AnalyzeStage is stage 4 (spec §4.5.4): parse each file and run every
// C2 analyzer, upserting the resulting metadata row.
type AnalyzeStage struct {
	*Stage
	db  *store.Pool
	in  *Queue[FileRef]
	out *Queue[AnalyzedRef]
}

func NewAnalyzeStage(workers int, db *store.Pool, in *Queue[FileRef], out *Queue[AnalyzedRef]) *AnalyzeStage {
	return &AnalyzeStage{Stage: NewStage("analyze", workers), db: db, in: in, out: out}
}

func (s *AnalyzeStage) Run(ctx context.Context) {
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

func (s *AnalyzeStage) worker(ctx context.Context) {
	for {
		ref, ok := s.in.Pop(ctx)
		if !ok {
			return
		}
		s.analyzeOne(ctx, ref)
	}
}

func (s *AnalyzeStage) analyzeOne(ctx context.Context, ref FileRef) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("analyze: recovered panic on %s: %v", ref.Filepath, r)
		}
	}()

	raw, err := os.ReadFile(ref.Filepath)
	if err != nil {
		log.Printf("analyze: reading %s: %v", ref.Filepath, err)
		return
	}
	f, err := midi.Parse(raw)
	if err != nil {
		log.Printf("analyze: parsing %s: %v", ref.Filepath, err)
		return
	}

	metadata := analysis.Analyze(f)

	err = store.WithRetry(ctx, 0, func(ctx context.Context) error {
		return s.db.UpsertMusicalMetadata(ctx, ref.ID, metadata)
	})
	if err != nil {
		log.Printf("analyze: upserting metadata for %s: %v", ref.Filepath, store.UserMessage(err))
		return
	}
	if err := store.WithRetry(ctx, 0, func(ctx context.Context) error {
		return s.db.SetNumTracks(ctx, ref.ID, int32(len(f.Tracks)))
	}); err != nil {
		log.Printf("analyze: setting track count for %s: %v", ref.Filepath, store.UserMessage(err))
	}
	if err := store.WithRetry(ctx, 0, func(ctx context.Context) error {
		return s.db.MarkAnalyzed(ctx, ref.ID)
	}); err != nil {
		log.Printf("analyze: marking %s analyzed: %v", ref.Filepath, store.UserMessage(err))
		return
	}

	s.retag(ctx, ref.ID, metadata)

	if err := s.out.Push(ctx, AnalyzedRef{FileRef: ref, Metadata: metadata}); err != nil {
		return
	}
	s.IncProcessed()
}

// retag re-derives a file's genre/mood tags from its just-computed
// classification, the Go counterpart of the original's VIP3 collection
// retagger: a classification always implies a current pair of tags,
// rather than leaving tags/file_tags schema-only.
func (s *AnalyzeStage) retag(ctx context.Context, fileID int64, m analysis.Metadata) {
	for _, name := range []string{m.Genre, m.Mood} {
		if name == "" {
			continue
		}
		var tagID int64
		err := store.WithRetry(ctx, 0, func(ctx context.Context) error {
			var tagErr error
			tagID, tagErr = s.db.EnsureTag(ctx, name)
			return tagErr
		})
		if err != nil {
			log.Printf("analyze: ensuring tag %q for file %d: %v", name, fileID, store.UserMessage(err))
			continue
		}
		if err := store.WithRetry(ctx, 0, func(ctx context.Context) error {
			return s.db.TagFile(ctx, fileID, tagID)
		}); err != nil {
			log.Printf("analyze: tagging file %d with %q: %v", fileID, name, store.UserMessage(err))
		}
	}
}
