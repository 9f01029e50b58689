package pipeline

import (
	"context"
	"log"

	"github.com/dojevou/midi-pipeline/internal/sanitize"
	"github.com/dojevou/midi-pipeline/internal/store"
)

// SanitizeStage is stage 2 (spec §4.5.2): normalize the stored filename
// and forward the updated FileRef.
type SanitizeStage struct {
	*Stage
	db  *store.Pool
	in  *Queue[FileRef]
	out *Queue[FileRef]
}

func NewSanitizeStage(workers int, db *store.Pool, in, out *Queue[FileRef]) *SanitizeStage {
	return &SanitizeStage{Stage: NewStage("sanitize", workers), db: db, in: in, out: out}
}

func (s *SanitizeStage) Run(ctx context.Context) {
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

func (s *SanitizeStage) worker(ctx context.Context) {
	for {
		ref, ok := s.in.Pop(ctx)
		if !ok {
			return
		}
		s.sanitizeOne(ctx, ref)
	}
}

func (s *SanitizeStage) sanitizeOne(ctx context.Context, ref FileRef) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("sanitize: recovered panic on %s: %v", ref.Filepath, r)
		}
	}()

	clean := sanitize.Filename(ref.Filename)
	if clean != ref.Filename {
		err := store.WithRetry(ctx, 0, func(ctx context.Context) error {
			return s.db.UpdateFilename(ctx, ref.ID, clean)
		})
		if err != nil {
			log.Printf("sanitize: updating %s: %v", ref.Filepath, store.UserMessage(err))
			return
		}
		ref.Filename = clean
	}

	if err := s.out.Push(ctx, ref); err != nil {
		return
	}
	s.IncProcessed()
}
