package pipeline

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/dojevou/midi-pipeline/internal/hash"
	"github.com/dojevou/midi-pipeline/internal/store"
)

// ImportStage is stage 1 (spec §4.5.1): hash each discovered path, skip
// bytes-identical duplicates, insert a files row, and emit a FileRef.
type ImportStage struct {
	*Stage
	db  *store.Pool
	out *Queue[FileRef]
}

func NewImportStage(workers int, db *store.Pool, out *Queue[FileRef]) *ImportStage {
	return &ImportStage{Stage: NewStage("import", workers), db: db, out: out}
}

// Run drains paths until the channel is closed, spawning s.Workers
// goroutines. It blocks until every worker has exited.
func (s *ImportStage) Run(ctx context.Context, paths <-chan string) {
	s.Start()
	defer s.Stop()

	done := make(chan struct{}, s.Workers)
	for i := 0; i < s.Workers; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			s.worker(ctx, paths)
		}()
	}
	for i := 0; i < s.Workers; i++ {
		<-done
	}
	s.out.Close()
}

func (s *ImportStage) worker(ctx context.Context, paths <-chan string) {
	for {
		path, ok := <-paths
		if !ok {
			return
		}
		s.importOne(ctx, path)
	}
}

func (s *ImportStage) importOne(ctx context.Context, path string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("import: recovered panic on %s: %v", path, r)
		}
	}()

	contentHash, err := hash.File(path)
	if err != nil {
		log.Printf("import: hashing %s: %v", path, err)
		return
	}

	existing, err := s.db.FindByHash(ctx, contentHash)
	if err != nil {
		log.Printf("import: looking up hash for %s: %v", path, err)
		return
	}
	if existing != nil {
		s.IncProcessed()
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		log.Printf("import: stat %s: %v", path, err)
		return
	}

	var id int64
	err = store.WithRetry(ctx, 0, func(ctx context.Context) error {
		var insertErr error
		id, insertErr = s.db.InsertFile(ctx, path, path, path, contentHash, info.Size())
		return insertErr
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			s.IncProcessed()
			return
		}
		log.Printf("import: inserting %s: %v", path, store.UserMessage(err))
		return
	}

	ref := FileRef{ID: id, Filepath: path, Filename: path, OriginalFilename: path, ContentHash: contentHash}
	if err := s.out.Push(ctx, ref); err != nil {
		return
	}
	s.IncProcessed()
}
