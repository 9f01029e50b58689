package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dojevou/midi-pipeline/internal/hash"
	"github.com/dojevou/midi-pipeline/internal/split"
	"github.com/dojevou/midi-pipeline/internal/store"
)

// SplitStage is stage 3 (spec §4.5.3): run C3 over each file, writing any
// resulting single-track children to disk and recording the parent-child
// relationship, or forwarding the file unchanged if it was already
// single-track.
type SplitStage struct {
	*Stage
	db  *store.Pool
	in  *Queue[FileRef]
	out *Queue[FileRef]
}

func NewSplitStage(workers int, db *store.Pool, in, out *Queue[FileRef]) *SplitStage {
	return &SplitStage{Stage: NewStage("split", workers), db: db, in: in, out: out}
}

func (s *SplitStage) Run(ctx context.Context) {
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

func (s *SplitStage) worker(ctx context.Context) {
	for {
		ref, ok := s.in.Pop(ctx)
		if !ok {
			return
		}
		s.splitOne(ctx, ref)
	}
}

func (s *SplitStage) splitOne(ctx context.Context, ref FileRef) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("split: recovered panic on %s: %v", ref.Filepath, r)
		}
	}()

	raw, err := os.ReadFile(ref.Filepath)
	if err != nil {
		log.Printf("split: reading %s: %v", ref.Filepath, err)
		return
	}

	outcome := split.Split(raw)
	switch {
	case outcome.NoTracksToSplit:
		log.Printf("split: %s has no sounded tracks to split", ref.Filepath)
		return
	case outcome.Corrupt:
		log.Printf("split: %s is corrupt: %s", ref.Filepath, outcome.CorruptReason)
		return
	}
	if outcome.Repaired {
		log.Printf("split: repaired %s: %s", ref.Filepath, outcome.RepairDescription)
	}

	if len(outcome.Splits) == 1 && outcome.Splits[0].TrackNumber == 0 {
		if err := s.out.Push(ctx, ref); err != nil {
			return
		}
		s.IncProcessed()
		return
	}

	for _, child := range outcome.Splits {
		childPath := derivedSplitPath(ref.Filepath, child.TrackNumber)
		if err := os.WriteFile(childPath, child.Bytes, 0o644); err != nil {
			log.Printf("split: writing %s: %v", childPath, err)
			continue
		}
		contentHash := hash.Bytes(child.Bytes)

		var childID int64
		err := store.WithRetry(ctx, 0, func(ctx context.Context) error {
			var insertErr error
			childID, insertErr = s.db.InsertFile(ctx, filepath.Base(childPath), ref.OriginalFilename, childPath, contentHash, int64(len(child.Bytes)))
			return insertErr
		})
		if err != nil {
			log.Printf("split: inserting child of %s: %v", ref.Filepath, store.UserMessage(err))
			continue
		}

		var trackName, instrument *string
		if child.TrackName != "" {
			trackName = &child.TrackName
		}
		if child.HasInstrument {
			instrument = &child.Instrument
		}
		err = store.WithRetry(ctx, 0, func(ctx context.Context) error {
			return s.db.InsertTrackSplit(ctx, store.TrackSplit{
				ParentFileID: ref.ID,
				SplitFileID:  childID,
				TrackNumber:  int32(child.TrackNumber),
				TrackName:    trackName,
				Instrument:   instrument,
				NoteCount:    int64(child.NoteCount),
			})
		})
		if err != nil {
			log.Printf("split: recording track_splits row for %s: %v", childPath, store.UserMessage(err))
			continue
		}

		if err := s.out.Push(ctx, FileRef{ID: childID, Filepath: childPath, Filename: filepath.Base(childPath), OriginalFilename: ref.OriginalFilename, ContentHash: contentHash, ParentFileID: ref.ID}); err != nil {
			return
		}
	}

	if err := s.out.Push(ctx, ref); err != nil {
		return
	}
	s.IncProcessed()
}

// derivedSplitPath names a split child deterministically from its parent
// and track number, per spec §4.5.3 ("a derived filename").
func derivedSplitPath(parentPath string, trackNumber int) string {
	dir := filepath.Dir(parentPath)
	base := strings.TrimSuffix(filepath.Base(parentPath), filepath.Ext(parentPath))
	return filepath.Join(dir, fmt.Sprintf("%s_track%02d.mid", base, trackNumber))
}
