package pipeline

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/dojevou/midi-pipeline/internal/exportdialect"
)

// ExportStage is stage 6, optional (spec §4.5.6): compute the
// target-device filename for each configured dialect and copy the file
// into the target tree.
type ExportStage struct {
	*Stage
	in         *Queue[AnalyzedRef]
	targetRoot string
	dialect    exportdialect.Dialect
}

func NewExportStage(workers int, in *Queue[AnalyzedRef], targetRoot string, dialect exportdialect.Dialect) *ExportStage {
	return &ExportStage{Stage: NewStage("export", workers), in: in, targetRoot: targetRoot, dialect: dialect}
}

func (s *ExportStage) Run(ctx context.Context) {
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
}

func (s *ExportStage) worker(ctx context.Context) {
	for {
		ref, ok := s.in.Pop(ctx)
		if !ok {
			return
		}
		s.exportOne(ref)
	}
}

func (s *ExportStage) exportOne(ref AnalyzedRef) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("export: recovered panic on %s: %v", ref.Filepath, r)
		}
	}()

	bpm := 0.0
	if ref.Metadata.BPM != nil {
		bpm = *ref.Metadata.BPM
	}
	keyTonic := "C"
	keyMinor := false
	if ref.Metadata.KeyTonic != nil {
		keyTonic = *ref.Metadata.KeyTonic
		keyMinor = ref.Metadata.KeyIsMinor
	}

	params := exportdialect.Params{
		DurationSeconds:  ref.Metadata.DurationSeconds,
		BPM:              bpm,
		TimeSigNumerator: ref.Metadata.TimeSigNumerator,
		KeyTonic:         keyTonic,
		KeyIsMinor:       keyMinor,
		Folder:           filepath.Base(filepath.Dir(ref.Filepath)),
		OriginalFilename: ref.Filename,
	}

	for _, d := range s.dialect.Dialects() {
		name, err := exportdialect.Filename(d, params)
		if err != nil {
			log.Printf("export: naming %s for dialect %s: %v", ref.Filepath, d, err)
			continue
		}
		destDir := filepath.Join(s.targetRoot, string(d))
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			log.Printf("export: creating %s: %v", destDir, err)
			continue
		}
		if err := copyFile(ref.Filepath, filepath.Join(destDir, name)); err != nil {
			log.Printf("export: copying %s: %v", ref.Filepath, err)
			continue
		}
	}
	s.IncProcessed()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
