package pipeline

import (
	"github.com/dojevou/midi-pipeline/internal/analysis"
	"github.com/dojevou/midi-pipeline/internal/hash"
)

// FileRef is the value carried on every inter-stage queue from import
// through rename/export (spec §4.5). It is an owned value: no stage
// mutates another stage's copy.
type FileRef struct {
	ID               int64
	Filepath         string
	Filename         string
	OriginalFilename string
	ContentHash      hash.ContentHash
	ParentFileID     int64 // 0 if this file has no parent split
}

// AnalyzedRef is a FileRef plus the metadata the analyze stage computed
// for it, handed to the optional rename/export stages.
type AnalyzedRef struct {
	FileRef
	Metadata analysis.Metadata
}
