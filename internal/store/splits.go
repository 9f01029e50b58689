package store

import "context"

// TrackSplit is one row of `track_splits`, linking a parent multi-track
// file to one of the single-track children C3 produced (spec §6).
type TrackSplit struct {
	ParentFileID int64
	SplitFileID  int64
	TrackNumber  int32
	TrackName    *string
	Instrument   *string
	NoteCount    int64
}

// InsertTrackSplit records the parent-child relationship for one split
// output, per spec §4.5.3.
func (p *Pool) InsertTrackSplit(ctx context.Context, s TrackSplit) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO track_splits (parent_file_id, split_file_id, track_number, track_name, instrument, note_count)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ParentFileID, s.SplitFileID, s.TrackNumber, s.TrackName, s.Instrument, s.NoteCount)
	return err
}
