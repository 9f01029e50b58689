package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dojevou/midi-pipeline/internal/hash"
)

// File is one row of the `files` table (spec §6).
type File struct {
	ID               int64
	Filename         string
	OriginalFilename string
	Filepath         string
	ContentHash      hash.ContentHash
	FileSizeBytes    int64
	NumTracks        int32
	AnalyzedAt       *time.Time
	CreatedAt        time.Time
}

// ErrDuplicate is returned by InsertFile when content_hash already exists,
// letting the import stage (§4.5.1) count it as a skipped duplicate
// rather than retry it as a transient failure.
var ErrDuplicate = errors.New("store: duplicate content hash")

// FindByHash looks up an existing file by its content hash, used by the
// import stage to skip duplicates before reading the file a second time.
func (p *Pool) FindByHash(ctx context.Context, h hash.ContentHash) (*File, error) {
	row := p.db.QueryRow(ctx, `
		SELECT id, filename, original_filename, filepath, content_hash, file_size_bytes, num_tracks, analyzed_at, created_at
		FROM files WHERE content_hash = $1`, h[:])
	var f File
	var contentHash []byte
	if err := row.Scan(&f.ID, &f.Filename, &f.OriginalFilename, &f.Filepath, &contentHash, &f.FileSizeBytes, &f.NumTracks, &f.AnalyzedAt, &f.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	copy(f.ContentHash[:], contentHash)
	return &f, nil
}

// InsertFile inserts a new files row with num_tracks initialized to 0, per
// spec §4.5.1, returning its assigned id. It returns ErrDuplicate rather
// than the raw unique-violation error so callers don't need to inspect
// Postgres error codes themselves.
func (p *Pool) InsertFile(ctx context.Context, filename, originalFilename, filepath string, h hash.ContentHash, sizeBytes int64) (int64, error) {
	var id int64
	err := p.db.QueryRow(ctx, `
		INSERT INTO files (filename, original_filename, filepath, content_hash, file_size_bytes, num_tracks)
		VALUES ($1, $2, $3, $4, $5, 0)
		RETURNING id`, filename, originalFilename, filepath, h[:], sizeBytes).Scan(&id)
	if err != nil {
		var pgErr interface{ SQLState() string }
		if errors.As(err, &pgErr) && pgErr.SQLState() == "23505" {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return id, nil
}

// UpdateFilename applies the sanitized filename computed by stage 2.
func (p *Pool) UpdateFilename(ctx context.Context, fileID int64, filename string) error {
	_, err := p.db.Exec(ctx, `UPDATE files SET filename = $1 WHERE id = $2`, filename, fileID)
	return err
}

// SetNumTracks records how many tracks a file (or split output) contains.
func (p *Pool) SetNumTracks(ctx context.Context, fileID int64, numTracks int32) error {
	_, err := p.db.Exec(ctx, `UPDATE files SET num_tracks = $1 WHERE id = $2`, numTracks, fileID)
	return err
}

// MarkAnalyzed stamps analyzed_at = now(), per spec §4.5.4.
func (p *Pool) MarkAnalyzed(ctx context.Context, fileID int64) error {
	_, err := p.db.Exec(ctx, `UPDATE files SET analyzed_at = now() WHERE id = $1`, fileID)
	return err
}
