package store

import "context"

// EnsureTag inserts the tag if it does not already exist and returns its
// id either way (`tags.name` is UNIQUE per spec §6).
func (p *Pool) EnsureTag(ctx context.Context, name string) (int64, error) {
	var id int64
	err := p.db.QueryRow(ctx, `
		INSERT INTO tags (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, name).Scan(&id)
	return id, err
}

// TagFile inserts the many-to-many (file_id, tag_id) row, a no-op if it
// already exists.
func (p *Pool) TagFile(ctx context.Context, fileID, tagID int64) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO file_tags (file_id, tag_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, fileID, tagID)
	return err
}
