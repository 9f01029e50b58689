package store

import "context"

// Collection is one row of `collections`. SmartFilters holds the raw JSON
// filter document for is_smart collections; it is nil for manual ones.
type Collection struct {
	ID            int64
	Name          string
	IsSmart       bool
	SmartFilters  []byte
}

// CreateCollection inserts a new collection and returns its id.
func (p *Pool) CreateCollection(ctx context.Context, c Collection) (int64, error) {
	var id int64
	err := p.db.QueryRow(ctx, `
		INSERT INTO collections (name, is_smart, smart_filters)
		VALUES ($1, $2, $3)
		RETURNING id`, c.Name, c.IsSmart, c.SmartFilters).Scan(&id)
	return id, err
}

// AddToCollection inserts a (collection_id, file_id) row at the given sort
// position.
func (p *Pool) AddToCollection(ctx context.Context, collectionID, fileID int64, sortOrder int32) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO collection_files (collection_id, file_id, sort_order)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection_id, file_id) DO UPDATE SET sort_order = EXCLUDED.sort_order`,
		collectionID, fileID, sortOrder)
	return err
}
