package domain

import "context"

// Tag categorizes events.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TagRepository defines the tag lookup surface the lifecycle engine consumes.
type TagRepository interface {
	GetByID(ctx context.Context, id string) (*Tag, error)
	// FilterExisting returns the subset of ids that exist in the store,
	// preserving input order. Unknown ids are dropped silently.
	FilterExisting(ctx context.Context, ids []string) ([]string, error)
}
