package domain

import (
	"context"
	"time"
)

// MediaType distinguishes an event's cover image from its gallery.
type MediaType string

const (
	MediaTypeCover   MediaType = "COVER"
	MediaTypeGallery MediaType = "GALLERY"
)

// Media is a stored media object reference.
type Media struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Filename  string    `json:"filename"`
	Type      MediaType `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// MediaUpload is an inbound file to store.
type MediaUpload struct {
	Filename    string
	ContentType string
	Body        []byte
}

// MediaRepository defines storage for media rows and their event associations.
type MediaRepository interface {
	Create(ctx context.Context, m *Media) error
	AttachCover(ctx context.Context, eventID, mediaID string) error
	AttachGalleryImage(ctx context.Context, eventID, mediaID string) error
	ListByEvent(ctx context.Context, eventID string, mediaType MediaType) ([]*Media, error)
	DeleteByEvent(ctx context.Context, eventID string, mediaType MediaType) error
}

// MediaStorage is the object-storage collaborator invoked around event
// create/update/delete. It is not part of the lifecycle engine's invariants.
type MediaStorage interface {
	UploadCover(ctx context.Context, eventID string, file MediaUpload) (*Media, error)
	UploadGallery(ctx context.Context, eventID string, files []MediaUpload) ([]*Media, error)
	// ReplaceGallery deletes the existing gallery and uploads the new files.
	ReplaceGallery(ctx context.Context, eventID string, files []MediaUpload) ([]*Media, error)
	DeleteCover(ctx context.Context, eventID string) error
	DeleteGallery(ctx context.Context, eventID string) error
}
