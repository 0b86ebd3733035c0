package media

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"eventsphere/internal/domain"
)

// S3Config holds configuration for the S3 media store.
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
}

// StorageConfig holds configuration for creating a media storage.
type StorageConfig struct {
	Provider string
	S3       S3Config
}

// NewStorage creates a media storage from config. Provider "s3" uses AWS S3;
// "noop" or unknown uses a no-op store that only logs.
func NewStorage(config StorageConfig, repo domain.MediaRepository, logger *slog.Logger) (domain.MediaStorage, error) {
	switch config.Provider {
	case "s3":
		awsCfg := aws.Config{
			Region: config.S3.Region,
			Credentials: aws.NewCredentialsCache(
				credentials.NewStaticCredentialsProvider(
					config.S3.AccessKeyID,
					config.S3.SecretAccessKey,
					"",
				),
			),
		}
		return &s3Storage{
			client: s3.NewFromConfig(awsCfg),
			bucket: config.S3.Bucket,
			repo:   repo,
			logger: logger,
		}, nil
	case "noop", "":
		return &noopStorage{logger: logger}, nil
	default:
		logger.Warn("unknown media provider, using noop", "provider", config.Provider)
		return &noopStorage{logger: logger}, nil
	}
}

type s3Storage struct {
	client *s3.Client
	bucket string
	repo   domain.MediaRepository
	logger *slog.Logger
}

func (s *s3Storage) UploadCover(ctx context.Context, eventID string, file domain.MediaUpload) (*domain.Media, error) {
	m, err := s.upload(ctx, file, domain.MediaTypeCover)
	if err != nil {
		return nil, err
	}
	if err := s.repo.AttachCover(ctx, eventID, m.ID); err != nil {
		return nil, fmt.Errorf("attach cover image: %w", err)
	}
	return m, nil
}

func (s *s3Storage) UploadGallery(ctx context.Context, eventID string, files []domain.MediaUpload) ([]*domain.Media, error) {
	uploaded := make([]*domain.Media, 0, len(files))
	for _, file := range files {
		m, err := s.upload(ctx, file, domain.MediaTypeGallery)
		if err != nil {
			return nil, err
		}
		if err := s.repo.AttachGalleryImage(ctx, eventID, m.ID); err != nil {
			return nil, fmt.Errorf("attach gallery image: %w", err)
		}
		uploaded = append(uploaded, m)
	}
	return uploaded, nil
}

func (s *s3Storage) ReplaceGallery(ctx context.Context, eventID string, files []domain.MediaUpload) ([]*domain.Media, error) {
	if err := s.DeleteGallery(ctx, eventID); err != nil {
		return nil, err
	}
	return s.UploadGallery(ctx, eventID, files)
}

func (s *s3Storage) DeleteCover(ctx context.Context, eventID string) error {
	return s.deleteByType(ctx, eventID, domain.MediaTypeCover)
}

func (s *s3Storage) DeleteGallery(ctx context.Context, eventID string) error {
	return s.deleteByType(ctx, eventID, domain.MediaTypeGallery)
}

func (s *s3Storage) upload(ctx context.Context, file domain.MediaUpload, mediaType domain.MediaType) (*domain.Media, error) {
	key := fmt.Sprintf("%s-%s-%s", strings.ToLower(string(mediaType)), uuid.NewString(), file.Filename)
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(file.Body),
	}
	if file.ContentType != "" {
		input.ContentType = aws.String(file.ContentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}

	m := &domain.Media{
		URL:       key,
		Filename:  file.Filename,
		Type:      mediaType,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("create media record: %w", err)
	}
	return m, nil
}

func (s *s3Storage) deleteByType(ctx context.Context, eventID string, mediaType domain.MediaType) error {
	media, err := s.repo.ListByEvent(ctx, eventID, mediaType)
	if err != nil {
		return fmt.Errorf("list media: %w", err)
	}
	for _, m := range media {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(m.URL),
		})
		if err != nil {
			// The object may already be gone; the database row is what the
			// engine depends on.
			s.logger.Warn("delete object failed", "key", m.URL, "error", err)
		}
	}
	if err := s.repo.DeleteByEvent(ctx, eventID, mediaType); err != nil {
		return fmt.Errorf("delete media records: %w", err)
	}
	return nil
}

type noopStorage struct {
	logger *slog.Logger
}

func (n *noopStorage) UploadCover(ctx context.Context, eventID string, file domain.MediaUpload) (*domain.Media, error) {
	n.logger.Info("media upload skipped (noop)", "event_id", eventID, "filename", file.Filename)
	return &domain.Media{Filename: file.Filename, Type: domain.MediaTypeCover}, nil
}

func (n *noopStorage) UploadGallery(ctx context.Context, eventID string, files []domain.MediaUpload) ([]*domain.Media, error) {
	n.logger.Info("media upload skipped (noop)", "event_id", eventID, "count", len(files))
	return []*domain.Media{}, nil
}

func (n *noopStorage) ReplaceGallery(ctx context.Context, eventID string, files []domain.MediaUpload) ([]*domain.Media, error) {
	return n.UploadGallery(ctx, eventID, files)
}

func (n *noopStorage) DeleteCover(ctx context.Context, eventID string) error {
	return nil
}

func (n *noopStorage) DeleteGallery(ctx context.Context, eventID string) error {
	return nil
}
