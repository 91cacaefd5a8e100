package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"clinic-appointment-service/config"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/sirupsen/logrus"
)

var ErrUnsupportedImageType = errors.New("unsupported image type")

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// ImageStorage persists profile images and returns their public URL.
type ImageStorage interface {
	UploadImage(ctx context.Context, ownerID uuid.UUID, file io.Reader, size int64, contentType string) (string, error)
}

type minioImageStorage struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
	log           *logrus.Logger
}

func NewMinioImageStorage(client *minio.Client, cfg config.StorageConfig, log *logrus.Logger) ImageStorage {
	baseURL := strings.TrimRight(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		baseURL = scheme + "://" + cfg.Endpoint
	}
	return &minioImageStorage{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: baseURL,
		log:           log,
	}
}

func (s *minioImageStorage) UploadImage(ctx context.Context, ownerID uuid.UUID, file io.Reader, size int64, contentType string) (string, error) {
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", ErrUnsupportedImageType
	}

	objectName := fmt.Sprintf("%s/%s%s", ownerID, uuid.NewString(), ext)
	_, err := s.client.PutObject(ctx, s.bucket, objectName, file, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		s.log.Warnf("Failed to upload image %s: %+v", objectName, err)
		return "", fmt.Errorf("upload image: %w", err)
	}

	return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, objectName), nil
}
