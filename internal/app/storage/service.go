/*
Package storage provides S3-compatible object storage for user-uploaded
images (post images and profile avatars) via presigned URLs. The server never
proxies image bytes; clients upload and download directly against the bucket.
*/
package storage

import (
	"context"
	"time"
)

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// ImageStorage defines the public interface for the image storage service.
type ImageStorage interface {
	// PresignUpload generates a pre-signed URL for uploading an image.
	PresignUpload(
		ctx context.Context,
		key string,
		mimeType string,
		fileSize int64,
		duration time.Duration,
	) (string, error)

	// PresignDownload generates a pre-signed URL for downloading an image.
	PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error)

	// Delete removes the image specified by the given key.
	Delete(ctx context.Context, key string) error
}

// NewImageStorage is the factory function for ImageStorage.
// Only S3-compatible implementations are supported.
func NewImageStorage(cfg ServiceConfig) (ImageStorage, error) {
	return newS3Client(cfg)
}
