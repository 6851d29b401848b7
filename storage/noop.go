package storage

import (
	"context"
	"errors"
	"io"
)

var ErrUploadsDisabled = errors.New("file uploads are not configured")

type noopUploader struct{}

// NewNoopUploader returns an uploader that rejects writes. Used when object
// storage is not configured so the rest of the engine can run without it.
func NewNoopUploader() FileUploader {
	return noopUploader{}
}

func (noopUploader) Upload(_ context.Context, _ string, _ string, _ io.Reader) (*UploadResult, error) {
	return nil, ErrUploadsDisabled
}

func (noopUploader) Delete(_ context.Context, _ string) error {
	return nil
}

func (noopUploader) GetPublicURL(_ string) string {
	return ""
}
