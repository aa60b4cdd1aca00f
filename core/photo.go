package core

import (
	"context"
	"io"
)

// Photo is an uploaded image, as received from a client.
type Photo struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// PhotoStore is any service that can persist photos and serve them back by URL.
type PhotoStore interface {
	// UploadPhoto stores the photo and returns its public URL.
	UploadPhoto(ctx context.Context, photo Photo) (string, error)
}
