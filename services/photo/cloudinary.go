// Package photosvc stores uploaded photos.
package photosvc

import (
	"context"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

type cloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

var _ core.PhotoStore = (*cloudinaryStore)(nil)

func NewCloudinaryStore(conf *core.Config) (core.PhotoStore, error) {
	cld, err := cloudinary.NewFromParams(conf.Upload.CloudName, conf.Upload.APIKey, conf.Upload.APISecret)
	if err != nil {
		return nil, errors.Wrap(err, "configuring cloudinary")
	}
	cld.Config.URL.Secure = true
	return &cloudinaryStore{cld: cld, folder: conf.Upload.Folder}, nil
}

func (s *cloudinaryStore) UploadPhoto(ctx context.Context, photo core.Photo) (string, error) {
	publicID := strings.TrimSuffix(photo.Filename, path.Ext(photo.Filename))
	res, err := s.cld.Upload.Upload(ctx, photo.Content, uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     publicID,
		Overwrite:    api.Bool(true),
		ResourceType: "image",
	})
	if err != nil {
		return "", errors.Wrap(err, "uploading photo")
	}
	if res.Error.Message != "" {
		return "", errors.Errorf("uploading photo: %s", res.Error.Message)
	}
	return res.SecureURL, nil
}
