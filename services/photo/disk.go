package photosvc

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

// diskStore keeps photos under the media root. Used in debug mode.
type diskStore struct {
	root    string
	baseURL string
	folder  string
}

var _ core.PhotoStore = (*diskStore)(nil)

func NewDiskStore(conf *core.Config) core.PhotoStore {
	return &diskStore{
		root:    conf.Upload.MediaRoot,
		baseURL: conf.Upload.MediaURL,
		folder:  conf.Upload.Folder,
	}
}

func (s *diskStore) UploadPhoto(_ context.Context, photo core.Photo) (string, error) {
	name := filepath.Base(photo.Filename)
	dir := filepath.Join(s.root, s.folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating media dir")
	}

	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", errors.Wrap(err, "creating photo file")
	}
	defer func() { _ = f.Close() }()
	if _, err = io.Copy(f, photo.Content); err != nil {
		return "", errors.Wrap(err, "writing photo file")
	}
	return path.Join(s.baseURL, s.folder, name), nil
}
