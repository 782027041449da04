package attach

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"shotbridge/internal/tracking"
)

// mediaFile is a local file whose content type has been sniffed.
type mediaFile struct {
	path string
	name string
	ext  string
	mime string
	size int64
}

// inspect checks that path is a regular file whose sniffed type belongs to
// family ("image" or "video").
func inspect(path, family string) (mediaFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return mediaFile{}, tracking.Wrap(tracking.ErrNotFound, "", "inspect", path, err)
		}
		return mediaFile{}, tracking.Wrap(tracking.ErrValidation, "", "inspect", path, err)
	}
	if info.IsDir() {
		return mediaFile{}, tracking.Wrap(tracking.ErrValidation, "", "inspect", path+" is a directory", nil)
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return mediaFile{}, tracking.Wrap(tracking.ErrValidation, "", "inspect", path, err)
	}
	if !strings.HasPrefix(mt.String(), family+"/") {
		return mediaFile{}, tracking.Wrap(tracking.ErrValidation, "", "inspect",
			fmt.Sprintf("%s is %s, want %s/*", filepath.Base(path), mt.String(), family), nil)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		ext = mt.Extension()
	}
	return mediaFile{
		path: path,
		name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		ext:  ext,
		mime: mt.String(),
		size: info.Size(),
	}, nil
}
